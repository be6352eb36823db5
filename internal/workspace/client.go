package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kalambet/expertfinder/internal/config"
)

const (
	defaultTimeout = 30 * time.Second
	graphQLView    = "PUBLIC, BETA"
	maxErrorBody   = 4 << 10
)

// ErrPersonNotFound is returned by PersonByEmail when the platform has no
// account for the address.
var ErrPersonNotFound = errors.New("workspace: person not found")

// TransportError reports a request that failed on the wire or came back with
// an unexpected HTTP status.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("workspace %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("workspace %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// GraphQLError carries the errors array of a GraphQL response.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

// Client talks to the messaging platform: OAuth token exchange, the GraphQL
// endpoint and the REST space messages endpoint. Every call obtains a fresh
// app token; the client itself keeps no mutable state.
type Client struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client for the app registered in cfg.
func New(cfg config.WorkspaceConfig) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: slog.Default(),
	}
}

// postJSON sends body as JSON with the given bearer token and decodes the
// response into out when out is non-nil.
func (c *Client) postJSON(ctx context.Context, op, path, token string, body any, wantStatus int, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-graphql-view", graphQLView)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("workspace request rejected", "op", op, "status", resp.StatusCode, "body", string(respBody))
		return &TransportError{Op: op, StatusCode: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", op, err)
	}
	return nil
}
