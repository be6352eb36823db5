package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kalambet/expertfinder/internal/config"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 30
	maxFeedSize     = 5 << 20 // 5MB
)

// ErrNotFound is returned by SearchByID when the directory has no such user.
var ErrNotFound = errors.New("directory: profile not found")

// TransportError reports a failed directory call: either the request never
// completed (Err set) or the directory answered with a non-200 status.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("directory %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("directory %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client queries the profiles directory over its Atom feed API using basic auth.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	baseURL    string
	user       string
	password   string
	pageSize   int
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client from the directory section of the configuration.
func New(cfg config.DirectoryConfig) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.Host, "/"),
		user:     cfg.User,
		password: cfg.Password,
		pageSize: pageSize,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: slog.Default(),
	}
}

// SearchByTag returns profiles carrying the given profile tag.
func (c *Client) SearchByTag(ctx context.Context, tag string) (SearchResult, error) {
	q := url.Values{}
	q.Set("profileTags", tag)

	body, err := c.get(ctx, "search by tag", "/profiles/atom/search.do", q)
	if err != nil {
		return SearchResult{}, err
	}
	defer body.Close()

	res, err := decodeFeed(body, tag)
	if err != nil {
		return SearchResult{}, err
	}
	c.logger.Debug("directory tag search", "tag", tag, "total", res.TotalCount)
	return res, nil
}

// SearchFullText runs a free-text profile search, returning at most one page
// of results.
func (c *Client) SearchFullText(ctx context.Context, text string) (SearchResult, error) {
	q := url.Values{}
	q.Set("ps", strconv.Itoa(c.pageSize))
	q.Set("search", text)

	body, err := c.get(ctx, "full text search", "/profiles/atom/search.do", q)
	if err != nil {
		return SearchResult{}, err
	}
	defer body.Close()

	res, err := decodeFeed(body, text)
	if err != nil {
		return SearchResult{}, err
	}
	c.logger.Debug("directory full text search", "query", text, "total", res.TotalCount)
	return res, nil
}

// SearchByID fetches a single profile. It returns ErrNotFound when the
// directory answers without a usable entry.
func (c *Client) SearchByID(ctx context.Context, userID string) (Profile, error) {
	q := url.Values{}
	q.Set("userid", userID)

	body, err := c.get(ctx, "lookup by id", "/profiles/atom/profileEntry.do", q)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.StatusCode == http.StatusNotFound {
			return Profile{}, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
		}
		return Profile{}, err
	}
	defer body.Close()

	p, err := decodeEntry(body)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", userID, err)
	}
	return p, nil
}

// ProfileURL builds the browser link to a profile page on host.
func ProfileURL(host, userID string) string {
	return strings.TrimRight(host, "/") + "/profiles/html/profileView.do?userid=" + url.QueryEscape(userID)
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values) (io.ReadCloser, error) {
	reqURL := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Accept", "application/atom+xml")

	c.logger.Debug("issuing directory request", "op", op, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode}
	}
	return &limitedBody{Reader: io.LimitReader(resp.Body, maxFeedSize), Closer: resp.Body}, nil
}

type limitedBody struct {
	io.Reader
	io.Closer
}
