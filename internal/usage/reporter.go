// Package usage reports feature usage to an external metrics logger.
package usage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kalambet/expertfinder/internal/config"
)

const (
	appName        = "IWWExpertFinder"
	featureRequest = "ExpertRequest"
	defaultTimeout = 5 * time.Second
)

// Reporter sends one GET per reported search. A Reporter with no URL
// configured reports nothing.
type Reporter struct {
	endpoint   string
	author     string
	datacenter string
	httpClient *http.Client
}

// New creates a Reporter from the usage section of the configuration.
func New(cfg config.UsageConfig) *Reporter {
	return &Reporter{
		endpoint:   cfg.URL,
		author:     cfg.Author,
		datacenter: cfg.Datacenter,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Enabled reports whether a logger endpoint is configured.
func (r *Reporter) Enabled() bool {
	return r.endpoint != ""
}

// ReportSearch records that user picked query in the named space.
func (r *Reporter) ReportSearch(ctx context.Context, user, space, query string) error {
	if !r.Enabled() {
		return nil
	}

	u, err := url.Parse(r.endpoint)
	if err != nil {
		return fmt.Errorf("parsing usage url: %w", err)
	}
	q := u.Query()
	q.Set("author", r.author)
	q.Set("app", appName)
	q.Set("feature", featureRequest)
	q.Set("datacenter", r.datacenter)
	q.Set("user", user)
	q.Set("communityName", space)
	q.Set("query", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reporting usage: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("reporting usage: unexpected status %d", resp.StatusCode)
	}
	return nil
}
