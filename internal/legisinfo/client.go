package legisinfo

import (
	"context"
	"log/slog"
	"net/url"

	"git.home.luguber.info/inful/legistrack/internal/bill"
	"git.home.luguber.info/inful/legistrack/internal/fetch"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
	"git.home.luguber.info/inful/legistrack/internal/tracker"
)

// Client fetches bill lists from LEGISinfo. It implements tracker.Fetcher.
type Client struct {
	http              *fetch.Client
	baseURL           string
	currentParliament int
	logger            *slog.Logger
}

// NewClient builds a Client. Partitions of parliaments before
// currentParliament are archival and may be served from the response cache.
func NewClient(httpClient *fetch.Client, baseURL string, currentParliament int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: httpClient, baseURL: baseURL, currentParliament: currentParliament, logger: logger}
}

// FetchCurrent fetches the default (current session) bill list.
func (c *Client) FetchCurrent(ctx context.Context) ([]bill.Observation, error) {
	return c.fetch(ctx, c.baseURL, false)
}

// FetchPartition fetches the bill list of one parliament/session.
func (c *Client) FetchPartition(ctx context.Context, p tracker.Partition) ([]bill.Observation, error) {
	u, err := c.PartitionURL(p)
	if err != nil {
		return nil, err
	}
	archival := c.currentParliament > 0 && p.Parliament < c.currentParliament
	return c.fetch(ctx, u, archival)
}

// PartitionURL returns the export URL for p.
func (c *Client) PartitionURL(p tracker.Partition) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("parlsession", p.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) fetch(ctx context.Context, rawURL string, cacheable bool) ([]bill.Observation, error) {
	body, err := c.http.Get(ctx, rawURL, cacheable)
	if err != nil {
		return nil, err
	}
	export, err := ParseExport(body)
	if err != nil {
		return nil, err
	}
	if export.Skipped > 0 {
		c.logger.WarnContext(ctx, "Skipped bills without number or session",
			logfields.URL(rawURL), logfields.Count(export.Skipped))
	}
	c.logger.Debug("Parsed LEGISinfo export", logfields.URL(rawURL), logfields.Count(len(export.Observations)))
	return export.Observations, nil
}

var _ tracker.Fetcher = (*Client)(nil)
