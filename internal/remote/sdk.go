package remote

import (
	"github.com/imroc/req/v3"
	"github.com/knzhou-cli/knzhou/internal/version"
)

// Client talks to the GitHub API for listings and to the static site for
// handout content. It is safe for concurrent use.
type Client struct {
	client   *req.Client
	stats    *httpStats
	Tree     *TreeAPI
	Handouts *HandoutAPI
}

// New creates a new Client
func New(cfg Config) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := req.C().
		SetUserAgent(version.UserAgent()).
		SetTimeout(cfg.Timeout).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	stats := newHTTPStats()

	return &Client{
		client:   client,
		stats:    stats,
		Tree:     newTreeAPI(client, cfg),
		Handouts: newHandoutAPI(client, cfg, stats),
	}, nil
}

// Stats returns a snapshot of the traffic seen by this client.
func (c *Client) Stats() HTTPStatsSnapshot {
	return c.stats.snapshot()
}

// Close releases idle connections.
func (c *Client) Close() {
	c.client.GetTransport().CloseIdleConnections()
}
