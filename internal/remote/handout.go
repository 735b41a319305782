package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/imroc/req/v3"
)

const errorBodyLimit = 4 << 10

type HandoutAPI struct {
	client  *req.Client
	siteURL string
	stats   *httpStats
}

func newHandoutAPI(client *req.Client, cfg Config, stats *httpStats) *HandoutAPI {
	return &HandoutAPI{
		client:  client,
		siteURL: cfg.SiteURL,
		stats:   stats,
	}
}

// URL returns the public location of a handout.
func (h *HandoutAPI) URL(handout string) string {
	return fmt.Sprintf("%s/handouts/%s.pdf", h.siteURL, url.PathEscape(handout))
}

// Open starts downloading a handout and returns its body. The caller must
// close the returned reader.
func (h *HandoutAPI) Open(ctx context.Context, handout string) (io.ReadCloser, error) {
	op := fmt.Sprintf("fetch handout %q", handout)

	resp, err := h.client.R().
		SetContext(ctx).
		DisableAutoReadResponse().
		Get(h.URL(handout))
	if err != nil {
		h.stats.setLastError(err)
		return nil, networkError(op, err)
	}

	code := resp.GetStatusCode()
	if code >= 200 && code < 300 {
		return wrapCounting(resp.Body, h.stats.onRecv), nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	resp.Body.Close()

	if code == http.StatusNotFound {
		err = fmt.Errorf("%w: handout %q", ErrNotFound, handout)
	} else {
		err = checkResponse(resp, nil, op, body)
	}
	h.stats.setLastError(err)
	return nil, err
}
