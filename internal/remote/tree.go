package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/imroc/req/v3"
)

type TreeAPI struct {
	client *req.Client
	url    string
}

func newTreeAPI(client *req.Client, cfg Config) *TreeAPI {
	return &TreeAPI{
		client: client,
		url:    fmt.Sprintf("%s/repos/%s/git/trees/%s", cfg.APIURL, cfg.Repo, url.PathEscape(cfg.Branch)),
	}
}

// Fetch retrieves the full recursive tree of the configured branch.
func (t *TreeAPI) Fetch(ctx context.Context) (*Tree, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader(HeaderAccept, githubMediaType).
		SetHeader(HeaderGitHubVersion, githubAPIVersion).
		SetQueryParam("recursive", "1").
		Get(t.url)

	var body []byte
	if err == nil {
		body = resp.Bytes()
	}
	if err := checkResponse(resp, err, "list tree", body); err != nil {
		return nil, err
	}

	var tree Tree
	if err := jsonUnmarshal(body, &tree); err != nil {
		return nil, fmt.Errorf("%w: list tree: %w", ErrParse, err)
	}
	// an empty listing decodes to a non-nil slice, a missing field does not
	if tree.Entries == nil {
		return nil, fmt.Errorf("%w: list tree: missing tree field", ErrParse)
	}

	if tree.Truncated {
		slog.Warn("remote tree listing truncated", "url", t.url, "entries", len(tree.Entries))
	}
	slog.Debug("remote tree", "sha", tree.SHA, "entries", len(tree.Entries))

	return &tree, nil
}
