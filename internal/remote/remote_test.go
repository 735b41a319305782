package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		APIURL:  srv.URL,
		SiteURL: srv.URL,
		Repo:    "knzhou/knzhou.github.io",
		Branch:  "master",
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, srv
}

func TestTreeFetch_DecodesListing(t *testing.T) {
	var gotUA, gotRecursive, gotPath string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotRecursive = r.URL.Query().Get("recursive")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"sha":"abc","url":"http://x/tree","tree":[
			{"path":"handouts","type":"tree"},
			{"path":"handouts/1.pdf","type":"blob","size":100},
			{"path":"other/2.txt","type":"blob","size":7}
		]}`)
	}))

	tree, err := c.Tree.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/repos/knzhou/knzhou.github.io/git/trees/master", gotPath)
	assert.Equal(t, "1", gotRecursive)
	assert.True(t, strings.HasPrefix(gotUA, "knzhou-cli/"))

	assert.Equal(t, "abc", tree.SHA)
	require.Len(t, tree.Entries, 3)
	assert.Nil(t, tree.Entries[0].Size)
	require.NotNil(t, tree.Entries[1].Size)
	assert.Equal(t, uint64(100), *tree.Entries[1].Size)
}

func TestTreeFetch_ServerErrorIsAPIError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"message":"API rate limit exceeded"}`)
	}))

	_, err := c.Tree.Fetch(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "API rate limit exceeded", apiErr.Message)
}

func TestTreeFetch_MalformedBodyIsParseError(t *testing.T) {
	for name, body := range map[string]string{
		"not json":     `<html>oops</html>`,
		"missing tree": `{"sha":"abc","url":"u"}`,
		"wrong type":   `{"sha":"abc","url":"u","tree":"nope"}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			}))
			_, err := c.Tree.Fetch(context.Background())
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestTreeFetch_UnreachableIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := New(Config{APIURL: srv.URL, SiteURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Tree.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestHandoutOpen_StreamsBodyAndCountsBytes(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/handouts/E1.pdf" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "%PDF-1.7 content")
	}))

	rc, err := c.Handouts.Open(context.Background(), "E1")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	assert.Equal(t, "%PDF-1.7 content", string(data))
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, int64(len(data)), c.Stats().BytesRecvTotal)
}

func TestHandoutOpen_StatusMapping(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/handouts/missing.pdf":
			http.NotFound(w, r)
		default:
			http.Error(w, "boom", http.StatusBadGateway)
		}
	}))

	_, err := c.Handouts.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, c.Stats().LastError, "missing")

	_, err = c.Handouts.Open(context.Background(), "broken")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestHandoutURL_EscapesIdentifier(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, "https://knzhou.github.io/handouts/E1.pdf", c.Handouts.URL("E1"))
	assert.Equal(t, "https://knzhou.github.io/handouts/a%20b.pdf", c.Handouts.URL("a b"))
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)

	bad := cfg
	bad.APIURL = "ftp://example.com"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Repo = "no-slash"
	assert.Error(t, bad.Validate())

	_, err := New(Config{SiteURL: "not a url"})
	assert.Error(t, err)
}

func TestValidateHTTPURL(t *testing.T) {
	for _, raw := range []string{"http://127.0.0.1:8080", "https://knzhou.github.io/", "https://api.github.com"} {
		assert.NoError(t, ValidateHTTPURL(raw), raw)
	}
	for _, raw := range []string{"ftp://example.com", "https://", "knzhou.github.io", "://bad"} {
		assert.Error(t, ValidateHTTPURL(raw), raw)
	}
}
