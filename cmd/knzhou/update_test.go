package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/knzhou-cli/knzhou/internal/handouts"
	"github.com/knzhou-cli/knzhou/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSite serves a tree listing and handout bodies the way GitHub and the
// static site do.
type fakeSite struct {
	srv        *httptest.Server
	treeStatus atomic.Int32
	treeHits   atomic.Int32
	fileHits   atomic.Int32
	bodies     map[string]string
}

func newFakeSite(t *testing.T, bodies map[string]string) *fakeSite {
	t.Helper()
	site := &fakeSite{bodies: bodies}
	site.treeStatus.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/knzhou/knzhou.github.io/git/trees/master", func(w http.ResponseWriter, r *http.Request) {
		site.treeHits.Add(1)
		if status := int(site.treeStatus.Load()); status != http.StatusOK {
			w.WriteHeader(status)
			io.WriteString(w, `{"message":"API rate limit exceeded"}`)
			return
		}
		var entries []string
		for id, body := range site.bodies {
			entries = append(entries, `{"path":"handouts/`+id+`.pdf","type":"blob","size":`+strconv.Itoa(len(body))+`}`)
		}
		entries = append(entries, `{"path":"handouts/Missing.pdf","type":"blob","size":1}`)
		entries = append(entries, `{"path":"index.html","type":"blob","size":5}`)
		io.WriteString(w, `{"sha":"0123456789abcdef","tree":[`+strings.Join(entries, ",")+`]}`)
	})
	mux.HandleFunc("/handouts/", func(w http.ResponseWriter, r *http.Request) {
		site.fileHits.Add(1)
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/handouts/"), ".pdf")
		body, ok := site.bodies[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	})

	site.srv = httptest.NewServer(mux)
	t.Cleanup(site.srv.Close)
	t.Setenv("KNZHOU_API_URL", site.srv.URL)
	t.Setenv("KNZHOU_SITE_URL", site.srv.URL)
	return site
}

func TestUpdate_FullSync(t *testing.T) {
	dir := isolateEnv(t)
	site := newFakeSite(t, map[string]string{"E1": "%PDF-E1", "M2": "%PDF-M2"})

	out, err := executeCmd(t, "update")
	require.NoError(t, err, "item failures do not fail a full sync")

	assert.Contains(t, out, "✓ E1")
	assert.Contains(t, out, "✓ M2")
	assert.Contains(t, out, "✗ Missing")
	assert.Contains(t, out, "0123456")
	assert.Contains(t, out, "3 handouts")

	data, err := os.ReadFile(filepath.Join(dir, "out", "E1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-E1", string(data))
	assert.FileExists(t, filepath.Join(dir, "out", handouts.LockfileName))
	assert.NoFileExists(t, filepath.Join(dir, "out", "Missing.pdf"))

	// only the missing handout is retried
	hits := site.fileHits.Load()
	_, err = executeCmd(t, "update")
	require.NoError(t, err)
	assert.Equal(t, hits+1, site.fileHits.Load())
}

func TestUpdate_FormatTemplate(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv("KNZHOU_FORMAT", "knzhou-{handout}")
	newFakeSite(t, map[string]string{"E1": "%PDF"})

	_, err := executeCmd(t, "update", "E1")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out", "knzhou-E1.pdf"))
	assert.NoFileExists(t, filepath.Join(dir, "out", handouts.LockfileName), "single fetch leaves the lockfile alone")
}

func TestUpdate_NamedFailureIsError(t *testing.T) {
	dir := isolateEnv(t)
	site := newFakeSite(t, map[string]string{"E1": "%PDF"})

	out, err := executeCmd(t, "update", "E1", "Nope", "E1")
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrNotFound)
	assert.Contains(t, out, "✓ E1")
	assert.Contains(t, out, "✗ Nope")
	assert.Equal(t, int32(2), site.fileHits.Load(), "duplicate identifiers fetched once")
	assert.Equal(t, int32(0), site.treeHits.Load())
	assert.FileExists(t, filepath.Join(dir, "out", "E1.pdf"))
}

func TestUpdate_ListingFailureIsError(t *testing.T) {
	isolateEnv(t)
	site := newFakeSite(t, map[string]string{"E1": "%PDF"})
	site.treeStatus.Store(http.StatusForbidden)

	_, err := executeCmd(t, "update")
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, int32(0), site.fileHits.Load())
}

func TestUpdate_InvalidFormatFailsBeforeNetwork(t *testing.T) {
	isolateEnv(t)
	t.Setenv("KNZHOU_FORMAT", "handout")
	site := newFakeSite(t, map[string]string{"E1": "%PDF"})

	out, code := runCLI(t, "update")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "{handout}")
	assert.Equal(t, int32(0), site.treeHits.Load())
	assert.Equal(t, int32(0), site.fileHits.Load())
}

func TestUpdate_ExitCodes(t *testing.T) {
	isolateEnv(t)
	newFakeSite(t, map[string]string{"E1": "%PDF"})

	_, code := runCLI(t, "update")
	assert.Equal(t, 0, code, "partial failure in a full sync exits zero")

	_, code = runCLI(t, "update", "Nope")
	assert.Equal(t, 1, code)
}

func TestUniqueArgs(t *testing.T) {
	assert.Equal(t, []string{"E1", "M2", "E3"}, uniqueArgs([]string{"E1", "M2", "E1", "E3", "M2"}))
}

func TestUpdate_UnreadableLockfileIsReported(t *testing.T) {
	dir := isolateEnv(t)
	newFakeSite(t, map[string]string{"E1": "%PDF"})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "out"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out", handouts.LockfileName), []byte("{{{"), 0o644))

	out, err := executeCmd(t, "update")
	require.NoError(t, err)
	assert.Contains(t, out, "every handout was checked again")
	assert.Contains(t, out, "1 downloaded")
}
