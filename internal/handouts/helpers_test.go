package handouts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/knzhou-cli/knzhou/internal/remote"
)

func size(n uint64) *uint64 { return &n }

func outputIn(dir string) OutputFunc {
	return func(id string) string { return dir + "/" + id + HandoutExt }
}

type fakeTree struct {
	tree  *remote.Tree
	err   error
	calls int
}

func (f *fakeTree) Fetch(ctx context.Context) (*remote.Tree, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tree, nil
}

// fakeContent serves handout bodies from memory and counts opens.
type fakeContent struct {
	mu     sync.Mutex
	bodies map[string][]byte
	errs   map[string]error
	opened []string
}

func (f *fakeContent) Open(ctx context.Context, handout string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, handout)
	if err, ok := f.errs[handout]; ok {
		return nil, err
	}
	body, ok := f.bodies[handout]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (f *fakeContent) Opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...)
}

// failingReader returns some bytes and then a transport error.
type failingReader struct {
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "%PDF-partial"), nil
	}
	return 0, errors.New("connection reset by peer")
}

func (r *failingReader) Close() error { return nil }

type failingSource struct{}

func (failingSource) Open(ctx context.Context, handout string) (io.ReadCloser, error) {
	return &failingReader{}, nil
}
