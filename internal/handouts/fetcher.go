package handouts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/knzhou-cli/knzhou/internal/remote"
	"github.com/spf13/afero"
)

var ErrIO = errors.New("local io error")

// ContentSource opens the remote content of a handout.
type ContentSource interface {
	Open(ctx context.Context, handout string) (io.ReadCloser, error)
}

// ContentFetcher downloads a single handout and writes it atomically.
type ContentFetcher struct {
	fs     afero.Fs
	source ContentSource
	output OutputFunc
}

func NewContentFetcher(fsys afero.Fs, source ContentSource, output OutputFunc) *ContentFetcher {
	return &ContentFetcher{fs: fsys, source: source, output: output}
}

// FetchOne downloads handout into its output path and returns that path.
// Nothing is left under the output name unless the whole body was written.
func (f *ContentFetcher) FetchOne(ctx context.Context, handout string) (string, error) {
	if err := ValidateIdentifier(handout); err != nil {
		return "", err
	}
	dest := f.output(handout)

	body, err := f.source.Open(ctx, handout)
	if err != nil {
		return "", err
	}
	defer body.Close()

	src := &trackingReader{r: body}
	write := func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	}

	if err := writeFileAtomic(f.fs, dest, write, 0o644); err != nil {
		if src.err != nil {
			return "", fmt.Errorf("%w: handout %q: %w", remote.ErrNetwork, handout, src.err)
		}
		return "", fmt.Errorf("%w: write %s: %w", ErrIO, dest, err)
	}
	return dest, nil
}

// Fetch adapts FetchOne to the executor.
func (f *ContentFetcher) Fetch(ctx context.Context, c Candidate) (string, error) {
	return f.FetchOne(ctx, c.Identifier)
}

// trackingReader remembers the first read error so body failures can be told
// apart from local write failures.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}
