package handouts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// LockfileName is the manifest file kept in the output root.
const LockfileName = "knzhou.lock"

var ErrManifestParse = errors.New("lockfile: unreadable")

type lockfileDoc struct {
	SchemaVersion int     `toml:"schema_version"`
	Entries       []Entry `toml:"entry"`
}

// LockfileStore loads and saves a Manifest as TOML.
type LockfileStore struct {
	fs   afero.Fs
	path string
}

func NewLockfileStore(fsys afero.Fs, path string) *LockfileStore {
	return &LockfileStore{fs: fsys, path: path}
}

func (s *LockfileStore) Path() string {
	return s.path
}

// Load reads the lockfile. It always returns a usable manifest: a missing
// file yields an empty one, and an unreadable file yields an empty one
// together with an error wrapping ErrManifestParse.
func (s *LockfileStore) Load() (*Manifest, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewManifest(), nil
	}
	if err != nil {
		return NewManifest(), fmt.Errorf("%w: %s: %w", ErrManifestParse, s.path, err)
	}

	var doc lockfileDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return NewManifest(), fmt.Errorf("%w: %s: %w", ErrManifestParse, s.path, err)
	}
	if doc.SchemaVersion != SchemaVersion {
		return NewManifest(), fmt.Errorf("%w: %s: unsupported schema_version %d", ErrManifestParse, s.path, doc.SchemaVersion)
	}

	m := NewManifest()
	for _, e := range doc.Entries {
		if e.Path == "" {
			slog.Warn("lockfile entry without path ignored", "lockfile", s.path)
			continue
		}
		m.Put(e)
	}
	return m, nil
}

// Save atomically replaces the lockfile with the manifest contents.
func (s *LockfileStore) Save(m *Manifest) error {
	doc := lockfileDoc{
		SchemaVersion: SchemaVersion,
		Entries:       m.Entries(),
	}

	var buf bytes.Buffer
	buf.WriteString("# This file is generated by knzhou. Do not edit.\n\n")
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode lockfile: %w", err)
	}

	write := func(w io.Writer) error {
		_, err := buf.WriteTo(w)
		return err
	}
	if err := writeFileAtomic(s.fs, s.path, write, 0o644); err != nil {
		return fmt.Errorf("save lockfile: %w", err)
	}
	slog.Debug("lockfile saved", "path", s.path, "entries", len(doc.Entries))
	return nil
}
