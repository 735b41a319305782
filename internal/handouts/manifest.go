package handouts

import (
	"slices"
	"strings"
	"sync"

	"github.com/knzhou-cli/knzhou/internal/remote"
)

// SchemaVersion is the lockfile layout written by this version.
const SchemaVersion = 1

// Entry is one remote file as identified by its slash-separated path and
// optional size.
type Entry struct {
	Path string  `toml:"path"`
	Size *uint64 `toml:"size,omitempty"`
}

// Equal reports whether both entries have the same path and size.
func (e Entry) Equal(o Entry) bool {
	if e.Path != o.Path {
		return false
	}
	if e.Size == nil || o.Size == nil {
		return e.Size == nil && o.Size == nil
	}
	return *e.Size == *o.Size
}

func (e Entry) clone() Entry {
	if e.Size != nil {
		size := *e.Size
		e.Size = &size
	}
	return e
}

// RemoteManifest is the listing fetched once per sync run.
type RemoteManifest struct {
	Revision  string
	SourceURL string
	Entries   []Entry
}

func RemoteManifestFromTree(tree *remote.Tree) RemoteManifest {
	entries := make([]Entry, 0, len(tree.Entries))
	for _, te := range tree.Entries {
		entries = append(entries, Entry{Path: te.Path, Size: te.Size}.clone())
	}
	return RemoteManifest{
		Revision:  tree.SHA,
		SourceURL: tree.URL,
		Entries:   entries,
	}
}

// Manifest records the remote entries that have been synced successfully.
// It is safe for concurrent use; updates are keyed by path and the last Put
// for a path wins.
type Manifest struct {
	SchemaVersion int

	mu      sync.Mutex
	entries map[string]Entry
}

func NewManifest() *Manifest {
	return &Manifest{
		SchemaVersion: SchemaVersion,
		entries:       make(map[string]Entry),
	}
}

func (m *Manifest) Put(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Path] = e.clone()
}

func (m *Manifest) Get(path string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[path]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Contains reports whether an entry with the same path and size is recorded.
func (m *Manifest) Contains(e Entry) bool {
	recorded, ok := m.Get(e.Path)
	return ok && recorded.Equal(e)
}

func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Entries returns a copy of all entries ordered by path.
func (m *Manifest) Entries() []Entry {
	m.mu.Lock()
	entries := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e.clone())
	}
	m.mu.Unlock()

	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Path, b.Path)
	})
	return entries
}
