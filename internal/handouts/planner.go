package handouts

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/afero"
)

const (
	// HandoutDir is the remote folder holding handouts.
	HandoutDir = "handouts"
	// HandoutExt is the extension every handout carries.
	HandoutExt = ".pdf"
)

var ErrInvalidIdentifier = errors.New("invalid handout identifier")

// OutputFunc maps a handout identifier to its local file path.
type OutputFunc func(identifier string) string

// Candidate is a remote entry that needs fetching in this run.
type Candidate struct {
	Entry      Entry
	Identifier string
	Output     string
}

// IsHandoutPath reports whether p lives directly in HandoutDir and carries
// HandoutExt. Both checks are exact and case-sensitive.
func IsHandoutPath(p string) bool {
	return path.Dir(p) == HandoutDir && path.Ext(p) == HandoutExt
}

// Identifier strips the directory and extension from a handout path.
func Identifier(p string) (string, error) {
	id := strings.TrimSuffix(path.Base(p), HandoutExt)
	if err := ValidateIdentifier(id); err != nil {
		return "", fmt.Errorf("%s: %w", p, err)
	}
	return id, nil
}

// ValidateIdentifier rejects identifiers that are empty or would escape the
// output directory.
func ValidateIdentifier(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidIdentifier, id)
	}
	return nil
}

// SyncPlan is the outcome of planning one run.
type SyncPlan struct {
	Candidates []Candidate // entries to fetch, in listing order
	UpToDate   int         // distinct handouts already mirrored
}

// Considered is the number of distinct, valid handouts in the listing.
func (p SyncPlan) Considered() int {
	return len(p.Candidates) + p.UpToDate
}

// Planner decides which remote handouts are stale relative to the local
// manifest and the files on disk.
type Planner struct {
	fs     afero.Fs
	output OutputFunc
}

func NewPlanner(fsys afero.Fs, output OutputFunc) *Planner {
	return &Planner{fs: fsys, output: output}
}

// Plan returns the entries of rm that must be fetched. An entry is skipped
// only when the manifest records it with the same size and its output file
// exists. Non-handout, duplicate and invalid entries count as neither.
func (p *Planner) Plan(rm RemoteManifest, local *Manifest) SyncPlan {
	seen := mapset.NewThreadUnsafeSet[string]()
	plan := SyncPlan{Candidates: make([]Candidate, 0)}

	for _, entry := range rm.Entries {
		if !IsHandoutPath(entry.Path) {
			slog.Debug("plan", "path", entry.Path, "status", "NotHandout")
			continue
		}
		if !seen.Add(entry.Path) {
			slog.Debug("plan", "path", entry.Path, "status", "Duplicate")
			continue
		}

		id, err := Identifier(entry.Path)
		if err != nil {
			slog.Warn("plan", "path", entry.Path, "status", "Dropped", "error", err)
			continue
		}

		output := p.output(id)
		if local.Contains(entry) {
			exists, err := fileExists(p.fs, output)
			if err != nil {
				slog.Warn("plan", "path", entry.Path, "output", output, "status", "StatFailed", "error", err)
			}
			if exists {
				slog.Debug("plan", "path", entry.Path, "status", "UpToDate")
				plan.UpToDate++
				continue
			}
			slog.Debug("plan", "path", entry.Path, "output", output, "status", "OutputMissing")
		}

		plan.Candidates = append(plan.Candidates, Candidate{
			Entry:      entry.clone(),
			Identifier: id,
			Output:     output,
		})
	}

	return plan
}
