package handouts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/knzhou-cli/knzhou/internal/remote"
	"github.com/knzhou-cli/knzhou/internal/utils"
	"github.com/spf13/afero"
)

const processLockName = ".knzhou.lock.flock"

var ErrSyncInProgress = errors.New("another sync is running in this directory")

// TreeSource lists the remote repository.
type TreeSource interface {
	Fetch(ctx context.Context) (*remote.Tree, error)
}

type Options struct {
	Fs      afero.Fs   // filesystem for outputs and the lockfile, the OS when nil
	Root    string     // directory holding the lockfile
	Output  OutputFunc // identifier to output path
	Workers int        // fetch parallelism, NumCPU when <= 0

	// ProcessLock guards SyncAll with an OS file lock in Root. It needs a
	// real filesystem and is ignored otherwise.
	ProcessLock bool
}

// Syncer mirrors the remote handouts into the local output directory.
type Syncer struct {
	tree     TreeSource
	fetcher  *ContentFetcher
	planner  *Planner
	store    *LockfileStore
	executor *Executor
	lockPath string
}

func NewSyncer(tree TreeSource, content ContentSource, opts Options) *Syncer {
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	output := opts.Output
	if output == nil {
		output = func(id string) string {
			return filepath.Join(opts.Root, id+HandoutExt)
		}
	}

	store := NewLockfileStore(fsys, filepath.Join(opts.Root, LockfileName))

	s := &Syncer{
		tree:     tree,
		fetcher:  NewContentFetcher(fsys, content, output),
		planner:  NewPlanner(fsys, output),
		store:    store,
		executor: NewExecutor(opts.Workers, store),
	}
	if _, isOS := fsys.(*afero.OsFs); isOS && opts.ProcessLock {
		s.lockPath = filepath.Join(opts.Root, processLockName)
	}
	return s
}

// SyncAll lists the remote tree, fetches every stale handout and rewrites the
// lockfile once. A listing failure is returned as an error before any content
// is fetched; per-handout failures are reported in the Report only.
func (s *Syncer) SyncAll(ctx context.Context) (*Report, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	tree, err := s.tree.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("list handouts: %w", err)
	}
	rm := RemoteManifestFromTree(tree)

	manifest, loadErr := s.store.Load()
	if loadErr != nil {
		slog.Warn("lockfile unreadable, treating as empty", "path", s.store.Path(), "error", loadErr)
	}

	plan := s.planner.Plan(rm, manifest)
	slog.Info("sync plan", "revision", rm.Revision, "handouts", plan.Considered(), "recorded", manifest.Len(),
		"fetch", len(plan.Candidates), "workers", s.executor.Workers())

	report := s.executor.Execute(ctx, plan.Candidates, s.fetcher.Fetch, manifest)
	report.Revision = rm.Revision
	report.Considered = plan.Considered()
	report.UpToDate = plan.UpToDate
	report.LoadErr = loadErr

	if err := report.Err(); err != nil {
		slog.Warn("sync finished with failures", "failed", len(report.Failed()), "error", err)
	}
	return report, nil
}

// SyncOne fetches a single handout by identifier without listing the remote
// tree. The lockfile is left untouched.
func (s *Syncer) SyncOne(ctx context.Context, handout string) (string, error) {
	output, err := s.fetcher.FetchOne(ctx, handout)
	if err != nil {
		return "", err
	}
	slog.Info("sync", "op", "Fetch", "status", StateSucceeded, "handout", handout, "output", output)
	return output, nil
}

func (s *Syncer) lock() (func(), error) {
	if s.lockPath == "" {
		return func() {}, nil
	}

	if err := utils.EnsureParent(s.lockPath); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(s.lockPath), err)
	}

	fl := flock.New(s.lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", s.lockPath, err)
	}
	if !locked {
		return nil, ErrSyncInProgress
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			slog.Warn("failed to release sync lock", "path", s.lockPath, "error", err)
		}
	}, nil
}
