package handouts

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// FetchFunc retrieves one candidate and returns the local path it wrote.
type FetchFunc func(ctx context.Context, c Candidate) (string, error)

// ManifestSaver persists a manifest once a batch has finished.
type ManifestSaver interface {
	Save(m *Manifest) error
}

// Executor runs fetches for a batch of candidates on a bounded worker pool.
type Executor struct {
	workers int
	saver   ManifestSaver
}

// NewExecutor returns an executor with the given parallelism; workers <= 0
// uses one worker per CPU.
func NewExecutor(workers int, saver ManifestSaver) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Executor{workers: workers, saver: saver}
}

func (e *Executor) Workers() int {
	return e.workers
}

// Execute attempts every candidate, records successes in manifest, and saves
// the manifest exactly once after all attempts have finished. A failing
// candidate never stops its siblings. If ctx is cancelled, candidates that
// have not started yet fail with the context error.
func (e *Executor) Execute(ctx context.Context, candidates []Candidate, fetch FetchFunc, manifest *Manifest) *Report {
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{Candidate: c, State: StatePending}
	}

	// errgroup is used for its limiter only; workers never return an error so
	// one failure cannot cancel the rest of the batch
	var g errgroup.Group
	g.SetLimit(e.workers)

	for i := range candidates {
		res := &results[i]
		if err := ctx.Err(); err != nil {
			res.State = StateFailed
			res.Err = err
			continue
		}

		g.Go(func() error {
			e.run(ctx, res, fetch, manifest)
			return nil
		})
	}
	g.Wait()

	report := &Report{Results: results}
	if e.saver != nil {
		if err := e.saver.Save(manifest); err != nil {
			slog.Warn("sync", "op", "SaveLockfile", "status", "Failed", "error", err)
			report.SaveErr = err
		}
	}
	return report
}

func (e *Executor) run(ctx context.Context, res *Result, fetch FetchFunc, manifest *Manifest) {
	c := res.Candidate
	if err := ctx.Err(); err != nil {
		res.State = StateFailed
		res.Err = err
		return
	}

	res.State = StateFetching
	slog.Debug("sync", "op", "Fetch", "status", res.State, "handout", c.Identifier)

	start := time.Now()
	output, err := fetch(ctx, c)
	res.Duration = time.Since(start)

	if err != nil {
		res.State = StateFailed
		res.Err = err
		slog.Error("sync", "op", "Fetch", "status", res.State, "handout", c.Identifier, "error", err)
		return
	}

	manifest.Put(c.Entry)
	res.State = StateSucceeded
	res.Output = output
	slog.Info("sync", "op", "Fetch", "status", res.State, "handout", c.Identifier, "output", output, "took", res.Duration.Round(time.Millisecond))
}
