package handouts

import (
	"errors"
	"fmt"
	"time"
)

// State is the lifecycle of a single candidate within one run.
type State int

const (
	StatePending State = iota
	StateFetching
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateFetching:
		return "Fetching"
	case StateSucceeded:
		return "Succeeded"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is the outcome of one candidate.
type Result struct {
	Candidate Candidate
	State     State
	Output    string
	Err       error
	Duration  time.Duration
}

// Report summarises a sync run.
type Report struct {
	Revision   string
	Considered int      // distinct valid handouts in the remote listing
	UpToDate   int      // handouts skipped because they were already mirrored
	Results    []Result // one per candidate, in plan order
	LoadErr    error    // lockfile could not be read and was treated as empty
	SaveErr    error    // lockfile could not be written
}

func (r *Report) Planned() int {
	return len(r.Results)
}

func (r *Report) Skipped() int {
	return r.UpToDate
}

func (r *Report) Succeeded() []Result {
	return r.filter(StateSucceeded)
}

func (r *Report) Failed() []Result {
	return r.filter(StateFailed)
}

// Err joins the errors of every failed candidate.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Candidate.Identifier, res.Err))
	}
	return errors.Join(errs...)
}

func (r *Report) filter(state State) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.State == state {
			out = append(out, res)
		}
	}
	return out
}
