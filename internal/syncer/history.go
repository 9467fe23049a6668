package syncer

import (
	"errors"
	"sync"
	"time"
)

// ErrRunNotFound is returned when a run id is not in the history.
var ErrRunNotFound = errors.New("run not found")

// DefaultHistorySize is how many runs the history keeps.
const DefaultHistorySize = 20

// RunStatus is the lifecycle state of a sync run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunTimedOut  RunStatus = "timed_out"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerCLI      Trigger = "cli"
	TriggerAPI      Trigger = "api"
	TriggerSchedule Trigger = "schedule"
)

// Run is one sync run and its per-table results.
type Run struct {
	ID         string     `json:"id"`
	Trigger    Trigger    `json:"trigger"`
	Status     RunStatus  `json:"status"`
	Tables     []string   `json:"tables"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Results    []Result   `json:"results"`
	Error      string     `json:"error,omitempty"`
	Code       string     `json:"code,omitempty"`
}

// Finished reports whether the run has completed.
func (r Run) Finished() bool {
	return r.Status != RunRunning
}

// History is an in-memory ring of recent runs, newest last.
type History struct {
	mu   sync.RWMutex
	runs []Run
	max  int
}

// NewHistory creates a history holding at most size runs.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{max: size}
}

// Put inserts or replaces the run with the same id.
func (h *History) Put(run Run) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.runs {
		if h.runs[i].ID == run.ID {
			h.runs[i] = run
			return
		}
	}

	h.runs = append(h.runs, run)
	if len(h.runs) > h.max {
		h.runs = h.runs[len(h.runs)-h.max:]
	}
}

// Get returns the run with id.
func (h *History) Get(id string) (Run, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, r := range h.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return Run{}, ErrRunNotFound
}

// List returns the runs newest first.
func (h *History) List() []Run {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Run, 0, len(h.runs))
	for i := len(h.runs) - 1; i >= 0; i-- {
		out = append(out, h.runs[i])
	}
	return out
}
