package registry

import (
	"sync"
	"time"
)

// Outcome classifies how an operation finished for one repo.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped" // dirty repo, deliberately untouched
	OutcomeFailed  Outcome = "failed"
)

// Stage identifies what an event reports.
type Stage string

const (
	StageStart    Stage = "start"    // run began
	StageRepo     Stage = "repo"     // a repo's operation began
	StageRepoDone Stage = "repodone" // a repo's operation finished
	StageDone     Stage = "done"     // run finished
)

// Event is a progress update emitted while applying an operation.
type Event struct {
	Stage     Stage
	Repo      string // repo name, empty for run-level events
	Message   string
	Outcome   Outcome // set on StageRepoDone
	Err       error   // set when Outcome is OutcomeFailed
	Timestamp time.Time
}

// Callback receives progress events during Apply.
type Callback func(Event)

// NoOpProgress is a callback that does nothing.
func NoOpProgress(Event) {}

// Tracker collects events for later review. Safe for concurrent use: Apply
// invokes the callback from worker goroutines.
type Tracker struct {
	mu     sync.Mutex
	events []Event
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{events: make([]Event, 0)}
}

// Callback returns a Callback that records events.
func (t *Tracker) Callback() Callback {
	return func(e Event) {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.events = append(t.events, e)
	}
}

// Events returns a copy of all recorded events.
func (t *Tracker) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	events := make([]Event, len(t.events))
	copy(events, t.events)
	return events
}

// Failures returns the repo-done events that failed.
func (t *Tracker) Failures() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	var failures []Event
	for _, e := range t.events {
		if e.Stage == StageRepoDone && e.Outcome == OutcomeFailed {
			failures = append(failures, e)
		}
	}
	return failures
}

func newEvent(stage Stage, repo, message string) Event {
	return Event{
		Stage:     stage,
		Repo:      repo,
		Message:   message,
		Timestamp: time.Now(),
	}
}
