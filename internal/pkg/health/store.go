package health

import (
	"strings"
	"sync"
	"time"

	"github.com/Vodeneev/oddsmerge/internal/pkg/health/handlers"
	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

// RunSnapshot is what the last resolution run produced.
type RunSnapshot struct {
	RunID    string               `json:"run_id"`
	Finished time.Time            `json:"finished"`
	Err      string               `json:"error,omitempty"`
	Events   []handlers.EventView `json:"events"`
}

// InMemoryRunStore keeps the last run for the HTTP API.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	last *RunSnapshot
}

var globalRunStore = &InMemoryRunStore{}

// RecordRun replaces the stored snapshot. Events are kept by reference and
// must not be mutated afterwards.
func RecordRun(runID string, finished time.Time, events []handlers.EventView, runErr error) {
	snap := &RunSnapshot{RunID: runID, Finished: finished, Events: events}
	if runErr != nil {
		snap.Err = runErr.Error()
	}
	globalRunStore.mu.Lock()
	defer globalRunStore.mu.Unlock()
	globalRunStore.last = snap
}

// LastRun returns the stored snapshot, or nil before the first run.
func LastRun() *RunSnapshot {
	globalRunStore.mu.RLock()
	defer globalRunStore.mu.RUnlock()
	return globalRunStore.last
}

// GetEvents returns the events of the last run.
func GetEvents() []handlers.EventView {
	last := LastRun()
	if last == nil {
		return nil
	}
	return append([]handlers.EventView(nil), last.Events...)
}

// GetEventsByName returns events where any source's home, away or league
// name contains the query, case-insensitively.
func GetEventsByName(query string) []handlers.EventView {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []handlers.EventView
	for _, ev := range GetEvents() {
		if matchesName(ev.Names, q) {
			out = append(out, ev)
		}
	}
	return out
}

func matchesName(names []models.Comparison, q string) bool {
	for _, n := range names {
		for _, field := range []string{n.Home, n.Away, n.League, n.Home + " v " + n.Away} {
			if strings.Contains(strings.ToLower(field), q) {
				return true
			}
		}
	}
	return false
}

func lastRunStatus() handlers.RunStatus {
	last := LastRun()
	if last == nil {
		return handlers.RunStatus{}
	}
	return handlers.RunStatus{RunID: last.RunID, Finished: last.Finished, Events: len(last.Events), Err: last.Err}
}
