package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// RunStatus summarizes the last resolution run.
type RunStatus struct {
	RunID    string    `json:"run_id,omitempty"`
	Finished time.Time `json:"finished,omitempty"`
	Events   int       `json:"events"`
	Err      string    `json:"error,omitempty"`
}

var runStatusFunc func() RunStatus

// SetRunStatusFunc sets the function used by HandleHealth.
func SetRunStatusFunc(fn func() RunStatus) {
	runStatusFunc = fn
}

// HandlePing handles /ping endpoint
func HandlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong\n"))
}

// HandleHealth reports "ok" plus the last run. A run that failed makes the
// service unhealthy until the next one succeeds.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	var status RunStatus
	if runStatusFunc != nil {
		status = runStatusFunc()
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if status.Err != "" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
		RunStatus
	}{Status: statusWord(status), RunStatus: status})
}

func statusWord(s RunStatus) string {
	if s.Err != "" {
		return "degraded"
	}
	return "ok"
}
