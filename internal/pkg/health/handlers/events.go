package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

// EventView is a merged event together with the names every source gave it.
type EventView struct {
	Key   string              `json:"key"`
	Names []models.Comparison `json:"names"`
	Event *models.Event       `json:"event"`
}

type GetEventsFunc func() []EventView

var (
	getEventsFunc       GetEventsFunc
	getEventsByNameFunc func(name string) []EventView
)

// SetGetEventsFunc sets the function to get events
func SetGetEventsFunc(fn GetEventsFunc) {
	getEventsFunc = fn
}

// SetGetEventsByNameFunc sets the lookup used for ?name=.
func SetGetEventsByNameFunc(fn func(name string) []EventView) {
	getEventsByNameFunc = fn
}

// HandleEvents returns the events of the last run.
// GET /events?name=Arsenal narrows them to a team or league.
func HandleEvents(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	var events []EventView
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" && getEventsByNameFunc != nil {
		events = getEventsByNameFunc(name)
	} else if getEventsFunc != nil {
		events = getEventsFunc()
	}
	if events == nil {
		events = []EventView{}
	}

	resp := struct {
		Events []EventView `json:"events"`
		Meta   struct {
			Count    int    `json:"count"`
			Duration string `json:"duration"`
		} `json:"meta"`
	}{Events: events}
	resp.Meta.Count = len(events)
	resp.Meta.Duration = time.Since(startTime).String()

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode events", "error", err)
		http.Error(w, fmt.Sprintf("failed to encode events: %v", err), http.StatusInternalServerError)
	}
}
