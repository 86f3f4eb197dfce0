package health

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/oddsmerge/internal/pkg/health/handlers"
	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

func view(home, away, league string) handlers.EventView {
	return handlers.EventView{
		Names: []models.Comparison{{Source: "betfair", Home: home, Away: away, League: league}},
		Event: models.NewEvent(time.Date(2024, 5, 4, 14, 0, 0, 0, time.UTC)),
	}
}

func get(t *testing.T, srv *httptest.Server, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestEndpoints(t *testing.T) {
	srv := httptest.NewServer(NewMux())
	defer srv.Close()

	RecordRun("run-1", time.Now(), []handlers.EventView{
		view("Arsenal", "Chelsea", "English Premier League"),
		view("Real Madrid", "Getafe", "Spanish La Liga"),
	}, nil)

	code, body := get(t, srv, "/ping")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pong\n", string(body))

	code, body = get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "run-1", status["run_id"])
	assert.Equal(t, 2.0, status["events"])

	var events struct {
		Events []handlers.EventView `json:"events"`
		Meta   struct {
			Count int `json:"count"`
		} `json:"meta"`
	}
	_, body = get(t, srv, "/events")
	require.NoError(t, json.Unmarshal(body, &events))
	assert.Equal(t, 2, events.Meta.Count)

	_, body = get(t, srv, "/events?name=la%20liga")
	require.NoError(t, json.Unmarshal(body, &events))
	require.Equal(t, 1, events.Meta.Count)
	assert.Equal(t, "Real Madrid", events.Events[0].Names[0].Home)

	_, body = get(t, srv, "/events?name=arsenal%20v%20chelsea")
	require.NoError(t, json.Unmarshal(body, &events))
	assert.Equal(t, 1, events.Meta.Count)

	code, body = get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "go_goroutines")

	RecordRun("run-2", time.Now(), nil, errors.New("gather failed"))
	code, body = get(t, srv, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, string(body), "degraded")

	_, body = get(t, srv, "/events")
	require.NoError(t, json.Unmarshal(body, &events))
	assert.Equal(t, 0, events.Meta.Count)
	assert.NotNil(t, events.Events)
}

func TestAddrFor(t *testing.T) {
	addr, ok := AddrFor(8080)
	assert.True(t, ok)
	assert.Equal(t, ":8080", addr)

	_, ok = AddrFor(0)
	assert.False(t, ok)
}
