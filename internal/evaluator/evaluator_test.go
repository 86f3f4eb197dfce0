package evaluator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/oddsmerge/internal/pkg/config"
	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

func testEvent() *models.Event {
	bf := &models.Bookmaker{Name: "betfair_ex_uk", Commission: 0.05, Balance: 100, PercentOfBalance: 0.5}
	pin := &models.Bookmaker{Name: "pinnacle", Balance: 200, PercentOfBalance: 0.25}
	e := models.NewEvent(time.Date(2024, 5, 4, 14, 0, 0, 0, time.UTC))
	e.AddBet(models.NewBet(models.BetTypeMatchWinner, models.OutcomeHome, 2.1, bf))
	away := models.NewBet(models.BetTypeMatchWinner, models.OutcomeAway, 2.2, pin)
	away.Wager = 3
	e.AddBet(away)
	return e
}

func serve(t *testing.T, handler func(w http.ResponseWriter, req request)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-RapidAPI-Key"))
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestEvaluateAppliesWagers(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, req request) {
		require.Len(t, req.Bets, 2)
		assert.Equal(t, "pinnacle", req.Bets[1].Bookmaker)
		assert.Equal(t, 50.0, req.Bets[1].WagerLimit)
		assert.Equal(t, "match_winner", req.Bets[0].BetType)
		_, _ = w.Write([]byte(`{"profit":[1.25,0.8],"bets":[{"index":0,"wager":10},{"index":1,"wager":9.5}]}`))
	})

	e := testEvent()
	ev := NewHTTP(config.EvaluatorConfig{URL: url, APIKey: "key", Timeout: time.Second, Retries: 3}, nil)
	profit, err := ev.Evaluate(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, models.Profit{OutcomeA: 1.25, OutcomeB: 0.8}, profit)
	assert.Equal(t, profit, e.Profit)
	assert.Equal(t, 10.0, e.Bets[0].Wager)
	assert.Equal(t, 9.5, e.Bets[1].Wager)
	assert.Equal(t, 3.0, e.Bets[1].PreviousWager)
}

func TestEvaluateRetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	url := serve(t, func(w http.ResponseWriter, _ request) {
		if calls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"profit":[-444,-444]}`))
			return
		}
		_, _ = w.Write([]byte(`{"profit":[0,0],"bets":[]}`))
	})

	ev := NewHTTP(config.EvaluatorConfig{URL: url, APIKey: "key", Timeout: time.Second, Retries: 3}, nil)
	profit, err := ev.Evaluate(context.Background(), testEvent())
	require.NoError(t, err)
	assert.True(t, profit.IsZero())
	assert.Equal(t, int32(3), calls.Load())
}

func TestEvaluateGivesUp(t *testing.T) {
	var calls atomic.Int32
	url := serve(t, func(w http.ResponseWriter, _ request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"profit":[-444,-444]}`))
	})

	ev := NewHTTP(config.EvaluatorConfig{URL: url, APIKey: "key", Timeout: time.Second, Retries: 2}, nil)
	_, err := ev.Evaluate(context.Background(), testEvent())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEvaluateRejectsBadAnswers(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, _ request) {
		_, _ = w.Write([]byte(`{"profit":[1,1],"bets":[{"index":7,"wager":1}]}`))
	})
	ev := NewHTTP(config.EvaluatorConfig{URL: url, APIKey: "key", Timeout: time.Second}, nil)
	_, err := ev.Evaluate(context.Background(), testEvent())
	assert.ErrorContains(t, err, "unknown bet 7")
}

func TestDisabled(t *testing.T) {
	p, err := Disabled{}.Evaluate(context.Background(), testEvent())
	require.NoError(t, err)
	assert.True(t, p.IsZero())
}
