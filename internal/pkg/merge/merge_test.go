package merge

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

type payload struct {
	source string
	ref    string
}

func (p payload) SourceName() string { return p.source }

var (
	t0      = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	kickoff = time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
)

func bet(bm *models.Bookmaker, value string, odds float64, updated time.Time, sources ...string) *models.Bet {
	b := models.NewBet(models.BetTypeMatchWinner, value, odds, bm)
	b.LastUpdate = updated
	for _, s := range sources {
		b.SourceData[s] = payload{source: s, ref: value}
	}
	return b
}

func TestBetNewerWinsAndUnionsPayloads(t *testing.T) {
	bm := &models.Bookmaker{Name: "pinnacle"}
	old := bet(bm, models.OutcomeHome, 2.0, t0, "aggregator")
	old.Volume = 10
	fresh := bet(bm, models.OutcomeHome, 2.0, t0.Add(time.Minute), "exchange")
	fresh.Volume = 25

	got, err := Bet(old, fresh)
	require.NoError(t, err)

	assert.Equal(t, 25.0, got.Volume)
	assert.Equal(t, fresh.LastUpdate, got.LastUpdate)
	assert.ElementsMatch(t, []string{"aggregator", "exchange"}, got.SourceData.Sources())

	// inputs untouched
	assert.Equal(t, []string{"aggregator"}, old.SourceData.Sources())
	assert.Equal(t, []string{"exchange"}, fresh.SourceData.Sources())
}

func TestBetTieKeepsOld(t *testing.T) {
	bm := &models.Bookmaker{Name: "pinnacle"}
	old := bet(bm, models.OutcomeHome, 2.0, t0, "aggregator")
	old.Volume = 10
	fresh := bet(bm, models.OutcomeHome, 2.0, t0, "exchange")
	fresh.Volume = 99

	got, err := Bet(old, fresh)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.Volume)
	assert.ElementsMatch(t, []string{"aggregator", "exchange"}, got.SourceData.Sources())
}

func TestBetNewerOwnPayloadTakesPrecedence(t *testing.T) {
	bm := &models.Bookmaker{Name: "pinnacle"}
	old := bet(bm, models.OutcomeHome, 2.0, t0)
	old.SourceData["exchange"] = payload{source: "exchange", ref: "stale"}
	fresh := bet(bm, models.OutcomeHome, 2.0, t0.Add(time.Second))
	fresh.SourceData["exchange"] = payload{source: "exchange", ref: "current"}

	got, err := Bet(old, fresh)
	require.NoError(t, err)
	assert.Equal(t, "current", got.SourceData["exchange"].(payload).ref)
}

func TestBetRejectsDifferentSelections(t *testing.T) {
	bm := &models.Bookmaker{Name: "pinnacle"}
	_, err := Bet(bet(bm, models.OutcomeHome, 2.0, t0), bet(bm, models.OutcomeHome, 2.2, t0))

	var ce *models.ConsistencyError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "odds", ce.What)
}

func TestEventIsIdempotent(t *testing.T) {
	bm := &models.Bookmaker{Name: "betfair_ex_uk"}
	e := models.NewEvent(kickoff)
	e.SourceData["exchange"] = payload{source: "exchange"}
	e.AddBet(bet(bm, models.OutcomeHome, 2.0, t0, "exchange"))
	e.AddBet(bet(bm, models.OutcomeAway, 3.5, t0, "exchange"))
	e.AddBet(bet(bm, models.OutcomeDraw, 3.1, t0, "exchange"))

	got, err := Event(e, e, "exchange")
	require.NoError(t, err)

	require.Len(t, got.Bets, len(e.Bets))
	for _, b := range e.Bets {
		assert.NotEqual(t, -1, got.IndexOf(b), b.Key())
	}
	assert.Equal(t, kickoff, got.StartTime)
}

func TestEventMergesAppendsAndDropsWithdrawn(t *testing.T) {
	pin := &models.Bookmaker{Name: "pinnacle"}
	bf := &models.Bookmaker{Name: "betfair_ex_uk"}

	old := models.NewEvent(kickoff)
	old.SourceData["exchange"] = payload{source: "exchange"}
	old.AddBet(bet(bf, models.OutcomeHome, 2.0, t0, "exchange"))
	old.AddBet(bet(pin, models.OutcomeHome, 1.95, t0, "aggregator"))
	old.AddBet(bet(pin, models.OutcomeAway, 4.0, t0, "aggregator"))

	fresh := models.NewEvent(kickoff)
	fresh.SourceData["aggregator"] = payload{source: "aggregator"}
	fresh.AddBet(bet(pin, models.OutcomeHome, 1.95, t0.Add(time.Minute), "aggregator"))
	fresh.AddBet(bet(pin, models.OutcomeDraw, 3.3, t0.Add(time.Minute), "aggregator"))

	got, err := Event(old, fresh, "aggregator")
	require.NoError(t, err)

	// exchange bet survives, pinnacle home merged, pinnacle away withdrawn, draw appended
	require.Len(t, got.Bets, 3)
	assert.Equal(t, 0, got.IndexOf(bet(bf, models.OutcomeHome, 2.0, t0)))
	assert.NotEqual(t, -1, got.IndexOf(bet(pin, models.OutcomeHome, 1.95, t0)))
	assert.Equal(t, -1, got.IndexOf(bet(pin, models.OutcomeAway, 4.0, t0)))
	assert.NotEqual(t, -1, got.IndexOf(bet(pin, models.OutcomeDraw, 3.3, t0)))

	home := got.Bets[got.IndexOf(bet(pin, models.OutcomeHome, 1.95, t0))]
	assert.Equal(t, t0.Add(time.Minute), home.LastUpdate)

	assert.Equal(t, []string{"aggregator", "exchange"}, got.Sources())
	assert.Equal(t, fresh.Bookmakers, got.Bookmakers)
	assert.Len(t, old.Bets, 3, "old event must not be mutated")
}

func TestEventNoDuplicatesWhenFreshRepeatsABet(t *testing.T) {
	pin := &models.Bookmaker{Name: "pinnacle"}
	old := models.NewEvent(kickoff)

	fresh := models.NewEvent(kickoff)
	fresh.AddBet(bet(pin, models.OutcomeHome, 1.95, t0, "aggregator"))
	fresh.AddBet(bet(pin, models.OutcomeHome, 1.95, t0.Add(time.Second), "aggregator"))

	got, err := Event(old, fresh, "aggregator")
	require.NoError(t, err)
	require.Len(t, got.Bets, 1)
	assert.Equal(t, t0.Add(time.Second), got.Bets[0].LastUpdate)
}

func TestEventFoldsEqualBetsAlreadyInOld(t *testing.T) {
	pin := &models.Bookmaker{Name: "pinnacle"}
	bf := &models.Bookmaker{Name: "betfair_ex_uk"}

	old := models.NewEvent(kickoff)
	old.Bets = []*models.Bet{
		bet(pin, models.OutcomeHome, 2.0, t0, "aggregator"),
		bet(pin, models.OutcomeHome, 2.0, t0.Add(time.Second), "aggregator"),
	}

	fresh := models.NewEvent(kickoff)
	fresh.AddBet(bet(bf, models.OutcomeHome, 2.1, t0, "exchange"))

	got, err := Event(old, fresh, "exchange")
	require.NoError(t, err)
	require.Len(t, got.Bets, 2)
	for i := range got.Bets {
		for j := i + 1; j < len(got.Bets); j++ {
			assert.False(t, got.Bets[i].Equal(got.Bets[j]), "%s twice", got.Bets[i].Key())
		}
	}
	home := got.Bets[got.IndexOf(bet(pin, models.OutcomeHome, 2.0, t0))]
	assert.Equal(t, t0.Add(time.Second), home.LastUpdate)
	assert.Len(t, old.Bets, 2, "old event must not be mutated")
}

func TestEventKeepsStartTime(t *testing.T) {
	old := models.NewEvent(kickoff)
	fresh := models.NewEvent(kickoff.Add(time.Hour))

	got, err := Event(old, fresh, "aggregator")
	require.NoError(t, err)
	assert.Equal(t, kickoff, got.StartTime)
}
