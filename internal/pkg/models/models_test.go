package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPoint(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2.5, "2.5"},
		{2, "2.0"},
		{0, "0.0"},
		{-1, "-1.0"},
		{-0.25, "-0.25"},
		{1.75, "1.75"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPoint(tt.in), "FormatPoint(%v)", tt.in)
	}
}

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint("+1.5")
	require.NoError(t, err)
	assert.Equal(t, 1.5, p)

	p, err = ParsePoint(" -0.25 ")
	require.NoError(t, err)
	assert.Equal(t, -0.25, p)

	_, err = ParsePoint("two")
	assert.Error(t, err)
}

func TestOverUnderValue(t *testing.T) {
	assert.Equal(t, "over 2.5", OverUnderValue("Over", 2.5))
	assert.Equal(t, "under 3.0", OverUnderValue("under", 3))
	assert.Equal(t, "home -0.5", HandicapValue(OutcomeHome, -0.5))
}

func TestBetEqualIgnoresVolumeAndTimestamps(t *testing.T) {
	bm := &Bookmaker{Name: "pinnacle"}
	a := NewBet(BetTypeMatchWinner, OutcomeHome, 2.1, bm)
	b := NewBet(BetTypeMatchWinner, OutcomeHome, 2.1, &Bookmaker{Name: "pinnacle"})
	b.Volume = 150
	b.LastUpdate = time.Now()
	b.Wager = 10

	assert.True(t, a.Equal(b))

	b.Lay = true
	assert.False(t, a.Equal(b))

	c := NewBet(BetTypeMatchWinner, OutcomeHome, 2.12, bm)
	assert.False(t, a.Equal(c))

	d := NewBet(BetTypeMatchWinner, OutcomeAway, 2.1, bm)
	assert.False(t, a.Equal(d))
}

func TestBetMarshalJSONUsesBookmakerName(t *testing.T) {
	b := NewBet(BetTypeGoalsOverUnder, "over 2.5", 1.9, &Bookmaker{Name: "betfair_ex_uk"})
	data, err := json.Marshal(b)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "betfair_ex_uk", out["bookmaker"])
	assert.Equal(t, "goals_over_under", out["bet_type"])
	assert.Equal(t, "over 2.5", out["value"])
}

func TestParseBetType(t *testing.T) {
	for bt := BetTypeMatchWinner; bt <= BetTypeOddEven; bt++ {
		parsed, ok := ParseBetType(bt.String())
		require.True(t, ok, bt.String())
		assert.Equal(t, bt, parsed)
	}
	_, ok := ParseBetType("unknown")
	assert.False(t, ok)
}

func TestBookmakerRegistryGetOrCreate(t *testing.T) {
	reg := NewBookmakerRegistry(Bookmaker{Commission: 0.02, Balance: 100, PercentOfBalance: 0.5},
		Bookmaker{Name: "Betfair_Ex_UK", Commission: 0.05})

	bf := reg.GetOrCreate("betfair_ex_uk")
	assert.Equal(t, 0.05, bf.Commission)
	assert.Same(t, bf, reg.GetOrCreate(" BETFAIR_EX_UK "))

	pin := reg.GetOrCreate("pinnacle")
	assert.Equal(t, "pinnacle", pin.Name)
	assert.Equal(t, 0.02, pin.Commission)
	assert.Equal(t, 50.0, pin.WagerLimit())

	assert.Equal(t, []string{"betfair_ex_uk", "pinnacle"}, reg.Names())
}

func TestEventAddBetTracksBookmakers(t *testing.T) {
	bm := &Bookmaker{Name: "unibet"}
	e := NewEvent(time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC))
	e.AddBet(NewBet(BetTypeMatchWinner, OutcomeHome, 2.0, bm))
	e.AddBet(NewBet(BetTypeMatchWinner, OutcomeAway, 3.0, &Bookmaker{Name: "unibet"}))

	assert.Len(t, e.Bets, 2)
	assert.Len(t, e.Bookmakers, 1)
	assert.Equal(t, 1, e.IndexOf(NewBet(BetTypeMatchWinner, OutcomeAway, 3.0, bm)))
	assert.Equal(t, -1, e.IndexOf(NewBet(BetTypeMatchWinner, OutcomeDraw, 3.0, bm)))
}

func TestEventAddBetFoldsEqualBets(t *testing.T) {
	bm := &Bookmaker{Name: "pinnacle"}
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := NewBet(BetTypeAsianHandicap, "home 0.0", 1.5, bm)
	first.LastUpdate = t0
	first.SourceData["aggregator"] = testPayload("spreads")
	second := NewBet(BetTypeAsianHandicap, "home 0.0", 1.5, bm)
	second.LastUpdate = t0.Add(time.Minute)
	second.Volume = 40

	e := NewEvent(t0)
	e.AddBet(first)
	e.AddBet(second)

	require.Len(t, e.Bets, 1)
	assert.Equal(t, 40.0, e.Bets[0].Volume)
	assert.Equal(t, t0.Add(time.Minute), e.Bets[0].LastUpdate)
	assert.True(t, e.Bets[0].SourceData.Has("aggregator"))
	assert.Equal(t, UnknownVolume, first.Volume, "inputs are not modified")
}

type testPayload string

func (testPayload) SourceName() string { return "aggregator" }
