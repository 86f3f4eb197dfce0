package models

import (
	"time"
)

// Profit is what the profit evaluator reports for an event: realized profit
// if outcome A happens and if outcome B happens.
type Profit struct {
	OutcomeA float64 `json:"outcome_a"`
	OutcomeB float64 `json:"outcome_b"`
}

// IsZero reports a "no opportunity" result.
func (p Profit) IsZero() bool {
	return p.OutcomeA == 0 && p.OutcomeB == 0
}

// Event is the canonical, source-independent representation of one fixture.
// StartTime never changes after construction; SourceData holds at most one
// payload per source.
type Event struct {
	StartTime  time.Time     `json:"start_time"`
	SourceData SourceDataMap `json:"source_data,omitempty"`
	Bets       []*Bet        `json:"bets"`
	Bookmakers []*Bookmaker  `json:"bookmakers"`
	Profit     Profit        `json:"profit"`
}

// NewEvent creates an empty event starting at start.
func NewEvent(start time.Time) *Event {
	return &Event{
		StartTime:  start,
		SourceData: SourceDataMap{},
	}
}

// AddBet appends a bet and records its bookmaker on the event. A bet equal
// to one already present is folded into it with FoldBet instead.
func (e *Event) AddBet(b *Bet) {
	if b == nil {
		return
	}
	if i := e.IndexOf(b); i >= 0 {
		e.Bets[i] = FoldBet(e.Bets[i], b)
		return
	}
	e.Bets = append(e.Bets, b)
	e.AddBookmaker(b.Bookmaker)
}

// AddBets appends all bets in order.
func (e *Event) AddBets(bets []*Bet) {
	for _, b := range bets {
		e.AddBet(b)
	}
}

// AddBookmaker records a bookmaker once.
func (e *Event) AddBookmaker(bm *Bookmaker) {
	if bm == nil {
		return
	}
	for _, existing := range e.Bookmakers {
		if SameBookmaker(existing, bm) {
			return
		}
	}
	e.Bookmakers = append(e.Bookmakers, bm)
}

// IndexOf returns the index of the first bet equal to b, or -1.
func (e *Event) IndexOf(b *Bet) int {
	for i, existing := range e.Bets {
		if existing.Equal(b) {
			return i
		}
	}
	return -1
}

// HasSource reports whether source contributed to this event.
func (e *Event) HasSource(source string) bool {
	return e.SourceData.Has(source)
}

// Sources lists contributing source ids, sorted.
func (e *Event) Sources() []string {
	return e.SourceData.Sources()
}

// Clone copies the event, its bet slice and bookmaker slice. Bets themselves
// are shared.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.SourceData = e.SourceData.Clone()
	c.Bets = append([]*Bet(nil), e.Bets...)
	c.Bookmakers = append([]*Bookmaker(nil), e.Bookmakers...)
	return &c
}
