package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// UnknownVolume marks a bet whose source does not report matched/available volume.
const UnknownVolume = -1.0

// SourceData is a payload a source adapter attaches to an event or a bet.
// Each source defines its own concrete types; the map key is the source id.
type SourceData interface {
	SourceName() string
}

// SourceDataMap maps a source id to that source's payload.
type SourceDataMap map[string]SourceData

// Clone returns a shallow copy; payload values are shared.
func (m SourceDataMap) Clone() SourceDataMap {
	out := make(SourceDataMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Has reports whether source has a payload.
func (m SourceDataMap) Has(source string) bool {
	_, ok := m[source]
	return ok
}

// Sources returns the source ids in sorted order.
func (m SourceDataMap) Sources() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Bet is one priced selection. Identity (see Equal) is bookmaker, type,
// outcome value, odds and lay flag.
type Bet struct {
	Type          BetType       `json:"bet_type"`
	Value         string        `json:"value"`
	Odds          float64       `json:"odds"`
	Bookmaker     *Bookmaker    `json:"-"`
	Lay           bool          `json:"lay"`
	Volume        float64       `json:"volume"`
	LastUpdate    time.Time     `json:"last_update"`
	SourceData    SourceDataMap `json:"source_data,omitempty"`
	Wager         float64       `json:"wager"`
	PreviousWager float64       `json:"previous_wager"`
}

// NewBet creates a bet with unknown volume and an empty source payload map.
func NewBet(t BetType, value string, odds float64, bookmaker *Bookmaker) *Bet {
	return &Bet{
		Type:       t,
		Value:      value,
		Odds:       odds,
		Bookmaker:  bookmaker,
		Volume:     UnknownVolume,
		SourceData: SourceDataMap{},
	}
}

// Equal reports bet identity; volume, timestamps and wagers are ignored.
func (b *Bet) Equal(o *Bet) bool {
	if b == nil || o == nil {
		return b == o
	}
	return SameBookmaker(b.Bookmaker, o.Bookmaker) &&
		b.Type == o.Type &&
		b.Value == o.Value &&
		b.Odds == o.Odds &&
		b.Lay == o.Lay
}

// HasVolume reports whether the source supplied a volume.
func (b *Bet) HasVolume() bool {
	return b.Volume >= 0
}

// BookmakerName is safe on bets without a bookmaker.
func (b *Bet) BookmakerName() string {
	if b.Bookmaker == nil {
		return ""
	}
	return b.Bookmaker.Name
}

// Key is a readable identity string for logs.
func (b *Bet) Key() string {
	side := "back"
	if b.Lay {
		side = "lay"
	}
	return fmt.Sprintf("%s|%s|%s|%s|%g", b.BookmakerName(), b.Type, b.Value, side, b.Odds)
}

// Clone copies the bet and its payload map (payload values are shared).
func (b *Bet) Clone() *Bet {
	if b == nil {
		return nil
	}
	c := *b
	c.SourceData = b.SourceData.Clone()
	return &c
}

// FoldBet combines two equal bets into a new one. The record with the later
// LastUpdate is the base; on a tie old wins. Payloads only the other record
// carries are copied in. Neither input is modified.
func FoldBet(old, fresh *Bet) *Bet {
	winner, loser := old, fresh
	if old.LastUpdate.Before(fresh.LastUpdate) {
		winner, loser = fresh, old
	}

	out := winner.Clone()
	if out.SourceData == nil {
		out.SourceData = SourceDataMap{}
	}
	for source, payload := range loser.SourceData {
		if _, ok := out.SourceData[source]; !ok {
			out.SourceData[source] = payload
		}
	}
	return out
}

// MarshalJSON writes the bookmaker as its name.
func (b *Bet) MarshalJSON() ([]byte, error) {
	type alias Bet
	return json.Marshal(struct {
		*alias
		Bookmaker string `json:"bookmaker"`
	}{
		alias:     (*alias)(b),
		Bookmaker: b.BookmakerName(),
	})
}
