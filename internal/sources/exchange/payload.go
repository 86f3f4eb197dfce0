// Package exchange is the betting exchange source: market catalogues are
// grouped into events and priced from market books.
package exchange

import "time"

const (
	// Name is the source id used for payloads and the alias table.
	Name = "betfair"
	// BookmakerName is the bookmaker every exchange bet is priced at.
	BookmakerName = "betfair_ex_uk"
)

// EventData is the exchange payload of an event.
type EventData struct {
	EventID         string                 `json:"event_id"`
	Name            string                 `json:"name"`
	CountryCode     string                 `json:"country_code,omitempty"`
	Timezone        string                 `json:"timezone,omitempty"`
	OpenDate        time.Time              `json:"open_date"`
	CompetitionID   string                 `json:"competition_id,omitempty"`
	CompetitionName string                 `json:"competition_name,omitempty"`
	Markets         map[string]*MarketData `json:"markets"`
}

func (EventData) SourceName() string { return Name }

// RunnerCount is the number of runners over all markets of the event.
func (d *EventData) RunnerCount() int {
	n := 0
	for _, m := range d.Markets {
		n += len(m.Runners)
	}
	return n
}

// MarketData is one catalogue entry of an event.
type MarketData struct {
	MarketID     string       `json:"market_id"`
	MarketName   string       `json:"market_name"`
	TotalMatched float64      `json:"total_matched"`
	Runners      []RunnerData `json:"runners"`
}

type RunnerData struct {
	SelectionID int64   `json:"selection_id"`
	Name        string  `json:"name"`
	Handicap    float64 `json:"handicap"`
}

// BetData locates a bet inside a market book.
type BetData struct {
	MarketID    string  `json:"market_id"`
	SelectionID int64   `json:"selection_id"`
	Handicap    float64 `json:"handicap"`
}

func (BetData) SourceName() string { return Name }
