// Package aggregator is the odds aggregator source: one feed that carries
// prices of many bookmakers per event.
package aggregator

import "time"

// Name is the source id used for payloads and the alias table.
const Name = "the-odds-api"

// EventData is the aggregator payload of an event.
type EventData struct {
	ID           string    `json:"id"`
	SportKey     string    `json:"sport_key"`
	SportTitle   string    `json:"sport_title"`
	SportGroup   string    `json:"sport_group"`
	CommenceTime time.Time `json:"commence_time"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
}

func (EventData) SourceName() string { return Name }

// BetData is the outcome a bet was built from and the market it belongs to.
type BetData struct {
	MarketKey   string   `json:"market_key"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Point       *float64 `json:"point,omitempty"`
	Description string   `json:"description,omitempty"`
}

func (BetData) SourceName() string { return Name }
