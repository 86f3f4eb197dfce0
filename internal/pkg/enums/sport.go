package enums

import "strings"

// Sport represents supported sports types
type Sport string

const (
	Football   Sport = "football"
	Basketball Sport = "basketball"
	Tennis     Sport = "tennis"
	Hockey     Sport = "hockey"
	Volleyball Sport = "volleyball"
	Baseball   Sport = "baseball"
)

// SportInfo describes how each source names a sport.
type SportInfo struct {
	Name string
	// ExchangeEventTypeID is the exchange's event type id.
	ExchangeEventTypeID string
	// AggregatorGroup is the "group" field of the aggregator's sports list.
	AggregatorGroup string
}

var sportInfo = map[Sport]SportInfo{
	Football:   {Name: "Football", ExchangeEventTypeID: "1", AggregatorGroup: "Soccer"},
	Tennis:     {Name: "Tennis", ExchangeEventTypeID: "2", AggregatorGroup: "Tennis"},
	Basketball: {Name: "Basketball", ExchangeEventTypeID: "7522", AggregatorGroup: "Basketball"},
	Hockey:     {Name: "Ice Hockey", ExchangeEventTypeID: "7524", AggregatorGroup: "Ice Hockey"},
	Baseball:   {Name: "Baseball", ExchangeEventTypeID: "7511", AggregatorGroup: "Baseball"},
	Volleyball: {Name: "Volleyball", ExchangeEventTypeID: "998917", AggregatorGroup: "Volleyball"},
}

// GetSportInfo returns sport information
func (s Sport) GetSportInfo() SportInfo {
	if info, ok := sportInfo[s]; ok {
		return info
	}
	return SportInfo{Name: "Unknown"}
}

// IsValid checks if sport is supported
func (s Sport) IsValid() bool {
	_, ok := sportInfo[s]
	return ok
}

func (s Sport) String() string {
	return string(s)
}

// GetAllSports returns all supported sports
func GetAllSports() []Sport {
	return []Sport{Football, Basketball, Tennis, Hockey, Volleyball, Baseball}
}

// ParseSport accepts the enum value, "soccer" or "ice hockey".
func ParseSport(s string) (Sport, bool) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "soccer":
		return Football, true
	case "ice hockey", "ice_hockey":
		return Hockey, true
	default:
		sport := Sport(v)
		return sport, sport.IsValid()
	}
}

// ParseSports parses a list, returning the first value it does not know.
func ParseSports(values []string) ([]Sport, string, bool) {
	out := make([]Sport, 0, len(values))
	for _, v := range values {
		s, ok := ParseSport(v)
		if !ok {
			return nil, v, false
		}
		out = append(out, s)
	}
	return out, "", true
}
