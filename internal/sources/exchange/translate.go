package exchange

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
	"github.com/Vodeneev/oddsmerge/internal/sources"
)

const eventNameSeparator = " v "

type selection struct {
	id       int64
	handicap float64
}

type outcome struct {
	betType models.BetType
	value   string
}

// splitEventName splits "Home v Away".
func splitEventName(name string) ([]string, error) {
	parts := strings.Split(name, eventNameSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) != 2 {
		return nil, &sources.ComparisonArityError{Source: Name, Raw: name, Got: len(parts) + 2}
	}
	return parts, nil
}

// sides resolves runner names to home/away/draw by the closest known name.
type sides struct {
	names []string
	table map[string]string
}

func newSides(home, away string) *sides {
	table := map[string]string{
		strings.ToLower(home): models.OutcomeHome,
		strings.ToLower(away): models.OutcomeAway,
		"the draw":            models.OutcomeDraw,
		"draw":                models.OutcomeDraw,
	}
	s := &sides{table: table}
	for name := range table {
		s.names = append(s.names, name)
	}
	return s
}

func (s *sides) of(runnerName string) string {
	name := strings.ToLower(strings.TrimSpace(runnerName))
	if side, ok := s.table[name]; ok {
		return side
	}
	best, bestDist := "", -1
	for _, candidate := range s.names {
		d := levenshtein.ComputeDistance(name, candidate)
		if bestDist < 0 || d < bestDist || (d == bestDist && candidate < best) {
			best, bestDist = candidate, d
		}
	}
	return s.table[best]
}

// translateMarket maps every runner of a market to its canonical outcome.
// Runners that have no canonical counterpart are left out.
func translateMarket(eventName string, m *MarketData) (map[selection]outcome, error) {
	teams, err := splitEventName(eventName)
	if err != nil {
		return nil, err
	}
	sd := newSides(teams[0], teams[1])
	name := m.MarketName

	if name != "Asian Handicap" {
		for _, r := range m.Runners {
			if r.Handicap != 0 {
				return nil, fmt.Errorf("%s: non-zero handicap in market %q", Name, name)
			}
		}
	}

	out := make(map[selection]outcome, len(m.Runners))
	add := func(r RunnerData, t models.BetType, value string) {
		out[selection{r.SelectionID, r.Handicap}] = outcome{t, value}
	}

	switch {
	case isOverUnder(name):
		for _, r := range m.Runners {
			v, err := overUnder(r.Name)
			if err != nil {
				return nil, err
			}
			add(r, models.BetTypeGoalsOverUnder, v)
		}

	case name == "Match Odds":
		for _, r := range m.Runners {
			add(r, models.BetTypeMatchWinner, sd.of(r.Name))
		}

	case name == "Double Chance":
		for _, r := range m.Runners {
			add(r, models.BetTypeDoubleChance, strings.ReplaceAll(strings.ToLower(r.Name), " or ", "/"))
		}

	case name == "Correct Score":
		for _, r := range m.Runners {
			if strings.HasPrefix(r.Name, "Any") {
				continue
			}
			add(r, models.BetTypeExactScore, strings.ReplaceAll(r.Name, " - ", ":"))
		}

	case name == "Asian Handicap":
		for _, r := range m.Runners {
			side := sd.of(r.Name)
			if side == models.OutcomeDraw {
				continue
			}
			add(r, models.BetTypeAsianHandicap, models.HandicapValue(side, r.Handicap))
		}

	case name == "Both teams to Score?":
		for _, r := range m.Runners {
			add(r, models.BetTypeBothTeamsToScore, strings.ToLower(r.Name))
		}

	case name == "Match Odds and Both teams to Score":
		for _, r := range m.Runners {
			team, rest, ok := strings.Cut(r.Name, "/")
			if !ok {
				return nil, &sources.UnknownMarketError{Source: Name, Label: name + ": " + r.Name}
			}
			add(r, models.BetTypeResultBothTeamsScore, sd.of(team)+"/"+strings.ToLower(strings.TrimSpace(rest)))
		}

	case name == "Total Goals Odd/Even":
		for _, r := range m.Runners {
			add(r, models.BetTypeOddEven, strings.ToLower(r.Name))
		}

	case strings.HasPrefix(name, "Match Odds and Over/Under") && strings.HasSuffix(name, " Goals"):
		for _, r := range m.Runners {
			team, rest, ok := strings.Cut(r.Name, "/")
			if !ok {
				return nil, &sources.UnknownMarketError{Source: Name, Label: name + ": " + r.Name}
			}
			v, err := overUnder(rest)
			if err != nil {
				return nil, err
			}
			add(r, models.BetTypeResultOverUnder, sd.of(team)+"/"+v)
		}

	case teamPrefixed(name, teams[0], teams[1]):
		side, rest := teamMarket(name, teams[0], teams[1])
		switch {
		case isOverUnder(rest):
			for _, r := range m.Runners {
				v, err := overUnder(r.Name)
				if err != nil {
					return nil, err
				}
				add(r, models.BetTypeTeamOverUnder, side+" "+v)
			}
		case strings.EqualFold(rest, "win to nil"):
			for _, r := range m.Runners {
				add(r, models.BetTypeTeamWinToNil, side+" "+strings.ToLower(r.Name))
			}
		default:
			return nil, &sources.UnknownMarketError{Source: Name, Label: name}
		}

	default:
		return nil, &sources.UnknownMarketError{Source: Name, Label: name}
	}
	return out, nil
}

func teamPrefixed(marketName, home, away string) bool {
	return strings.HasPrefix(marketName, home+" ") || strings.HasPrefix(marketName, away+" ")
}

// teamMarket splits "<team> <market>" into the team's side and the market.
// When both team names prefix the market name the longer one wins, so
// "Inter Turku Over/Under 1.5 Goals" belongs to Inter Turku, not Inter.
func teamMarket(marketName, home, away string) (side, rest string) {
	homeOK := strings.HasPrefix(marketName, home+" ")
	awayOK := strings.HasPrefix(marketName, away+" ")
	if awayOK && (!homeOK || len(away) > len(home)) {
		return models.OutcomeAway, strings.TrimPrefix(marketName, away+" ")
	}
	return models.OutcomeHome, strings.TrimPrefix(marketName, home+" ")
}

func isOverUnder(marketName string) bool {
	return strings.HasPrefix(marketName, "Over/Under ") && strings.HasSuffix(marketName, " Goals")
}

// overUnder turns "Over 2.5 Goals" into "over 2.5".
func overUnder(runnerName string) (string, error) {
	fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(runnerName), " Goals"))
	if len(fields) != 2 {
		return "", &sources.UnknownMarketError{Source: Name, Label: runnerName}
	}
	side := strings.ToLower(fields[0])
	if side != models.OutcomeOver && side != models.OutcomeUnder {
		return "", &sources.UnknownMarketError{Source: Name, Label: runnerName}
	}
	point, err := models.ParsePoint(fields[1])
	if err != nil {
		return "", &sources.UnknownMarketError{Source: Name, Label: runnerName}
	}
	return models.OverUnderValue(side, point), nil
}
