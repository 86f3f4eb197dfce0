package models

import (
	"fmt"
	"strings"
)

// BetType is the source-independent market taxonomy every source translates into.
type BetType int

const (
	BetTypeUnknown BetType = iota
	BetTypeMatchWinner
	BetTypeDoubleChance
	BetTypeExactScore
	BetTypeAsianHandicap
	BetTypeGoalsOverUnder
	BetTypeTeamOverUnder
	BetTypeBothTeamsToScore
	BetTypeTeamWinToNil
	BetTypeResultBothTeamsScore
	BetTypeResultOverUnder
	BetTypeOddEven
)

var betTypeNames = map[BetType]string{
	BetTypeUnknown:              "unknown",
	BetTypeMatchWinner:          "match_winner",
	BetTypeDoubleChance:         "double_chance",
	BetTypeExactScore:           "exact_score",
	BetTypeAsianHandicap:        "asian_handicap",
	BetTypeGoalsOverUnder:       "goals_over_under",
	BetTypeTeamOverUnder:        "team_over_under",
	BetTypeBothTeamsToScore:     "both_teams_to_score",
	BetTypeTeamWinToNil:         "team_win_to_nil",
	BetTypeResultBothTeamsScore: "result_both_teams_score",
	BetTypeResultOverUnder:      "result_over_under",
	BetTypeOddEven:              "odd_even",
}

// String returns the snake_case name used in JSON and logs.
func (t BetType) String() string {
	if name, ok := betTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("bet_type(%d)", int(t))
}

// ParseBetType parses a name produced by String.
func ParseBetType(s string) (BetType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range betTypeNames {
		if name == s && t != BetTypeUnknown {
			return t, true
		}
	}
	return BetTypeUnknown, false
}

// GetMarketName returns a human-readable market name for a bet type.
func GetMarketName(t BetType) string {
	switch t {
	case BetTypeMatchWinner:
		return "Match Result"
	case BetTypeDoubleChance:
		return "Double Chance"
	case BetTypeExactScore:
		return "Correct Score"
	case BetTypeAsianHandicap:
		return "Asian Handicap"
	case BetTypeGoalsOverUnder:
		return "Total Goals"
	case BetTypeTeamOverUnder:
		return "Team Total Goals"
	case BetTypeBothTeamsToScore:
		return "Both Teams To Score"
	case BetTypeTeamWinToNil:
		return "Win To Nil"
	case BetTypeResultBothTeamsScore:
		return "Result And Both Teams To Score"
	case BetTypeResultOverUnder:
		return "Result And Total Goals"
	case BetTypeOddEven:
		return "Total Goals Odd/Even"
	default:
		return "Unknown Market"
	}
}

func (t BetType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *BetType) UnmarshalText(b []byte) error {
	parsed, ok := ParseBetType(string(b))
	if !ok {
		return fmt.Errorf("unknown bet type %q", string(b))
	}
	*t = parsed
	return nil
}

// Canonical outcome sides shared by every translator.
const (
	OutcomeHome  = "home"
	OutcomeAway  = "away"
	OutcomeDraw  = "draw"
	OutcomeYes   = "yes"
	OutcomeNo    = "no"
	OutcomeOver  = "over"
	OutcomeUnder = "under"
)
