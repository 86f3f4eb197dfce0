package escalation

import (
	"context"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
	"github.com/Vodeneev/oddsmerge/internal/resolver"
)

// DefaultThreshold is the lowest per-name similarity Auto accepts.
const DefaultThreshold = 0.8

// Auto confirms a match when every name of every row is similar enough to
// the first row's name in the same slot. It never aborts.
type Auto struct {
	Threshold float64
}

var _ resolver.Escalator = Auto{}

func (a Auto) Escalate(_ context.Context, rows []models.Comparison) (resolver.Decision, error) {
	threshold := a.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if len(rows) < 2 {
		return resolver.Reject, nil
	}

	ref := rows[0]
	for _, r := range rows[1:] {
		if Similarity(normalizeTeam(ref.Home), normalizeTeam(r.Home)) < threshold ||
			Similarity(normalizeTeam(ref.Away), normalizeTeam(r.Away)) < threshold ||
			Similarity(normalizeName(ref.League), normalizeName(r.League)) < threshold {
			return resolver.Reject, nil
		}
	}
	return resolver.Confirm, nil
}

// Similarity is 1 minus the edit distance scaled by the longer string.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// Static answers every escalation with the same decision.
type Static resolver.Decision

func (s Static) Escalate(context.Context, []models.Comparison) (resolver.Decision, error) {
	return resolver.Decision(s), nil
}

// clubAffixes are dropped so "FC Porto" and "Porto" compare equal.
var clubAffixes = map[string]bool{
	"fc": true, "f.c.": true, "afc": true, "cf": true, "c.f.": true, "sc": true,
	"ac": true, "as": true, "fk": true, "nk": true, "sk": true, "bk": true,
	"cd": true, "ud": true, "rc": true, "ssc": true, "sl": true, "sv": true,
	"club": true,
}

func normalizeTeam(s string) string {
	words := strings.Fields(normalizeName(s))
	kept := words[:0]
	for _, w := range words {
		if !clubAffixes[w] {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return strings.Join(words, " ")
	}
	return strings.Join(kept, " ")
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '.' {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
