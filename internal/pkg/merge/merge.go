// Package merge reconciles two versions of the same canonical event or bet.
//
// Both functions are pure: inputs are left untouched and a new value is
// returned. Per-source payloads are unioned so provenance is never lost.
package merge

import (
	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

// Bet merges two equal bets with models.FoldBet after checking that they
// really describe the same selection.
func Bet(old, fresh *models.Bet) (*models.Bet, error) {
	if err := checkSameSelection(old, fresh); err != nil {
		return nil, err
	}
	return models.FoldBet(old, fresh), nil
}

// Event folds fresh (as reported by source) into old.
//
// Bookmakers are taken from fresh wholesale. Every bet of fresh either replaces
// its equal counterpart via Bet or is appended. Bets of old that fresh did not
// report and that carry a payload from source are dropped as withdrawn; bets
// known only to other sources survive. Equal bets already inside old are
// folded together first, so the result never holds two equal bets.
func Event(old, fresh *models.Event, source string) (*models.Event, error) {
	out := &models.Event{
		StartTime:  old.StartTime,
		SourceData: old.SourceData.Clone(),
		Bets:       make([]*models.Bet, 0, len(old.Bets)+len(fresh.Bets)),
		Bookmakers: append([]*models.Bookmaker(nil), fresh.Bookmakers...),
		Profit:     old.Profit,
	}
	for s, payload := range fresh.SourceData {
		out.SourceData[s] = payload
	}

	for _, ob := range old.Bets {
		idx := indexOf(out.Bets, ob)
		if idx < 0 {
			out.Bets = append(out.Bets, ob)
			continue
		}
		merged, err := Bet(out.Bets[idx], ob)
		if err != nil {
			return nil, err
		}
		out.Bets[idx] = merged
	}
	seen := make([]bool, len(out.Bets))

	for _, nb := range fresh.Bets {
		idx := indexOf(out.Bets, nb)
		if idx < 0 {
			out.Bets = append(out.Bets, nb)
			continue
		}

		merged, err := Bet(out.Bets[idx], nb)
		if err != nil {
			return nil, err
		}
		out.Bets[idx] = merged
		if idx < len(seen) {
			seen[idx] = true
		}
	}

	kept := out.Bets[:0]
	for i, b := range out.Bets {
		if i < len(seen) && !seen[i] && b.SourceData.Has(source) {
			continue
		}
		kept = append(kept, b)
	}
	out.Bets = kept

	return out, nil
}

func indexOf(bets []*models.Bet, b *models.Bet) int {
	for i, existing := range bets {
		if existing.Equal(b) {
			return i
		}
	}
	return -1
}

func checkSameSelection(old, fresh *models.Bet) error {
	switch {
	case old == nil || fresh == nil:
		return &models.ConsistencyError{What: "bet", Old: old, New: fresh}
	case !models.SameBookmaker(old.Bookmaker, fresh.Bookmaker):
		return &models.ConsistencyError{What: "bookmaker", Old: old.BookmakerName(), New: fresh.BookmakerName()}
	case old.Type != fresh.Type:
		return &models.ConsistencyError{What: "bet type", Old: old.Type, New: fresh.Type}
	case old.Value != fresh.Value:
		return &models.ConsistencyError{What: "outcome value", Old: old.Value, New: fresh.Value}
	case old.Odds != fresh.Odds:
		return &models.ConsistencyError{What: "odds", Old: old.Odds, New: fresh.Odds}
	case old.Lay != fresh.Lay:
		return &models.ConsistencyError{What: "lay flag", Old: old.Lay, New: fresh.Lay}
	}
	return nil
}
