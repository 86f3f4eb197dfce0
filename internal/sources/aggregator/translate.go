package aggregator

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
	"github.com/Vodeneev/oddsmerge/internal/sources"
)

// buildBets translates every bookmaker market of an event. Markets that
// cannot be translated are skipped and returned as a multierror next to the
// bets that could.
func buildBets(ev *oddsEvent, bookmakers *models.BookmakerRegistry) ([]*models.Bet, error) {
	var (
		bets []*models.Bet
		merr *multierror.Error
	)
	for _, bk := range ev.Bookmakers {
		bm := bookmakers.GetOrCreate(bk.Key)
		for _, m := range bk.Markets {
			mb, err := translateMarket(ev, m, bm)
			if err != nil {
				merr = multierror.Append(merr, err)
				continue
			}
			bets = append(bets, mb...)
		}
	}
	return bets, merr.ErrorOrNil()
}

func translateMarket(ev *oddsEvent, m market, bm *models.Bookmaker) ([]*models.Bet, error) {
	updated := m.LastUpdate
	out := make([]*models.Bet, 0, len(m.Outcomes))
	add := func(o outcome, t models.BetType, value string, lay bool) {
		b := models.NewBet(t, value, o.Price, bm)
		b.Lay = lay
		b.LastUpdate = updated
		b.SourceData[Name] = BetData{MarketKey: m.Key, Name: o.Name, Price: o.Price, Point: o.Point, Description: o.Description}
		out = append(out, b)
	}

	switch m.Key {
	case "h2h", "h2h_lay", "h2h_3_way":
		for _, o := range m.Outcomes {
			side, err := teamSide(ev, o.Name, true)
			if err != nil {
				return nil, err
			}
			add(o, models.BetTypeMatchWinner, side, m.Key == "h2h_lay")
		}

	case "totals", "alternate_totals":
		for _, o := range m.Outcomes {
			if o.Point == nil {
				return nil, missingPoint(m.Key, o)
			}
			add(o, models.BetTypeGoalsOverUnder, models.OverUnderValue(o.Name, *o.Point), false)
		}

	case "btts":
		for _, o := range m.Outcomes {
			add(o, models.BetTypeBothTeamsToScore, strings.ToLower(o.Name), false)
		}

	case "draw_no_bet":
		for _, o := range m.Outcomes {
			side, err := teamSide(ev, o.Name, false)
			if err != nil {
				return nil, err
			}
			add(o, models.BetTypeAsianHandicap, models.HandicapValue(side, 0), false)
		}

	case "spreads", "alternate_spreads":
		for _, o := range m.Outcomes {
			side, err := teamSide(ev, o.Name, false)
			if err != nil {
				return nil, err
			}
			if o.Point == nil {
				return nil, missingPoint(m.Key, o)
			}
			add(o, models.BetTypeAsianHandicap, models.HandicapValue(side, *o.Point), false)
		}

	default:
		return nil, &sources.UnknownMarketError{Source: Name, Label: m.Key}
	}
	return out, nil
}

func teamSide(ev *oddsEvent, name string, drawAllowed bool) (string, error) {
	switch {
	case name == ev.HomeTeam:
		return models.OutcomeHome, nil
	case name == ev.AwayTeam:
		return models.OutcomeAway, nil
	case drawAllowed && strings.EqualFold(name, models.OutcomeDraw):
		return models.OutcomeDraw, nil
	}
	return "", &sources.UnknownMarketError{Source: Name, Label: "outcome " + name}
}

func missingPoint(key string, o outcome) error {
	return fmt.Errorf("%s: %s outcome %q has no point", Name, key, o.Name)
}

// eventFrom builds the canonical event of an odds response.
func eventFrom(ev *oddsEvent, group string, bookmakers *models.BookmakerRegistry) (*models.Event, error) {
	e := models.NewEvent(ev.CommenceTime)
	e.SourceData[Name] = EventData{
		ID:           ev.ID,
		SportKey:     ev.SportKey,
		SportTitle:   ev.SportTitle,
		SportGroup:   group,
		CommenceTime: ev.CommenceTime,
		HomeTeam:     ev.HomeTeam,
		AwayTeam:     ev.AwayTeam,
	}
	for _, bk := range ev.Bookmakers {
		e.AddBookmaker(bookmakers.GetOrCreate(bk.Key))
	}
	bets, err := buildBets(ev, bookmakers)
	e.AddBets(bets)
	return e, err
}
