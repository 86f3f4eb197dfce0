package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/Vodeneev/oddsmerge/internal/pkg/config"
	"github.com/Vodeneev/oddsmerge/internal/pkg/enums"
	"github.com/Vodeneev/oddsmerge/internal/pkg/metrics"
	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
	"github.com/Vodeneev/oddsmerge/internal/sources"
)

func init() {
	sources.Register(Name, func(deps sources.Deps) (sources.Source, error) {
		return New(deps)
	})
}

// Source gathers events from the aggregator.
type Source struct {
	client     *Client
	cfg        config.AggregatorConfig
	window     time.Duration
	bookmakers *models.BookmakerRegistry
	logger     *slog.Logger
	now        func() time.Time
}

func New(deps sources.Deps) (*Source, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("%s: config is required", Name)
	}
	cfg := deps.Config.Sources.Aggregator
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: sources.aggregator.api_key is required", Name)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("source", Name)

	bookmakers := deps.Bookmakers
	if bookmakers == nil {
		bookmakers = models.NewBookmakerRegistry(models.Bookmaker{})
	}

	return &Source{
		client:     NewClient(cfg, logger),
		cfg:        cfg,
		window:     deps.Config.Resolver.TimeWindow,
		bookmakers: bookmakers,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (s *Source) Name() string { return Name }

func (s *Source) GatherEvents(ctx context.Context, sports []enums.Sport, leagues []string) ([]*models.Event, error) {
	available, err := s.client.Sports(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(sports))
	for _, sp := range sports {
		if sp.IsValid() {
			wanted[sp.GetSportInfo().AggregatorGroup] = true
		}
	}
	offered := make([]string, 0, len(available))
	anyOffered := false
	for _, sp := range available {
		offered = append(offered, sp.Group)
		anyOffered = anyOffered || wanted[sp.Group]
	}
	if !anyOffered {
		slices.Sort(offered)
		return nil, fmt.Errorf("%s: none of the requested sports is offered; valid groups are %v", Name, slices.Compact(offered))
	}

	var leagueSet map[string]bool
	if leagues != nil {
		leagueSet = make(map[string]bool, len(leagues))
		for _, l := range leagues {
			leagueSet[l] = true
		}
	}

	now := s.now()
	var events []*models.Event
	for _, sp := range available {
		if !wanted[sp.Group] || sp.HasOutrights {
			continue
		}
		if leagueSet != nil && !leagueSet[sp.Key] && !leagueSet[sp.Title] {
			continue
		}

		odds, err := s.client.Odds(ctx, sp.Key, now, now.Add(s.window))
		if err != nil {
			return nil, err
		}
		for i := range odds {
			if s.cfg.MaxEventsPerRun > 0 && len(events) >= s.cfg.MaxEventsPerRun {
				s.logger.Warn("event limit reached, remaining events skipped", "limit", s.cfg.MaxEventsPerRun)
				return events, nil
			}
			ev := &odds[i]
			s.addExtraMarkets(ctx, sp.Key, ev)

			e, err := eventFrom(ev, sp.Group, s.bookmakers)
			if err != nil {
				s.reportTranslation(ev.HomeTeam+" - "+ev.AwayTeam, err)
			}
			events = append(events, e)
		}
	}
	s.logger.Info("aggregator events gathered", "events", len(events), "requests_remaining", s.client.Remaining())
	return events, nil
}

func (s *Source) addExtraMarkets(ctx context.Context, sportKey string, ev *oddsEvent) {
	if len(s.cfg.ExtraMarkets) == 0 {
		return
	}
	extra, err := s.client.EventOdds(ctx, sportKey, ev.ID, s.cfg.ExtraMarkets)
	if err != nil {
		s.logger.Warn("extra markets unavailable", "event_id", ev.ID, "error", err)
		return
	}
	ev.Bookmakers = append(ev.Bookmakers, extra.Bookmakers...)
}

func (s *Source) reportTranslation(event string, err error) {
	count := 1
	var merr *multierror.Error
	if errors.As(err, &merr) {
		count = merr.Len()
	}
	metrics.TranslationErrors.WithLabelValues(Name).Add(float64(count))
	s.logger.Warn("markets skipped", "event", event, "count", count, "error", err)
}

func (s *Source) ReadEventComparisonData(e *models.Event) (models.Comparison, error) {
	data, err := eventData(e)
	if err != nil {
		return models.Comparison{}, err
	}
	return models.Comparison{Source: Name, Home: data.HomeTeam, Away: data.AwayTeam, League: data.SportTitle}, nil
}

// UpdateBetData refetches the markets of the referenced bets. A bet whose
// selection is no longer offered, or is offered at different odds, counts as
// moved; the others get the fresh timestamp in place.
func (s *Source) UpdateBetData(ctx context.Context, e *models.Event, betIndexes []int) (bool, error) {
	data, err := eventData(e)
	if err != nil {
		return false, err
	}

	var (
		refs []*models.Bet
		keys []string
	)
	for _, i := range betIndexes {
		if i < 0 || i >= len(e.Bets) {
			return false, fmt.Errorf("%s: bet index %d out of range", Name, i)
		}
		bd, ok := e.Bets[i].SourceData[Name].(BetData)
		if !ok {
			continue
		}
		refs = append(refs, e.Bets[i])
		keys = append(keys, bd.MarketKey)
	}
	if len(refs) == 0 {
		return false, nil
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	fresh, err := s.client.EventOdds(ctx, data.SportKey, data.ID, keys)
	if err != nil {
		return false, err
	}
	bets, err := buildBets(fresh, s.bookmakers)
	if err != nil {
		s.reportTranslation(data.HomeTeam+" - "+data.AwayTeam, err)
	}

	moved := false
	for _, ref := range refs {
		current := findSelection(bets, ref)
		if current == nil || current.Odds != ref.Odds {
			moved = true
			continue
		}
		ref.LastUpdate = current.LastUpdate
	}
	return moved, nil
}

// findSelection finds the bet offering the same selection as b at any odds.
func findSelection(bets []*models.Bet, b *models.Bet) *models.Bet {
	for _, c := range bets {
		if models.SameBookmaker(c.Bookmaker, b.Bookmaker) && c.Type == b.Type && c.Value == b.Value && c.Lay == b.Lay {
			return c
		}
	}
	return nil
}

func eventData(e *models.Event) (EventData, error) {
	data, ok := e.SourceData[Name].(EventData)
	if !ok {
		return EventData{}, fmt.Errorf("%s: event carries no aggregator payload", Name)
	}
	return data, nil
}
