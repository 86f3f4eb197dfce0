package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/Vodeneev/oddsmerge/internal/pkg/binpack"
	"github.com/Vodeneev/oddsmerge/internal/pkg/config"
	"github.com/Vodeneev/oddsmerge/internal/pkg/enums"
	"github.com/Vodeneev/oddsmerge/internal/pkg/metrics"
	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
	"github.com/Vodeneev/oddsmerge/internal/sources"
)

const bookConcurrency = 4

var catalogueProjection = []string{"EVENT", "COMPETITION", "RUNNER_DESCRIPTION"}

// marketTypeCodes lists the markets requested per sport.
var marketTypeCodes = map[enums.Sport][]string{
	enums.Football: {
		"MATCH_ODDS", "MATCH_ODDS_UNMANAGED",
		"ASIAN_HANDICAP", "ODD_OR_EVEN",
		"CORRECT_SCORE",
		"OVER_UNDER_05", "OVER_UNDER_15", "OVER_UNDER_25", "OVER_UNDER_35", "OVER_UNDER_45",
		"OVER_UNDER_55", "OVER_UNDER_65", "OVER_UNDER_75", "OVER_UNDER_85",
		"TEAM_A_OVER_UNDER_05", "TEAM_A_OVER_UNDER_15", "TEAM_A_OVER_UNDER_25", "TEAM_A_OVER_UNDER_35",
		"TEAM_B_OVER_UNDER_05", "TEAM_B_OVER_UNDER_15", "TEAM_B_OVER_UNDER_25",
		"MATCH_ODDS_AND_OU_25", "MATCH_ODDS_AND_OU_35",
		"TEAM_A_WIN_TO_NIL", "TEAM_B_WIN_TO_NIL",
		"BOTH_TEAMS_TO_SCORE", "MATCH_ODDS_AND_BTTS",
		"DOUBLE_CHANCE",
	},
}

func init() {
	sources.Register(Name, func(deps sources.Deps) (sources.Source, error) {
		return New(deps)
	})
}

// Source gathers events from the exchange.
type Source struct {
	client     *Client
	cfg        config.ExchangeConfig
	window     time.Duration
	bookmaker  *models.Bookmaker
	projection *PriceProjection
	logger     *slog.Logger
	now        func() time.Time
}

func New(deps sources.Deps) (*Source, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("%s: config is required", Name)
	}
	cfg := deps.Config.Sources.Exchange
	if cfg.AppKey == "" {
		return nil, fmt.Errorf("%s: sources.exchange.app_key is required", Name)
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

	projection := &PriceProjection{PriceData: cfg.PriceData}
	if cfg.BestPriceDepth > 0 {
		projection.ExBestOffersOverrides = &ExBestOffersOverrides{BestPricesDepth: cfg.BestPriceDepth}
	}

	return &Source{
		client:     NewClient(cfg, logger),
		cfg:        cfg,
		window:     deps.Config.Resolver.TimeWindow,
		bookmaker:  bookmakers.GetOrCreate(BookmakerName),
		projection: projection,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (s *Source) Name() string { return Name }

func (s *Source) GatherEvents(ctx context.Context, sports []enums.Sport, leagues []string) ([]*models.Event, error) {
	eventTypes, codes := s.filterFor(sports)
	if len(eventTypes) == 0 {
		return nil, nil
	}

	now := s.now()
	filter := marketFilter{
		EventTypeIDs:    eventTypes,
		MarketTypeCodes: codes,
		MarketStartTime: &timeRange{From: formatTime(now), To: formatTime(now.Add(s.window))},
	}

	if leagues != nil {
		ids, err := s.competitionIDs(ctx, eventTypes, leagues)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			s.logger.Info("no known competitions to gather", "leagues", len(leagues))
			return nil, nil
		}
		filter.CompetitionIDs = ids
	}

	catalogue, err := s.client.ListAllMarketCatalogue(ctx, filter, catalogueProjection)
	if err != nil {
		return nil, err
	}

	events := groupByEvent(catalogue)
	if err := s.price(ctx, events); err != nil {
		return nil, err
	}
	s.logger.Info("exchange events gathered", "markets", len(catalogue), "events", len(events))
	return events, nil
}

func (s *Source) filterFor(sports []enums.Sport) (eventTypes, codes []string) {
	for _, sport := range sports {
		if !sport.IsValid() {
			continue
		}
		sportCodes := marketTypeCodes[sport]
		if len(s.cfg.MarketTypes) > 0 {
			sportCodes = s.cfg.MarketTypes
		}
		if len(sportCodes) == 0 {
			s.logger.Warn("no exchange market types for sport, skipping", "sport", sport)
			continue
		}
		eventTypes = append(eventTypes, sport.GetSportInfo().ExchangeEventTypeID)
		codes = append(codes, sportCodes...)
	}
	slices.Sort(codes)
	return eventTypes, slices.Compact(codes)
}

func (s *Source) competitionIDs(ctx context.Context, eventTypes, leagues []string) ([]string, error) {
	byName, err := s.client.ListCompetitions(ctx, eventTypes)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(leagues))
	for _, league := range leagues {
		id, ok := byName[league]
		if !ok {
			s.logger.Debug("league not offered by the exchange", "league", league)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// groupByEvent folds catalogue entries into one event per exchange event id,
// in first-seen order.
func groupByEvent(catalogue []marketCatalogue) []*models.Event {
	byID := make(map[string]*EventData)
	var events []*models.Event

	for _, m := range catalogue {
		if m.Event == nil {
			continue
		}
		data, ok := byID[m.Event.ID]
		if !ok {
			data = &EventData{
				EventID:     m.Event.ID,
				Name:        m.Event.Name,
				CountryCode: m.Event.CountryCode,
				Timezone:    m.Event.Timezone,
				OpenDate:    m.Event.OpenDate,
				Markets:     map[string]*MarketData{},
			}
			byID[m.Event.ID] = data
			e := models.NewEvent(m.Event.OpenDate)
			e.SourceData[Name] = data
			events = append(events, e)
		}
		if data.CompetitionName == "" && m.Competition != nil {
			data.CompetitionID = m.Competition.ID
			data.CompetitionName = m.Competition.Name
		}

		md := &MarketData{
			MarketID:     m.MarketID,
			MarketName:   m.MarketName,
			TotalMatched: m.TotalMatched,
			Runners:      make([]RunnerData, 0, len(m.Runners)),
		}
		for _, r := range m.Runners {
			md.Runners = append(md.Runners, RunnerData{SelectionID: r.SelectionID, Name: r.RunnerName, Handicap: r.Handicap})
		}
		data.Markets[m.MarketID] = md
	}
	return events
}

// price fetches market books for every market of events and attaches the
// translated bets. Markets that fail to translate are skipped and logged.
func (s *Source) price(ctx context.Context, events []*models.Event) error {
	var markets []*MarketData
	for _, e := range events {
		data, err := eventData(e)
		if err != nil {
			return err
		}
		markets = append(markets, sortedMarkets(data)...)
	}

	books, err := s.fetchBooks(ctx, markets)
	if err != nil {
		return err
	}

	now := s.now()
	for _, e := range events {
		data, _ := eventData(e)
		e.AddBookmaker(s.bookmaker)

		var merr *multierror.Error
		for _, m := range sortedMarkets(data) {
			book, ok := books[m.MarketID]
			if !ok {
				continue
			}
			bets, err := s.buildBets(data.Name, m, book, now)
			if err != nil {
				merr = multierror.Append(merr, err)
				continue
			}
			e.AddBets(bets)
		}
		if err := merr.ErrorOrNil(); err != nil {
			metrics.TranslationErrors.WithLabelValues(Name).Add(float64(merr.Len()))
			s.logger.Warn("markets skipped", "event", data.Name, "count", merr.Len(), "error", err)
		}
		s.logger.Debug("event priced", "event", data.Name, "runners", data.RunnerCount(), "bets", len(e.Bets))
	}
	return nil
}

// fetchBooks packs markets into requests that respect both the runner and
// the per-request market limits and fetches them concurrently.
func (s *Source) fetchBooks(ctx context.Context, markets []*MarketData) (map[string]marketBook, error) {
	byRunners := make(map[int][]string)
	for _, m := range markets {
		if len(m.Runners) == 0 {
			continue
		}
		weight := min(len(m.Runners), s.cfg.MaxRunners)
		byRunners[weight] = append(byRunners[weight], m.MarketID)
	}

	bins, err := binpack.Pack(byRunners, s.cfg.MaxRunners, MaxMarketsPerBook(s.projection))
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		books = make(map[string]marketBook, len(markets))
		count int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bookConcurrency)
	for ids := range bins {
		count++
		g.Go(func() error {
			res, err := s.client.ListMarketBook(gctx, ids, s.projection)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, b := range res {
				books[b.MarketID] = b
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	metrics.BinsPacked.WithLabelValues(Name).Add(float64(count))
	return books, nil
}

func (s *Source) buildBets(eventName string, m *MarketData, book marketBook, now time.Time) ([]*models.Bet, error) {
	outcomes, err := translateMarket(eventName, m)
	if err != nil {
		return nil, err
	}

	var bets []*models.Bet
	for _, r := range book.Runners {
		sel := selection{r.SelectionID, r.Handicap}
		if !knownRunner(m, sel) {
			return nil, &models.ConsistencyError{What: "selection id", Old: m.MarketID, New: r.SelectionID}
		}
		oc, ok := outcomes[sel]
		if !ok || r.Ex == nil {
			continue
		}
		payload := BetData{MarketID: m.MarketID, SelectionID: r.SelectionID, Handicap: r.Handicap}
		for _, side := range []struct {
			lay    bool
			prices []priceSize
		}{{false, r.Ex.AvailableToBack}, {true, r.Ex.AvailableToLay}} {
			for _, p := range side.prices {
				b := models.NewBet(oc.betType, oc.value, p.Price, s.bookmaker)
				b.Lay = side.lay
				b.Volume = p.Size
				b.LastUpdate = now
				b.SourceData[Name] = payload
				bets = append(bets, b)
			}
		}
	}
	return bets, nil
}

func (s *Source) ReadEventComparisonData(e *models.Event) (models.Comparison, error) {
	data, err := eventData(e)
	if err != nil {
		return models.Comparison{}, err
	}
	teams, err := splitEventName(data.Name)
	if err != nil {
		return models.Comparison{}, err
	}
	if data.CompetitionName == "" {
		return models.Comparison{}, fmt.Errorf("%s: event %q has no competition", Name, data.Name)
	}
	return models.Comparison{Source: Name, Home: teams[0], Away: teams[1], League: data.CompetitionName}, nil
}

// UpdateBetData refetches the books of the referenced bets' markets. Bets
// whose price is still offered get fresh volume and timestamp in place; a
// price that is gone, or a market that closed, counts as moved.
func (s *Source) UpdateBetData(ctx context.Context, e *models.Event, betIndexes []int) (bool, error) {
	data, err := eventData(e)
	if err != nil {
		return false, err
	}

	byMarket := make(map[string][]int)
	for _, i := range betIndexes {
		if i < 0 || i >= len(e.Bets) {
			return false, fmt.Errorf("%s: bet index %d out of range", Name, i)
		}
		bd, ok := e.Bets[i].SourceData[Name].(BetData)
		if !ok {
			continue
		}
		byMarket[bd.MarketID] = append(byMarket[bd.MarketID], i)
	}
	if len(byMarket) == 0 {
		return false, nil
	}

	markets := make([]*MarketData, 0, len(byMarket))
	for id := range byMarket {
		m, ok := data.Markets[id]
		if !ok {
			return false, &models.ConsistencyError{What: "market id", Old: data.EventID, New: id}
		}
		markets = append(markets, m)
	}
	books, err := s.fetchBooks(ctx, markets)
	if err != nil {
		return false, err
	}

	now := s.now()
	moved := false
	for id, indexes := range byMarket {
		book, ok := books[id]
		if !ok || book.Status == "CLOSED" {
			moved = true
			continue
		}
		for _, i := range indexes {
			bet := e.Bets[i]
			bd := bet.SourceData[Name].(BetData)
			runner, ok := findRunner(book, selection{bd.SelectionID, bd.Handicap})
			if !ok {
				return false, &models.ConsistencyError{What: "selection id", Old: bd.SelectionID, New: nil}
			}
			if !refresh(bet, runner, now) {
				moved = true
			}
		}
	}
	return moved, nil
}

func refresh(bet *models.Bet, r bookRunner, now time.Time) bool {
	if r.Ex == nil {
		return false
	}
	prices := r.Ex.AvailableToBack
	if bet.Lay {
		prices = r.Ex.AvailableToLay
	}
	for _, p := range prices {
		if p.Price == bet.Odds {
			bet.Volume = p.Size
			bet.LastUpdate = now
			return true
		}
	}
	return false
}

func findRunner(book marketBook, sel selection) (bookRunner, bool) {
	for _, r := range book.Runners {
		if r.SelectionID == sel.id && r.Handicap == sel.handicap {
			return r, true
		}
	}
	return bookRunner{}, false
}

func knownRunner(m *MarketData, sel selection) bool {
	for _, r := range m.Runners {
		if r.SelectionID == sel.id && r.Handicap == sel.handicap {
			return true
		}
	}
	return false
}

func sortedMarkets(data *EventData) []*MarketData {
	ids := make([]string, 0, len(data.Markets))
	for id := range data.Markets {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*MarketData, 0, len(ids))
	for _, id := range ids {
		out = append(out, data.Markets[id])
	}
	return out
}

func eventData(e *models.Event) (*EventData, error) {
	data, ok := e.SourceData[Name].(*EventData)
	if !ok {
		return nil, fmt.Errorf("%s: event carries no exchange payload", Name)
	}
	return data, nil
}
