// Package pipeline runs one gather, resolve, evaluate and publish cycle over
// the configured sources.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/Vodeneev/oddsmerge/internal/evaluator"
	"github.com/Vodeneev/oddsmerge/internal/pkg/alias"
	"github.com/Vodeneev/oddsmerge/internal/pkg/enums"
	"github.com/Vodeneev/oddsmerge/internal/pkg/health"
	"github.com/Vodeneev/oddsmerge/internal/pkg/health/handlers"
	"github.com/Vodeneev/oddsmerge/internal/pkg/metrics"
	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
	"github.com/Vodeneev/oddsmerge/internal/pkg/storage"
	"github.com/Vodeneev/oddsmerge/internal/resolver"
	"github.com/Vodeneev/oddsmerge/internal/sources"
)

// LeagueCatalog lists the raw league names already learned for a source.
type LeagueCatalog interface {
	Known(source string, kind alias.Kind) []string
}

type Options struct {
	Sources          []sources.Source
	Resolver         *resolver.Resolver
	Leagues          LeagueCatalog
	Evaluator        evaluator.Evaluator
	Results          *storage.ResultWriter
	Publisher        storage.EventPublisher
	Sports           []enums.Sport
	GatherNewLeagues bool
	Logger           *slog.Logger
}

// Handler owns the sources and everything downstream of them.
type Handler struct {
	opts   Options
	logger *slog.Logger
}

// RunResult is the outcome of one cycle.
type RunResult struct {
	RunID         string
	Events        []*models.Event
	Opportunities int
}

func New(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Evaluator == nil {
		opts.Evaluator = evaluator.Disabled{}
	}
	if opts.Publisher == nil {
		opts.Publisher = storage.NopPublisher{}
	}
	return &Handler{opts: opts, logger: opts.Logger}
}

// Run performs one cycle. Per-source gather failures and per-event
// evaluation failures are logged and skipped; an operator abort or a
// cancelled ctx ends the cycle with an error.
func (h *Handler) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.NewString()
	logger := h.logger.With("run_id", runID)
	start := time.Now()

	res, err := h.run(ctx, runID, logger)
	var views []handlers.EventView
	if res != nil {
		views = h.views(res.Events)
	}
	health.RecordRun(runID, time.Now(), views, err)

	if err != nil {
		logger.Error("run failed", "error", err, "duration", time.Since(start))
		return res, err
	}
	logger.Info("run finished",
		"events", len(res.Events),
		"opportunities", res.Opportunities,
		"duration", time.Since(start))
	return res, nil
}

func (h *Handler) run(ctx context.Context, runID string, logger *slog.Logger) (*RunResult, error) {
	gathered, err := h.Gather(ctx, logger)
	if err != nil {
		return nil, err
	}

	events, err := h.opts.Resolver.Resolve(ctx, gathered)
	if err != nil {
		return nil, err
	}
	res := &RunResult{RunID: runID, Events: events}

	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		found, err := h.evaluate(ctx, e, logger)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Warn("evaluation failed", "start_time", e.StartTime, "sources", e.Sources(), "error", err)
			continue
		}
		if found {
			res.Opportunities++
		}
	}

	if err := h.opts.Publisher.Publish(ctx, runID, events); err != nil {
		logger.Warn("publish failed", "error", err)
	}
	return res, nil
}

// Gather runs every source concurrently. A source that fails is logged and
// left out; the result keeps the configured source order.
func (h *Handler) Gather(ctx context.Context, logger *slog.Logger) ([]resolver.SourceEvents, error) {
	if logger == nil {
		logger = h.logger
	}
	results := make([]resolver.SourceEvents, len(h.opts.Sources))

	var g errgroup.Group
	for i, src := range h.opts.Sources {
		g.Go(func() error {
			name := src.Name()
			events, err := src.GatherEvents(ctx, h.opts.Sports, h.leaguesFor(name))
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				metrics.GatherErrors.WithLabelValues(name).Inc()
				logger.Error("gather failed", "source", name, "error", err)
				return nil
			}
			metrics.EventsGathered.WithLabelValues(name).Add(float64(len(events)))
			logger.Info("gathered", "source", name, "events", len(events))
			results[i] = resolver.SourceEvents{Reader: src, Events: events}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := results[:0]
	for _, r := range results {
		if r.Reader != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// leaguesFor returns nil (every league) when new leagues are wanted or
// nothing has been learned for the source yet.
func (h *Handler) leaguesFor(source string) []string {
	if h.opts.GatherNewLeagues || h.opts.Leagues == nil {
		return nil
	}
	known := h.opts.Leagues.Known(source, alias.KindLeague)
	if len(known) == 0 {
		return nil
	}
	return known
}

// evaluate asks for the profit of e. When there is one, the wagered bets are
// refreshed at their sources and the event is evaluated again if any of
// them moved; a remaining opportunity is written out.
func (h *Handler) evaluate(ctx context.Context, e *models.Event, logger *slog.Logger) (bool, error) {
	profit, err := h.opts.Evaluator.Evaluate(ctx, e)
	if err != nil {
		return false, err
	}
	if profit.IsZero() {
		return false, nil
	}

	moved, err := h.UpdateBetData(ctx, e, wageredBets(e))
	if err != nil {
		logger.Warn("bet refresh failed", "sources", e.Sources(), "error", err)
	}
	if moved {
		if profit, err = h.opts.Evaluator.Evaluate(ctx, e); err != nil {
			return false, err
		}
		if profit.IsZero() {
			return false, nil
		}
	}

	if h.opts.Results != nil {
		path, err := h.opts.Results.Write(h.resultName(e), e)
		if err != nil {
			return true, err
		}
		logger.Info("opportunity", "path", path, "profit_a", profit.OutcomeA, "profit_b", profit.OutcomeB)
	}
	return true, nil
}

// UpdateBetData asks every source present on e to refresh the given bets
// and reports whether any of them moved.
func (h *Handler) UpdateBetData(ctx context.Context, e *models.Event, betIndexes []int) (bool, error) {
	if len(betIndexes) == 0 {
		return false, nil
	}
	var (
		moved bool
		merr  *multierror.Error
	)
	for _, src := range h.opts.Sources {
		if !e.HasSource(src.Name()) {
			continue
		}
		m, err := src.UpdateBetData(ctx, e, betIndexes)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return moved, err
			}
			merr = multierror.Append(merr, err)
			continue
		}
		moved = moved || m
	}
	return moved, merr.ErrorOrNil()
}

func wageredBets(e *models.Event) []int {
	var out []int
	for i, b := range e.Bets {
		if b.Wager > 0 {
			out = append(out, i)
		}
	}
	return out
}

// resultName is "Home v Away" as named by the first configured source
// present on the event.
func (h *Handler) resultName(e *models.Event) string {
	for _, src := range h.opts.Sources {
		if !e.HasSource(src.Name()) {
			continue
		}
		c, err := src.ReadEventComparisonData(e)
		if err != nil {
			continue
		}
		return c.Home + " v " + c.Away
	}
	return e.StartTime.UTC().Format("20060102T150405Z")
}

func (h *Handler) views(events []*models.Event) []handlers.EventView {
	out := make([]handlers.EventView, 0, len(events))
	for _, e := range events {
		v := handlers.EventView{Event: e}
		for _, src := range h.opts.Sources {
			if !e.HasSource(src.Name()) {
				continue
			}
			if c, err := src.ReadEventComparisonData(e); err == nil {
				v.Names = append(v.Names, c)
			}
		}
		if len(v.Names) > 0 {
			v.Key = models.EventKey(v.Names[0], e.StartTime)
		}
		out = append(out, v)
	}
	return out
}
