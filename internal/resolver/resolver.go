// Package resolver decides which candidate events reported by different
// sources describe the same fixture and folds them into one canonical event.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Vodeneev/oddsmerge/internal/pkg/alias"
	"github.com/Vodeneev/oddsmerge/internal/pkg/merge"
	"github.com/Vodeneev/oddsmerge/internal/pkg/metrics"
	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

// defaultSide is the index of the side whose names are authoritative for
// names nobody has seen before.
const defaultSide = 0

// ComparisonReader extracts the comparison tuple of an event. Every source
// implements it.
type ComparisonReader interface {
	Name() string
	ReadEventComparisonData(e *models.Event) (models.Comparison, error)
}

// SourceEvents is the completed gather result of one source.
type SourceEvents struct {
	Reader ComparisonReader
	Events []*models.Event
}

// Resolver pairs up events across sources. It is safe for concurrent use but
// only one escalation is outstanding at a time.
type Resolver struct {
	aliases   alias.Store
	escalator Escalator
	logger    *slog.Logger

	escalateMu sync.Mutex
}

func New(aliases alias.Store, escalator Escalator, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{aliases: aliases, escalator: escalator, logger: logger}
}

// Resolve merges the events of all sources. Sources are compared pairwise in
// the given order; within a pair each event of the earlier source takes the
// first matching event of the later source, which is then removed from
// further consideration. The result lists the surviving events source by
// source in their original order.
//
// Resolve stops between comparisons when ctx is cancelled and returns an
// error wrapping ErrAbort when an operator aborts.
func (r *Resolver) Resolve(ctx context.Context, sources []SourceEvents) ([]*models.Event, error) {
	lists := make([][]*models.Event, len(sources))
	for i, s := range sources {
		lists[i] = append([]*models.Event(nil), s.Events...)
	}

	for i := 0; i < len(sources)-1; i++ {
		for j := i + 1; j < len(sources); j++ {
			if err := r.resolvePair(ctx, sources[i].Reader, sources[j].Reader, lists[i], &lists[j]); err != nil {
				return nil, err
			}
		}
	}

	var out []*models.Event
	for _, l := range lists {
		out = append(out, l...)
	}
	metrics.MergedEvents.Set(float64(len(out)))
	return out, nil
}

func (r *Resolver) resolvePair(ctx context.Context, r1, r2 ComparisonReader, left []*models.Event, right *[]*models.Event) error {
	for a := range left {
		for b := 0; b < len(*right); b++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			e1, e2 := left[a], (*right)[b]
			ok, err := r.EventsMatch(ctx, e1, e2, r1, r2)
			if err != nil {
				if IsAbort(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				r.logger.Warn("event comparison failed",
					slog.String("source_a", r1.Name()),
					slog.String("source_b", r2.Name()),
					slog.String("error", err.Error()))
				continue
			}
			if !ok {
				continue
			}

			merged, err := merge.Event(e1, e2, r2.Name())
			if err != nil {
				r.logger.Error("merge of matched events failed",
					slog.String("source_a", r1.Name()),
					slog.String("source_b", r2.Name()),
					slog.Time("start_time", e1.StartTime),
					slog.String("error", err.Error()))
				continue
			}
			left[a] = merged
			*right = append((*right)[:b], (*right)[b+1:]...)
			break
		}
	}
	return nil
}

// EventsMatch reports whether e1 of source r1 and e2 of source r2 are the
// same fixture. Start times must be equal. Names are resolved through the
// alias table; when one side reports a name the table has never seen and the
// known names agree, the escalator decides and a confirmation unifies the
// unseen names with the first side's canonical names.
func (r *Resolver) EventsMatch(ctx context.Context, e1, e2 *models.Event, r1, r2 ComparisonReader) (bool, error) {
	if !e1.StartTime.Equal(e2.StartTime) {
		metrics.MatchDecisions.WithLabelValues("time_mismatch").Inc()
		return false, nil
	}

	rows := make([]models.Comparison, 2)
	for i, pair := range []struct {
		reader ComparisonReader
		event  *models.Event
	}{{r1, e1}, {r2, e2}} {
		c, err := pair.reader.ReadEventComparisonData(pair.event)
		if err != nil {
			return false, fmt.Errorf("read comparison data of %s: %w", pair.reader.Name(), err)
		}
		rows[i] = c
	}

	for _, c := range rows {
		if err := r.aliases.Ensure(ctx, c.Source); err != nil {
			return false, err
		}
	}

	def := rows[defaultSide]
	for _, s := range slots(def) {
		if err := r.aliases.Seed(ctx, def.Source, s.kind, s.raw); err != nil {
			return false, err
		}
	}

	// canon[slot] collects the canonical names that resolved
	var canon [3][]string
	newValue := false
	for _, c := range rows {
		for k, s := range slots(c) {
			name, ok := r.aliases.Lookup(c.Source, s.kind, s.raw)
			if !ok {
				newValue = true
				continue
			}
			canon[k] = append(canon[k], name)
		}
	}

	for _, names := range canon {
		if !singleValue(names) {
			metrics.MatchDecisions.WithLabelValues("mismatch").Inc()
			return false, nil
		}
	}
	if !newValue {
		metrics.MatchDecisions.WithLabelValues("match").Inc()
		return true, nil
	}

	decision, err := r.escalate(ctx, rows)
	if err != nil {
		return false, err
	}
	if decision != Confirm {
		metrics.MatchDecisions.WithLabelValues("rejected").Inc()
		return false, nil
	}

	if err := r.unify(ctx, rows); err != nil {
		return false, err
	}
	metrics.MatchDecisions.WithLabelValues("confirmed").Inc()
	return true, nil
}

func (r *Resolver) escalate(ctx context.Context, rows []models.Comparison) (Decision, error) {
	if r.escalator == nil {
		return Reject, nil
	}

	r.escalateMu.Lock()
	defer r.escalateMu.Unlock()

	if err := ctx.Err(); err != nil {
		return Reject, err
	}

	decision, err := r.escalator.Escalate(ctx, rows)
	if err != nil {
		return Reject, fmt.Errorf("escalation: %w", err)
	}
	metrics.Escalations.WithLabelValues(decision.String()).Inc()
	r.logger.Info("escalation answered",
		slog.String("decision", decision.String()),
		slog.String("source_a", rows[0].Source),
		slog.String("source_b", rows[1].Source))

	if decision == Abort {
		return Abort, &AbortError{Rows: rows}
	}
	return decision, nil
}

// unify points every non-default side's raw names at the default side's
// canonical names.
func (r *Resolver) unify(ctx context.Context, rows []models.Comparison) error {
	def := rows[defaultSide]
	targets := slots(def)
	for k, t := range targets {
		canonical, ok := r.aliases.Lookup(def.Source, t.kind, t.raw)
		if !ok {
			return fmt.Errorf("%s alias %q of %s vanished during unification", t.kind, t.raw, def.Source)
		}
		targets[k].raw = canonical
	}

	for i, c := range rows {
		if i == defaultSide {
			continue
		}
		for k, s := range slots(c) {
			if err := r.aliases.Put(ctx, c.Source, s.kind, s.raw, targets[k].raw); err != nil {
				return err
			}
		}
	}
	return r.aliases.Persist(ctx)
}

type slot struct {
	kind alias.Kind
	raw  string
}

func slots(c models.Comparison) [3]slot {
	return [3]slot{
		{alias.KindTeam, c.Home},
		{alias.KindTeam, c.Away},
		{alias.KindLeague, c.League},
	}
}

func singleValue(names []string) bool {
	if len(names) == 0 {
		return false
	}
	for _, n := range names[1:] {
		if n != names[0] {
			return false
		}
	}
	return true
}
