// Package alias holds the per-source raw name to canonical name table used to
// recognise the same team or league across sources.
package alias

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Kind selects the team or league sub-map of a source.
type Kind int

const (
	KindTeam Kind = iota
	KindLeague
)

func (k Kind) String() string {
	switch k {
	case KindTeam:
		return "team"
	case KindLeague:
		return "league"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Names is one source's slice of the table.
type Names struct {
	Teams   map[string]string `json:"team_names"`
	Leagues map[string]string `json:"league_names"`
}

func newNames() Names {
	return Names{Teams: map[string]string{}, Leagues: map[string]string{}}
}

func (n Names) of(kind Kind) map[string]string {
	if kind == KindLeague {
		return n.Leagues
	}
	return n.Teams
}

func (n Names) clone() Names {
	return Names{Teams: maps.Clone(n.Teams), Leagues: maps.Clone(n.Leagues)}
}

// Snapshot is the full table keyed by source id, as persisted.
type Snapshot map[string]Names

// Backend persists snapshots. Load on a store that was never written returns
// an empty snapshot and no error. Save replaces the stored table as a whole.
type Backend interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}

// Entry is one raw name mapping of a source.
type Entry struct {
	Source    string
	Kind      Kind
	Raw       string
	Canonical string
}

// EntryBackend is a Backend that can store single changes. The table uses it
// instead of rewriting the whole snapshot on every mutation.
type EntryBackend interface {
	Backend
	SaveSource(ctx context.Context, source string) error
	SaveEntry(ctx context.Context, e Entry) error
}

// Store is what the resolver needs from the table.
type Store interface {
	Ensure(ctx context.Context, source string) error
	Lookup(source string, kind Kind, raw string) (string, bool)
	Seed(ctx context.Context, source string, kind Kind, raw string) error
	Put(ctx context.Context, source string, kind Kind, raw, canonical string) error
	Persist(ctx context.Context) error
}

// Table is the process-wide alias table. Every mutation is written through to
// the backend while the table lock is held.
type Table struct {
	mu      sync.Mutex
	names   Snapshot
	backend Backend
	logger  *slog.Logger

	// OnLearn is called after a new raw name is stored.
	OnLearn func(source string, kind Kind)
}

var _ Store = (*Table)(nil)

// Open loads the table from backend. A nil backend gives an in-memory table.
func Open(ctx context.Context, backend Backend, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Table{names: Snapshot{}, backend: backend, logger: logger}
	if backend == nil {
		return t, nil
	}

	snap, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load alias table: %w", err)
	}
	for source, n := range snap {
		if n.Teams == nil {
			n.Teams = map[string]string{}
		}
		if n.Leagues == nil {
			n.Leagues = map[string]string{}
		}
		t.names[source] = n
	}
	logger.Info("alias table loaded", slog.Int("sources", len(t.names)))
	return t, nil
}

// Get returns a copy of the names known for source.
func (t *Table) Get(source string) (Names, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.names[source]
	if !ok {
		return Names{}, false
	}
	return n.clone(), true
}

// Sources lists the registered source ids, sorted.
func (t *Table) Sources() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Sorted(maps.Keys(t.names))
}

// Known returns the raw names of kind that source has reported so far.
func (t *Table) Known(source string, kind Kind) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.names[source]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(n.of(kind)))
}

// Lookup resolves a raw name of source to its canonical name.
func (t *Table) Lookup(source string, kind Kind, raw string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.names[source]
	if !ok {
		return "", false
	}
	canonical, ok := n.of(kind)[raw]
	return canonical, ok
}

// Ensure registers source with empty sub-maps if it is not known yet.
func (t *Table) Ensure(ctx context.Context, source string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.names[source]; ok {
		return nil
	}
	t.names[source] = newNames()
	t.logger.Info("alias source registered", slog.String("source", source))
	if eb, ok := t.backend.(EntryBackend); ok {
		if err := eb.SaveSource(ctx, source); err != nil {
			return fmt.Errorf("persist alias source: %w", err)
		}
		return nil
	}
	return t.persistLocked(ctx)
}

// Seed maps raw to itself unless raw is already mapped.
func (t *Table) Seed(ctx context.Context, source string, kind Kind, raw string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.sourceLocked(source).of(kind)
	if _, ok := m[raw]; ok {
		return nil
	}
	m[raw] = raw
	t.learned(source, kind)
	return t.writeLocked(ctx, Entry{Source: source, Kind: kind, Raw: raw, Canonical: raw})
}

// Put maps raw to canonical, replacing any previous mapping. It is the
// unification step after a confirmed match.
func (t *Table) Put(ctx context.Context, source string, kind Kind, raw, canonical string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.sourceLocked(source).of(kind)
	prev, existed := m[raw]
	if existed && prev == canonical {
		return nil
	}
	m[raw] = canonical
	if existed {
		t.logger.Info("alias unified",
			slog.String("source", source),
			slog.String("kind", kind.String()),
			slog.String("raw", raw),
			slog.String("from", prev),
			slog.String("to", canonical))
	} else {
		t.learned(source, kind)
	}
	return t.writeLocked(ctx, Entry{Source: source, Kind: kind, Raw: raw, Canonical: canonical})
}

// Persist writes the current table to the backend. An EntryBackend already
// holds every change, so there is nothing left to write.
func (t *Table) Persist(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.backend.(EntryBackend); ok {
		return nil
	}
	return t.persistLocked(ctx)
}

func (t *Table) sourceLocked(source string) Names {
	n, ok := t.names[source]
	if !ok {
		n = newNames()
		t.names[source] = n
	}
	return n
}

func (t *Table) learned(source string, kind Kind) {
	if t.OnLearn != nil {
		t.OnLearn(source, kind)
	}
}

func (t *Table) snapshotLocked() Snapshot {
	out := make(Snapshot, len(t.names))
	for source, n := range t.names {
		out[source] = n.clone()
	}
	return out
}

// writeLocked stores one changed mapping: as a single entry when the backend
// supports it, otherwise as a full snapshot.
func (t *Table) writeLocked(ctx context.Context, e Entry) error {
	eb, ok := t.backend.(EntryBackend)
	if !ok {
		return t.persistLocked(ctx)
	}
	if err := eb.SaveEntry(ctx, e); err != nil {
		return fmt.Errorf("persist alias %q of %s: %w", e.Raw, e.Source, err)
	}
	return nil
}

func (t *Table) persistLocked(ctx context.Context) error {
	if t.backend == nil {
		return nil
	}
	if err := t.backend.Save(ctx, t.snapshotLocked()); err != nil {
		return fmt.Errorf("persist alias table: %w", err)
	}
	return nil
}
