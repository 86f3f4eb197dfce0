// Package sources defines what a data source must provide and keeps the
// registry of available implementations.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Vodeneev/oddsmerge/internal/pkg/config"
	"github.com/Vodeneev/oddsmerge/internal/pkg/enums"
	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

// Source is one external provider of events and odds.
type Source interface {
	Name() string
	// GatherEvents returns the normalized candidate events of the given
	// sports. A nil leagues slice gathers every league.
	GatherEvents(ctx context.Context, sports []enums.Sport, leagues []string) ([]*models.Event, error)
	// ReadEventComparisonData extracts the tuple used to match the event
	// with other sources.
	ReadEventComparisonData(e *models.Event) (models.Comparison, error)
	// UpdateBetData refreshes the bets at the given indexes and reports
	// whether any of their prices moved.
	UpdateBetData(ctx context.Context, e *models.Event, betIndexes []int) (bool, error)
}

// Deps is what a factory gets to build a source.
type Deps struct {
	Config     *config.Config
	Bookmakers *models.BookmakerRegistry
	Logger     *slog.Logger
}

type Factory func(deps Deps) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, f Factory) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		panic("sources: empty name in Register")
	}
	if f == nil {
		panic("sources: nil factory in Register for " + n)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[n]; exists {
		panic("sources: duplicate registration for " + n)
	}
	registry[n] = f
}

func FactoryByName(name string) (Factory, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[n]
	return f, ok
}

func AvailableNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build instantiates the named sources in order.
func Build(names []string, deps Deps) ([]Source, error) {
	out := make([]Source, 0, len(names))
	for _, name := range names {
		f, ok := FactoryByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown source %q (available: %v)", name, AvailableNames())
		}
		s, err := f(deps)
		if err != nil {
			return nil, fmt.Errorf("build source %s: %w", name, err)
		}
		out = append(out, s)
	}
	return out, nil
}
