package models

import (
	"sort"
	"strings"
	"sync"
)

// Bookmaker is a shared reference held by every bet priced at that bookmaker.
// Identity is the name.
type Bookmaker struct {
	Name             string  `json:"name"`
	Commission       float64 `json:"commission"`
	Balance          float64 `json:"balance"`
	PercentOfBalance float64 `json:"percent_of_balance"`
	MaxWagerCount    int     `json:"max_wager_count"`
}

// WagerLimit is the largest stake the profit evaluator may allocate here.
func (b *Bookmaker) WagerLimit() float64 {
	if b == nil {
		return 0
	}
	return b.Balance * b.PercentOfBalance
}

// SameBookmaker compares two references by name; nil only equals nil.
func SameBookmaker(a, b *Bookmaker) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name == b.Name
}

// BookmakerRegistry owns the Bookmaker values that bets point into.
type BookmakerRegistry struct {
	mu         sync.RWMutex
	bookmakers map[string]*Bookmaker
	defaults   Bookmaker
}

// NewBookmakerRegistry creates a registry; defaults supplies the settings of
// bookmakers first seen in a feed (its Name is ignored).
func NewBookmakerRegistry(defaults Bookmaker, seed ...Bookmaker) *BookmakerRegistry {
	r := &BookmakerRegistry{
		bookmakers: make(map[string]*Bookmaker, len(seed)),
		defaults:   defaults,
	}
	for _, b := range seed {
		b := b
		b.Name = normalizeBookmakerName(b.Name)
		if b.Name == "" {
			continue
		}
		r.bookmakers[b.Name] = &b
	}
	return r
}

// GetOrCreate returns the shared reference for name, creating it from the
// registry defaults when unseen.
func (r *BookmakerRegistry) GetOrCreate(name string) *Bookmaker {
	n := normalizeBookmakerName(name)

	r.mu.RLock()
	b, ok := r.bookmakers[n]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bookmakers[n]; ok {
		return b
	}
	nb := r.defaults
	nb.Name = n
	r.bookmakers[n] = &nb
	return &nb
}

// Get returns a registered bookmaker without creating it.
func (r *BookmakerRegistry) Get(name string) (*Bookmaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookmakers[normalizeBookmakerName(name)]
	return b, ok
}

// Names returns all registered bookmaker names sorted.
func (r *BookmakerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.bookmakers))
	for k := range r.bookmakers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalizeBookmakerName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
