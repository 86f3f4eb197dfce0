package models

import "fmt"

// Comparison is the tuple a source extracts from an event so it can be
// compared with events of other sources.
type Comparison struct {
	Source string `json:"source"`
	Home   string `json:"home"`
	Away   string `json:"away"`
	League string `json:"league"`
}

// Row returns the tuple in display order.
func (c Comparison) Row() []string {
	return []string{c.Source, c.Home, c.Away, c.League}
}

// ConsistencyError reports two records that should describe the same
// selection but disagree on an identifying field.
type ConsistencyError struct {
	What string
	Old  any
	New  any
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inconsistent %s: %v != %v", e.What, e.Old, e.New)
}
