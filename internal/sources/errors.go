package sources

import "fmt"

// UnknownMarketError is returned for a market or outcome label a source does
// not know how to translate. Only that market is skipped.
type UnknownMarketError struct {
	Source string
	Label  string
}

func (e *UnknownMarketError) Error() string {
	return fmt.Sprintf("%s: unknown market %q", e.Source, e.Label)
}

// ComparisonArityError is returned when an event name does not split into
// exactly a home and an away team.
type ComparisonArityError struct {
	Source string
	Raw    string
	Got    int
}

func (e *ComparisonArityError) Error() string {
	return fmt.Sprintf("%s: expected 4 comparison values, got %d from %q", e.Source, e.Got, e.Raw)
}
