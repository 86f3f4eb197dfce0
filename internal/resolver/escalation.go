package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

// Decision is the outcome of an escalation.
type Decision int

const (
	Reject Decision = iota
	Confirm
	Abort
)

func (d Decision) String() string {
	switch d {
	case Confirm:
		return "confirm"
	case Reject:
		return "reject"
	case Abort:
		return "abort"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Escalator decides whether the rows describe the same fixture when the alias
// table cannot. Implementations may block until an operator answers and
// should return ctx.Err() when ctx is cancelled.
type Escalator interface {
	Escalate(ctx context.Context, rows []models.Comparison) (Decision, error)
}

// EscalatorFunc adapts a function to Escalator.
type EscalatorFunc func(ctx context.Context, rows []models.Comparison) (Decision, error)

func (f EscalatorFunc) Escalate(ctx context.Context, rows []models.Comparison) (Decision, error) {
	return f(ctx, rows)
}

// ErrAbort ends the whole resolution run. It is never retried.
var ErrAbort = errors.New("resolution aborted by operator")

// AbortError carries the rows that were on screen when the operator aborted.
type AbortError struct {
	Rows []models.Comparison
}

func (e *AbortError) Error() string {
	parts := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		parts = append(parts, strings.Join(r.Row(), "|"))
	}
	return fmt.Sprintf("%s at [%s]", ErrAbort, strings.Join(parts, "; "))
}

func (e *AbortError) Unwrap() error { return ErrAbort }

// IsAbort reports whether err ends the run.
func IsAbort(err error) bool {
	return errors.Is(err, ErrAbort)
}
