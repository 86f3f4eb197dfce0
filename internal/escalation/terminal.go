package escalation

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
	"github.com/Vodeneev/oddsmerge/internal/resolver"
)

const defaultMaxAttempts = 100

// Terminal asks an operator on a line-oriented console. Input is read by a
// single goroutine so a pending prompt can be abandoned when ctx ends.
type Terminal struct {
	out         io.Writer
	maxAttempts int

	once  sync.Once
	in    io.Reader
	lines chan string
	done  chan struct{}
	err   error
}

var _ resolver.Escalator = (*Terminal)(nil)

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:          in,
		out:         out,
		maxAttempts: defaultMaxAttempts,
		lines:       make(chan string),
		done:        make(chan struct{}),
	}
}

func (t *Terminal) pump() {
	defer close(t.done)
	sc := bufio.NewScanner(t.in)
	for sc.Scan() {
		t.lines <- sc.Text()
	}
	t.err = sc.Err()
}

// Escalate prints the rows and reads answers until one is valid. Running out
// of attempts or input counts as an abort.
func (t *Terminal) Escalate(ctx context.Context, rows []models.Comparison) (resolver.Decision, error) {
	t.once.Do(func() { go t.pump() })

	fmt.Fprintln(t.out, RenderTable(rows))
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		fmt.Fprint(t.out, Prompt)

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(t.out)
			return resolver.Reject, ctx.Err()
		case line = <-t.lines:
		case <-t.done:
			fmt.Fprintln(t.out)
			if t.err != nil {
				return resolver.Abort, fmt.Errorf("read answer: %w", t.err)
			}
			return resolver.Abort, nil
		}

		if d, ok := parseAnswer(line); ok {
			return d, nil
		}
		fmt.Fprintln(t.out, "Invalid input")
	}
	return resolver.Abort, nil
}

func parseAnswer(s string) (resolver.Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y":
		return resolver.Confirm, true
	case "n":
		return resolver.Reject, true
	case "e":
		return resolver.Abort, true
	}
	return resolver.Reject, false
}
