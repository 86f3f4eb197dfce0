package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventKey(t *testing.T) {
	start := time.Date(2026, 2, 10, 18, 15, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name string
		c    Comparison
		want string
	}{
		{"plain", Comparison{Home: "Arsenal", Away: "Chelsea"}, "arsenal|chelsea|2026-02-10T17:15:00Z"},
		{"whitespace", Comparison{Home: "  Al  Hilal ", Away: "Al Wahda"}, "al hilal|al wahda|2026-02-10T17:15:00Z"},
		{"separators", Comparison{Home: "Brighton/Hove", Away: "A|B"}, "brighton hove|a b|2026-02-10T17:15:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EventKey(tt.c, start))
		})
	}

	assert.Equal(t, "a|b|unknown-time", EventKey(Comparison{Home: "A", Away: "B"}, time.Time{}))
}
