package models

import (
	"strings"
	"time"
)

// EventKey builds a stable identifier of a fixture from its comparison tuple
// and start time: home|away|time. Case and inner whitespace are normalized.
func EventKey(c Comparison, startTime time.Time) string {
	ts := "unknown-time"
	if !startTime.IsZero() {
		ts = startTime.UTC().Format(time.RFC3339)
	}
	return normalizeKeyPart(c.Home) + "|" + normalizeKeyPart(c.Away) + "|" + ts
}

func normalizeKeyPart(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("/", " ", "\\", " ", "|", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
