// Package all registers every built-in source.
package all

import (
	_ "github.com/Vodeneev/oddsmerge/internal/sources/aggregator"
	_ "github.com/Vodeneev/oddsmerge/internal/sources/exchange"
)
