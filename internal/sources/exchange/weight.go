package exchange

import "math"

// Request weights of the exchange data limits: a single request may not
// exceed maxRequestWeight points.
const maxRequestWeight = 200

var bookWeights = map[string]int{
	"":               2,
	"SP_AVAILABLE":   3,
	"SP_TRADED":      7,
	"EX_BEST_OFFERS": 5,
	"EX_ALL_OFFERS":  17,
	"EX_TRADED":      17,
}

var catalogueWeights = map[string]int{
	"MARKET_DESCRIPTION": 1,
	"RUNNER_METADATA":    1,
}

// ProjectionWeight is the per-market cost of a market book request with the
// given projection.
func ProjectionWeight(p *PriceProjection) int {
	if p == nil || len(p.PriceData) == 0 {
		return bookWeights[""]
	}

	has := make(map[string]bool, len(p.PriceData))
	weight := 0.0
	for _, d := range p.PriceData {
		has[d] = true
		weight += float64(bookWeights[d])
	}
	if has["EX_BEST_OFFERS"] && has["EX_TRADED"] {
		weight -= 2
	}
	if has["EX_ALL_OFFERS"] && has["EX_TRADED"] {
		weight -= 2
	}
	if p.ExBestOffersOverrides != nil && p.ExBestOffersOverrides.BestPricesDepth > 0 {
		weight *= float64(p.ExBestOffersOverrides.BestPricesDepth) / 3
	}
	return max(1, int(math.Ceil(weight)))
}

// MaxMarketsPerBook is how many markets one market book request may carry.
func MaxMarketsPerBook(p *PriceProjection) int {
	return max(1, maxRequestWeight/ProjectionWeight(p))
}

func catalogueMaxResults(projection []string) int {
	weight := 0
	for _, p := range projection {
		weight += catalogueWeights[p]
	}
	if weight == 0 {
		return 1000
	}
	return maxRequestWeight / weight
}
