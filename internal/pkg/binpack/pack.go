// Package binpack groups weighted lookups into batches that respect an
// upstream per-request weight limit and item limit.
//
// Pack is a greedy heuristic, not an optimal solver. Each slot of a bin takes
// the weight class closest to an even share of the capacity, which keeps the
// cost at O(bins * itemsPerBin * distinctWeights).
package binpack

import (
	"fmt"
	"iter"
	"slices"
)

// Pack returns a lazy sequence of bins built from items, keyed by weight.
//
// Every bin weighs at most maxWeight and holds at most maxItems items. Items
// are taken from the back of their weight bucket, so order within a weight
// class is not kept. The caller's map is never modified; each call to the
// returned sequence packs from a fresh copy.
func Pack[T any](items map[int][]T, maxWeight, maxItems int) (iter.Seq[[]T], error) {
	if maxWeight <= 0 {
		return nil, fmt.Errorf("max weight must be positive, got %d", maxWeight)
	}
	if maxItems <= 0 {
		return nil, fmt.Errorf("max items per bin must be positive, got %d", maxItems)
	}
	for w, bucket := range items {
		if len(bucket) == 0 {
			continue
		}
		if w < 0 {
			return nil, fmt.Errorf("negative weight %d", w)
		}
		if w > maxWeight {
			return nil, fmt.Errorf("weight %d exceeds bin capacity %d", w, maxWeight)
		}
	}

	return func(yield func([]T) bool) {
		buckets := make(map[int][]T, len(items))
		for w, bucket := range items {
			if len(bucket) > 0 {
				buckets[w] = slices.Clone(bucket)
			}
		}

		gradient := float64(maxWeight) / float64(maxItems)
		for len(buckets) > 0 {
			weights := sortedKeys(buckets)
			bin := make([]T, 0, maxItems)
			binWeight := 0

			for slot := 0; slot < maxItems; slot++ {
				ideal := gradient*float64(slot+1) - float64(binWeight)
				best, ok := closestFit(weights, maxWeight-binWeight, ideal)
				if !ok {
					break
				}

				bucket := buckets[best]
				bin = append(bin, bucket[len(bucket)-1])
				binWeight += best
				if len(bucket) == 1 {
					delete(buckets, best)
					weights = slices.DeleteFunc(weights, func(w int) bool { return w == best })
				} else {
					buckets[best] = bucket[:len(bucket)-1]
				}
			}

			if !yield(bin) {
				return
			}
		}
	}, nil
}

// closestFit picks the weight no larger than room that is nearest to ideal.
// weights is sorted, so ties go to the lighter class.
func closestFit(weights []int, room int, ideal float64) (int, bool) {
	best, found := 0, false
	bestDist := 0.0
	for _, w := range weights {
		if w > room {
			break
		}
		d := float64(w) - ideal
		if d < 0 {
			d = -d
		}
		if !found || d < bestDist {
			best, bestDist, found = w, d, true
		}
	}
	return best, found
}

func sortedKeys[T any](m map[int][]T) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
