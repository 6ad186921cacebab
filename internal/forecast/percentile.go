package forecast

import (
	"math"
	"sort"
)

// percentileTargets are the reported descriptive percentiles.
var percentileTargets = []int{0, 1, 5, 10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 99, 100}

// PercentileLevel is one row of the pooled percentile table.
type PercentileLevel struct {
	Percentile int     `json:"percentile"`
	Price      float64 `json:"price"`
}

// PercentileSummary ranks the current price within the pool of every price
// level seen across the buffered distributions. Descriptive output for the
// report layer only; it does not feed signal generation.
type PercentileSummary struct {
	Rank   int               `json:"rank"`
	Levels []PercentileLevel `json:"levels"`
}

// summarizeLevels pools the buffered price-level slices into one ascending
// list and reads the target percentiles off it by index.
func summarizeLevels(pools [][]float64, currentPrice float64) (PercentileSummary, bool) {
	total := 0
	for _, pool := range pools {
		total += len(pool)
	}
	if total == 0 {
		return PercentileSummary{}, false
	}
	flat := make([]float64, 0, total)
	for _, pool := range pools {
		flat = append(flat, pool...)
	}
	sort.Float64s(flat)

	n := len(flat)
	levels := make([]PercentileLevel, 0, len(percentileTargets))
	for _, target := range percentileTargets {
		idx := int(math.Floor(float64(target) / 100 * float64(n-1)))
		levels = append(levels, PercentileLevel{Percentile: target, Price: flat[idx]})
	}

	below := 0
	for _, price := range flat {
		if price < currentPrice {
			below++
		}
	}
	rank := int(math.Round(100 * float64(below) / float64(n)))
	return PercentileSummary{Rank: rank, Levels: levels}, true
}
