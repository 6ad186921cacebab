// Package forecast implements the streaming analytics core: it consumes
// probabilistic price-forecast snapshots, maintains bounded per-symbol
// histories, classifies the market regime from rolling drift statistics and
// produces directional trade signals with a bounded strength.
package forecast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Snapshot is one raw forecast observation as delivered by the ingestion
// layer: a probability distribution of where the price is expected to land
// over a 24h horizon. Map keys are price levels encoded as decimal strings.
type Snapshot struct {
	Timestamp        int64              `json:"timestamp"`
	CurrentPrice     float64            `json:"current_price"`
	ProbabilityBelow map[string]float64 `json:"probability_below"`
	ProbabilityAbove map[string]float64 `json:"probability_above"`
}

// FlatSnap is the buffered summary of a Snapshot: the current price plus the
// 10th/50th/90th percentile forecast levels. Immutable once created.
type FlatSnap struct {
	Time   int64   `json:"time"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Q10    float64 `json:"q10"`
	Q50    float64 `json:"q50"`
	Q90    float64 `json:"q90"`
}

type probPoint struct {
	Price float64
	Prob  float64
}

// flatten extracts the quantile summary from a raw snapshot. It also returns
// the parsed price levels of the distribution, ascending, for the percentile
// pool. Fails when the distribution carries fewer than two usable levels.
func flatten(symbol string, snap Snapshot) (FlatSnap, []float64, error) {
	if snap.CurrentPrice <= 0 {
		return FlatSnap{}, nil, fmt.Errorf("snapshot for %s has non-positive price %v", symbol, snap.CurrentPrice)
	}
	points, err := parseDistribution(snap.ProbabilityBelow)
	if err != nil {
		return FlatSnap{}, nil, fmt.Errorf("snapshot for %s: %w", symbol, err)
	}
	fs := FlatSnap{
		Time:   snap.Timestamp,
		Symbol: symbol,
		Price:  snap.CurrentPrice,
		Q10:    quantileAt(points, 0.10),
		Q50:    quantileAt(points, 0.50),
		Q90:    quantileAt(points, 0.90),
	}
	levels := make([]float64, len(points))
	for i, p := range points {
		levels[i] = p.Price
	}
	sort.Float64s(levels)
	return fs, levels, nil
}

// parseDistribution converts the string-keyed probability map into points
// sorted ascending by probability. Unparsable keys are dropped individually;
// the distribution as a whole needs at least two distinct price levels.
func parseDistribution(dist map[string]float64) ([]probPoint, error) {
	points := make([]probPoint, 0, len(dist))
	seen := make(map[float64]bool, len(dist))
	for key, prob := range dist {
		d, err := decimal.NewFromString(strings.TrimSpace(key))
		if err != nil {
			continue
		}
		price, _ := d.Float64()
		if price <= 0 || prob < 0 || prob > 1 {
			continue
		}
		points = append(points, probPoint{Price: price, Prob: prob})
		seen[price] = true
	}
	if len(seen) < 2 {
		return nil, fmt.Errorf("distribution has %d distinct price levels, need at least 2", len(seen))
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Prob < points[j].Prob })
	return points, nil
}

// quantileAt interpolates the price at target probability p. Interpolation
// happens in probability space: the straddling pair is located by cumulative
// probability and the price is blended by the probability fraction, not by
// price distance. Outside the observed probability range the boundary price
// is returned.
func quantileAt(points []probPoint, p float64) float64 {
	first, last := points[0], points[len(points)-1]
	if p <= first.Prob {
		return first.Price
	}
	if p >= last.Prob {
		return last.Price
	}
	for i := 1; i < len(points); i++ {
		if points[i].Prob < p {
			continue
		}
		lower, upper := points[i-1], points[i]
		if upper.Prob == lower.Prob {
			return (lower.Price + upper.Price) / 2
		}
		t := (p - lower.Prob) / (upper.Prob - lower.Prob)
		return lower.Price + t*(upper.Price-lower.Price)
	}
	return last.Price
}
