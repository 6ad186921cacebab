package forecast

import (
	"math"
	"time"
)

const (
	// pairHorizon is the forecast horizon: each buffered snapshot is paired
	// with the one closest to 24h earlier to measure realised drift.
	pairHorizon = 24 * time.Hour

	// pairTolerance bounds how far the paired snapshot may sit from the
	// exact 24h-earlier target before the pair is rejected.
	pairTolerance = 2 * time.Minute

	// minPairedObservations is the minimum number of accepted pairs across
	// the whole buffer before rolling statistics are meaningful.
	minPairedObservations = 3

	// statsWindow caps how many of the newest observations feed the
	// drift mean/std and bias.
	statsWindow = 8
)

// RollingStats summarises recent realised drift against the 24h-earlier
// forecasts: mean and population std of the realised moves, and the mean
// error of the median forecast (bias). Recomputed from scratch on every call;
// never stored.
type RollingStats struct {
	DriftMean  float64
	DriftStd   float64
	Bias       float64
	Realised   []float64
	BiasErrors []float64
}

// rollingStats derives drift statistics from the ordered (oldest first)
// buffer contents. Returns nil when fewer than minPairedObservations pairs
// qualify; that is a normal early-life outcome, not an error.
func rollingStats(snaps []FlatSnap) *RollingStats {
	horizonMs := pairHorizon.Milliseconds()
	toleranceMs := pairTolerance.Milliseconds()

	realised := make([]float64, 0, len(snaps))
	biasErrors := make([]float64, 0, len(snaps))
	for i := range snaps {
		target := snaps[i].Time - horizonMs
		best := -1
		var bestDist int64
		for j := 0; j < i; j++ {
			dist := snaps[j].Time - target
			if dist < 0 {
				dist = -dist
			}
			if best == -1 || dist < bestDist {
				best = j
				bestDist = dist
			}
		}
		if best == -1 || bestDist > toleranceMs {
			continue
		}
		pair := snaps[best]
		if pair.Price <= 0 {
			continue
		}
		r := snaps[i].Price/pair.Price - 1
		predicted := pair.Q50/pair.Price - 1
		realised = append(realised, r)
		biasErrors = append(biasErrors, r-predicted)
	}
	if len(realised) < minPairedObservations {
		return nil
	}
	if len(realised) > statsWindow {
		realised = realised[len(realised)-statsWindow:]
		biasErrors = biasErrors[len(biasErrors)-statsWindow:]
	}
	mean, std := meanStd(realised)
	return &RollingStats{
		DriftMean:  mean,
		DriftStd:   std,
		Bias:       meanOf(biasErrors),
		Realised:   realised,
		BiasErrors: biasErrors,
	}
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// meanStd returns the mean and population standard deviation.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	mean := meanOf(xs)
	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return mean, math.Sqrt(variance)
}
