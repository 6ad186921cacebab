package forecast

import (
	"fmt"
	"math"
)

// Direction is the side of a trade signal.
type Direction string

const (
	DirectionLong    Direction = "long"
	DirectionShort   Direction = "short"
	DirectionNeutral Direction = "neutral"
)

// Signal is the generator's output: a direction, a strength in [0,1] and a
// human-readable reason. Pure value, produced fresh on every evaluation.
type Signal struct {
	Direction Direction `json:"direction"`
	Strength  float64   `json:"strength"`
	Reason    string    `json:"reason"`
}

func neutralSignal(reason string) Signal {
	return Signal{Direction: DirectionNeutral, Strength: 0, Reason: reason}
}

// Thresholds holds the tunable filter constants of the signal generator.
// The defaults are the canonical values; a threshold profile may override
// them at runtime.
type Thresholds struct {
	// RangeDeadZone is the fractional dead zone around the current price
	// inside which a range-band breach is ignored.
	RangeDeadZone float64 `mapstructure:"range_dead_zone" yaml:"range_dead_zone"`
	// MinTilt is the minimum |tilt| for a contrarian evaluation to proceed.
	MinTilt float64 `mapstructure:"min_tilt" yaml:"min_tilt"`
	// PersistenceDepth is how many prior tilt entries must share the
	// current tilt's sign.
	PersistenceDepth int `mapstructure:"persistence_depth" yaml:"persistence_depth"`
	// ZScoreMin is the minimum |z| of the current tilt against its history.
	ZScoreMin float64 `mapstructure:"z_score_min" yaml:"z_score_min"`
	// AccelBoostCap caps the acceleration boost applied to the strength.
	AccelBoostCap float64 `mapstructure:"accel_boost_cap" yaml:"accel_boost_cap"`
	// AccelDampen is the multiplier applied when acceleration opposes tilt.
	AccelDampen float64 `mapstructure:"accel_dampen" yaml:"accel_dampen"`
}

// DefaultThresholds returns the canonical filter constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RangeDeadZone:    0.0005,
		MinTilt:          0.005,
		PersistenceDepth: 2,
		ZScoreMin:        2.0,
		AccelBoostCap:    0.5,
		AccelDampen:      0.7,
	}
}

// rangeBandSignal trades breaches of the 10th/90th percentile forecast band
// around the current price. Used in ranging markets.
func rangeBandSignal(latest FlatSnap, th Thresholds) Signal {
	eps := th.RangeDeadZone
	switch {
	case latest.Q10 > latest.Price*(1+eps):
		deviation := (latest.Q10/latest.Price - 1) * 100
		return Signal{
			Direction: DirectionLong,
			Strength:  math.Min(deviation/3, 1),
			Reason:    fmt.Sprintf("range band: q10 %.2f above price %.2f (%.2f%%)", latest.Q10, latest.Price, deviation),
		}
	case latest.Q90 < latest.Price*(1-eps):
		deviation := (1 - latest.Q90/latest.Price) * 100
		return Signal{
			Direction: DirectionShort,
			Strength:  math.Min(deviation/3, 1),
			Reason:    fmt.Sprintf("range band: q90 %.2f below price %.2f (%.2f%%)", latest.Q90, latest.Price, deviation),
		}
	default:
		return neutralSignal("price within range bands")
	}
}

// contrarianSignal trades against a persistent, statistically significant
// forecast skew in trending markets. The tilt observation is appended to the
// history before any filter runs, so the rolling window stays continuous
// through rejected evaluations.
func contrarianSignal(latest FlatSnap, bias float64, cls Classification, hist *window[TiltEntry], th Thresholds) Signal {
	tilt := latest.Q50/latest.Price - 1 - bias

	prior := hist.All()
	hist.Push(TiltEntry{Time: latest.Time, Tilt: tilt, Regime: cls.Regime})

	if math.Abs(tilt) < th.MinTilt {
		return neutralSignal(fmt.Sprintf("tilt %.4f below minimum %.4f", tilt, th.MinTilt))
	}

	depth := th.PersistenceDepth
	if depth < 1 {
		depth = 1
	}
	if len(prior) < depth {
		return neutralSignal("insufficient tilt persistence")
	}
	for _, entry := range prior[len(prior)-depth:] {
		if !sameSign(entry.Tilt, tilt) {
			return neutralSignal("insufficient tilt persistence")
		}
	}

	z := 0.0
	if len(prior) >= 3 {
		mean, std := meanStd(tiltValues(prior))
		if std > 0 {
			z = (tilt - mean) / std
		}
	}
	if math.Abs(z) < th.ZScoreMin {
		return neutralSignal(fmt.Sprintf("tilt z-score %.2f below threshold %.2f", z, th.ZScoreMin))
	}

	strength := math.Min(math.Abs(z)/3, 1)

	prev := prior[len(prior)-1]
	accelNote := "flat"
	if elapsed := float64(latest.Time-prev.Time) / 1000; elapsed > 0 {
		accel := (tilt - prev.Tilt) / elapsed
		if sameSign(accel, tilt) {
			strength *= 1 + math.Min(math.Abs(accel)*100, th.AccelBoostCap)
			accelNote = "boost"
		} else {
			strength *= th.AccelDampen
			accelNote = "dampen"
		}
	}

	strength *= regimeMultiplier[cls.Regime] * (0.5 + 0.5*cls.Confidence)
	strength = clamp01(strength)

	direction := DirectionShort
	if tilt < 0 {
		direction = DirectionLong
	}
	return Signal{
		Direction: direction,
		Strength:  strength,
		Reason: fmt.Sprintf("contrarian: tilt=%.4f persisted=%d z=%.2f accel=%s regime=%s(%.2f)",
			tilt, depth, z, accelNote, cls.Regime, cls.Confidence),
	}
}

func tiltValues(entries []TiltEntry) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = e.Tilt
	}
	return out
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
