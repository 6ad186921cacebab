package forecast

import "math"

// Regime labels the recent directional behaviour of a symbol.
type Regime string

const (
	RegimeTrendUp   Regime = "trend_up"
	RegimeTrendDown Regime = "trend_down"
	RegimeRange     Regime = "range"
	RegimeChoppy    Regime = "choppy"
)

// Classification pairs a regime with a confidence in [0,1].
type Classification struct {
	Regime     Regime  `json:"regime"`
	Confidence float64 `json:"confidence"`
}

const (
	// volEpsilon floors the |mean| divisor in the normalized-volatility
	// ratio so a flat drift cannot divide by zero.
	volEpsilon = 0.001

	// choppyVolThreshold: above this normalized volatility the drift is
	// considered undirected noise.
	choppyVolThreshold = 2.0

	// rangeMeanThreshold: |mean| within this fraction of the std is
	// considered ranging rather than trending.
	rangeMeanThreshold = 0.4
)

// regimeMultiplier scales signal strength by regime. Only the trend entries
// apply on the signal path; the full table is also surfaced in reports.
var regimeMultiplier = map[Regime]float64{
	RegimeTrendUp:   1.0,
	RegimeTrendDown: 1.0,
	RegimeRange:     0.7,
	RegimeChoppy:    0.3,
}

// Classify maps rolling drift statistics to a regime with confidence. Pure:
// no logging, no state. Transition bookkeeping lives in the store wrapper.
func Classify(stats *RollingStats) Classification {
	mean := stats.DriftMean
	std := stats.DriftStd
	absMean := math.Abs(mean)

	volNorm := std / (absMean + volEpsilon)
	if volNorm > choppyVolThreshold {
		return Classification{Regime: RegimeChoppy, Confidence: math.Min(volNorm/3, 1)}
	}

	band := rangeMeanThreshold * std
	if absMean <= band {
		conf := 1.0
		if band > 0 {
			conf = 1 - absMean/band
		}
		return Classification{Regime: RegimeRange, Confidence: conf}
	}
	conf := 1.0
	if std > 0 {
		conf = math.Min(absMean/std, 1)
	}
	regime := RegimeTrendUp
	if mean < 0 {
		regime = RegimeTrendDown
	}
	return Classification{Regime: regime, Confidence: conf}
}
