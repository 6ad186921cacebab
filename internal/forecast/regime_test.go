package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyChoppy(t *testing.T) {
	stats := &RollingStats{DriftMean: 0.001, DriftStd: 0.05}
	cls := Classify(stats)
	assert.Equal(t, RegimeChoppy, cls.Regime)
	volNorm := 0.05 / (0.001 + volEpsilon)
	assert.InDelta(t, math.Min(volNorm/3, 1), cls.Confidence, 1e-9)
}

func TestClassifyRange(t *testing.T) {
	stats := &RollingStats{DriftMean: 0.0002, DriftStd: 0.001}
	cls := Classify(stats)
	assert.Equal(t, RegimeRange, cls.Regime)
	assert.InDelta(t, 1-0.0002/(0.4*0.001), cls.Confidence, 1e-9)
}

func TestClassifyTrends(t *testing.T) {
	up := Classify(&RollingStats{DriftMean: 0.02, DriftStd: 0.008})
	assert.Equal(t, RegimeTrendUp, up.Regime)
	assert.InDelta(t, 1.0, up.Confidence, 1e-9, "|mean|/std capped at 1")

	down := Classify(&RollingStats{DriftMean: -0.005, DriftStd: 0.008})
	assert.Equal(t, RegimeTrendDown, down.Regime)
	assert.InDelta(t, 0.005/0.008, down.Confidence, 1e-9)
}

func TestClassifyDegenerateStats(t *testing.T) {
	// All-zero statistics must classify without NaN or Inf.
	cls := Classify(&RollingStats{})
	assert.Equal(t, RegimeRange, cls.Regime)
	assert.False(t, math.IsNaN(cls.Confidence))
	assert.False(t, math.IsInf(cls.Confidence, 0))
	assert.Equal(t, 1.0, cls.Confidence)
}

func TestClassifyIsPure(t *testing.T) {
	stats := &RollingStats{DriftMean: -0.01, DriftStd: 0.004}
	first := Classify(stats)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Classify(stats))
	}
}
