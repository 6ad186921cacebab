package forecast

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

func TestQuantilesLinearCDF(t *testing.T) {
	// Price uniform on [90, 110]: prob(below p) = (p-90)/20, so the
	// analytic inverse is q(p) = 90 + 20p.
	snap := Snapshot{
		Timestamp:    1_700_000_000_000,
		CurrentPrice: 100,
		ProbabilityBelow: map[string]float64{
			key(90):  0.0,
			key(95):  0.25,
			key(100): 0.5,
			key(105): 0.75,
			key(110): 1.0,
		},
	}
	fs, levels, err := flatten("BTCUSDT", snap)
	require.NoError(t, err)
	assert.InDelta(t, 92.0, fs.Q10, 1e-9)
	assert.InDelta(t, 100.0, fs.Q50, 1e-9)
	assert.InDelta(t, 108.0, fs.Q90, 1e-9)
	assert.Equal(t, []float64{90, 95, 100, 105, 110}, levels)
}

func TestQuantilesClampToBoundary(t *testing.T) {
	points, err := parseDistribution(map[string]float64{
		key(100): 0.3,
		key(120): 0.6,
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, quantileAt(points, 0.1), "below observed range clamps to lowest price")
	assert.Equal(t, 120.0, quantileAt(points, 0.9), "above observed range clamps to highest price")
}

func TestQuantilesEqualProbabilityMidpoint(t *testing.T) {
	points := []probPoint{
		{Price: 100, Prob: 0.2},
		{Price: 110, Prob: 0.5},
		{Price: 130, Prob: 0.5},
		{Price: 140, Prob: 0.8},
	}
	// Target sits exactly on a duplicated probability: midpoint price.
	assert.InDelta(t, 120.0, quantileAt(points, 0.5), 1e-9)
}

func TestFlattenRejectsDegenerateDistribution(t *testing.T) {
	_, _, err := flatten("BTCUSDT", Snapshot{
		CurrentPrice:     100,
		ProbabilityBelow: map[string]float64{key(100): 0.5},
	})
	assert.Error(t, err)

	_, _, err = flatten("BTCUSDT", Snapshot{
		CurrentPrice:     0,
		ProbabilityBelow: map[string]float64{key(90): 0.1, key(110): 0.9},
	})
	assert.Error(t, err)
}

func TestParseDistributionSkipsBadKeys(t *testing.T) {
	points, err := parseDistribution(map[string]float64{
		"not-a-price": 0.4,
		key(100):      0.3,
		key(120):      0.7,
		key(80):       1.5, // probability out of range
	})
	require.NoError(t, err)
	assert.Len(t, points, 2)
	assert.Equal(t, 100.0, points[0].Price)
	assert.Equal(t, 120.0, points[1].Price)
}
