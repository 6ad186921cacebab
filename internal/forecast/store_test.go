package forecast

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// probSnap builds a raw snapshot whose extracted quantiles land exactly on
// the given levels.
func probSnap(tsMs int64, price, q10, q50, q90 float64) Snapshot {
	return Snapshot{
		Timestamp:    tsMs,
		CurrentPrice: price,
		ProbabilityBelow: map[string]float64{
			strconv.FormatFloat(q10, 'f', -1, 64): 0.1,
			strconv.FormatFloat(q50, 'f', -1, 64): 0.5,
			strconv.FormatFloat(q90, 'f', -1, 64): 0.9,
		},
	}
}

func TestStoreRingEviction(t *testing.T) {
	s := NewAnalyticsStore(Options{RingCapacity: 4}, "BTCUSDT")
	for i := 0; i < 5; i++ {
		price := 100.0 + float64(i)
		_, err := s.Ingest("BTCUSDT", probSnap(int64(i)*hourMs, price, price*0.99, price, price*1.01))
		require.NoError(t, err)
	}
	snaps := s.Snapshots("BTCUSDT")
	require.Len(t, snaps, 4)
	assert.Equal(t, 101.0, snaps[0].Price, "oldest snapshot evicted")
	assert.Equal(t, 104.0, snaps[3].Price)
}

func TestStoreMalformedSnapshotSkipped(t *testing.T) {
	s := NewAnalyticsStore(Options{}, "BTCUSDT")
	_, err := s.Ingest("BTCUSDT", Snapshot{CurrentPrice: 100, ProbabilityBelow: map[string]float64{"100": 0.5}})
	assert.Error(t, err)
	assert.Empty(t, s.Snapshots("BTCUSDT"))

	// The next good snapshot goes through untouched.
	_, err = s.Ingest("BTCUSDT", probSnap(0, 100, 99, 100, 101))
	require.NoError(t, err)
	assert.Len(t, s.Snapshots("BTCUSDT"), 1)
}

func TestClassifyRegimeInsufficientData(t *testing.T) {
	s := NewAnalyticsStore(Options{}, "BTCUSDT")
	_, ok := s.ClassifyRegime("BTCUSDT")
	assert.False(t, ok)

	sig := s.GenerateSignal("BTCUSDT")
	assert.Equal(t, DirectionNeutral, sig.Direction)
}

func TestClassifyRegimeRepeatable(t *testing.T) {
	s := NewAnalyticsStore(Options{}, "BTCUSDT")
	for h := 0; h < 3; h++ {
		price := 100000.0
		_, err := s.Ingest("BTCUSDT", probSnap(int64(h)*hourMs, price, price*0.99, price, price*1.01))
		require.NoError(t, err)
	}
	for h := 0; h < 3; h++ {
		price := 100000.0 * (1 + 0.02 + 0.001*float64(h))
		_, err := s.Ingest("BTCUSDT", probSnap(int64(24+h)*hourMs, price, price*0.99, price, price*1.01))
		require.NoError(t, err)
	}
	first, ok := s.ClassifyRegime("BTCUSDT")
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		again, ok := s.ClassifyRegime("BTCUSDT")
		require.True(t, ok)
		assert.Equal(t, first, again, "identical buffer state classifies identically")
	}
}

func TestGenerateSignalChoppyAlwaysNeutral(t *testing.T) {
	s := NewAnalyticsStore(Options{}, "BTCUSDT")
	for h := 0; h < 3; h++ {
		_, err := s.Ingest("BTCUSDT", probSnap(int64(h)*hourMs, 100000, 99000, 100000, 101000))
		require.NoError(t, err)
	}
	// Wild alternating drift: normalized volatility far above the choppy
	// threshold.
	lates := []float64{105000, 95000, 105000}
	for h, price := range lates {
		// Huge forecast tilt that would scream contrarian in a trend.
		_, err := s.Ingest("BTCUSDT", probSnap(int64(24+h)*hourMs, price, price*0.90, price*0.92, price*0.94))
		require.NoError(t, err)
	}
	sig := s.GenerateSignal("BTCUSDT")
	assert.Equal(t, DirectionNeutral, sig.Direction)
	assert.Equal(t, "market too choppy for signals", sig.Reason)
	assert.Empty(t, s.TiltHistory("BTCUSDT"), "choppy path never touches tilt history")
}

func TestGenerateSignalRangeBand(t *testing.T) {
	s := NewAnalyticsStore(Options{}, "BTCUSDT")
	for h := 0; h < 4; h++ {
		_, err := s.Ingest("BTCUSDT", probSnap(int64(h)*hourMs, 100000, 99000, 100000, 101000))
		require.NoError(t, err)
	}
	// Small alternating drift around zero: RANGE regime.
	lates := []float64{100100, 99900, 100100, 100000}
	for h, price := range lates {
		q10, q90 := price*0.999, price*1.001
		if h == len(lates)-1 {
			// Final snapshot: q10 sits 1% above price, breaching the band.
			q10, q90 = 101000, 102000
		}
		_, err := s.Ingest("BTCUSDT", probSnap(int64(24+h)*hourMs, price, q10, (q10+q90)/2, q90))
		require.NoError(t, err)
	}
	sig := s.GenerateSignal("BTCUSDT")
	assert.Equal(t, DirectionLong, sig.Direction)
	assert.InDelta(t, 1.0/3, sig.Strength, 1e-3)
}

// TestGenerateSignalContrarianEndToEnd feeds hourly snapshots spanning more
// than 24h with a steady downward drift and a persistent negative forecast
// tilt, then expects the enhanced contrarian chain to fire a long signal.
func TestGenerateSignalContrarianEndToEnd(t *testing.T) {
	s := NewAnalyticsStore(Options{}, "BTCUSDT")

	earlyPrices := []float64{100000, 100100, 100200, 100300, 100400, 100500}
	drifts := []float64{-0.020, -0.021, -0.019, -0.0205, -0.0195, -0.020}
	// Early snapshots predict their own realised move: zero forecast bias.
	for h, price := range earlyPrices {
		q50 := price * (1 + drifts[h])
		_, err := s.Ingest("BTCUSDT", probSnap(int64(h)*hourMs, price, q50*0.99, q50, q50*1.01))
		require.NoError(t, err)
	}

	tilts := []float64{-0.0078, -0.0080, -0.0078, -0.0080, -0.0082, -0.0088}
	var last Signal
	for h, drift := range drifts {
		price := earlyPrices[h] * (1 + drift)
		q50 := price * (1 + tilts[h])
		_, err := s.Ingest("BTCUSDT", probSnap(int64(24+h)*hourMs, price, q50*0.995, q50, q50*1.005))
		require.NoError(t, err)
		last = s.GenerateSignal("BTCUSDT")
	}

	assert.Equal(t, DirectionLong, last.Direction, "persistent negative tilt trades contrarian long")
	assert.Greater(t, last.Strength, 0.0)
	assert.Contains(t, last.Reason, "contrarian")
	assert.Contains(t, last.Reason, "z=")
	assert.Contains(t, last.Reason, "accel=")
	assert.NotEmpty(t, s.TiltHistory("BTCUSDT"))
}

func TestPercentileSummary(t *testing.T) {
	s := NewAnalyticsStore(Options{}, "BTCUSDT")
	_, ok := s.PercentileSummary("BTCUSDT", 100)
	assert.False(t, ok, "empty buffer has no summary")

	// Two snapshots pool six price levels: 90..140 step 10.
	_, err := s.Ingest("BTCUSDT", probSnap(0, 100, 90, 100, 110))
	require.NoError(t, err)
	_, err = s.Ingest("BTCUSDT", probSnap(hourMs, 100, 120, 130, 140))
	require.NoError(t, err)

	sum, ok := s.PercentileSummary("BTCUSDT", 115)
	require.True(t, ok)
	// 3 of 6 pooled levels sit below 115.
	assert.Equal(t, 50, sum.Rank)
	require.Len(t, sum.Levels, len(percentileTargets))
	assert.Equal(t, PercentileLevel{Percentile: 0, Price: 90}, sum.Levels[0])
	assert.Equal(t, PercentileLevel{Percentile: 100, Price: 140}, sum.Levels[len(sum.Levels)-1])
	// floor(50/100*(6-1)) = index 2.
	for _, lvl := range sum.Levels {
		if lvl.Percentile == 50 {
			assert.Equal(t, 110.0, lvl.Price)
		}
	}
}
