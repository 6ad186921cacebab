package store

import (
	"context"
	"path/filepath"
	"testing"

	"driftgauge/internal/forecast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive", "snapshots.db")
	s, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndRecentSnapshots(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, ts := range []int64{1000, 2000, 3000} {
		snap := forecast.Snapshot{
			Timestamp:    ts,
			CurrentPrice: 100000 + float64(i)*100,
			ProbabilityBelow: map[string]float64{
				"99000":  0.1,
				"100000": 0.5,
				"101000": 0.9,
			},
		}
		require.NoError(t, s.SaveSnapshot(ctx, "btcusdt", snap))
	}
	require.NoError(t, s.SaveSnapshot(ctx, "ETHUSDT", forecast.Snapshot{
		Timestamp:        1500,
		CurrentPrice:     3000,
		ProbabilityBelow: map[string]float64{"3000": 0.5},
	}))

	got, err := s.RecentSnapshots(ctx, "BTCUSDT", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1000), got[0].Timestamp)
	assert.Equal(t, int64(3000), got[2].Timestamp)
	assert.InDelta(t, 0.5, got[0].ProbabilityBelow["100000"], 1e-9)

	// since filter drops the oldest row
	got, err = s.RecentSnapshots(ctx, "BTCUSDT", 2000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].Timestamp)
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, ts := range []int64{1000, 2000, 3000} {
		require.NoError(t, s.SaveSnapshot(ctx, "BTCUSDT", forecast.Snapshot{
			Timestamp:        ts,
			CurrentPrice:     100000,
			ProbabilityBelow: map[string]float64{"100000": 0.5},
		}))
	}

	n, err := s.Prune(ctx, 2500)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := s.RecentSnapshots(ctx, "BTCUSDT", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3000), got[0].Timestamp)
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New("  ")
	assert.Error(t, err)
}
