package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
	"timestamp": 1700000000000,
	"current_price": "100000.5",
	"probability_below": {"99000": 0.1, "100000": "0.5", "101000": 0.9},
	"probability_above": {"101000": 0.1},
	"extra_field": true
}`

func TestParseSnapshotTolerantNumbers(t *testing.T) {
	snap, err := ParseSnapshot([]byte(samplePayload))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), snap.Timestamp)
	assert.Equal(t, 100000.5, snap.CurrentPrice, "quoted numbers are accepted")
	assert.Equal(t, 0.5, snap.ProbabilityBelow["100000"])
	assert.Len(t, snap.ProbabilityBelow, 3)
}

func TestParseSnapshotRejectsIncomplete(t *testing.T) {
	cases := []string{
		`not json`,
		`{"current_price": 100, "probability_below": {"99": 0.1}}`,
		`{"timestamp": 1, "probability_below": {"99": 0.1}}`,
		`{"timestamp": 1, "current_price": 100}`,
	}
	for _, c := range cases {
		_, err := ParseSnapshot([]byte(c))
		assert.Error(t, err, c)
	}
}

func TestForecastAPISourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecasts/BTCUSDT", r.URL.Path)
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	src, err := NewForecastAPISource(srv.URL, time.Second)
	require.NoError(t, err)
	snap, err := src.FetchSnapshot(context.Background(), "btcusdt")
	require.NoError(t, err)
	assert.Equal(t, 100000.5, snap.CurrentPrice)
}

func TestForecastAPISourceErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src, err := NewForecastAPISource(srv.URL, time.Second)
	require.NoError(t, err)
	_, err = src.FetchSnapshot(context.Background(), "BTCUSDT")
	assert.Error(t, err)
}
