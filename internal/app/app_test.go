package app

import (
	"context"
	"testing"

	"driftgauge/internal/config"
	"driftgauge/internal/forecast"
	"driftgauge/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	snaps map[string]forecast.Snapshot
}

func (s *stubSource) FetchSnapshot(_ context.Context, symbol string) (forecast.Snapshot, error) {
	return s.snaps[symbol], nil
}

type recordingNotifier struct {
	sent []string
}

func (r *recordingNotifier) SendText(text string) error {
	r.sent = append(r.sent, text)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{LogLevel: "error", HTTPAddr: ":0"},
		Symbols: config.SymbolsConfig{List: []string{"BTCUSDT"}},
		Source:  config.SourceConfig{APIURL: "http://127.0.0.1:1", PollSeconds: 300, TimeoutSeconds: 10},
	}
}

func TestNewAppMinimalConfig(t *testing.T) {
	a, err := NewApp(testConfig())
	require.NoError(t, err)
	assert.NotNil(t, a.Analytics())
	assert.Nil(t, a.archive)
	assert.IsType(t, notify.Nop{}, a.notifier)
}

func TestNewAppNilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}

func TestPollSymbolIngests(t *testing.T) {
	a, err := NewApp(testConfig())
	require.NoError(t, err)

	a.source = &stubSource{snaps: map[string]forecast.Snapshot{
		"BTCUSDT": {
			Timestamp:    1756100000000,
			CurrentPrice: 100000,
			ProbabilityBelow: map[string]float64{
				"99000": 0.1, "100000": 0.5, "101000": 0.9,
			},
		},
	}}

	require.NoError(t, a.pollSymbol(context.Background(), "cycle01", "BTCUSDT"))
	snaps := a.Analytics().Snapshots("BTCUSDT")
	require.Len(t, snaps, 1)
	assert.InDelta(t, 100000, snaps[0].Q50, 1e-9)
}

func TestMaybeNotifySkipsNeutralAndRepeats(t *testing.T) {
	a, err := NewApp(testConfig())
	require.NoError(t, err)
	rec := &recordingNotifier{}
	a.notifier = rec

	cls := forecast.Classification{Regime: forecast.RegimeRange, Confidence: 1}

	// neutral never notifies
	a.maybeNotify(context.Background(), "BTCUSDT",
		forecast.Signal{Direction: forecast.DirectionNeutral, Reason: "no snapshots buffered"}, cls, 100000)
	assert.Empty(t, rec.sent)

	// first directional signal notifies
	a.maybeNotify(context.Background(), "BTCUSDT",
		forecast.Signal{Direction: forecast.DirectionLong, Strength: 0.3, Reason: "range-band: price below q10"}, cls, 100000)
	require.Len(t, rec.sent, 1)
	assert.Contains(t, rec.sent[0], "BTCUSDT LONG")

	// repeating the same direction stays quiet
	a.maybeNotify(context.Background(), "BTCUSDT",
		forecast.Signal{Direction: forecast.DirectionLong, Strength: 0.3, Reason: "range-band: price below q10"}, cls, 100000)
	assert.Len(t, rec.sent, 1)
}
