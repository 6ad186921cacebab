package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
symbols:
  list: ["btcusdt", "ETHUSDT", "btcusdt"]
source:
  api_url: "https://forecast.example.com/api"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Symbols.List, "symbols upper-cased and deduplicated")
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 1000, cfg.Forecast.RingCapacity)
	assert.Equal(t, 20, cfg.Forecast.TiltCapacity)
	assert.Equal(t, 300, cfg.Source.PollSeconds)
	assert.Equal(t, 72, cfg.Store.WarmupHours)
	assert.Equal(t, "https://api.binance.com", cfg.Market.RESTBaseURL)
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
app:
  log_level: "debug"
symbols:
  list: ["BTCUSDT"]
source:
  api_url: "https://forecast.example.com/api"
`)
	path := writeFile(t, dir, "config.yaml", `
include:
  - base.yaml
app:
  log_level: "warn"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.App.LogLevel, "includer overrides included file")
	assert.Equal(t, []string{"BTCUSDT"}, cfg.Symbols.List)
}

func TestLoadValidation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
source:
  api_url: "https://forecast.example.com/api"
`)
	_, err := Load(path)
	assert.Error(t, err, "empty symbol list is rejected")

	path = writeFile(t, dir, "config2.yaml", `
symbols:
  list: ["BTCUSDT"]
source:
  api_url: "https://forecast.example.com/api"
notify:
  telegram:
    enabled: true
`)
	_, err = Load(path)
	assert.Error(t, err, "enabled telegram requires credentials")
}
