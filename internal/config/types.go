package config

import "strings"

// Config is the top-level configuration of the service.
type Config struct {
	App      AppConfig      `toml:"app"`
	Symbols  SymbolsConfig  `toml:"symbols"`
	Forecast ForecastConfig `toml:"forecast"`
	Source   SourceConfig   `toml:"source"`
	Store    StoreConfig    `toml:"store"`
	Market   MarketConfig   `toml:"market"`
	Notify   NotifyConfig   `toml:"notify"`
}

type AppConfig struct {
	Env           string `toml:"env"`
	LogLevel      string `toml:"log_level"`
	HTTPAddr      string `toml:"http_addr"`
	LogPath       string `toml:"log_path"`
	ThresholdPath string `toml:"threshold_profile"`
}

// SymbolsConfig lists the tracked symbols. Buffers are allocated for each at
// startup.
type SymbolsConfig struct {
	List []string `toml:"list"`
}

func (s *SymbolsConfig) normalize() {
	out := make([]string, 0, len(s.List))
	seen := make(map[string]bool, len(s.List))
	for _, sym := range s.List {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	s.List = out
}

// ForecastConfig tunes the per-symbol analytics buffers.
type ForecastConfig struct {
	RingCapacity int `toml:"ring_capacity"`
	TiltCapacity int `toml:"tilt_capacity"`
}

// SourceConfig describes the forecast API the poll loop reads from.
type SourceConfig struct {
	APIURL         string `toml:"api_url"`
	PollSeconds    int    `toml:"poll_seconds"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// StoreConfig controls the sqlite snapshot archive.
type StoreConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	WarmupHours int    `toml:"warmup_hours"`
}

// MarketConfig points at the exchange REST API used for spot prices and
// candles.
type MarketConfig struct {
	RESTBaseURL string `toml:"rest_base_url"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet tracks which field paths were explicitly set in the config files,
// so defaults never override explicit zero values.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes the default rule for a single field.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
