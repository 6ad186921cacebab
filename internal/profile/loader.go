// Package profile loads the signal threshold profile from a YAML file and
// watches it for changes, so filter constants can be tuned without a restart.
package profile

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"driftgauge/internal/forecast"
	"driftgauge/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileConfig maps the thresholds file.
type FileConfig struct {
	Thresholds forecast.Thresholds `yaml:"thresholds"`
}

// Snapshot is the immutable view of one loaded profile revision.
type Snapshot struct {
	Version    int64
	LoadedAt   time.Time
	Thresholds forecast.Thresholds
}

// ChangeListener fires after every successful reload.
type ChangeListener func(Snapshot)

// Loader reads the threshold profile and republishes it on file changes.
type Loader struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewLoader reads the profile at path and starts watching it. Values left
// out of the file keep their canonical defaults.
func NewLoader(path string) (*Loader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("threshold profile requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read threshold profile failed: %w", err)
	}
	l := &Loader{path: path, v: v}
	if err := l.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := l.reload(); err != nil {
			logger.Errorf("threshold profile reload failed (%s): %v", evt.Name, err)
			return
		}
		l.notifyListeners()
	})
	v.WatchConfig()
	return l, nil
}

// Snapshot returns the current profile revision.
func (l *Loader) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot
}

// Subscribe registers a listener and immediately delivers the current
// snapshot to it.
func (l *Loader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	snap := l.snapshot
	l.mu.Unlock()
	go func() {
		defer recoverListener()
		fn(snap)
	}()
}

func (l *Loader) notifyListeners() {
	l.mu.RLock()
	snap := l.snapshot
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer recoverListener()
			cb(snap)
		}(fn)
	}
}

func (l *Loader) reload() error {
	cfg, err := readProfileFile(l.path)
	if err != nil {
		return err
	}
	th := mergeDefaults(cfg.Thresholds)
	if err := validateThresholds(th); err != nil {
		return err
	}
	l.mu.Lock()
	l.snapshot = Snapshot{
		Version:    l.snapshot.Version + 1,
		LoadedAt:   time.Now(),
		Thresholds: th,
	}
	version := l.snapshot.Version
	l.mu.Unlock()
	logger.Infof("threshold profile loaded (version=%d, path=%s)", version, l.path)
	return nil
}

func readProfileFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read threshold profile failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse threshold profile failed: %w", err)
	}
	return cfg, nil
}

// mergeDefaults fills zero-valued fields with the canonical constants so a
// partial profile stays usable.
func mergeDefaults(th forecast.Thresholds) forecast.Thresholds {
	def := forecast.DefaultThresholds()
	if th.RangeDeadZone <= 0 {
		th.RangeDeadZone = def.RangeDeadZone
	}
	if th.MinTilt <= 0 {
		th.MinTilt = def.MinTilt
	}
	if th.PersistenceDepth <= 0 {
		th.PersistenceDepth = def.PersistenceDepth
	}
	if th.ZScoreMin <= 0 {
		th.ZScoreMin = def.ZScoreMin
	}
	if th.AccelBoostCap <= 0 {
		th.AccelBoostCap = def.AccelBoostCap
	}
	if th.AccelDampen <= 0 {
		th.AccelDampen = def.AccelDampen
	}
	return th
}

func validateThresholds(th forecast.Thresholds) error {
	if th.AccelDampen > 1 {
		return fmt.Errorf("thresholds.accel_dampen must be <= 1, got %v", th.AccelDampen)
	}
	if th.MinTilt >= 1 {
		return fmt.Errorf("thresholds.min_tilt must be < 1, got %v", th.MinTilt)
	}
	return nil
}

func recoverListener() {
	if r := recover(); r != nil {
		logger.Errorf("threshold profile listener panic: %v", r)
	}
}
