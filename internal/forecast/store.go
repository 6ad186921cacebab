package forecast

import (
	"sync"
	"time"

	"driftgauge/internal/logger"
)

// ringCapacity covers 72h-plus of snapshots at 5-minute cadence with margin.
const ringCapacity = 1000

// Options tunes the per-symbol buffers. Zero values fall back to the
// canonical capacities.
type Options struct {
	RingCapacity int
	TiltCapacity int
}

func (o Options) withDefaults() Options {
	if o.RingCapacity <= 0 {
		o.RingCapacity = ringCapacity
	}
	if o.TiltCapacity <= 0 {
		o.TiltCapacity = tiltHistoryCapacity
	}
	return o
}

// symbolState is the long-lived mutable state of one tracked symbol. Its
// mutex serializes ingest/classify/signal per symbol, so a push cannot
// interleave with a read-and-evaluate cycle.
type symbolState struct {
	mu          sync.Mutex
	ring        *window[FlatSnap]
	tilts       *window[TiltEntry]
	levels      *window[[]float64]
	lastRegime  Regime
	regimeSince time.Time
}

// AnalyticsStore owns all per-symbol buffers, tilt histories and regime
// diagnostics, and exposes the four analytics operations. State never leaves
// the process; persistence belongs to the surrounding collaborators.
type AnalyticsStore struct {
	opts Options

	thMu       sync.RWMutex
	thresholds Thresholds

	mu      sync.RWMutex
	symbols map[string]*symbolState
}

// NewAnalyticsStore creates a store with buffers eagerly allocated for the
// given symbols. Symbols seen later via Ingest get buffers on first use.
func NewAnalyticsStore(opts Options, symbols ...string) *AnalyticsStore {
	s := &AnalyticsStore{
		opts:       opts.withDefaults(),
		thresholds: DefaultThresholds(),
		symbols:    make(map[string]*symbolState, len(symbols)),
	}
	for _, sym := range symbols {
		s.symbols[sym] = s.newSymbolState()
	}
	return s
}

func (s *AnalyticsStore) newSymbolState() *symbolState {
	return &symbolState{
		ring:   newWindow[FlatSnap](s.opts.RingCapacity),
		tilts:  newWindow[TiltEntry](s.opts.TiltCapacity),
		levels: newWindow[[]float64](s.opts.RingCapacity),
	}
}

func (s *AnalyticsStore) state(symbol string) *symbolState {
	s.mu.RLock()
	st, ok := s.symbols[symbol]
	s.mu.RUnlock()
	if ok {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.symbols[symbol]; ok {
		return st
	}
	st = s.newSymbolState()
	s.symbols[symbol] = st
	return st
}

// SetThresholds swaps the signal filter constants, e.g. after a threshold
// profile reload.
func (s *AnalyticsStore) SetThresholds(th Thresholds) {
	s.thMu.Lock()
	s.thresholds = th
	s.thMu.Unlock()
}

// CurrentThresholds returns the active filter constants.
func (s *AnalyticsStore) CurrentThresholds() Thresholds {
	s.thMu.RLock()
	defer s.thMu.RUnlock()
	return s.thresholds
}

// Ingest extracts the quantile summary from a raw snapshot and appends it to
// the symbol's buffers. A malformed snapshot is rejected with an error and
// leaves the buffers untouched; subsequent snapshots are unaffected.
func (s *AnalyticsStore) Ingest(symbol string, snap Snapshot) (FlatSnap, error) {
	fs, levels, err := flatten(symbol, snap)
	if err != nil {
		return FlatSnap{}, err
	}
	st := s.state(symbol)
	st.mu.Lock()
	st.ring.Push(fs)
	st.levels.Push(levels)
	st.mu.Unlock()
	return fs, nil
}

// Snapshots returns the buffered summaries for a symbol, oldest first.
func (s *AnalyticsStore) Snapshots(symbol string) []FlatSnap {
	st := s.state(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.ring.All()
}

// RollingStats recomputes the drift statistics for a symbol. Returns nil
// while fewer than three paired 24h observations exist.
func (s *AnalyticsStore) RollingStats(symbol string) *RollingStats {
	st := s.state(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()
	return rollingStats(st.ring.All())
}

// ClassifyRegime classifies the symbol's current regime from its rolling
// drift statistics. The second return is false while history is
// insufficient. Transition bookkeeping happens here, outside the pure
// classifier, and does not influence the result.
func (s *AnalyticsStore) ClassifyRegime(symbol string) (Classification, bool) {
	st := s.state(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()
	return s.classifyLocked(st, symbol)
}

func (s *AnalyticsStore) classifyLocked(st *symbolState, symbol string) (Classification, bool) {
	stats := rollingStats(st.ring.All())
	if stats == nil {
		return Classification{}, false
	}
	cls := Classify(stats)
	s.trackTransitionLocked(st, symbol, cls.Regime)
	return cls, true
}

// trackTransitionLocked records regime changes for diagnostics. Observational
// only: the classification itself never consults this state.
func (s *AnalyticsStore) trackTransitionLocked(st *symbolState, symbol string, regime Regime) {
	now := time.Now()
	if st.lastRegime == "" {
		st.lastRegime = regime
		st.regimeSince = now
		return
	}
	if st.lastRegime == regime {
		return
	}
	logger.Infof("[%s] regime transition %s -> %s after %s",
		symbol, st.lastRegime, regime, now.Sub(st.regimeSince).Round(time.Second))
	st.lastRegime = regime
	st.regimeSince = now
}

// LastRegime returns the most recently recorded regime and when it began.
func (s *AnalyticsStore) LastRegime(symbol string) (Regime, time.Time, bool) {
	st := s.state(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.lastRegime == "" {
		return "", time.Time{}, false
	}
	return st.lastRegime, st.regimeSince, true
}

// GenerateSignal runs the full evaluation for a symbol: rolling statistics,
// regime classification, then the regime-appropriate strategy. Every
// insufficient-data path degrades to a neutral signal with a reason.
func (s *AnalyticsStore) GenerateSignal(symbol string) Signal {
	th := s.CurrentThresholds()

	st := s.state(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()

	snaps := st.ring.All()
	if len(snaps) == 0 {
		return neutralSignal("no snapshots buffered")
	}
	stats := rollingStats(snaps)
	if stats == nil {
		return neutralSignal("insufficient history for rolling statistics")
	}
	cls := Classify(stats)
	s.trackTransitionLocked(st, symbol, cls.Regime)

	latest := snaps[len(snaps)-1]
	switch cls.Regime {
	case RegimeChoppy:
		return neutralSignal("market too choppy for signals")
	case RegimeRange:
		return rangeBandSignal(latest, th)
	default:
		return contrarianSignal(latest, stats.Bias, cls, st.tilts, th)
	}
}

// PercentileSummary pools every buffered price level of the symbol and ranks
// currentPrice within the pool. False while nothing is buffered.
func (s *AnalyticsStore) PercentileSummary(symbol string, currentPrice float64) (PercentileSummary, bool) {
	st := s.state(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()
	return summarizeLevels(st.levels.All(), currentPrice)
}

// TiltHistory returns the buffered tilt entries for a symbol, oldest first.
func (s *AnalyticsStore) TiltHistory(symbol string) []TiltEntry {
	st := s.state(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tilts.All()
}
