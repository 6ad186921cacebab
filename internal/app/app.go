// Package app wires the service together: config, analytics buffers,
// snapshot polling, persistence, the HTTP API and notifications.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"driftgauge/internal/analysis/indicator"
	"driftgauge/internal/config"
	"driftgauge/internal/forecast"
	"driftgauge/internal/logger"
	"driftgauge/internal/market"
	"driftgauge/internal/notify"
	"driftgauge/internal/pkg/circuit"
	"driftgauge/internal/profile"
	"driftgauge/internal/report"
	"driftgauge/internal/store"
	apihttp "driftgauge/internal/transport/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// App owns every long-running component of the service.
type App struct {
	cfg       *config.Config
	analytics *forecast.AnalyticsStore
	source    market.SnapshotSource
	prices    market.PriceSource
	archive   *store.Store
	profiles  *profile.Loader
	notifier  notify.TextNotifier
	apiServer *apihttp.Server
	breaker   *circuit.Breaker

	mu            sync.Mutex
	lastDirection map[string]forecast.Direction
}

// NewApp builds the application from config without starting anything.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	analytics := forecast.NewAnalyticsStore(forecast.Options{
		RingCapacity: cfg.Forecast.RingCapacity,
		TiltCapacity: cfg.Forecast.TiltCapacity,
	}, cfg.Symbols.List...)

	source, err := market.NewForecastAPISource(cfg.Source.APIURL,
		time.Duration(cfg.Source.TimeoutSeconds)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("forecast source init failed: %w", err)
	}

	a := &App{
		cfg:           cfg,
		analytics:     analytics,
		source:        source,
		notifier:      notify.Nop{},
		breaker:       circuit.NewBreaker("forecast-api", 5, 2*time.Minute),
		lastDirection: make(map[string]forecast.Direction),
	}

	if cfg.Market.RESTBaseURL != "" {
		a.prices = market.NewBinanceSource(cfg.Market.RESTBaseURL)
	}

	if cfg.Store.Enabled {
		archive, err := store.New(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("snapshot archive init failed: %w", err)
		}
		a.archive = archive
		logger.Infof("✓ snapshot archive at %s", cfg.Store.Path)
	}

	if cfg.App.ThresholdPath != "" {
		loader, err := profile.NewLoader(cfg.App.ThresholdPath)
		if err != nil {
			return nil, fmt.Errorf("threshold profile init failed: %w", err)
		}
		loader.Subscribe(func(snap profile.Snapshot) {
			analytics.SetThresholds(snap.Thresholds)
			logger.Infof("✓ threshold profile v%d applied", snap.Version)
		})
		a.profiles = loader
	}

	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
		if err != nil {
			return nil, fmt.Errorf("telegram init failed: %w", err)
		}
		a.notifier = tg
		logger.Infof("✓ telegram notifications enabled")
	}

	var archiver apihttp.SnapshotArchiver
	if a.archive != nil {
		archiver = a.archive
	}
	srv, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Analytics: analytics,
		Archive:   archiver,
	})
	if err != nil {
		return nil, fmt.Errorf("api server init failed: %w", err)
	}
	a.apiServer = srv

	logger.Infof("✓ tracking %d symbols: %v", len(cfg.Symbols.List), cfg.Symbols.List)
	return a, nil
}

// Analytics exposes the analytics store for replay harnesses.
func (a *App) Analytics() *forecast.AnalyticsStore {
	if a == nil {
		return nil
	}
	return a.analytics
}

// Run warms up the buffers, then serves HTTP and polls forecasts until ctx
// is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.archive != nil {
		defer a.archive.Close()
	}

	a.warmup(ctx)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.apiServer.Start(ctx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		return a.pollLoop(ctx)
	})

	return group.Wait()
}

// warmup replays archived snapshots into the in-memory buffers so rolling
// statistics survive restarts.
func (a *App) warmup(ctx context.Context) {
	if a.archive == nil {
		return
	}
	hours := a.cfg.Store.WarmupHours
	if hours <= 0 {
		return
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour).UnixMilli()
	for _, sym := range a.cfg.Symbols.List {
		snaps, err := a.archive.RecentSnapshots(ctx, sym, since)
		if err != nil {
			logger.Warnf("warmup %s failed: %v", sym, err)
			continue
		}
		loaded := 0
		for _, snap := range snaps {
			if _, err := a.analytics.Ingest(sym, snap); err == nil {
				loaded++
			}
		}
		if loaded > 0 {
			logger.Infof("✓ warmup %s replayed %d snapshots", sym, loaded)
		}
	}
}

func (a *App) pollLoop(ctx context.Context) error {
	interval := time.Duration(a.cfg.Source.PollSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Infof("polling %s every %s", a.cfg.Source.APIURL, interval)
	a.pollCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.pollCycle(ctx)
		}
	}
}

// pollCycle fetches one snapshot per symbol. Symbols run concurrently, a
// failing symbol never aborts the cycle.
func (a *App) pollCycle(ctx context.Context) {
	cycle := uuid.NewString()[:8]
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for _, sym := range a.cfg.Symbols.List {
		sym := sym
		group.Go(func() error {
			if err := a.pollSymbol(gctx, cycle, sym); err != nil {
				logger.Warnf("[%s] poll %s failed: %v", cycle, sym, err)
			}
			return nil
		})
	}
	_ = group.Wait()
}

func (a *App) pollSymbol(ctx context.Context, cycle, symbol string) error {
	if !a.breaker.Allow() {
		logger.Debugf("[%s] %s skipped, forecast api breaker open", cycle, symbol)
		return nil
	}
	snap, err := a.source.FetchSnapshot(ctx, symbol)
	if err != nil {
		a.breaker.RecordFailure()
		return err
	}
	a.breaker.RecordSuccess()
	flat, err := a.analytics.Ingest(symbol, snap)
	if err != nil {
		return err
	}
	if a.archive != nil {
		if err := a.archive.SaveSnapshot(ctx, symbol, snap); err != nil {
			logger.Warnf("[%s] archive %s failed: %v", cycle, symbol, err)
		}
	}

	sig := a.analytics.GenerateSignal(symbol)
	cls, _ := a.analytics.ClassifyRegime(symbol)
	logger.Debugf("[%s] %s price=%.2f q50=%.2f signal=%s strength=%.2f",
		cycle, symbol, flat.Price, flat.Q50, sig.Direction, sig.Strength)

	a.maybeNotify(ctx, symbol, sig, cls, flat.Price)
	return nil
}

// maybeNotify pushes a report when the signal direction changes. Neutral
// transitions stay quiet.
func (a *App) maybeNotify(ctx context.Context, symbol string, sig forecast.Signal, cls forecast.Classification, price float64) {
	a.mu.Lock()
	prev := a.lastDirection[symbol]
	a.lastDirection[symbol] = sig.Direction
	a.mu.Unlock()

	if sig.Direction == prev || sig.Direction == forecast.DirectionNeutral {
		return
	}

	rep := report.SignalReport{
		Symbol:      symbol,
		GeneratedAt: time.Now(),
		Signal:      sig,
		Regime:      cls,
		Stats:       a.analytics.RollingStats(symbol),
	}
	// rank against the live spot price when available, the forecast price
	// otherwise
	if a.prices != nil {
		if spot, err := a.prices.LatestPrice(ctx, symbol); err == nil && spot > 0 {
			price = spot
		}
	}
	if sum, ok := a.analytics.PercentileSummary(symbol, price); ok {
		rep.Percentiles = &sum
	}
	if a.prices != nil {
		if candles, err := a.prices.FetchCandles(ctx, symbol, "1h", 120); err == nil {
			if ictx, err := indicator.Compute(candles, indicator.Settings{Symbol: symbol, Interval: "1h"}); err == nil {
				rep.Indicators = &ictx
			}
		} else {
			logger.Debugf("candles %s unavailable: %v", symbol, err)
		}
	}

	logger.InfoBlock(report.RenderText(rep))
	if err := a.notifier.SendText(report.BuildMessage(rep).RenderMarkdown()); err != nil {
		logger.Warnf("notify %s failed: %v", symbol, err)
	}
}
