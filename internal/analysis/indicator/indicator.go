// Package indicator computes classic technical indicators from exchange
// candles. The output is advisory context attached to regime and signal
// reports, it never feeds the classification itself.
package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"driftgauge/internal/market"
)

// Settings holds the tunable indicator parameters for one symbol.
type Settings struct {
	Symbol   string
	Interval string
	EMA      EMASettings
	RSI      RSISettings
}

// EMASettings selects the EMA lookback periods.
type EMASettings struct {
	Fast int `json:"fast,omitempty"`
	Slow int `json:"slow,omitempty"`
}

// RSISettings selects the RSI period and band thresholds.
type RSISettings struct {
	Period     int     `json:"period,omitempty"`
	Oversold   float64 `json:"oversold,omitempty"`
	Overbought float64 `json:"overbought,omitempty"`
}

// Value carries the latest reading of one indicator plus a coarse state.
type Value struct {
	Latest float64 `json:"latest"`
	State  string  `json:"state,omitempty"`
	Note   string  `json:"note,omitempty"`
}

// Context is the indicator summary for one symbol and interval.
type Context struct {
	Symbol   string           `json:"symbol"`
	Interval string           `json:"interval"`
	Candles  int              `json:"candles"`
	Values   map[string]Value `json:"values"`
}

// Compute derives EMA, RSI and ATR readings from the given candles.
func Compute(candles []market.Candle, cfg Settings) (Context, error) {
	ctx := Context{
		Symbol:   cfg.Symbol,
		Interval: cfg.Interval,
		Candles:  len(candles),
		Values:   make(map[string]Value),
	}
	if len(candles) == 0 {
		return ctx, fmt.Errorf("no candles")
	}
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}
	lastClose := closes[len(closes)-1]

	if cfg.EMA.Fast <= 0 {
		cfg.EMA.Fast = 21
	}
	if cfg.EMA.Slow <= 0 {
		cfg.EMA.Slow = 50
	}
	emaFast := lastValid(sanitize(talib.Ema(closes, cfg.EMA.Fast)))
	emaSlow := lastValid(sanitize(talib.Ema(closes, cfg.EMA.Slow)))
	ctx.Values["ema_fast"] = Value{
		Latest: emaFast,
		State:  relativeState(lastClose, emaFast),
		Note:   fmt.Sprintf("EMA%d vs price", cfg.EMA.Fast),
	}
	ctx.Values["ema_slow"] = Value{
		Latest: emaSlow,
		State:  relativeState(lastClose, emaSlow),
		Note:   fmt.Sprintf("EMA%d vs price", cfg.EMA.Slow),
	}

	if cfg.RSI.Period <= 0 {
		cfg.RSI.Period = 14
	}
	if cfg.RSI.Overbought == 0 {
		cfg.RSI.Overbought = 70
	}
	if cfg.RSI.Oversold == 0 {
		cfg.RSI.Oversold = 30
	}
	rsiVal := lastValid(sanitize(talib.Rsi(closes, cfg.RSI.Period)))
	rsiState := "neutral"
	switch {
	case rsiVal >= cfg.RSI.Overbought:
		rsiState = "overbought"
	case rsiVal <= cfg.RSI.Oversold:
		rsiState = "oversold"
	}
	ctx.Values["rsi"] = Value{
		Latest: rsiVal,
		State:  rsiState,
		Note:   fmt.Sprintf("period=%d thresholds=%.1f/%.1f", cfg.RSI.Period, cfg.RSI.Oversold, cfg.RSI.Overbought),
	}

	atrVal := lastValid(sanitize(talib.Atr(highs, lows, closes, 14)))
	atrNote := "period=14"
	if lastClose > 0 {
		atrNote = fmt.Sprintf("period=14 pct=%.2f%%", atrVal/lastClose*100)
	}
	ctx.Values["atr"] = Value{
		Latest: atrVal,
		State:  "volatility",
		Note:   atrNote,
	}

	return ctx, nil
}

func sanitize(src []float64) []float64 {
	out := make([]float64, 0, len(src))
	for _, v := range src {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, round4(v))
	}
	return out
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !almostZero(series[i]) {
			return series[i]
		}
	}
	return 0
}

func almostZero(v float64) bool {
	return math.Abs(v) <= 1e-9
}

func relativeState(price, ref float64) string {
	if ref == 0 {
		return "unknown"
	}
	switch {
	case price > ref*1.002:
		return "above"
	case price < ref*0.998:
		return "below"
	default:
		return "touch"
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
