// Package report formats analytics output for humans. It builds the
// structured messages pushed through notifiers and the plain text blocks
// shown in logs.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"driftgauge/internal/analysis/indicator"
	"driftgauge/internal/forecast"
	"driftgauge/internal/notify"
)

// SignalReport bundles everything known about a symbol at report time.
// Indicators is optional and may be nil when no exchange data is wired.
type SignalReport struct {
	Symbol      string
	GeneratedAt time.Time
	Signal      forecast.Signal
	Regime      forecast.Classification
	Percentiles *forecast.PercentileSummary
	Stats       *forecast.RollingStats
	Indicators  *indicator.Context
}

// BuildMessage renders the report as a structured notification.
func BuildMessage(rep SignalReport) notify.StructuredMessage {
	msg := notify.StructuredMessage{
		Icon:      directionIcon(rep.Signal.Direction),
		Title:     fmt.Sprintf("%s %s", rep.Symbol, strings.ToUpper(string(rep.Signal.Direction))),
		Footer:    fmt.Sprintf("regime %s (%.2f)", rep.Regime.Regime, rep.Regime.Confidence),
		Timestamp: rep.GeneratedAt,
	}

	msg.Sections = append(msg.Sections, notify.MessageSection{
		Title: "Signal",
		Lines: []string{
			fmt.Sprintf("strength %.2f", rep.Signal.Strength),
			rep.Signal.Reason,
		},
	})

	if rep.Stats != nil {
		msg.Sections = append(msg.Sections, notify.MessageSection{
			Title: "Rolling 24h",
			Lines: []string{
				fmt.Sprintf("drift mean %.4f std %.4f", rep.Stats.DriftMean, rep.Stats.DriftStd),
				fmt.Sprintf("forecast bias %.4f", rep.Stats.Bias),
			},
		})
	}

	if rep.Percentiles != nil {
		msg.Sections = append(msg.Sections, notify.MessageSection{
			Title: fmt.Sprintf("Price rank p%d", rep.Percentiles.Rank),
			Lines: percentileLines(*rep.Percentiles, 0),
		})
	}

	if rep.Indicators != nil {
		msg.Sections = append(msg.Sections, notify.MessageSection{
			Title: "Indicators",
			Lines: indicatorLines(*rep.Indicators),
		})
	}

	return msg
}

// RenderText is the plain-text form used for log blocks.
func RenderText(rep SignalReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s signal=%s strength=%.2f regime=%s(%.2f)\n",
		rep.Symbol, rep.Signal.Direction, rep.Signal.Strength,
		rep.Regime.Regime, rep.Regime.Confidence)
	fmt.Fprintf(&b, "reason: %s\n", rep.Signal.Reason)
	if rep.Stats != nil {
		fmt.Fprintf(&b, "drift mean=%.4f std=%.4f bias=%.4f\n",
			rep.Stats.DriftMean, rep.Stats.DriftStd, rep.Stats.Bias)
	}
	if rep.Percentiles != nil {
		fmt.Fprintf(&b, "price rank p%d\n", rep.Percentiles.Rank)
		for _, line := range percentileLines(*rep.Percentiles, rep.Percentiles.Rank) {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// percentileLines renders the level ladder, highest target first. When
// markRank is nonzero the nearest target row carries a marker.
func percentileLines(sum forecast.PercentileSummary, markRank int) []string {
	levels := make([]forecast.PercentileLevel, len(sum.Levels))
	copy(levels, sum.Levels)
	sort.Slice(levels, func(i, j int) bool { return levels[i].Percentile > levels[j].Percentile })

	marked := -1
	if markRank > 0 && len(levels) > 0 {
		best := levels[0].Percentile
		for _, lvl := range levels {
			if abs(lvl.Percentile-markRank) < abs(best-markRank) {
				best = lvl.Percentile
			}
		}
		marked = best
	}

	out := make([]string, 0, len(levels))
	for _, lvl := range levels {
		line := fmt.Sprintf("p%-3d %.2f", lvl.Percentile, lvl.Price)
		if lvl.Percentile == marked {
			line += "  <- price"
		}
		out = append(out, line)
	}
	return out
}

func indicatorLines(ctx indicator.Context) []string {
	keys := make([]string, 0, len(ctx.Values))
	for k := range ctx.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		v := ctx.Values[k]
		out = append(out, fmt.Sprintf("%s %.4f %s", k, v.Latest, v.State))
	}
	return out
}

func directionIcon(d forecast.Direction) string {
	switch d {
	case forecast.DirectionLong:
		return "📈"
	case forecast.DirectionShort:
		return "📉"
	default:
		return "⏸"
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
