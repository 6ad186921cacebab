package market

import (
	"context"

	"driftgauge/internal/forecast"
)

// Candle is one OHLCV bar, used only for the indicator context attached to
// reports.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// SnapshotSource is the ingestion collaborator seam: it delivers the next
// raw forecast snapshot for a symbol.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context, symbol string) (forecast.Snapshot, error)
}

// PriceSource supplies the current spot price and candle history used by the
// percentile ranking and the report layer.
type PriceSource interface {
	LatestPrice(ctx context.Context, symbol string) (float64, error)
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}
