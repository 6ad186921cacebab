package market

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
)

const maxCandleLimit = 1000

// BinanceSource implements PriceSource on the Binance spot REST API.
type BinanceSource struct {
	client *binance.Client
}

// NewBinanceSource builds an unauthenticated spot client; price and kline
// endpoints are public.
func NewBinanceSource(restBaseURL string) *BinanceSource {
	client := binance.NewClient("", "")
	if base := strings.TrimSpace(restBaseURL); base != "" {
		client.BaseURL = base
	}
	client.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	return &BinanceSource{client: client}
}

func (s *BinanceSource) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, fmt.Errorf("symbol is required")
	}
	prices, err := s.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch price %s failed: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price returned for %s", symbol)
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q failed: %w", prices[0].Price, err)
	}
	return price, nil
}

func (s *BinanceSource) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > maxCandleLimit {
		limit = maxCandleLimit
	}
	kls, err := s.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s %s failed: %w", symbol, interval, err)
	}
	out := make([]Candle, 0, len(kls))
	for _, k := range kls {
		c := Candle{OpenTime: k.OpenTime, CloseTime: k.CloseTime}
		c.Open = parseFloat(k.Open)
		c.High = parseFloat(k.High)
		c.Low = parseFloat(k.Low)
		c.Close = parseFloat(k.Close)
		c.Volume = parseFloat(k.Volume)
		out = append(out, c)
	}
	return out, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}
