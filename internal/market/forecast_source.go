package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"driftgauge/internal/forecast"

	"github.com/tidwall/gjson"
)

// ForecastAPISource fetches probabilistic forecast snapshots over HTTP. The
// payload is parsed leniently: numbers may arrive as JSON numbers or as
// quoted strings, and unknown fields are ignored.
type ForecastAPISource struct {
	baseURL string
	client  *http.Client
}

// NewForecastAPISource builds a source against the given API base URL.
func NewForecastAPISource(baseURL string, timeout time.Duration) (*ForecastAPISource, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("forecast source requires base url")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ForecastAPISource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (s *ForecastAPISource) FetchSnapshot(ctx context.Context, symbol string) (forecast.Snapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return forecast.Snapshot{}, fmt.Errorf("symbol is required")
	}
	url := fmt.Sprintf("%s/forecasts/%s", s.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return forecast.Snapshot{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return forecast.Snapshot{}, fmt.Errorf("fetch forecast %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return forecast.Snapshot{}, fmt.Errorf("fetch forecast %s: unexpected status %d", symbol, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return forecast.Snapshot{}, err
	}
	return ParseSnapshot(body)
}

// ParseSnapshot decodes a forecast payload. Exposed so the HTTP ingest
// endpoint can share the exact same tolerant decoding.
func ParseSnapshot(body []byte) (forecast.Snapshot, error) {
	if !gjson.ValidBytes(body) {
		return forecast.Snapshot{}, fmt.Errorf("forecast payload is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	snap := forecast.Snapshot{
		Timestamp:        root.Get("timestamp").Int(),
		CurrentPrice:     root.Get("current_price").Float(),
		ProbabilityBelow: parseProbMap(root.Get("probability_below")),
		ProbabilityAbove: parseProbMap(root.Get("probability_above")),
	}
	if snap.Timestamp <= 0 {
		return forecast.Snapshot{}, fmt.Errorf("forecast payload missing timestamp")
	}
	if snap.CurrentPrice <= 0 {
		return forecast.Snapshot{}, fmt.Errorf("forecast payload missing current_price")
	}
	if len(snap.ProbabilityBelow) == 0 {
		return forecast.Snapshot{}, fmt.Errorf("forecast payload missing probability_below")
	}
	return snap, nil
}

func parseProbMap(node gjson.Result) map[string]float64 {
	if !node.IsObject() {
		return nil
	}
	out := make(map[string]float64)
	node.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = value.Float()
		return true
	})
	return out
}
