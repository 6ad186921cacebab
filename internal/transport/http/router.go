package apihttp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"driftgauge/internal/forecast"
	"driftgauge/internal/logger"
	"driftgauge/internal/market"

	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const maxIngestBody = 1 << 20

// SnapshotArchiver persists raw snapshots alongside the in-memory buffers.
type SnapshotArchiver interface {
	SaveSnapshot(ctx context.Context, symbol string, snap forecast.Snapshot) error
}

// Router exposes the analytics query and ingest endpoints.
type Router struct {
	analytics *forecast.AnalyticsStore
	archive   SnapshotArchiver
	schema    *jsonschema.Schema
}

// NewRouter builds the API router. archive may be nil.
func NewRouter(analytics *forecast.AnalyticsStore, archive SnapshotArchiver) (*Router, error) {
	schema, err := compileSnapshotSchema()
	if err != nil {
		return nil, err
	}
	return &Router{analytics: analytics, archive: archive, schema: schema}, nil
}

// Register mounts the endpoints onto the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/snapshots", r.handleIngest)
	group.GET("/regime/:symbol", r.handleRegime)
	group.GET("/signal/:symbol", r.handleSignal)
	group.GET("/percentiles/:symbol", r.handlePercentiles)
}

func (r *Router) handleIngest(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIngestBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}
	if !gjson.ValidBytes(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := r.schema.Validate(doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(gjson.GetBytes(body, "symbol").String()))
	snap, err := market.ParseSnapshot(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	flat, err := r.analytics.Ingest(symbol, snap)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if r.archive != nil {
		if err := r.archive.SaveSnapshot(c.Request.Context(), symbol, snap); err != nil {
			logger.Warnf("archive snapshot %s failed: %v", symbol, err)
		}
	}
	c.JSON(http.StatusAccepted, gin.H{
		"symbol": symbol,
		"time":   flat.Time,
		"q10":    flat.Q10,
		"q50":    flat.Q50,
		"q90":    flat.Q90,
	})
}

func (r *Router) handleRegime(c *gin.Context) {
	symbol := upperParam(c)
	cls, ok := r.analytics.ClassifyRegime(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "insufficient data for regime classification"})
		return
	}
	resp := gin.H{
		"symbol":     symbol,
		"regime":     cls.Regime,
		"confidence": cls.Confidence,
	}
	if regime, since, ok := r.analytics.LastRegime(symbol); ok {
		resp["regime_since"] = since.UTC().Format(time.RFC3339)
		resp["last_regime"] = regime
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleSignal(c *gin.Context) {
	symbol := upperParam(c)
	sig := r.analytics.GenerateSignal(symbol)
	resp := gin.H{
		"symbol":    symbol,
		"direction": sig.Direction,
		"strength":  sig.Strength,
		"reason":    sig.Reason,
	}
	if cls, ok := r.analytics.ClassifyRegime(symbol); ok {
		resp["regime"] = cls.Regime
		resp["confidence"] = cls.Confidence
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handlePercentiles(c *gin.Context) {
	symbol := upperParam(c)
	snaps := r.analytics.Snapshots(symbol)
	if len(snaps) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshots buffered"})
		return
	}
	current := snaps[len(snaps)-1].Price
	sum, ok := r.analytics.PercentileSummary(symbol, current)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no price levels pooled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":        symbol,
		"current_price": current,
		"rank":          sum.Rank,
		"levels":        sum.Levels,
	})
}

func upperParam(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
}
