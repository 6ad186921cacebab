// Package store archives raw forecast snapshots in SQLite so the in-memory
// analytics buffers can be replayed after a restart. The analytics core
// itself never touches persistence.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"driftgauge/internal/forecast"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SnapshotModel is the archived form of one raw snapshot. The probability
// maps are stored as JSON columns.
type SnapshotModel struct {
	ID               uint           `gorm:"primaryKey"`
	Symbol           string         `gorm:"index:idx_symbol_ts;size:32;not null"`
	Timestamp        int64          `gorm:"index:idx_symbol_ts;not null"`
	CurrentPrice     float64        `gorm:"not null"`
	ProbabilityBelow datatypes.JSON `gorm:"type:json"`
	ProbabilityAbove datatypes.JSON `gorm:"type:json"`
	CreatedAt        time.Time
}

func (SnapshotModel) TableName() string { return "forecast_snapshots" }

// Store wraps the gorm handle.
type Store struct {
	db *gorm.DB
}

// New opens (and migrates) the snapshot archive at path.
func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("snapshot store: path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open snapshot store failed: %w", err)
	}
	if err := db.AutoMigrate(&SnapshotModel{}); err != nil {
		return nil, fmt.Errorf("migrate snapshot store failed: %w", err)
	}
	return &Store{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// SaveSnapshot archives one raw snapshot for a symbol.
func (s *Store) SaveSnapshot(ctx context.Context, symbol string, snap forecast.Snapshot) error {
	below, err := json.Marshal(snap.ProbabilityBelow)
	if err != nil {
		return err
	}
	above, err := json.Marshal(snap.ProbabilityAbove)
	if err != nil {
		return err
	}
	rec := SnapshotModel{
		Symbol:           strings.ToUpper(strings.TrimSpace(symbol)),
		Timestamp:        snap.Timestamp,
		CurrentPrice:     snap.CurrentPrice,
		ProbabilityBelow: datatypes.JSON(below),
		ProbabilityAbove: datatypes.JSON(above),
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// RecentSnapshots loads the archived snapshots for a symbol at or after
// sinceMs, oldest first.
func (s *Store) RecentSnapshots(ctx context.Context, symbol string, sinceMs int64) ([]forecast.Snapshot, error) {
	var rows []SnapshotModel
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND timestamp >= ?", strings.ToUpper(strings.TrimSpace(symbol)), sinceMs).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]forecast.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap := forecast.Snapshot{
			Timestamp:    row.Timestamp,
			CurrentPrice: row.CurrentPrice,
		}
		if err := json.Unmarshal(row.ProbabilityBelow, &snap.ProbabilityBelow); err != nil {
			continue
		}
		if len(row.ProbabilityAbove) > 0 {
			_ = json.Unmarshal(row.ProbabilityAbove, &snap.ProbabilityAbove)
		}
		out = append(out, snap)
	}
	return out, nil
}

// Prune drops archived snapshots older than beforeMs and returns how many
// rows went away.
func (s *Store) Prune(ctx context.Context, beforeMs int64) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("timestamp < ?", beforeMs).
		Delete(&SnapshotModel{})
	return res.RowsAffected, res.Error
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
