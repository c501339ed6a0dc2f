// Package sqlite is the default cache backend: a single-file database that
// survives agent restarts, the way browser storage survives page reloads.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Slot is one cache slot row.
type Slot struct {
	Key       string `gorm:"column:slot_key;primaryKey;size:255"`
	Value     []byte
	UpdatedAt time.Time
}

func (Slot) TableName() string { return "cache_slots" }

// Open opens (creating if needed) the database at path and migrates the slot table.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Slot{}); err != nil {
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return db, nil
}

// KV implements the cache backend on a gorm handle.
type KV struct {
	db *gorm.DB
}

func NewKV(db *gorm.DB) *KV {
	return &KV{db: db}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row Slot
	err := k.db.WithContext(ctx).Where("slot_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return row.Value, true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	row := Slot{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := k.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

func (k *KV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := k.db.WithContext(ctx).Where("slot_key IN ?", keys).Delete(&Slot{}).Error; err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

func (k *KV) Ping(ctx context.Context) error {
	sqlDB, err := k.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
