// internal/storage/gorm.go
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type record struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (record) TableName() string {
	return "paywallkit_values"
}

// DB persists SDK values in a local sqlite database.
type DB struct {
	db  *gorm.DB
	log *logrus.Logger
}

func Open(path string, log *logrus.Logger) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage at %s: %w", path, err)
	}

	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate storage: %w", err)
	}

	return &DB{db: db, log: log}, nil
}

func (s *DB) GetString(key Key) (string, bool) {
	var rec record
	if err := s.db.First(&rec, "key = ?", string(key)).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.WithError(err).WithField("key", key).Error("storage read failed")
		}
		return "", false
	}
	return rec.Value, true
}

func (s *DB) SetString(key Key, value string) {
	rec := record{Key: string(key), Value: value, UpdatedAt: time.Now()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("storage write failed")
	}
}

func (s *DB) GetJSON(key Key, out interface{}) bool {
	raw, ok := s.GetString(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.log.WithError(err).WithField("key", key).Error("storage value corrupt")
		return false
	}
	return true
}

func (s *DB) SetJSON(key Key, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("storage value not serializable")
		return
	}
	s.SetString(key, string(raw))
}

func (s *DB) Delete(key Key) {
	if err := s.db.Delete(&record{}, "key = ?", string(key)).Error; err != nil {
		s.log.WithError(err).WithField("key", key).Error("storage delete failed")
	}
}
