package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/arnavshah/autoscheduler-api/pkg/config"
)

// DateLayout is the layout of APIUsage.Date.
const DateLayout = "2006-01-02"

// DefaultRateLimit is the daily request allowance given to new keys.
const DefaultRateLimit = 10000

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	KeyPreview string     `json:"key_preview"`
	Name       string     `gorm:"not null" json:"name"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table, one row per key and day.
type APIUsage struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	KeyID          uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date           string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount   int    `gorm:"default:0" json:"request_count"`
	TasksRequested int    `gorm:"default:0" json:"tasks_requested"`
	TasksScheduled int    `gorm:"default:0" json:"tasks_scheduled"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// InitDB opens Postgres when a URL is configured and SQLite otherwise, then
// migrates the schema.
func InitDB(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	if cfg.URL != "" {
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.URL,
			PreferSimpleProtocol: true,
		})
		gormCfg.PrepareStmt = false
		log.Info("using postgres")
	} else {
		path := cfg.Path
		if path == "" {
			path = "api_keys.db"
		}
		dialector = sqlite.Open(path)
		log.Info("using sqlite", zap.String("path", path))
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(&APIKey{}, &APIUsage{}, &MasterUser{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// FindOrCreateKey returns the record for key, creating it on first use.
func FindOrCreateKey(db *gorm.DB, key, name string) (*APIKey, error) {
	var apiKey APIKey
	err := db.Where(APIKey{Key: key}).Attrs(APIKey{
		Name:       name,
		KeyPreview: Preview(key),
		RateLimit:  DefaultRateLimit,
	}).FirstOrCreate(&apiKey).Error
	if err != nil {
		return nil, err
	}
	return &apiKey, nil
}

// TouchKey stamps the key's LastUsed.
func TouchKey(db *gorm.DB, key *APIKey, now time.Time) error {
	key.LastUsed = &now
	return db.Model(key).Update("last_used", now).Error
}

// Preview masks a key for display, e.g. "abc...f00d".
func Preview(key string) string {
	if len(key) > 8 {
		return key[:3] + "..." + key[len(key)-4:]
	}
	return "****"
}

// RecordUsage adds request and task counts to the key's row for day using a
// single-query upsert (supported by both Postgres and SQLite).
func RecordUsage(db *gorm.DB, keyID uint, day time.Time, requests, requested, scheduled int) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":   gorm.Expr("request_count + ?", requests),
			"tasks_requested": gorm.Expr("tasks_requested + ?", requested),
			"tasks_scheduled": gorm.Expr("tasks_scheduled + ?", scheduled),
		}),
	}).Create(&APIUsage{
		KeyID:          keyID,
		Date:           day.Format(DateLayout),
		RequestCount:   requests,
		TasksRequested: requested,
		TasksScheduled: scheduled,
	}).Error
}

// RequestsOn returns the number of requests the key made on day.
func RequestsOn(db *gorm.DB, keyID uint, day time.Time) (int, error) {
	var usage APIUsage
	err := db.Where("key_id = ? AND date = ?", keyID, day.Format(DateLayout)).Limit(1).Find(&usage).Error
	return usage.RequestCount, err
}

// UsageHistory returns the key's most recent usage rows, newest first.
func UsageHistory(db *gorm.DB, keyID uint, limit int) ([]APIUsage, error) {
	var usage []APIUsage
	err := db.Where("key_id = ?", keyID).Order("date desc").Limit(limit).Find(&usage).Error
	return usage, err
}
