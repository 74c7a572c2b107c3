// Package settings stores site-level configuration as key-value pairs in the
// relational store.
package settings

import (
	"fmt"
	"strconv"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Setting represents a configuration item in the database
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

// Setting keys
const (
	KeySiteName      = "site_name"
	KeyRetentionDays = "retention_days"
	KeyFirstHitAt    = "first_hit_at"
)

// SetupDefaultSettings initializes default settings in the database. Existing
// values are never overwritten.
func SetupDefaultSettings(logger *slog.Logger, dbConn *gorm.DB, siteName string, retentionDays int) error {
	defaults := []Setting{
		{Key: KeySiteName, Value: siteName},
		{Key: KeyRetentionDays, Value: strconv.Itoa(retentionDays)},
	}
	return sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		for _, setting := range defaults {
			err := tx.Exec(`
                INSERT INTO settings (key, value, created_at, updated_at)
                VALUES (?, ?, ?, ?)
                ON CONFLICT(key) DO NOTHING
            `, setting.Key, setting.Value, time.Now().UTC(), time.Now().UTC()).Error
			if err != nil {
				return fmt.Errorf("failed to upsert setting %s: %w", setting.Key, err)
			}
		}
		return nil
	})
}

// GetSetting retrieves a setting value from the database
func GetSetting(dbConn *gorm.DB, key string) (string, error) {
	var setting Setting
	result := dbConn.Where("key = ?", key).First(&setting)

	if result.Error != nil {
		return "", result.Error
	}

	return setting.Value, nil
}

// UpdateSetting creates or replaces a setting value
func UpdateSetting(logger *slog.Logger, dbConn *gorm.DB, key string, value string) error {
	return sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		err := tx.Exec(`
            INSERT INTO settings (key, value, created_at, updated_at)
            VALUES (?, ?, ?, ?)
            ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
        `, key, value, time.Now().UTC(), time.Now().UTC()).Error
		if err != nil {
			return fmt.Errorf("failed to update setting %s: %w", key, err)
		}
		return nil
	})
}

// GetSiteName returns the configured site display name.
func GetSiteName(dbConn *gorm.DB) string {
	value, err := GetSetting(dbConn, KeySiteName)
	if err != nil {
		return ""
	}
	return value
}

// GetRetentionDays returns the retention window in days and whether the
// setting exists. An explicit 0 means keep data forever, which callers must
// not confuse with an absent row.
func GetRetentionDays(dbConn *gorm.DB) (int, bool) {
	value, err := GetSetting(dbConn, KeyRetentionDays)
	if err != nil {
		return 0, false
	}
	days, err := strconv.Atoi(value)
	if err != nil || days < 0 {
		return 0, false
	}
	return days, true
}

// GetFirstHitAt returns the timestamp of the first recorded hit, or the zero
// time when nothing has been recorded yet.
func GetFirstHitAt(dbConn *gorm.DB) time.Time {
	value, err := GetSetting(dbConn, KeyFirstHitAt)
	if err != nil {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// SetFirstHitAt records the first-hit timestamp exactly once; later calls are
// no-ops even with a different timestamp.
func SetFirstHitAt(logger *slog.Logger, dbConn *gorm.DB, ts time.Time) error {
	return sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		err := tx.Exec(`
            INSERT INTO settings (key, value, created_at, updated_at)
            VALUES (?, ?, ?, ?)
            ON CONFLICT(key) DO NOTHING
        `, KeyFirstHitAt, ts.UTC().Format(time.RFC3339), time.Now().UTC(), time.Now().UTC()).Error
		if err != nil {
			return fmt.Errorf("failed to set first hit timestamp: %w", err)
		}
		return nil
	})
}
