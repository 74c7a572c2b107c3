package hits

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"github.com/philippdubach/cloudcounter/internal/dimensions"
)

// Record applies one classified hit to the raw log and the rollup tables as
// a single transaction. The raw log row is unconditional; each dimension
// rollup increments at most once and only for first-visit hits with a known
// dimension value.
func Record(logger *slog.Logger, db *gorm.DB, hit *ClassifiedHit) error {
	ts := hit.Timestamp.UTC()
	hour := ts.Truncate(time.Hour)
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)

	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		row := Hit{
			PathID:     hit.PathID,
			RefID:      hit.RefID,
			BrowserID:  hit.BrowserID,
			SystemID:   hit.SystemID,
			Session:    hit.Session,
			FirstVisit: hit.FirstVisit,
			Width:      hit.Width,
			Location:   hit.Location,
			Language:   hit.Language,
			CreatedAt:  ts,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert hit: %w", err)
		}

		if err := updateHourStat(tx, hit.PathID, hour); err != nil {
			return fmt.Errorf("failed to update hour stats: %w", err)
		}

		if err := updateHitStat(tx, hit.PathID, day, ts.Hour()); err != nil {
			return fmt.Errorf("failed to update hour-of-day breakdown: %w", err)
		}

		if !hit.FirstVisit {
			return nil
		}

		if hit.RefID > dimensions.SentinelID {
			if err := updateRefStat(tx, hit.PathID, hit.RefID, hour); err != nil {
				return fmt.Errorf("failed to update ref stats: %w", err)
			}
		}
		if hit.BrowserID > dimensions.SentinelID {
			if err := updateBrowserStat(tx, hit.PathID, hit.BrowserID, day); err != nil {
				return fmt.Errorf("failed to update browser stats: %w", err)
			}
		}
		if hit.SystemID > dimensions.SentinelID {
			if err := updateSystemStat(tx, hit.PathID, hit.SystemID, day); err != nil {
				return fmt.Errorf("failed to update system stats: %w", err)
			}
		}
		if hit.Location != "" {
			if err := updateLocationStat(tx, hit.PathID, hit.Location, day); err != nil {
				return fmt.Errorf("failed to update location stats: %w", err)
			}
		}
		if hit.Width != nil && *hit.Width > 0 {
			if err := updateSizeStat(tx, hit.PathID, *hit.Width, day); err != nil {
				return fmt.Errorf("failed to update size stats: %w", err)
			}
		}

		return nil
	})
}

func updateHourStat(tx *gorm.DB, pathID uint, hour time.Time) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO hour_stats (path_id, hour, total, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (path_id, hour) DO UPDATE SET
			total = hour_stats.total + 1,
			updated_at = ?
	`
	return tx.Exec(query, pathID, hour, now, now, now).Error
}

// updateHitStat increments one slot of the 24-hour breakdown array. The
// store has no partial-JSON update, so this is a read-modify-write inside
// the same transaction as the rest of the fan-out.
func updateHitStat(tx *gorm.DB, pathID uint, day time.Time, hourOfDay int) error {
	var stat HitStat
	err := tx.Where("path_id = ? AND day = ?", pathID, day).First(&stat).Error
	now := time.Now().UTC()

	if errors.Is(err, gorm.ErrRecordNotFound) {
		hours := make([]int, 24)
		hours[hourOfDay] = 1
		encoded, err := json.Marshal(hours)
		if err != nil {
			return err
		}
		return tx.Exec(`
			INSERT INTO hit_stats (path_id, day, hours, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, pathID, day, string(encoded), now, now).Error
	}
	if err != nil {
		return err
	}

	var hours []int
	if err := json.Unmarshal([]byte(stat.Hours), &hours); err != nil || len(hours) != 24 {
		hours = make([]int, 24)
	}
	hours[hourOfDay]++
	encoded, err := json.Marshal(hours)
	if err != nil {
		return err
	}
	return tx.Exec(`
		UPDATE hit_stats SET hours = ?, updated_at = ? WHERE id = ?
	`, string(encoded), now, stat.ID).Error
}

func updateRefStat(tx *gorm.DB, pathID, refID uint, hour time.Time) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO ref_stats (path_id, ref_id, hour, total, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (path_id, ref_id, hour) DO UPDATE SET
			total = ref_stats.total + 1,
			updated_at = ?
	`
	return tx.Exec(query, pathID, refID, hour, now, now, now).Error
}

func updateBrowserStat(tx *gorm.DB, pathID, browserID uint, day time.Time) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO browser_stats (path_id, browser_id, day, total, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (path_id, browser_id, day) DO UPDATE SET
			total = browser_stats.total + 1,
			updated_at = ?
	`
	return tx.Exec(query, pathID, browserID, day, now, now, now).Error
}

func updateSystemStat(tx *gorm.DB, pathID, systemID uint, day time.Time) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO system_stats (path_id, system_id, day, total, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (path_id, system_id, day) DO UPDATE SET
			total = system_stats.total + 1,
			updated_at = ?
	`
	return tx.Exec(query, pathID, systemID, day, now, now, now).Error
}

func updateLocationStat(tx *gorm.DB, pathID uint, location string, day time.Time) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO location_stats (path_id, location, day, total, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (path_id, location, day) DO UPDATE SET
			total = location_stats.total + 1,
			updated_at = ?
	`
	return tx.Exec(query, pathID, location, day, now, now, now).Error
}

func updateSizeStat(tx *gorm.DB, pathID uint, width int, day time.Time) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO size_stats (path_id, width, day, total, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (path_id, width, day) DO UPDATE SET
			total = size_stats.total + 1,
			updated_at = ?
	`
	return tx.Exec(query, pathID, width, day, now, now, now).Error
}
