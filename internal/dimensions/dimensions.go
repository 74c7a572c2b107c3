// Package dimensions maps high-cardinality hit attributes (path, referrer,
// browser, operating system) to small stable integer identities with
// get-or-create semantics.
package dimensions

import (
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// SentinelID is the reserved identity for "unknown" browsers and systems and
// for the "direct" referrer. The row is pre-seeded and never reassigned.
const SentinelID uint = 1

// Path identifies a tracked page or event pseudo-path. The title may be
// updated in place on later sightings; the path string itself never changes.
type Path struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Path      string `gorm:"uniqueIndex;size:2048;not null"`
	Title     string
	Event     bool `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Referrer identifies a normalized referrer string plus its scheme tag.
type Referrer struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Ref       string `gorm:"uniqueIndex:idx_referrer_ref_scheme;size:200;not null"`
	Scheme    string `gorm:"uniqueIndex:idx_referrer_ref_scheme;not null"`
	CreatedAt time.Time
}

// Browser identifies a browser name and version pair.
type Browser struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"uniqueIndex:idx_browser_name_version;not null"`
	Version   string `gorm:"uniqueIndex:idx_browser_name_version"`
	CreatedAt time.Time
}

// System identifies an operating system name and version pair.
type System struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"uniqueIndex:idx_system_name_version;not null"`
	Version   string `gorm:"uniqueIndex:idx_system_name_version"`
	CreatedAt time.Time
}

// ResolvePath returns the identity for a path string, creating it on first
// sighting. A non-empty title that differs from the stored one is written
// back in place.
func ResolvePath(logger *slog.Logger, db *gorm.DB, path, title string, event bool) (uint, error) {
	var id uint
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		err := tx.Exec(`
            INSERT INTO paths (path, title, event, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?)
            ON CONFLICT(path) DO NOTHING
        `, path, title, event, now, now).Error
		if err != nil {
			return fmt.Errorf("failed to insert path: %w", err)
		}

		if title != "" {
			err = tx.Exec(`
                UPDATE paths SET title = ?, updated_at = ?
                WHERE path = ? AND title != ?
            `, title, now, path, title).Error
			if err != nil {
				return fmt.Errorf("failed to update path title: %w", err)
			}
		}

		var row Path
		if err := tx.Where("path = ?", path).First(&row).Error; err != nil {
			return fmt.Errorf("failed to load path: %w", err)
		}
		id = row.ID
		return nil
	})
	return id, err
}

// ResolveReferrer returns the identity for a normalized referrer. An empty
// ref short-circuits to the direct sentinel without touching storage.
func ResolveReferrer(logger *slog.Logger, db *gorm.DB, ref, scheme string) (uint, error) {
	if ref == "" {
		return SentinelID, nil
	}

	var id uint
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		err := tx.Exec(`
            INSERT INTO referrers (ref, scheme, created_at)
            VALUES (?, ?, ?)
            ON CONFLICT(ref, scheme) DO NOTHING
        `, ref, scheme, time.Now().UTC()).Error
		if err != nil {
			return fmt.Errorf("failed to insert referrer: %w", err)
		}

		var row Referrer
		if err := tx.Where("ref = ? AND scheme = ?", ref, scheme).First(&row).Error; err != nil {
			return fmt.Errorf("failed to load referrer: %w", err)
		}
		id = row.ID
		return nil
	})
	return id, err
}

// ResolveBrowser returns the identity for a browser name/version pair. An
// empty name short-circuits to the unknown sentinel without touching storage.
func ResolveBrowser(logger *slog.Logger, db *gorm.DB, name, version string) (uint, error) {
	if name == "" {
		return SentinelID, nil
	}

	var id uint
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		err := tx.Exec(`
            INSERT INTO browsers (name, version, created_at)
            VALUES (?, ?, ?)
            ON CONFLICT(name, version) DO NOTHING
        `, name, version, time.Now().UTC()).Error
		if err != nil {
			return fmt.Errorf("failed to insert browser: %w", err)
		}

		var row Browser
		if err := tx.Where("name = ? AND version = ?", name, version).First(&row).Error; err != nil {
			return fmt.Errorf("failed to load browser: %w", err)
		}
		id = row.ID
		return nil
	})
	return id, err
}

// ResolveSystem returns the identity for an operating system name/version
// pair. An empty name short-circuits to the unknown sentinel.
func ResolveSystem(logger *slog.Logger, db *gorm.DB, name, version string) (uint, error) {
	if name == "" {
		return SentinelID, nil
	}

	var id uint
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		err := tx.Exec(`
            INSERT INTO systems (name, version, created_at)
            VALUES (?, ?, ?)
            ON CONFLICT(name, version) DO NOTHING
        `, name, version, time.Now().UTC()).Error
		if err != nil {
			return fmt.Errorf("failed to insert system: %w", err)
		}

		var row System
		if err := tx.Where("name = ? AND version = ?", name, version).First(&row).Error; err != nil {
			return fmt.Errorf("failed to load system: %w", err)
		}
		id = row.ID
		return nil
	})
	return id, err
}

// Seed inserts the reserved sentinel rows. Safe to call repeatedly.
func Seed(logger *slog.Logger, db *gorm.DB) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		now := time.Now().UTC()

		err := tx.Exec(`
            INSERT INTO referrers (id, ref, scheme, created_at)
            VALUES (?, '', 'other', ?)
            ON CONFLICT(id) DO NOTHING
        `, SentinelID, now).Error
		if err != nil {
			return fmt.Errorf("failed to seed direct referrer: %w", err)
		}

		err = tx.Exec(`
            INSERT INTO browsers (id, name, version, created_at)
            VALUES (?, '', '', ?)
            ON CONFLICT(id) DO NOTHING
        `, SentinelID, now).Error
		if err != nil {
			return fmt.Errorf("failed to seed unknown browser: %w", err)
		}

		err = tx.Exec(`
            INSERT INTO systems (id, name, version, created_at)
            VALUES (?, '', '', ?)
            ON CONFLICT(id) DO NOTHING
        `, SentinelID, now).Error
		if err != nil {
			return fmt.Errorf("failed to seed unknown system: %w", err)
		}

		return nil
	})
}
