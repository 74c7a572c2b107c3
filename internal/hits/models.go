package hits

import "time"

// Hit is the raw event log: one immutable row per recorded pageview,
// referencing the resolved dimension identities. Append-only; rows are
// removed only by the retention job.
type Hit struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	PathID     uint   `gorm:"index:idx_hit_path_created;not null"`
	RefID      uint   `gorm:"not null;default:1"`
	BrowserID  uint   `gorm:"not null;default:1"`
	SystemID   uint   `gorm:"not null;default:1"`
	Session    string `gorm:"index;size:64;not null"`
	FirstVisit bool   `gorm:"not null;default:false"`
	Width      *int
	Location   string    `gorm:"size:2"`
	Language   string    `gorm:"size:8"`
	CreatedAt  time.Time `gorm:"index:idx_hit_path_created;not null"`
}

// HourStat counts all hits per path per hour bucket.
type HourStat struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	PathID    uint      `gorm:"uniqueIndex:idx_hour_stat_unique;not null"`
	Hour      time.Time `gorm:"uniqueIndex:idx_hour_stat_unique;type:datetime;not null"`
	Total     int       `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HitStat holds the hour-of-day breakdown per path per day as a fixed
// 24-slot JSON array. Updated by read-modify-write inside the aggregation
// transaction.
type HitStat struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	PathID    uint      `gorm:"uniqueIndex:idx_hit_stat_unique;not null"`
	Day       time.Time `gorm:"uniqueIndex:idx_hit_stat_unique;type:date;not null"`
	Hours     string    `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RefStat counts first-visit hits with a non-direct referrer per path per
// referrer per hour bucket.
type RefStat struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	PathID    uint      `gorm:"uniqueIndex:idx_ref_stat_unique;not null"`
	RefID     uint      `gorm:"uniqueIndex:idx_ref_stat_unique;not null"`
	Hour      time.Time `gorm:"uniqueIndex:idx_ref_stat_unique;type:datetime;not null"`
	Total     int       `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BrowserStat counts first-visit hits with a known browser per path per
// browser per day.
type BrowserStat struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	PathID    uint      `gorm:"uniqueIndex:idx_browser_stat_unique;not null"`
	BrowserID uint      `gorm:"uniqueIndex:idx_browser_stat_unique;not null"`
	Day       time.Time `gorm:"uniqueIndex:idx_browser_stat_unique;type:date;not null"`
	Total     int       `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SystemStat counts first-visit hits with a known operating system per path
// per system per day.
type SystemStat struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	PathID    uint      `gorm:"uniqueIndex:idx_system_stat_unique;not null"`
	SystemID  uint      `gorm:"uniqueIndex:idx_system_stat_unique;not null"`
	Day       time.Time `gorm:"uniqueIndex:idx_system_stat_unique;type:date;not null"`
	Total     int       `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LocationStat counts first-visit hits with a known country per path per
// location per day.
type LocationStat struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	PathID    uint      `gorm:"uniqueIndex:idx_location_stat_unique;not null"`
	Location  string    `gorm:"uniqueIndex:idx_location_stat_unique;size:2;not null"`
	Day       time.Time `gorm:"uniqueIndex:idx_location_stat_unique;type:date;not null"`
	Total     int       `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SizeStat counts first-visit hits with a known screen width per path per
// width bucket per day.
type SizeStat struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	PathID    uint      `gorm:"uniqueIndex:idx_size_stat_unique;not null"`
	Width     int       `gorm:"uniqueIndex:idx_size_stat_unique;not null"`
	Day       time.Time `gorm:"uniqueIndex:idx_size_stat_unique;type:date;not null"`
	Total     int       `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClassifiedHit bundles everything the aggregator needs: resolved dimension
// identities, session state, and the already-normalized attributes.
type ClassifiedHit struct {
	PathID     uint
	RefID      uint
	BrowserID  uint
	SystemID   uint
	Session    string
	FirstVisit bool
	Width      *int
	Location   string
	Language   string
	Timestamp  time.Time
}
