package jobs

import (
	"log/slog"
	"time"

	"github.com/philippdubach/cloudcounter/internal/config"
	"github.com/philippdubach/cloudcounter/internal/database"
	"github.com/philippdubach/cloudcounter/internal/dimensions"
	"github.com/philippdubach/cloudcounter/internal/hits"
	"github.com/philippdubach/cloudcounter/internal/settings"
)

// RetentionJob removes raw hits and rollup rows older than the retention
// period, then prunes dimension rows nothing references anymore.
type RetentionJob struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewRetentionJob(dbManager *database.DBManager, logger *slog.Logger, cfg *config.Config) *RetentionJob {
	return &RetentionJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run deletes data older than the retention period. A retention of zero
// means keep everything.
func (j *RetentionJob) Run() error {
	db := j.dbManager.GetConnection()

	// An explicit runtime setting wins, including an explicit 0 (keep
	// forever); the config default applies only when no setting exists.
	retentionDays, ok := settings.GetRetentionDays(db)
	if !ok {
		retentionDays = j.cfg.RetentionDays
	}
	if retentionDays <= 0 {
		j.logger.Debug("Retention disabled, keeping all data")
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	j.logger.Info("Starting retention cleanup",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff", cutoff))

	if err := j.deleteOldHits(cutoff); err != nil {
		return err
	}
	if err := j.deleteOldStats(cutoff); err != nil {
		return err
	}
	if err := j.pruneDimensions(); err != nil {
		return err
	}

	return nil
}

func (j *RetentionJob) deleteOldHits(cutoff time.Time) error {
	db := j.dbManager.GetConnection()

	var countToDelete int64
	if err := db.Model(&hits.Hit{}).
		Where("created_at < ?", cutoff).
		Count(&countToDelete).Error; err != nil {
		j.logger.Error("Failed to count old hits", slog.Any("error", err))
		return err
	}

	if countToDelete == 0 {
		j.logger.Debug("No old hits to clean up")
		return nil
	}

	// Delete in batches to avoid locking the database for too long
	batchSize := 1000
	totalDeleted := int64(0)

	for {
		result := db.Where("created_at < ?", cutoff).
			Limit(batchSize).
			Delete(&hits.Hit{})

		if result.Error != nil {
			j.logger.Error("Failed to delete old hits",
				slog.Any("error", result.Error),
				slog.Int64("deleted_so_far", totalDeleted))
			return result.Error
		}

		totalDeleted += result.RowsAffected

		if result.RowsAffected < int64(batchSize) {
			break
		}

		// Small delay between batches to prevent database lock contention
		time.Sleep(100 * time.Millisecond)
	}

	j.logger.Info("Cleaned up old hits", slog.Int64("deleted_count", totalDeleted))
	return nil
}

func (j *RetentionJob) deleteOldStats(cutoff time.Time) error {
	db := j.dbManager.GetConnection()

	hourly := []any{&hits.HourStat{}, &hits.RefStat{}}
	for _, model := range hourly {
		if err := db.Where("hour < ?", cutoff).Delete(model).Error; err != nil {
			j.logger.Error("Failed to delete old hourly stats", slog.Any("error", err))
			return err
		}
	}

	daily := []any{&hits.HitStat{}, &hits.BrowserStat{}, &hits.SystemStat{}, &hits.LocationStat{}, &hits.SizeStat{}}
	for _, model := range daily {
		if err := db.Where("day < ?", cutoff).Delete(model).Error; err != nil {
			j.logger.Error("Failed to delete old daily stats", slog.Any("error", err))
			return err
		}
	}

	return nil
}

// pruneDimensions removes referrer, browser, and system rows no hit or
// rollup references. The reserved sentinel rows and path rows are never
// touched.
func (j *RetentionJob) pruneDimensions() error {
	db := j.dbManager.GetConnection()

	type pruneStatement struct {
		name string
		sql  string
		args []any
	}

	statements := []pruneStatement{
		{"referrers", `DELETE FROM referrers WHERE id > ?
            AND id NOT IN (SELECT DISTINCT ref_id FROM hits)
            AND id NOT IN (SELECT DISTINCT ref_id FROM ref_stats)`, []any{dimensions.SentinelID}},
		{"browsers", `DELETE FROM browsers WHERE id > ?
            AND id NOT IN (SELECT DISTINCT browser_id FROM hits)
            AND id NOT IN (SELECT DISTINCT browser_id FROM browser_stats)`, []any{dimensions.SentinelID}},
		{"systems", `DELETE FROM systems WHERE id > ?
            AND id NOT IN (SELECT DISTINCT system_id FROM hits)
            AND id NOT IN (SELECT DISTINCT system_id FROM system_stats)`, []any{dimensions.SentinelID}},
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt.sql, stmt.args...).Error; err != nil {
			j.logger.Error("Failed to prune dimension rows",
				slog.String("table", stmt.name),
				slog.Any("error", err))
			return err
		}
	}

	return nil
}
