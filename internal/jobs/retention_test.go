package jobs_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/philippdubach/cloudcounter/internal/config"
	"github.com/philippdubach/cloudcounter/internal/database"
	"github.com/philippdubach/cloudcounter/internal/dimensions"
	"github.com/philippdubach/cloudcounter/internal/hits"
	"github.com/philippdubach/cloudcounter/internal/jobs"
	"github.com/philippdubach/cloudcounter/internal/settings"
	"github.com/philippdubach/cloudcounter/internal/testsupport"
)

func newRetentionFixture(t *testing.T, retentionDays int) (*jobs.RetentionJob, *gorm.DB) {
	t.Helper()

	cfg := &config.Config{
		Environment:       config.Test,
		DatabaseName:      filepath.Join(t.TempDir(), "retention-test.db"),
		RetentionDays:     retentionDays,
		SessionTTLSeconds: 3600,
	}

	logger := testsupport.GetLogger()
	dbManager := database.NewDBManager(cfg, logger)
	require.NoError(t, dbManager.Init())
	require.NoError(t, dbManager.MigrateDatabase())

	db := dbManager.GetConnection()
	require.NoError(t, dimensions.Seed(logger, db))

	return jobs.NewRetentionJob(dbManager, logger, cfg), db
}

func TestRetentionDeletesExpiredData(t *testing.T) {
	job, db := newRetentionFixture(t, 30)
	logger := testsupport.GetLogger()

	pathID, err := dimensions.ResolvePath(logger, db, "/old", "Old", false)
	require.NoError(t, err)

	old := time.Now().UTC().AddDate(0, 0, -60)
	fresh := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, db.Create(&hits.Hit{PathID: pathID, RefID: dimensions.SentinelID, BrowserID: dimensions.SentinelID, SystemID: dimensions.SentinelID, Session: "s1", CreatedAt: old}).Error)
	require.NoError(t, db.Create(&hits.Hit{PathID: pathID, RefID: dimensions.SentinelID, BrowserID: dimensions.SentinelID, SystemID: dimensions.SentinelID, Session: "s2", CreatedAt: fresh}).Error)

	require.NoError(t, db.Create(&hits.HourStat{PathID: pathID, Hour: old.Truncate(time.Hour), Total: 3}).Error)
	require.NoError(t, db.Create(&hits.HourStat{PathID: pathID, Hour: fresh.Truncate(time.Hour), Total: 1}).Error)

	day := func(ts time.Time) time.Time {
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	}
	require.NoError(t, db.Create(&hits.BrowserStat{PathID: pathID, BrowserID: dimensions.SentinelID, Day: day(old), Total: 2}).Error)
	require.NoError(t, db.Create(&hits.BrowserStat{PathID: pathID, BrowserID: dimensions.SentinelID, Day: day(fresh), Total: 1}).Error)

	require.NoError(t, job.Run())

	var hitCount, hourCount, browserCount int64
	db.Model(&hits.Hit{}).Count(&hitCount)
	db.Model(&hits.HourStat{}).Count(&hourCount)
	db.Model(&hits.BrowserStat{}).Count(&browserCount)

	assert.Equal(t, int64(1), hitCount)
	assert.Equal(t, int64(1), hourCount)
	assert.Equal(t, int64(1), browserCount)
}

func TestRetentionPrunesOrphanDimensions(t *testing.T) {
	job, db := newRetentionFixture(t, 30)
	logger := testsupport.GetLogger()

	orphanRef, err := dimensions.ResolveReferrer(logger, db, "dead.example.com", "https")
	require.NoError(t, err)
	require.Greater(t, orphanRef, dimensions.SentinelID)

	liveRef, err := dimensions.ResolveReferrer(logger, db, "live.example.com", "https")
	require.NoError(t, err)

	pathID, err := dimensions.ResolvePath(logger, db, "/page", "Page", false)
	require.NoError(t, err)
	require.NoError(t, db.Create(&hits.Hit{PathID: pathID, RefID: liveRef, BrowserID: dimensions.SentinelID, SystemID: dimensions.SentinelID, Session: "s1", CreatedAt: time.Now().UTC()}).Error)

	require.NoError(t, job.Run())

	var count int64
	db.Table("referrers").Where("id = ?", orphanRef).Count(&count)
	assert.Equal(t, int64(0), count, "unreferenced referrer should be pruned")

	db.Table("referrers").Where("id = ?", liveRef).Count(&count)
	assert.Equal(t, int64(1), count)

	db.Table("referrers").Where("id = ?", dimensions.SentinelID).Count(&count)
	assert.Equal(t, int64(1), count, "sentinel row is never pruned")
}

func TestRetentionExplicitZeroSettingOverridesConfig(t *testing.T) {
	job, db := newRetentionFixture(t, 30)
	logger := testsupport.GetLogger()

	// An operator-set 0 means keep forever, even with a nonzero config default.
	require.NoError(t, settings.UpdateSetting(logger, db, settings.KeyRetentionDays, "0"))

	pathID, err := dimensions.ResolvePath(logger, db, "/forever", "Forever", false)
	require.NoError(t, err)

	ancient := time.Now().UTC().AddDate(-1, 0, 0)
	require.NoError(t, db.Create(&hits.Hit{PathID: pathID, RefID: dimensions.SentinelID, BrowserID: dimensions.SentinelID, SystemID: dimensions.SentinelID, Session: "s1", CreatedAt: ancient}).Error)
	require.NoError(t, db.Create(&hits.HourStat{PathID: pathID, Hour: ancient.Truncate(time.Hour), Total: 1}).Error)

	require.NoError(t, job.Run())

	var hitCount, hourCount int64
	db.Model(&hits.Hit{}).Count(&hitCount)
	db.Model(&hits.HourStat{}).Count(&hourCount)
	assert.Equal(t, int64(1), hitCount)
	assert.Equal(t, int64(1), hourCount)
}

func TestRetentionDisabledKeepsEverything(t *testing.T) {
	job, db := newRetentionFixture(t, 0)
	logger := testsupport.GetLogger()

	pathID, err := dimensions.ResolvePath(logger, db, "/keep", "Keep", false)
	require.NoError(t, err)

	ancient := time.Now().UTC().AddDate(-2, 0, 0)
	require.NoError(t, db.Create(&hits.Hit{PathID: pathID, RefID: dimensions.SentinelID, BrowserID: dimensions.SentinelID, SystemID: dimensions.SentinelID, Session: "s1", CreatedAt: ancient}).Error)

	require.NoError(t, job.Run())

	var count int64
	db.Model(&hits.Hit{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
