package database

import (
	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"github.com/philippdubach/cloudcounter/internal/config"
	"github.com/philippdubach/cloudcounter/internal/dimensions"
	"github.com/philippdubach/cloudcounter/internal/hits"
	"github.com/philippdubach/cloudcounter/internal/settings"
)

// DBManager wraps cartridge's sqlite.Manager with cloudcounter-specific migration methods.
type DBManager struct {
	*sqlite.Manager
	logger *slog.Logger
}

// NewDBManager creates a new database manager using cartridge's sqlite.Manager.
func NewDBManager(cfg *config.Config, logger *slog.Logger) *DBManager {
	sqliteCfg := sqlite.Config{
		Path:         cfg.DatabaseName,
		MaxOpenConns: cfg.GetMaxOpenConns(),
		MaxIdleConns: cfg.GetMaxIdleConns(),
		Logger:       logger,
		EnableWAL:    true,
		TxImmediate:  true,
		BusyTimeout:  5000,
	}

	return &DBManager{
		Manager: sqlite.NewManager(sqliteCfg),
		logger:  logger,
	}
}

// Init initializes the database connection.
func (dm *DBManager) Init() error {
	_, err := dm.Manager.Connect()
	return err
}

// AllModels returns every model that needs a table.
func AllModels() []any {
	return []any{
		&dimensions.Path{},
		&dimensions.Referrer{},
		&dimensions.Browser{},
		&dimensions.System{},
		&hits.Hit{},
		&hits.HourStat{},
		&hits.HitStat{},
		&hits.RefStat{},
		&hits.BrowserStat{},
		&hits.SystemStat{},
		&hits.LocationStat{},
		&hits.SizeStat{},
		&settings.Setting{},
	}
}

// MigrateDatabase runs cloudcounter-specific migrations.
func (dm *DBManager) MigrateDatabase() error {
	db := dm.GetConnection()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(AllModels()...)
	})
	if err != nil {
		dm.logger.Error("Failed to auto-migrate database", slog.Any("error", err))
		return err
	}

	if err := dm.CheckpointWAL("FULL"); err != nil {
		dm.logger.Warn("Failed to checkpoint WAL after migration", slog.Any("error", err))
	}

	dm.logger.Info("Database migration completed successfully")
	return nil
}
