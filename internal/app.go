// Package internal wires the application together: database, session store,
// hit processor, background jobs, and HTTP routes.
package internal

import (
	"fmt"
	"time"

	"github.com/karloscodes/cartridge"

	v1 "github.com/philippdubach/cloudcounter/api/v1"
	"github.com/philippdubach/cloudcounter/internal/config"
	"github.com/philippdubach/cloudcounter/internal/database"
	"github.com/philippdubach/cloudcounter/internal/hits"
	"github.com/philippdubach/cloudcounter/internal/jobs"
	"github.com/philippdubach/cloudcounter/internal/seeder"
	"github.com/philippdubach/cloudcounter/internal/sessions"
)

// Application wraps cartridge.Application with cloudcounter-specific components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager
	Tracker   *sessions.Tracker
	Processor *hits.Processor
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := dbManager.MigrateDatabase(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// Sentinel dimension rows and default settings must exist before the
	// first hit is processed.
	if err := seeder.NewSeeder(dbManager, nil, logger, 0).Prepare(cfg); err != nil {
		return nil, fmt.Errorf("failed to prepare database: %w", err)
	}

	tracker := sessions.NewTracker(
		cfg.RedisAddr,
		cfg.RedisPassword,
		cfg.RedisDB,
		cfg.PrivateKey,
		time.Duration(cfg.GetSessionTTL())*time.Second,
		logger,
	)

	processor := hits.NewProcessor(dbManager, tracker, logger)
	handler := v1.NewHandler(processor)

	jobsManager, err := jobs.NewScheduler(dbManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	// The only write endpoint is the beacon, which must answer requests that
	// carry no Sec-Fetch-Site header at all, so the global validation is off.
	serverCfg := cartridge.DefaultServerConfig()
	serverCfg.EnableSecFetchSite = false

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:            cfg,
		Logger:            logger,
		DBManager:         dbManager,
		ServerConfig:      serverCfg,
		RouteMountFunc:    NewRouteMounter(handler),
		BackgroundWorkers: []cartridge.BackgroundWorker{jobsManager},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Tracker:     tracker,
		Processor:   processor,
	}, nil
}
