// Package seeder prepares a fresh database (reserved dimension rows plus
// default settings) and can generate synthetic traffic for development.
package seeder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"github.com/philippdubach/cloudcounter/internal/config"
	"github.com/philippdubach/cloudcounter/internal/dimensions"
	"github.com/philippdubach/cloudcounter/internal/hits"
	"github.com/philippdubach/cloudcounter/internal/settings"
)

// Seeder handles database preparation and synthetic traffic generation.
type Seeder struct {
	DBManager cartridge.DBManager
	Processor *hits.Processor
	Logger    *slog.Logger
	HitCount  int
}

// NewSeeder creates a new seeder instance. The processor is only needed for
// synthetic traffic generation and may be nil for plain preparation.
func NewSeeder(dbManager cartridge.DBManager, processor *hits.Processor, logger *slog.Logger, hitCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager: dbManager,
		Processor: processor,
		Logger:    logger,
		HitCount:  hitCount,
	}
}

// Prepare inserts the reserved dimension rows and default settings. Safe to
// run on every startup.
func (s *Seeder) Prepare(cfg *config.Config) error {
	db := s.DBManager.GetConnection()

	if err := dimensions.Seed(s.Logger, db); err != nil {
		return fmt.Errorf("failed to seed dimension sentinels: %w", err)
	}

	if err := settings.SetupDefaultSettings(s.Logger, db, cfg.AppName, cfg.RetentionDays); err != nil {
		return fmt.Errorf("failed to seed default settings: %w", err)
	}

	s.Logger.Info("Database prepared", slog.String("site", cfg.AppName))
	return nil
}

// Run generates synthetic traffic by pushing journey-based pageviews through
// the regular processing pipeline.
func (s *Seeder) Run(ctx context.Context) error {
	if s.Processor == nil {
		return fmt.Errorf("seeder has no processor, cannot generate traffic")
	}

	start := time.Now()
	s.Logger.Info("Starting traffic seeding...", slog.Int("hitCount", s.HitCount))

	userAgents := getUserAgents()
	referrers := getReferrers()
	widths := []int{390, 768, 1280, 1512, 1920, 2560}
	locations := []string{"US", "DE", "CH", "GB", "FR", "JP", ""}

	journeyTemplates := [][]string{
		{"/", "/about", "/contact"},
		{"/", "/blog", "/blog/article-1"},
		{"/blog/article-1", "/blog/article-2"},
		{"/", "/pricing", "/signup"},
		{"/docs", "/docs/getting-started", "/docs/api-reference"},
		{"/", "/signup"},
	}

	avgPagesPerSession := 3
	numSessions := s.HitCount / avgPagesPerSession
	if numSessions < 10 {
		numSessions = 10
	}

	hitsCreated := 0
	for session := 0; session < numSessions; session++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		journey := journeyTemplates[rand.IntN(len(journeyTemplates))]
		ip := fmt.Sprintf("%d.%d.%d.%d", rand.IntN(255)+1, rand.IntN(256), rand.IntN(256), rand.IntN(256))
		userAgent := userAgents[rand.IntN(len(userAgents))]
		referrer := referrers[rand.IntN(len(referrers))]
		width := widths[rand.IntN(len(widths))]
		location := locations[rand.IntN(len(locations))]

		baseTime := time.Now().Add(-time.Duration(rand.IntN(30*24*60*60)) * time.Second)
		cumulativeTime := time.Duration(0)

		for pageIndex, path := range journey {
			if pageIndex > 0 {
				cumulativeTime += time.Duration(rand.IntN(110)+10) * time.Second
			}

			input := &hits.Input{
				Path:           path,
				Referrer:       referrer,
				Width:          width,
				UserAgent:      userAgent,
				IP:             ip,
				AcceptLanguage: "en-US,en;q=0.9",
				Location:       location,
				Timestamp:      baseTime.Add(cumulativeTime),
			}

			if err := s.Processor.Process(ctx, input); err != nil {
				s.Logger.Error("Failed to process hit during seeding", slog.Any("error", err))
			} else {
				hitsCreated++
			}

			// Only the entry page carries an external referrer.
			if pageIndex == 0 {
				referrer = ""
			}
		}
	}

	s.Logger.Info("Traffic seeding completed",
		slog.Int("sessions", numSessions),
		slog.Int("totalHits", hitsCreated),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// getUserAgents returns a list of common user agent strings
func getUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/605.1",
		"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0",
		"Mozilla/5.0 (iPad; CPU OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/605.1",
	}
}

// getReferrers returns a list of common referrer URLs
func getReferrers() []string {
	return []string{
		"", // Direct visit
		"https://www.google.com/search?q=analytics",
		"https://duckduckgo.com/",
		"https://news.ycombinator.com/item?id=123456",
		"https://old.reddit.com/r/golang",
		"https://github.com/philippdubach",
		"https://example.com/blog?utm_source=newsletter&utm_campaign=launch",
		"android-app://com.google.android.gm",
	}
}
