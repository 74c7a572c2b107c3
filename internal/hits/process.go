package hits

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"github.com/philippdubach/cloudcounter/internal/bot"
	"github.com/philippdubach/cloudcounter/internal/dimensions"
	"github.com/philippdubach/cloudcounter/internal/pkg/referrers"
	"github.com/philippdubach/cloudcounter/internal/pkg/useragent"
	"github.com/philippdubach/cloudcounter/internal/sessions"
	"github.com/philippdubach/cloudcounter/internal/settings"
)

// MaxPathLength caps the accepted path parameter.
const MaxPathLength = 2048

// Input is one raw ingestion request before classification.
type Input struct {
	Path           string
	Title          string
	Referrer       string
	Event          bool
	Width          int
	ClientBotScore int
	UserAgent      string
	IP             string
	AcceptLanguage string
	Location       string
	EdgeBotScore   int
	Timestamp      time.Time
}

// Processor runs the classify/resolve/aggregate pipeline for one hit.
type Processor struct {
	dbManager cartridge.DBManager
	tracker   *sessions.Tracker
	logger    *slog.Logger
}

// NewProcessor creates a hit processor.
func NewProcessor(dbManager cartridge.DBManager, tracker *sessions.Tracker, logger *slog.Logger) *Processor {
	return &Processor{
		dbManager: dbManager,
		tracker:   tracker,
		logger:    logger,
	}
}

// shouldDrop applies the three independent bot checks plus basic input
// validation. The thresholds differ in scale on purpose: the client flag is
// boolean-ish, the edge confidence runs 0-100 with low values meaning bot,
// and the server heuristic runs 0-150 with high values meaning bot.
func (p *Processor) shouldDrop(input *Input) (bool, string) {
	if input.Path == "" {
		return true, "missing path"
	}
	if len(input.Path) > MaxPathLength {
		return true, "path too long"
	}
	if input.ClientBotScore > 0 {
		return true, "client bot flag"
	}
	if input.EdgeBotScore > 0 && input.EdgeBotScore < 30 {
		return true, "edge bot score"
	}
	if bot.Score(input.UserAgent) > 100 {
		return true, "user agent heuristic"
	}
	return false, ""
}

// Process classifies, resolves, and records one hit. It is invoked on a
// detached background task after the client response has gone out, so
// failures here are logged and swallowed; they only ever show up as
// undercounted statistics.
func (p *Processor) Process(ctx context.Context, input *Input) error {
	if drop, reason := p.shouldDrop(input); drop {
		p.logger.Debug("dropping hit", "reason", reason)
		return nil
	}

	ua := useragent.Classify(input.UserAgent)
	ref := referrers.Normalize(input.Referrer)

	db := p.dbManager.GetConnection()

	pathID, err := dimensions.ResolvePath(p.logger, db, input.Path, input.Title, input.Event)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	refID, err := dimensions.ResolveReferrer(p.logger, db, ref.Display, ref.Scheme)
	if err != nil {
		return fmt.Errorf("failed to resolve referrer: %w", err)
	}
	browserID, err := dimensions.ResolveBrowser(p.logger, db, ua.BrowserName, ua.BrowserVersion)
	if err != nil {
		return fmt.Errorf("failed to resolve browser: %w", err)
	}
	systemID, err := dimensions.ResolveSystem(p.logger, db, ua.SystemName, ua.SystemVersion)
	if err != nil {
		return fmt.Errorf("failed to resolve system: %w", err)
	}

	session, err := p.tracker.Resolve(ctx, input.IP, input.UserAgent, pathID)
	if err != nil {
		return fmt.Errorf("failed to resolve session: %w", err)
	}

	ts := input.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	hit := &ClassifiedHit{
		PathID:     pathID,
		RefID:      refID,
		BrowserID:  browserID,
		SystemID:   systemID,
		Session:    session.Hash,
		FirstVisit: session.FirstVisit,
		Width:      WidthBucket(input.Width),
		Location:   normalizeLocation(input.Location),
		Language:   PrimaryLanguage(input.AcceptLanguage),
		Timestamp:  ts,
	}

	if err := Record(p.logger, db, hit); err != nil {
		return fmt.Errorf("failed to record hit: %w", err)
	}

	if err := settings.SetFirstHitAt(p.logger, db, ts); err != nil {
		p.logger.Warn("failed to record first hit timestamp", "error", err)
	}

	return nil
}

func normalizeLocation(location string) string {
	location = strings.ToUpper(strings.TrimSpace(location))
	if len(location) != 2 {
		return ""
	}
	for _, r := range location {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return location
}
