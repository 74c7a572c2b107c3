package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"github.com/philippdubach/cloudcounter/internal/analytics"
	"github.com/philippdubach/cloudcounter/internal/pkg/async"
	"github.com/philippdubach/cloudcounter/internal/settings"
	"github.com/philippdubach/cloudcounter/internal/timeframe"
)

const defaultTopLimit = 10

// StatsResponse is the full dashboard payload for one time window.
type StatsResponse struct {
	SiteName       string                        `json:"site_name"`
	From           time.Time                     `json:"from"`
	To             time.Time                     `json:"to"`
	Bucket         timeframe.Bucket              `json:"bucket"`
	TotalHits      int64                         `json:"total_hits"`
	HitsChange     *int                          `json:"hits_change,omitempty"`
	TotalVisitors  int64                         `json:"total_visitors"`
	VisitorsChange *int                          `json:"visitors_change,omitempty"`
	HitSeries      []timeframe.DateStat          `json:"hit_series"`
	VisitorSeries  []timeframe.DateStat          `json:"visitor_series"`
	HourProfile    [24]int                       `json:"hour_profile"`
	TopPages       analytics.PageList            `json:"top_pages"`
	TopReferrers   analytics.MetricList          `json:"top_referrers"`
	TopBrowsers    analytics.MetricList          `json:"top_browsers"`
	TopSystems     analytics.MetricList          `json:"top_systems"`
	TopLocations   analytics.MetricList          `json:"top_locations"`
	TopSizes       analytics.MetricList          `json:"top_sizes"`
}

// Stats serves the rollup read API: totals with change, zero-filled series,
// and the top-N breakdowns, fetched in parallel.
func (h *Handler) Stats(ctx *cartridge.Context) error {
	period, err := parsePeriod(ctx)
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	limit, _ := strconv.Atoi(ctx.Query("limit", strconv.Itoa(defaultTopLimit)))
	if limit <= 0 {
		limit = defaultTopLimit
	}

	db := ctx.DBManager.GetConnection()
	response, err := fetchStats(db, period, limit, ctx.Logger)
	if err != nil {
		ctx.Logger.Error("Failed to fetch stats", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch stats"})
	}

	return ctx.Status(http.StatusOK).JSON(response)
}

// parsePeriod resolves the requested window: an explicit start/end pair takes
// precedence over the named period.
func parsePeriod(ctx *cartridge.Context) (timeframe.Period, error) {
	bucket := timeframe.Bucket(ctx.Query("bucket"))

	startParam := ctx.Query("start")
	endParam := ctx.Query("end")
	if startParam != "" && endParam != "" {
		start, err := time.Parse(time.RFC3339, startParam)
		if err != nil {
			return timeframe.Period{}, err
		}
		end, err := time.Parse(time.RFC3339, endParam)
		if err != nil {
			return timeframe.Period{}, err
		}
		return timeframe.FromRange(start, end, bucket)
	}

	period, err := timeframe.FromName(ctx.Query("period", timeframe.PeriodWeek), time.Now())
	if err != nil {
		return timeframe.Period{}, err
	}
	if bucket != "" {
		period.Bucket = bucket
	}
	return period, nil
}

func fetchStats(db *gorm.DB, period timeframe.Period, limit int, logger *slog.Logger) (*StatsResponse, error) {
	params := analytics.QueryParams{Period: period, Limit: limit}
	previous := period.Previous()

	tasks := []async.Task{
		{
			Name: "totalHits",
			Execute: func() (interface{}, error) {
				return analytics.GetTotalHits(db, period)
			},
		},
		{
			Name: "previousHits",
			Execute: func() (interface{}, error) {
				return analytics.GetTotalHits(db, previous)
			},
		},
		{
			Name: "totalVisitors",
			Execute: func() (interface{}, error) {
				return analytics.GetTotalVisitors(db, period)
			},
		},
		{
			Name: "previousVisitors",
			Execute: func() (interface{}, error) {
				return analytics.GetTotalVisitors(db, previous)
			},
		},
		{
			Name: "hitSeries",
			Execute: func() (interface{}, error) {
				return analytics.GetHitSeries(db, period)
			},
		},
		{
			Name: "visitorSeries",
			Execute: func() (interface{}, error) {
				return analytics.GetVisitorSeries(db, period)
			},
		},
		{
			Name: "hourProfile",
			Execute: func() (interface{}, error) {
				return analytics.GetHourOfDayProfile(db, period)
			},
		},
		{
			Name: "topPages",
			Execute: func() (interface{}, error) {
				return analytics.GetTopPages(db, params)
			},
		},
		{
			Name: "topReferrers",
			Execute: func() (interface{}, error) {
				return analytics.GetTopReferrers(db, params)
			},
		},
		{
			Name: "topBrowsers",
			Execute: func() (interface{}, error) {
				return analytics.GetTopBrowsers(db, params)
			},
		},
		{
			Name: "topSystems",
			Execute: func() (interface{}, error) {
				return analytics.GetTopSystems(db, params)
			},
		},
		{
			Name: "topLocations",
			Execute: func() (interface{}, error) {
				list, err := analytics.GetTopLocations(db, params)
				if err != nil {
					return nil, err
				}
				list.Items = analytics.ConvertCountryStats(list.Items)
				return list, nil
			},
		},
		{
			Name: "topSizes",
			Execute: func() (interface{}, error) {
				return analytics.GetTopSizes(db, params)
			},
		},
	}

	pool := async.NewPool(8)
	results := pool.Execute(context.Background(), tasks)

	for name, result := range results {
		if result.Err != nil {
			logger.Error("Stats query failed", slog.String("query", name), slog.Any("error", result.Err))
			return nil, result.Err
		}
	}

	totalHits := results["totalHits"].Data.(int64)
	previousHits := results["previousHits"].Data.(int64)
	totalVisitors := results["totalVisitors"].Data.(int64)
	previousVisitors := results["previousVisitors"].Data.(int64)

	return &StatsResponse{
		SiteName:       settings.GetSiteName(db),
		From:           period.From,
		To:             period.To,
		Bucket:         period.Bucket,
		TotalHits:      totalHits,
		HitsChange:     analytics.PercentChange(totalHits, previousHits),
		TotalVisitors:  totalVisitors,
		VisitorsChange: analytics.PercentChange(totalVisitors, previousVisitors),
		HitSeries:      results["hitSeries"].Data.([]timeframe.DateStat),
		VisitorSeries:  results["visitorSeries"].Data.([]timeframe.DateStat),
		HourProfile:    results["hourProfile"].Data.([24]int),
		TopPages:       results["topPages"].Data.(analytics.PageList),
		TopReferrers:   results["topReferrers"].Data.(analytics.MetricList),
		TopBrowsers:    results["topBrowsers"].Data.(analytics.MetricList),
		TopSystems:     results["topSystems"].Data.(analytics.MetricList),
		TopLocations:   results["topLocations"].Data.(analytics.MetricList),
		TopSizes:       results["topSizes"].Data.(analytics.MetricList),
	}, nil
}
