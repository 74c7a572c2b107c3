package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/philippdubach/cloudcounter/internal/timeframe"
)

// GetTotalHits returns the total number of recorded pageviews in the window,
// summed from the hourly rollup.
func GetTotalHits(db *gorm.DB, period timeframe.Period) (int64, error) {
	var result struct {
		TotalHits int64
	}

	query := `
    SELECT COALESCE(SUM(total), 0) as total_hits
    FROM hour_stats
    WHERE hour BETWEEN ? AND ?
    `

	err := db.Raw(query, period.From.UTC(), period.To.UTC()).Scan(&result).Error
	if err != nil {
		return 0, fmt.Errorf("error calculating total hits: %w", err)
	}

	return result.TotalHits, nil
}

// GetTotalVisitors returns the number of first visits in the window, counted
// from the raw hit log.
func GetTotalVisitors(db *gorm.DB, period timeframe.Period) (int64, error) {
	var result struct {
		TotalVisitors int64
	}

	query := `
    SELECT COUNT(*) as total_visitors
    FROM hits
    WHERE first_visit = true
    AND created_at BETWEEN ? AND ?
    `

	err := db.Raw(query, period.From.UTC(), period.To.UTC()).Scan(&result).Error
	if err != nil {
		return 0, fmt.Errorf("error calculating total visitors: %w", err)
	}

	return result.TotalVisitors, nil
}

// GetHitSeries returns the zero-filled pageview series for the window at the
// period's bucket granularity.
func GetHitSeries(db *gorm.DB, period timeframe.Period) ([]timeframe.DateStat, error) {
	var grouped []timeframe.DateStat

	query := fmt.Sprintf(`
    SELECT %s as date, SUM(total) as count
    FROM hour_stats
    WHERE hour BETWEEN ? AND ?
    GROUP BY date
    ORDER BY date
    `, period.GroupExpression("hour"))

	err := db.Raw(query, period.From.UTC(), period.To.UTC()).Scan(&grouped).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching hit series: %w", err)
	}

	return period.BuildSeries(grouped), nil
}

// GetVisitorSeries returns the zero-filled first-visit series for the window.
func GetVisitorSeries(db *gorm.DB, period timeframe.Period) ([]timeframe.DateStat, error) {
	var grouped []timeframe.DateStat

	query := fmt.Sprintf(`
    SELECT %s as date, COUNT(*) as count
    FROM hits
    WHERE first_visit = true
    AND created_at BETWEEN ? AND ?
    GROUP BY date
    ORDER BY date
    `, period.GroupExpression("created_at"))

	err := db.Raw(query, period.From.UTC(), period.To.UTC()).Scan(&grouped).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching visitor series: %w", err)
	}

	return period.BuildSeries(grouped), nil
}

// GetHourOfDayProfile sums the per-day hour breakdowns in the window into a
// single 24-slot profile.
func GetHourOfDayProfile(db *gorm.DB, period timeframe.Period) ([24]int, error) {
	var profile [24]int

	dayFrom, dayTo := dayRange(period)
	var rows []struct {
		Hours string
	}
	err := db.Raw(`
    SELECT hours FROM hit_stats
    WHERE day BETWEEN ? AND ?
    `, dayFrom, dayTo).Scan(&rows).Error
	if err != nil {
		return profile, fmt.Errorf("error fetching hour of day profile: %w", err)
	}

	for _, row := range rows {
		var hours []int
		if err := json.Unmarshal([]byte(row.Hours), &hours); err != nil || len(hours) != 24 {
			continue
		}
		for i, count := range hours {
			profile[i] += count
		}
	}

	return profile, nil
}

// dayRange widens the window bounds to whole UTC days for rollups keyed by
// day instead of hour.
func dayRange(period timeframe.Period) (time.Time, time.Time) {
	from := period.From.UTC()
	to := period.To.UTC()
	dayFrom := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	dayTo := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return dayFrom, dayTo
}
