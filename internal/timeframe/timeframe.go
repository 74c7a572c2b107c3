// Package timeframe holds the period math shared by the rollup query layer:
// named period resolution, bucket granularity, previous-window derivation,
// and zero-filled time series construction.
package timeframe

import (
	"fmt"
	"time"
)

// Bucket is the time series granularity.
type Bucket string

const (
	BucketHour Bucket = "hour"
	BucketDay  Bucket = "day"
)

// Named periods accepted by the dashboard.
const (
	PeriodDay      = "day"
	PeriodWeek     = "week"
	PeriodMonth    = "month"
	PeriodQuarter  = "quarter"
	PeriodHalfYear = "half-year"
	PeriodYear     = "year"
)

// DateStat is one point of a bucketed time series.
type DateStat struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Period is a [From, To] window in UTC plus the bucket size its series
// should be grouped by.
type Period struct {
	From   time.Time
	To     time.Time
	Bucket Bucket
}

// FromName resolves a named period to [now - N, now] in UTC, with the start
// clamped to midnight and the end clamped to end of day.
func FromName(name string, now time.Time) (Period, error) {
	now = now.UTC()

	var from time.Time
	switch name {
	case PeriodDay:
		from = now.AddDate(0, 0, -1)
	case PeriodWeek:
		from = now.AddDate(0, 0, -7)
	case PeriodMonth:
		from = now.AddDate(0, -1, 0)
	case PeriodQuarter:
		from = now.AddDate(0, -3, 0)
	case PeriodHalfYear:
		from = now.AddDate(0, -6, 0)
	case PeriodYear:
		from = now.AddDate(-1, 0, 0)
	default:
		return Period{}, fmt.Errorf("unknown period: %s", name)
	}

	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, int(time.Second-time.Millisecond), time.UTC)

	return Period{From: from, To: to, Bucket: DefaultBucket(from, to)}, nil
}

// FromRange builds a period from an explicit half-open [start, end) pair.
// To stores the last included instant, one millisecond before end, so a row
// keyed exactly at end lands in the next window rather than in both. A zero
// bucket falls back to the default for the window length.
func FromRange(from, to time.Time, bucket Bucket) (Period, error) {
	from = from.UTC()
	to = to.UTC()
	if !to.After(from) {
		return Period{}, fmt.Errorf("period start %s is not before end %s", from, to)
	}
	to = to.Add(-time.Millisecond)
	if bucket == "" {
		bucket = DefaultBucket(from, to)
	}
	return Period{From: from, To: to, Bucket: bucket}, nil
}

// DefaultBucket picks hourly buckets for windows of up to 7 days and daily
// buckets for anything longer.
func DefaultBucket(from, to time.Time) Bucket {
	if to.Sub(from) <= 7*24*time.Hour {
		return BucketHour
	}
	return BucketDay
}

// Previous returns the window of identical duration ending exactly one
// millisecond before this one starts; no gap, no overlap.
func (p Period) Previous() Period {
	duration := p.To.Sub(p.From)
	to := p.From.Add(-time.Millisecond)
	return Period{
		From:   to.Add(-duration),
		To:     to,
		Bucket: p.Bucket,
	}
}

// Duration returns the window length.
func (p Period) Duration() time.Duration {
	return p.To.Sub(p.From)
}

// GroupExpression returns the SQLite expression that buckets the given
// datetime column to this period's granularity.
func (p Period) GroupExpression(column string) string {
	if p.Bucket == BucketHour {
		return fmt.Sprintf("strftime('%%Y-%%m-%%d %%H', %s)", column)
	}
	return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", column)
}

// FormatKey formats a time the way GroupExpression keys rows, so series
// lookups match the grouped query output.
func (p Period) FormatKey(t time.Time) string {
	if p.Bucket == BucketHour {
		return t.UTC().Format("2006-01-02 15")
	}
	return t.UTC().Format("2006-01-02")
}

// points returns every bucket boundary inside the window.
func (p Period) points() []time.Time {
	var step func(time.Time) time.Time
	var current time.Time

	if p.Bucket == BucketHour {
		current = p.From.UTC().Truncate(time.Hour)
		step = func(t time.Time) time.Time { return t.Add(time.Hour) }
	} else {
		utc := p.From.UTC()
		current = time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	}

	const maxPoints = 1000
	var result []time.Time
	for !current.After(p.To) && len(result) < maxPoints {
		result = append(result, current)
		current = step(current)
	}
	return result
}

// BuildSeries zero-fills grouped query results into a complete time series:
// one point per bucket in the window, RFC 3339 labels, zero where the query
// returned no row.
func (p Period) BuildSeries(grouped []DateStat) []DateStat {
	counts := make(map[string]int, len(grouped))
	for _, stat := range grouped {
		counts[normalizeKey(stat.Date, p.Bucket)] = stat.Count
	}

	points := p.points()
	series := make([]DateStat, len(points))
	for i, point := range points {
		series[i] = DateStat{
			Date:  point.Format(time.RFC3339),
			Count: counts[p.FormatKey(point)],
		}
	}
	return series
}

// normalizeKey trims a grouped date string to the comparable prefix for the
// bucket size, tolerating both "2006-01-02 15" and full datetime forms.
func normalizeKey(key string, bucket Bucket) string {
	if bucket == BucketHour {
		if len(key) > 13 {
			return key[:13]
		}
		return key
	}
	if len(key) > 10 {
		return key[:10]
	}
	return key
}
