// Package analytics is the read side of the rollup tables: aggregate totals,
// bucketed time series, and top-N breakdowns with period-over-period change.
//
// The package is organized into focused modules:
//   - totals.go: aggregate totals and zero-filled series
//   - metrics.go: top-N queries (pages, referrers, browsers, systems, ...)
//   - comparison.go: period-over-period percentage change
//   - countries.go: country code to display name conversion
package analytics

import (
	"github.com/philippdubach/cloudcounter/internal/timeframe"
)

// QueryParams scopes a rollup query to a time window and a result cap.
type QueryParams struct {
	Period timeframe.Period
	Limit  int
}

// MetricCountResult is a generic name-count pair with an optional change
// relative to the previous window of equal length.
type MetricCountResult struct {
	Name          string `json:"name"`
	Count         int64  `json:"count"`
	PercentChange *int   `json:"percent_change,omitempty"`
}

// PageResult is one entry of the top pages list.
type PageResult struct {
	Path          string               `json:"path"`
	Title         string               `json:"title"`
	Event         bool                 `json:"event,omitempty"`
	Count         int64                `json:"count"`
	PercentChange *int                 `json:"percent_change,omitempty"`
	Sparkline     []timeframe.DateStat `json:"sparkline,omitempty"`
}

// PageList is a capped top pages result. More reports whether entries beyond
// the cap exist in the window.
type PageList struct {
	Items []PageResult `json:"items"`
	More  bool         `json:"more"`
}

// MetricList is a capped top-N result for a single dimension.
type MetricList struct {
	Items []MetricCountResult `json:"items"`
	More  bool                `json:"more"`
}
