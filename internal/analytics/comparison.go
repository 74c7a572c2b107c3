package analytics

import "math"

// PercentChange returns the rounded percentage change from previous to
// current. A previous count of zero has no meaningful baseline, so the
// change is nil rather than zero or infinity.
func PercentChange(current, previous int64) *int {
	if previous == 0 {
		return nil
	}
	change := int(math.Round(float64(current-previous) / float64(previous) * 100))
	return &change
}
