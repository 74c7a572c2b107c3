package hits

import "strings"

// Screen widths are bucketed to common device breakpoints so the size
// rollup stays low-cardinality.
var widthBuckets = []int{320, 384, 600, 1024, 1440, 1920}

// WidthBucket maps a reported screen width to its bucket. Zero or negative
// widths mean the client did not report one and yield nil.
func WidthBucket(width int) *int {
	if width <= 0 {
		return nil
	}

	bucket := widthBuckets[0]
	for _, b := range widthBuckets {
		if width >= b {
			bucket = b
		}
	}
	return &bucket
}

// PrimaryLanguage extracts the first language code from an Accept-Language
// header, without the region subtag or quality weight.
func PrimaryLanguage(acceptLanguage string) string {
	if acceptLanguage == "" {
		return ""
	}

	first := acceptLanguage
	if idx := strings.IndexAny(first, ",;"); idx >= 0 {
		first = first[:idx]
	}
	first = strings.TrimSpace(first)
	if idx := strings.Index(first, "-"); idx >= 0 {
		first = first[:idx]
	}

	first = strings.ToLower(first)
	if len(first) > 8 || first == "*" {
		return ""
	}
	return first
}

// IsTruthy reports whether a query parameter value marks the event flag.
func IsTruthy(value string) bool {
	return value == "true" || value == "1"
}
