package analytics

import (
	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ConvertCountryStats maps ISO 3166-1 alpha-2 location codes in a top
// locations result to common country names for display. Codes gountries
// cannot resolve are uppercased and passed through.
func ConvertCountryStats(items []MetricCountResult) []MetricCountResult {
	caser := cases.Upper(language.AmericanEnglish)
	countries := gountries.New()

	if len(items) == 0 {
		return []MetricCountResult{}
	}

	result := make([]MetricCountResult, len(items))
	for i, item := range items {
		name := item.Name
		if country, err := countries.FindCountryByAlpha(item.Name); err == nil {
			name = country.Name.Common
		} else {
			name = caser.String(item.Name)
		}
		result[i] = MetricCountResult{
			Name:          name,
			Count:         item.Count,
			PercentChange: item.PercentChange,
		}
	}
	return result
}
