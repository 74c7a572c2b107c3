// Package bot scores user agent strings for bot likelihood. Scores range
// from 0 (clean browser) to 150 (certain bot); the ingestion pipeline drops
// hits scoring above 100. Exactness is not the goal here, the edge network
// supplies its own bot confidence separately.
package bot

import (
	"regexp"
	"strings"
)

// MaxScore is the ceiling of the heuristic scale.
const MaxScore = 150

// Tokens that identify a bot outright.
var crawlerPatterns = []string{
	// Search engine crawlers
	`googlebot`, `bingbot`, `yandexbot`, `baiduspider`, `duckduckbot`,
	`slurp`, `sogou`, `exabot`, `ia_archiver`,

	// Social media and chat preview fetchers
	`facebookexternalhit`, `twitterbot`, `linkedinbot`, `pinterestbot`,
	`whatsapp`, `telegrambot`, `slackbot`, `discordbot`,

	// Monitoring and SEO tools
	`pingdom`, `uptimerobot`, `statuscake`, `site24x7`,
	`ahrefsbot`, `semrushbot`, `mj12bot`, `screaming frog`,

	// Automation frameworks
	`headlesschrome`, `phantomjs`, `puppeteer`, `selenium`, `playwright`,
	`webdriver`, `cypress`,
}

// Tokens typical of scripted HTTP clients rather than browsers.
var clientPatterns = []string{
	`curl`, `wget`, `python-requests`, `python-urllib`, `go-http-client`,
	`java/`, `libwww`, `lwp`, `apache-httpclient`, `okhttp`, `aiohttp`,
	`node-fetch`, `axios`,
}

// Generic words that show up in long-tail crawler names.
var genericPatterns = []string{
	`bot`, `crawler`, `spider`, `scraper`, `fetcher`, `monitor`,
}

var (
	crawlerRegex = compilePatterns(crawlerPatterns)
	clientRegex  = compilePatterns(clientPatterns)
	genericRegex = compilePatterns(genericPatterns)
)

func compilePatterns(patterns []string) *regexp.Regexp {
	escaped := make([]string, len(patterns))
	for i, p := range patterns {
		escaped[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)(` + strings.Join(escaped, "|") + `)`)
}

var browserIndicators = []string{
	"mozilla", "chrome", "safari", "firefox", "edge", "opera",
}

// Score computes the bot likelihood of a user agent string.
func Score(userAgent string) int {
	if strings.TrimSpace(userAgent) == "" {
		return MaxScore
	}

	ua := strings.ToLower(userAgent)

	if crawlerRegex.MatchString(ua) {
		return MaxScore
	}

	score := 0
	if clientRegex.MatchString(ua) {
		score += 120
	}
	if genericRegex.MatchString(ua) {
		score += 120
	}

	hasBrowserIndicator := false
	for _, indicator := range browserIndicators {
		if strings.Contains(ua, indicator) {
			hasBrowserIndicator = true
			break
		}
	}
	if !hasBrowserIndicator {
		score += 60
		if len(userAgent) < 50 {
			score += 60
		}
	}

	if score > MaxScore {
		score = MaxScore
	}
	return score
}
