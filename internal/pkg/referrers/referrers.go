// Package referrers normalizes raw referrer strings into a canonical display
// string plus a coarse scheme tag. Referrers are extremely high-cardinality
// and noisy; normalization exists to keep the top-referrers rollup useful
// instead of a long tail of near-duplicate URLs.
package referrers

import (
	"net/url"
	"strings"
)

// Referrer scheme tags.
const (
	SchemeHTTP      = "http"
	SchemeCampaign  = "campaign"
	SchemeGenerated = "generated"
	SchemeOther     = "other"
)

const maxDisplayLength = 200

// Referrer is the normalized form of a raw referrer string.
type Referrer struct {
	Display string
	Scheme  string
}

// Known referrer-spam domains. Matched as case-insensitive substrings so
// subdomain variants are caught too. Spam is suppressed, not recorded.
var spamDomains = []string{
	"semalt.com",
	"darodar.com",
	"buttons-for-website.com",
	"7makemoneyonline.com",
	"ilovevitaly.com",
	"best-seo-offer.com",
	"best-seo-solution.com",
	"o-o-6-o-o.com",
}

// Mobile and legacy subdomains normalized to their canonical host before
// any other host-based rule runs.
var hostAliases = map[string]string{
	"old.reddit.com":     "www.reddit.com",
	"np.reddit.com":      "www.reddit.com",
	"amp.reddit.com":     "www.reddit.com",
	"i.reddit.com":       "www.reddit.com",
	"reddit.com":         "www.reddit.com",
	"m.facebook.com":     "www.facebook.com",
	"mbasic.facebook.com": "www.facebook.com",
	"mobile.twitter.com": "twitter.com",
	"m.youtube.com":      "www.youtube.com",
	"en.m.wikipedia.org": "en.wikipedia.org",
}

// Hosts collapsed to a human label. These referrers are generated by apps,
// mail clients, and feed readers rather than by a link on a web page, so
// they carry the generated scheme.
var hostGroups = map[string]string{
	"mail.google.com":                        "Email",
	"outlook.live.com":                       "Email",
	"outlook.office.com":                     "Email",
	"outlook.office365.com":                  "Email",
	"mail.yahoo.com":                         "Email",
	"mail.proton.me":                         "Email",
	"com.google.android.gm":                  "Email",
	"com.google.android.googlequicksearchbox": "Google",
	"com.linkedin.android":                   "LinkedIn app",
	"org.telegram.messenger":                 "Telegram",
	"feedly.com":                             "Feedly",
	"www.feedly.com":                         "Feedly",
	"www.inoreader.com":                      "Inoreader",
	"newsblur.com":                           "NewsBlur",
	"theoldreader.com":                       "The Old Reader",
	"usepanda.com":                           "Panda",
}

// Query parameters stripped on the generic fallthrough path. Campaign
// markers never reach this list because the campaign branch short-circuits
// earlier and keeps its parameters intact.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"gclsrc":  true,
	"dclid":   true,
	"msclkid": true,
	"mc_cid":  true,
	"mc_eid":  true,
	"igshid":  true,
	"ref_src": true,
	"si":      true,
}

// Normalize converts a raw referrer string into its canonical display form
// and scheme tag. It is a total function: every input, including garbage,
// yields a usable result and never an error.
func Normalize(raw string) Referrer {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Referrer{Display: "", Scheme: SchemeOther}
	}

	lower := strings.ToLower(raw)
	for _, domain := range spamDomains {
		if strings.Contains(lower, domain) {
			return Referrer{Display: "", Scheme: SchemeOther}
		}
	}

	if strings.Contains(lower, "utm_") || strings.Contains(lower, "campaign") {
		return Referrer{Display: truncate(stripProtocol(raw)), Scheme: SchemeCampaign}
	}

	parsed, err := parseURL(raw)
	if err != nil || parsed.Host == "" {
		return Referrer{Display: truncate(stripProtocol(raw)), Scheme: SchemeOther}
	}

	return normalizeURL(parsed)
}

func parseURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return url.Parse(raw)
}

func normalizeURL(u *url.URL) Referrer {
	host := strings.ToLower(u.Host)
	if canonical, ok := hostAliases[host]; ok {
		host = canonical
	}

	scheme := SchemeOther
	if u.Scheme == "http" || u.Scheme == "https" {
		scheme = SchemeHTTP
	}

	if label, ok := hostGroups[host]; ok {
		return Referrer{Display: label, Scheme: SchemeGenerated}
	}

	if brand := searchBrand(host); brand != "" {
		return Referrer{Display: brand, Scheme: scheme}
	}

	if ref, ok := normalizeSpecialSite(host, u, scheme); ok {
		return ref
	}

	display := host + u.EscapedPath()
	if query := cleanQuery(u.Query()); query != "" {
		display += "?" + query
	}
	return Referrer{Display: truncate(display), Scheme: scheme}
}

// searchBrand collapses search engine hosts to a brand name. Search result
// URLs differ per country TLD and per query, none of which matters for a
// referrer breakdown.
func searchBrand(host string) string {
	bare := strings.TrimPrefix(host, "www.")
	switch {
	case bare == "google.com" || strings.HasPrefix(bare, "google.co") ||
		strings.HasPrefix(bare, "google.de") || strings.HasPrefix(bare, "google.fr") ||
		strings.HasPrefix(bare, "google.es") || strings.HasPrefix(bare, "google.it") ||
		strings.HasPrefix(bare, "google.nl") || strings.HasPrefix(bare, "google.ca") ||
		strings.HasPrefix(bare, "google.ch") || strings.HasPrefix(bare, "google.at") ||
		host == "encrypted.google.com":
		return "Google"
	case bare == "yandex.ru" || bare == "yandex.com" || strings.HasPrefix(bare, "yandex."):
		return "Yandex"
	case host == "search.yahoo.com" || strings.HasSuffix(host, ".search.yahoo.com"):
		return "Yahoo"
	case bare == "bing.com":
		return "Bing"
	case bare == "duckduckgo.com" || host == "duck.com":
		return "DuckDuckGo"
	}
	return ""
}

func normalizeSpecialSite(host string, u *url.URL, scheme string) (Referrer, bool) {
	switch host {
	case "href.li":
		// href.li wraps the real target in its query string; unwrap and
		// normalize the target instead of recording the shortener.
		if target := u.RawQuery; target != "" {
			if unescaped, err := url.QueryUnescape(target); err == nil {
				target = unescaped
			}
			return Normalize(target), true
		}
		return Referrer{Display: host, Scheme: scheme}, true

	case "news.ycombinator.com":
		// Only item links are meaningful; front page, newest, etc. all
		// collapse to the bare domain.
		if strings.HasPrefix(u.Path, "/item") {
			display := host + u.Path
			if u.RawQuery != "" {
				display += "?" + u.RawQuery
			}
			return Referrer{Display: truncate(display), Scheme: scheme}, true
		}
		return Referrer{Display: host, Scheme: scheme}, true

	case "www.reddit.com":
		path := u.Path
		for _, suffix := range []string{"/top", "/new", "/search", ".compact"} {
			path = strings.TrimSuffix(path, suffix)
		}
		path = strings.TrimSuffix(path, "/")
		return Referrer{Display: truncate(host + path), Scheme: scheme}, true

	case "getpocket.com":
		return Referrer{Display: host, Scheme: scheme}, true
	}

	return Referrer{}, false
}

func cleanQuery(values url.Values) string {
	for param := range values {
		if trackingParams[strings.ToLower(param)] {
			values.Del(param)
		}
	}
	return values.Encode()
}

func stripProtocol(s string) string {
	if idx := strings.Index(s, "://"); idx >= 0 {
		return s[idx+3:]
	}
	return s
}

func truncate(s string) string {
	if len(s) > maxDisplayLength {
		return s[:maxDisplayLength]
	}
	return s
}
