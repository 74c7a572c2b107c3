// Package useragent classifies raw user agent strings into browser and
// operating system name/version pairs using ordered pattern matching.
package useragent

import (
	"strings"

	"go.elara.ws/pcre"
)

// Classification is the result of parsing a user agent string. Fields are
// empty when nothing matched; downstream code maps empty values to the
// unknown sentinel identity.
type Classification struct {
	BrowserName    string
	BrowserVersion string
	SystemName     string
	SystemVersion  string
}

type pattern struct {
	name  string
	regex *pcre.Regexp
}

// Browser patterns. Order matters: many browsers embed the tokens of others
// (every Chromium derivative carries "Chrome", Chrome carries "Safari"), so
// the more specific signature must win before the generic one is tried.
var browserPatterns = []pattern{
	{"Edge", pcre.MustCompile(`Edge?/([0-9._]+)`)},
	{"Opera", pcre.MustCompile(`(?:OPR|Opera)[/ ]([0-9._]+)`)},
	{"Samsung Browser", pcre.MustCompile(`SamsungBrowser/([0-9._]+)`)},
	{"UC Browser", pcre.MustCompile(`UCBrowser/([0-9._]+)`)},
	// Brave ships no brand token of its own in most builds; when one is
	// present the version still comes from the embedded Chrome token.
	{"Brave", pcre.MustCompile(`Brave.*Chrome/([0-9._]+)`)},
	{"Firefox", pcre.MustCompile(`Firefox/([0-9._]+)`)},
	{"Chrome", pcre.MustCompile(`^(?!.*Chromium).*Chrome/([0-9._]+)`)},
	{"Chromium", pcre.MustCompile(`Chromium/([0-9._]+)`)},
	{"Safari", pcre.MustCompile(`Version/([0-9._]+).*Safari`)},
	{"Safari", pcre.MustCompile(`(Safari)`)},
	{"Internet Explorer", pcre.MustCompile(`Trident/.*rv:([0-9._]+)`)},
	{"Internet Explorer", pcre.MustCompile(`MSIE ([0-9._]+).*Trident`)},
	{"curl", pcre.MustCompile(`curl/([0-9._]+)`)},
	{"Wget", pcre.MustCompile(`[Ww]get/([0-9._]+)`)},
}

// Operating system patterns. iOS must come before macOS because iOS user
// agents also contain a "like Mac OS X" token.
var systemPatterns = []pattern{
	{"iOS", pcre.MustCompile(`(?:iPhone|iPad|iPod).*OS ([0-9_]+) like Mac OS X`)},
	{"iOS", pcre.MustCompile(`(?:iPhone|iPad|iPod)`)},
	{"Android", pcre.MustCompile(`Android[ /]?([0-9._]*)`)},
	{"Windows", pcre.MustCompile(`Windows NT ([0-9._]+)`)},
	{"macOS", pcre.MustCompile(`Mac OS X ([0-9._]+)`)},
	{"macOS", pcre.MustCompile(`(Macintosh)`)},
	{"Ubuntu", pcre.MustCompile(`Ubuntu[/ ]?([0-9._]*)`)},
	{"Fedora", pcre.MustCompile(`Fedora[/ ]?([0-9._]*)`)},
	{"Chrome OS", pcre.MustCompile(`(CrOS)`)},
	{"FreeBSD", pcre.MustCompile(`(FreeBSD)`)},
	{"Linux", pcre.MustCompile(`(Linux|X11)`)},
}

// Marketing names for Windows NT kernel versions.
var windowsVersions = map[string]string{
	"10.0": "10",
	"6.3":  "8.1",
	"6.2":  "8",
	"6.1":  "7",
	"6.0":  "Vista",
	"5.1":  "XP",
}

// Patterns whose capture group is a token rather than a version number.
var tokenOnly = map[string]bool{
	"Chrome OS": true,
	"FreeBSD":   true,
	"Linux":     true,
}

// Classify parses a user agent string. It is a total function: empty or
// unrecognized input yields a zero Classification.
func Classify(userAgent string) Classification {
	if userAgent == "" {
		return Classification{}
	}

	result := Classification{}

	for _, p := range browserPatterns {
		// pcre returns an empty slice rather than nil on no match.
		matches := p.regex.FindStringSubmatch(userAgent)
		if len(matches) == 0 {
			continue
		}
		result.BrowserName = p.name
		if len(matches) > 1 && isVersionToken(matches[1]) {
			result.BrowserVersion = normalizeVersion(matches[1])
		}
		break
	}

	for _, p := range systemPatterns {
		matches := p.regex.FindStringSubmatch(userAgent)
		if len(matches) == 0 {
			continue
		}
		result.SystemName = p.name
		if len(matches) > 1 && !tokenOnly[p.name] && isVersionToken(matches[1]) {
			if p.name == "Windows" {
				result.SystemVersion = windowsVersion(matches[1])
			} else {
				result.SystemVersion = normalizeVersion(matches[1])
			}
		}
		break
	}

	return result
}

func isVersionToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '_' {
			return false
		}
	}
	return true
}

// normalizeVersion converts underscore separators to dots and trims the
// version to major.minor granularity. A trailing ".0" minor is dropped so
// "122.0" reads as "122" while "17.2" stays intact.
func normalizeVersion(version string) string {
	version = strings.ReplaceAll(version, "_", ".")
	parts := strings.Split(version, ".")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	if len(parts) == 2 && parts[1] == "0" {
		parts = parts[:1]
	}
	return strings.Join(parts, ".")
}

// windowsVersion maps the NT kernel version to its marketing name. The map
// lookup uses the raw major.minor token since NT 10.0 and a hypothetical
// NT 10 are distinct keys.
func windowsVersion(raw string) string {
	parts := strings.Split(raw, ".")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	key := strings.Join(parts, ".")
	if marketing, ok := windowsVersions[key]; ok {
		return marketing
	}
	return normalizeVersion(raw)
}
