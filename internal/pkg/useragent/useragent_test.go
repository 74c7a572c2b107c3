package useragent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBrowsers(t *testing.T) {
	tests := []struct {
		name        string
		userAgent   string
		wantBrowser string
		wantVersion string
	}{
		{
			name:        "firefox desktop",
			userAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
			wantBrowser: "Firefox",
			wantVersion: "122",
		},
		{
			name:        "chrome desktop",
			userAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36",
			wantBrowser: "Chrome",
			wantVersion: "120",
		},
		{
			name:        "chromium is not chrome",
			userAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chromium/119.0.6045.105 Chrome/119.0.6045.105 Safari/537.36",
			wantBrowser: "Chromium",
			wantVersion: "119",
		},
		{
			name:        "edge wins over chrome",
			userAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.91",
			wantBrowser: "Edge",
			wantVersion: "120",
		},
		{
			name:        "opera wins over chrome",
			userAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 OPR/105.0.0.0",
			wantBrowser: "Opera",
			wantVersion: "105",
		},
		{
			name:        "samsung browser wins over chrome",
			userAgent:   "Mozilla/5.0 (Linux; Android 14; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) SamsungBrowser/23.0 Chrome/115.0.0.0 Mobile Safari/537.36",
			wantBrowser: "Samsung Browser",
			wantVersion: "23",
		},
		{
			name:        "safari with version token",
			userAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
			wantBrowser: "Safari",
			wantVersion: "17.2",
		},
		{
			name:        "bare safari has no version",
			userAgent:   "Mozilla/5.0 (Macintosh) AppleWebKit/605.1.15 (KHTML, like Gecko) Safari/605.1.15",
			wantBrowser: "Safari",
			wantVersion: "",
		},
		{
			name:        "internet explorer 11",
			userAgent:   "Mozilla/5.0 (Windows NT 6.1; WOW64; Trident/7.0; rv:11.0) like Gecko",
			wantBrowser: "Internet Explorer",
			wantVersion: "11",
		},
		{
			name:        "curl",
			userAgent:   "curl/8.4.0",
			wantBrowser: "curl",
			wantVersion: "8.4",
		},
		{
			name:        "wget",
			userAgent:   "Wget/1.21.4",
			wantBrowser: "Wget",
			wantVersion: "1.21",
		},
		{
			name:        "empty input",
			userAgent:   "",
			wantBrowser: "",
			wantVersion: "",
		},
		{
			name:        "garbage input",
			userAgent:   "not a browser at all",
			wantBrowser: "",
			wantVersion: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.userAgent)
			assert.Equal(t, tt.wantBrowser, got.BrowserName)
			assert.Equal(t, tt.wantVersion, got.BrowserVersion)
		})
	}
}

func TestClassifySystems(t *testing.T) {
	tests := []struct {
		name        string
		userAgent   string
		wantSystem  string
		wantVersion string
	}{
		{
			name:        "iphone safari is ios not macos",
			userAgent:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
			wantSystem:  "iOS",
			wantVersion: "17.2",
		},
		{
			name:        "ipad",
			userAgent:   "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1",
			wantSystem:  "iOS",
			wantVersion: "16.6",
		},
		{
			name:        "android",
			userAgent:   "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			wantSystem:  "Android",
			wantVersion: "14",
		},
		{
			name:        "windows 10",
			userAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			wantSystem:  "Windows",
			wantVersion: "10",
		},
		{
			name:        "windows 7 marketing name",
			userAgent:   "Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/109.0.0.0 Safari/537.36",
			wantSystem:  "Windows",
			wantVersion: "7",
		},
		{
			name:        "macos underscores normalized",
			userAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			wantSystem:  "macOS",
			wantVersion: "10.15",
		},
		{
			name:        "ubuntu",
			userAgent:   "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0",
			wantSystem:  "Ubuntu",
			wantVersion: "",
		},
		{
			name:        "chrome os",
			userAgent:   "Mozilla/5.0 (X11; CrOS x86_64 14541.0.0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			wantSystem:  "Chrome OS",
			wantVersion: "",
		},
		{
			name:        "generic linux",
			userAgent:   "Mozilla/5.0 (X11; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0",
			wantSystem:  "Linux",
			wantVersion: "",
		},
		{
			name:        "freebsd",
			userAgent:   "Mozilla/5.0 (X11; FreeBSD amd64; rv:109.0) Gecko/20100101 Firefox/115.0",
			wantSystem:  "FreeBSD",
			wantVersion: "",
		},
		{
			name:        "empty input",
			userAgent:   "",
			wantSystem:  "",
			wantVersion: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.userAgent)
			assert.Equal(t, tt.wantSystem, got.SystemName)
			assert.Equal(t, tt.wantVersion, got.SystemVersion)
		})
	}
}

func TestClassifyUnrecognizedYieldsZero(t *testing.T) {
	// pcre reports no match with an empty slice, not nil; an unmatched UA
	// must not fall through to the first pattern in either table.
	got := Classify("SomeRandomAgent/1.0")
	assert.Equal(t, Classification{}, got)

	firefox := Classify("Mozilla/5.0 (X11; FreeBSD amd64; rv:109.0) Gecko/20100101 Firefox/115.0")
	assert.Equal(t, "Firefox", firefox.BrowserName)
	assert.NotEqual(t, "iOS", firefox.SystemName)
}

func TestClassifyIsTotal(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"\x00\x01\x02",
		strings.Repeat("Mozilla/5.0 ", 100000),
		"Chrome/",
		"Windows NT",
		"((((((((",
	}

	for _, input := range inputs {
		assert.NotPanics(t, func() {
			Classify(input)
		})
	}
}
