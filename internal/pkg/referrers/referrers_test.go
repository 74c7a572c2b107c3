package referrers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantDisplay string
		wantScheme  string
	}{
		{
			name:        "empty",
			raw:         "",
			wantDisplay: "",
			wantScheme:  SchemeOther,
		},
		{
			name:        "whitespace only",
			raw:         "   ",
			wantDisplay: "",
			wantScheme:  SchemeOther,
		},
		{
			name:        "spam domain suppressed",
			raw:         "https://evil.semalt.com/x",
			wantDisplay: "",
			wantScheme:  SchemeOther,
		},
		{
			name:        "campaign params preserved",
			raw:         "?utm_source=newsletter&utm_campaign=launch",
			wantDisplay: "?utm_source=newsletter&utm_campaign=launch",
			wantScheme:  SchemeCampaign,
		},
		{
			name:        "campaign literal",
			raw:         "https://example.com/page?campaign=spring",
			wantDisplay: "example.com/page?campaign=spring",
			wantScheme:  SchemeCampaign,
		},
		{
			name:        "google search collapses to brand",
			raw:         "https://www.google.com/search?q=x",
			wantDisplay: "Google",
			wantScheme:  SchemeHTTP,
		},
		{
			name:        "google country tld",
			raw:         "https://www.google.co.uk/url?q=something",
			wantDisplay: "Google",
			wantScheme:  SchemeHTTP,
		},
		{
			name:        "bing",
			raw:         "https://www.bing.com/search?q=x",
			wantDisplay: "Bing",
			wantScheme:  SchemeHTTP,
		},
		{
			name:        "duckduckgo",
			raw:         "https://duckduckgo.com/",
			wantDisplay: "DuckDuckGo",
			wantScheme:  SchemeHTTP,
		},
		{
			name:        "yahoo search",
			raw:         "https://search.yahoo.com/search?p=x",
			wantDisplay: "Yahoo",
			wantScheme:  SchemeHTTP,
		},
		{
			name:        "old reddit alias with listing suffix stripped",
			raw:         "https://old.reddit.com/r/test/top",
			wantDisplay: "www.reddit.com/r/test",
			wantScheme:  SchemeHTTP,
		},
		{
			name:        "reddit compact suffix stripped",
			raw:         "https://www.reddit.com/r/golang/.compact",
			wantDisplay: "www.reddit.com/r/golang",
			wantScheme:  SchemeHTTP,
		},
		{
			name:        "hacker news item link kept",
			raw:         "https://news.ycombinator.com/item?id=12345",
			wantDisplay: "news.ycombinator.com/item?id=12345",
			wantScheme:  SchemeHTTP,
		},
		{
			name:        "hacker news front page collapses",
			raw:         "https://news.ycombinator.com/news?p=2",
			wantDisplay: "news.ycombinator.com",
			wantScheme:  SchemeHTTP,
		},
		{
			name:        "pocket collapses to bare domain",
			raw:         "https://getpocket.com/read/123456",
			wantDisplay: "getpocket.com",
			wantScheme:  SchemeHTTP,
		},
		{
			name:        "href.li shortener expanded",
			raw:         "https://href.li/?https://www.google.com/search?q=x",
			wantDisplay: "Google",
			wantScheme:  SchemeHTTP,
		},
		{
			name:        "gmail grouped as generated",
			raw:         "https://mail.google.com/mail/u/0/",
			wantDisplay: "Email",
			wantScheme:  SchemeGenerated,
		},
		{
			name:        "feed reader grouped as generated",
			raw:         "https://feedly.com/i/latest",
			wantDisplay: "Feedly",
			wantScheme:  SchemeGenerated,
		},
		{
			name:        "fallthrough strips tracking params",
			raw:         "https://example.com/post?fbclid=abc123&page=2",
			wantDisplay: "example.com/post?page=2",
			wantScheme:  SchemeHTTP,
		},
		{
			name:        "fallthrough strips protocol",
			raw:         "https://example.com/about",
			wantDisplay: "example.com/about",
			wantScheme:  SchemeHTTP,
		},
		{
			name:        "bare host without scheme",
			raw:         "example.org/page",
			wantDisplay: "example.org/page",
			wantScheme:  SchemeHTTP,
		},
		{
			name:        "android app referrer",
			raw:         "android-app://com.google.android.gm",
			wantDisplay: "Email",
			wantScheme:  SchemeGenerated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			assert.Equal(t, tt.wantDisplay, got.Display)
			assert.Equal(t, tt.wantScheme, got.Scheme)
		})
	}
}

func TestNormalizeUnparsable(t *testing.T) {
	got := Normalize("http://%zz%zz")
	assert.Equal(t, SchemeOther, got.Scheme)
	assert.LessOrEqual(t, len(got.Display), 200)
}

func TestNormalizeTruncatesLongInput(t *testing.T) {
	long := "not a url " + strings.Repeat("x", 5000)
	got := Normalize(long)
	assert.Equal(t, SchemeOther, got.Scheme)
	assert.Len(t, got.Display, 200)
}

func TestNormalizeIsTotal(t *testing.T) {
	inputs := []string{
		"",
		"\x00\x01",
		strings.Repeat("https://example.com/", 100000),
		"://///",
		"?&&&===",
		"javascript:alert(1)",
	}

	for _, input := range inputs {
		assert.NotPanics(t, func() {
			Normalize(input)
		})
	}
}
