package hits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWidthBucket(t *testing.T) {
	tests := []struct {
		width int
		want  int
	}{
		{100, 320},
		{320, 320},
		{383, 320},
		{384, 384},
		{599, 384},
		{600, 600},
		{1023, 600},
		{1024, 1024},
		{1439, 1024},
		{1440, 1440},
		{1919, 1440},
		{1920, 1920},
		{3840, 1920},
	}

	for _, tt := range tests {
		got := WidthBucket(tt.width)
		require.NotNil(t, got, "width %d", tt.width)
		assert.Equal(t, tt.want, *got, "width %d", tt.width)
	}
}

func TestWidthBucketUnknown(t *testing.T) {
	assert.Nil(t, WidthBucket(0))
	assert.Nil(t, WidthBucket(-100))
}

func TestPrimaryLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"en-US,en;q=0.9", "en"},
		{"de-DE,de;q=0.9,en;q=0.8", "de"},
		{"fr", "fr"},
		{"pt-BR", "pt"},
		{" es-ES ", "es"},
		{"*", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PrimaryLanguage(tt.header), "header %q", tt.header)
	}
}

func TestIsTruthy(t *testing.T) {
	assert.True(t, IsTruthy("true"))
	assert.True(t, IsTruthy("1"))
	assert.False(t, IsTruthy("yes"))
	assert.False(t, IsTruthy("0"))
	assert.False(t, IsTruthy(""))
}
