package ctl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 14*time.Minute + 8*time.Second, "2h 14m 8s"},
		{0, "0s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		b    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 << 20, "5.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.b))
	}
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 3), "long strings pass through")
}

func TestProgressBar(t *testing.T) {
	// Test output is piped, so the bar renders without ANSI codes.
	assert.Equal(t, "=====     ", progressBar(50, 10))
	assert.Equal(t, "==========", progressBar(100, 10))
	assert.Equal(t, "          ", progressBar(0, 10))
	assert.Equal(t, "==========", progressBar(150, 10), "overshoot clamps to full")
	assert.Equal(t, "          ", progressBar(-20, 10), "negative clamps to empty")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "d1f0a9b2", shortID("d1f0a9b2-3c4d-5e6f-7a8b-9c0d1e2f3a4b"))
	assert.Equal(t, "plain", shortID("plain"))
	assert.Equal(t, "-leading", shortID("-leading"), "no segment before the dash")
}
