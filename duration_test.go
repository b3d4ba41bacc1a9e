package auth_test

import (
	"testing"
	"time"

	auth "github.com/goliatone/go-authsession"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		name      string
		expr      string
		expected  time.Duration
		expectErr bool
	}{
		{name: "seconds", expr: "30s", expected: 30 * time.Second},
		{name: "minutes", expr: "15m", expected: 15 * time.Minute},
		{name: "hours", expr: "1h", expected: time.Hour},
		{name: "days", expr: "7d", expected: 7 * 24 * time.Hour},
		{name: "weeks", expr: "1w", expected: 7 * 24 * time.Hour},
		{name: "compound", expr: "1d12h", expected: 36 * time.Hour},
		{name: "bare integer is seconds", expr: "900", expected: 15 * time.Minute},
		{name: "upper case and spaces", expr: " 2H ", expected: 2 * time.Hour},
		{name: "std fallback", expr: "1.5h", expected: 90 * time.Minute},
		{name: "std compound", expr: "2h30m", expected: 150 * time.Minute},
		{name: "empty", expr: "", expectErr: true},
		{name: "unknown unit", expr: "3y", expectErr: true},
		{name: "garbage", expr: "soon", expectErr: true},
		{name: "negative", expr: "-5", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.ParseExpiry(tt.expr)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExpirySeconds(t *testing.T) {
	secs, err := auth.ExpirySeconds("7d")
	require.NoError(t, err)
	assert.Equal(t, int64(604800), secs)

	_, err = auth.ExpirySeconds("nope")
	assert.Error(t, err)
}

func TestIsWithinThresholdPeriod(t *testing.T) {
	within, err := auth.IsWithinThresholdPeriod(time.Now().Add(-30*time.Minute), "1h")
	require.NoError(t, err)
	assert.True(t, within)

	within, err = auth.IsWithinThresholdPeriod(time.Now().Add(-2*24*time.Hour), "1d")
	require.NoError(t, err)
	assert.False(t, within)

	_, err = auth.IsWithinThresholdPeriod(time.Now(), "invalid")
	assert.Error(t, err)
}
