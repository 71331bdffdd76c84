package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatHMS(t *testing.T) {
	cases := map[int]string{
		0:     "00:00:00",
		15:    "00:00:15",
		90:    "00:01:30",
		3725:  "01:02:05",
		86399: "23:59:59",
		-5:    "00:00:00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatHMS(in), "seconds=%d", in)
	}
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadLocation("Not/AZone")
	assert.Error(t, err)
}

func TestStartOfDay(t *testing.T) {
	ts := time.Date(2026, 3, 4, 17, 45, 12, 99, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), StartOfDay(ts))
}
