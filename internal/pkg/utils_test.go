package pkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetFirstTimeOfWeek(t *testing.T) {
	monday := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

	cases := []time.Time{
		time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 8, 13, 45, 0, 0, time.UTC),
		time.Date(2024, 5, 12, 23, 59, 59, 0, time.UTC),
	}
	for _, c := range cases {
		got := GetFirstTimeOfWeek(c)
		assert.True(t, monday.Equal(got), "%s -> %s", c, got)
		assert.Equal(t, time.Monday, got.Weekday())
	}

	next := GetFirstTimeOfWeek(time.Date(2024, 5, 13, 0, 0, 1, 0, time.UTC))
	assert.True(t, monday.AddDate(0, 0, 7).Equal(next))
}

func TestGetFirstTimeOfWeekConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	// Monday 03:00 at UTC+7 is still Sunday in UTC
	got := GetFirstTimeOfWeek(time.Date(2024, 5, 13, 3, 0, 0, 0, loc))
	assert.True(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC).Equal(got))
}

func TestClampPage(t *testing.T) {
	page, limit := ClampPage(0, 0, 100)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	page, limit = ClampPage(3, 500, 100)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, limit)
}
