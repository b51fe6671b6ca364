package pkg

import (
	"time"
)

// GetFirstTimeOfCurrentWeek returns Monday 00:00 UTC of the current week.
func GetFirstTimeOfCurrentWeek() time.Time {
	return GetFirstTimeOfWeek(time.Now())
}

func GetFirstTimeOfWeek(t time.Time) time.Time {
	t = t.UTC()
	today := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	// the zero time is a Monday, so week-sized truncation lands on Mondays
	return today.Truncate(time.Hour * 168)
}

func ClampPage(page, limit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
