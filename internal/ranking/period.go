// Package ranking computes calendar bucket identifiers for leaderboard
// periods. Keys are pure functions of a timestamp and a period: the same
// instant always maps to the same bucket, with no external state.
package ranking

import (
	"fmt"
	"time"

	"github.com/geoquiz/internal/domain"
)

// AllTimeKey is the constant bucket identifier of the alltime period
const AllTimeKey = "alltime"

// PeriodKey returns the calendar bucket identifier containing t.
// Daily keys are "2006-01-02", weekly keys use the ISO week ("2006-W04",
// Monday start), monthly keys are "2006-01". Buckets are UTC calendar
// units so every instance computes the same key for the same instant.
func PeriodKey(period domain.Period, t time.Time) string {
	t = t.UTC()
	switch period {
	case domain.PeriodDaily:
		return t.Format("2006-01-02")
	case domain.PeriodWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case domain.PeriodMonthly:
		return t.Format("2006-01")
	default:
		return AllTimeKey
	}
}

// CurrentPeriodKey returns the bucket identifier for the current instant
func CurrentPeriodKey(period domain.Period) string {
	return PeriodKey(period, time.Now())
}

// PeriodRange returns the half-open UTC time interval [start, end) of the
// bucket containing t. The alltime bucket spans all representable times.
func PeriodRange(period domain.Period, t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch period {
	case domain.PeriodDaily:
		return midnight, midnight.AddDate(0, 0, 1)
	case domain.PeriodWeekly:
		// Monday-start ISO week
		daysSinceMonday := (int(t.Weekday()) + 6) % 7
		start := midnight.AddDate(0, 0, -daysSinceMonday)
		return start, start.AddDate(0, 0, 7)
	case domain.PeriodMonthly:
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
	}
}
