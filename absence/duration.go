package absence

import (
	"time"

	"github.com/meridian/absence-engine/ledger"
)

// =============================================================================
// DURATION POLICY - Business-day computation
// =============================================================================
// What counts as a consumable day is company policy, not engine logic, so
// the policy is pluggable. The default counts weekdays in [start, end]
// inclusive; a holiday-aware calendar can be swapped in without touching
// the engine.

// DurationPolicy computes the consumable duration of a date range.
type DurationPolicy func(start, end time.Time) ledger.Days

// BusinessDays counts Monday-Friday days in [start, end] inclusive.
func BusinessDays(start, end time.Time) ledger.Days {
	n := 0
	for d := dateOnly(start); !d.After(dateOnly(end)); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return ledger.DaysOf(n)
}

// CalendarDays counts every day in [start, end] inclusive.
func CalendarDays(start, end time.Time) ledger.Days {
	n := int(dateOnly(end).Sub(dateOnly(start)).Hours()/24) + 1
	if n < 0 {
		n = 0
	}
	return ledger.DaysOf(n)
}

// Date constructs a UTC day-granularity time, the representation used for
// request start and end dates throughout the package.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
