package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Pattern renders the calendar pattern that matches at's minute in its own location.
func Pattern(at time.Time) string {
	return fmt.Sprintf("%d %d %d %d *", at.Minute(), at.Hour(), at.Day(), int(at.Month()))
}

// onceSchedule restricts a calendar pattern to a single year. Once that
// year has passed it yields the zero time, which cron treats as "never".
//
// The pattern has minute resolution: a trigger fires at the start of its
// minute, up to 59s before an instant that carries seconds.
type onceSchedule struct {
	inner cron.Schedule
	year  int
}

func (o onceSchedule) Next(t time.Time) time.Time {
	// Earlier years can match the same pattern, and cron.Schedule gives up
	// after five years; search from the start of the target year instead.
	if t.Year() < o.year {
		t = time.Date(o.year, time.January, 1, 0, 0, 0, 0, t.Location()).Add(-time.Nanosecond)
	}
	n := o.inner.Next(t)
	if n.IsZero() || n.Year() != o.year {
		return time.Time{}
	}
	return n
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
