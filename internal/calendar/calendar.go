package calendar

import (
	"fmt"
	"math"
	"time"
)

// Regime selects how minutes accrue between two instants.
type Regime int

const (
	// Bounded counts only business hours on business days.
	Bounded Regime = iota
	// Continuous counts every calendar minute (24x7).
	Continuous
)

func (r Regime) String() string {
	switch r {
	case Continuous:
		return "continuous"
	default:
		return "bounded"
	}
}

// MarshalText keeps the regime readable in JSON reports.
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ClockTime is a wall-clock time of day in the calendar's location.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) on(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// maxScanDays bounds the search for the next business day when the holiday
// table is misconfigured to exclude every day.
const maxScanDays = 3660

// Calendar answers working-time questions for one location and schedule.
// It holds no mutable state and is safe for concurrent use.
type Calendar struct {
	Location   *time.Location
	Open       ClockTime
	Close      ClockTime
	LunchStart ClockTime
	LunchEnd   ClockTime
	Holidays   HolidayTable
}

// New returns the standard support calendar (09:00-18:00, lunch 13:00-14:00)
// for the given location. A nil location means UTC.
func New(loc *time.Location, holidays HolidayTable) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{
		Location:   loc,
		Open:       ClockTime{9, 0},
		Close:      ClockTime{18, 0},
		LunchStart: ClockTime{13, 0},
		LunchEnd:   ClockTime{14, 0},
		Holidays:   holidays,
	}
}

// IsBusinessDay reports whether the day containing t is neither a weekend nor a holiday.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	t = t.In(c.Location)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.Holidays.IsHoliday(t)
}

// ElapsedMinutes returns the working minutes between start and end.
// It returns 0 when end is not after start.
func (c *Calendar) ElapsedMinutes(start, end time.Time, regime Regime, excludeLunch bool) float64 {
	if !end.After(start) {
		return 0
	}
	start, end = start.In(c.Location), end.In(c.Location)

	var total time.Duration
	for day := c.midnight(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		var from, to time.Time
		if regime == Continuous {
			from, to = day, day.AddDate(0, 0, 1)
		} else {
			if !c.IsBusinessDay(day) {
				continue
			}
			from, to = c.Open.on(day), c.Close.on(day)
		}

		total += overlap(start, end, from, to)
		if excludeLunch {
			ls, le := later(from, c.LunchStart.on(day)), earlier(to, c.LunchEnd.on(day))
			total -= overlap(start, end, ls, le)
		}
	}

	if total < 0 {
		return 0
	}
	return total.Minutes()
}

// AddMinutes returns the instant reached after consuming the given working
// minutes from `from`. Non-positive minutes return `from` unchanged.
func (c *Calendar) AddMinutes(from time.Time, minutes float64, regime Regime, excludeLunch bool) time.Time {
	if minutes <= 0 {
		return from
	}
	remaining := toDuration(minutes)
	cur := from.In(c.Location)
	if regime == Continuous {
		return c.addContinuous(cur, remaining, excludeLunch)
	}
	return c.addBounded(cur, remaining, excludeLunch)
}

func (c *Calendar) addBounded(cur time.Time, remaining time.Duration, excludeLunch bool) time.Time {
	for i := 0; i < maxScanDays; i++ {
		next, ok := c.snapForward(cur)
		if !ok {
			return cur
		}
		cur = next

		day := c.midnight(cur)
		closing := c.Close.on(day)

		windows := [][2]time.Time{{cur, closing}}
		if excludeLunch {
			ls, le := c.LunchStart.on(day), c.LunchEnd.on(day)
			windows = windows[:0]
			if cur.Before(ls) {
				windows = append(windows, [2]time.Time{cur, earlier(ls, closing)})
			}
			windows = append(windows, [2]time.Time{later(cur, le), closing})
		}

		for _, w := range windows {
			avail := w[1].Sub(w[0])
			if avail <= 0 {
				continue
			}
			if remaining <= avail {
				return w[0].Add(remaining)
			}
			remaining -= avail
		}

		cur = c.Open.on(day.AddDate(0, 0, 1))
	}
	return cur
}

func (c *Calendar) addContinuous(cur time.Time, remaining time.Duration, excludeLunch bool) time.Time {
	if !excludeLunch {
		return cur.Add(remaining)
	}
	for {
		day := c.midnight(cur)
		ls, le := c.LunchStart.on(day), c.LunchEnd.on(day)
		if !cur.Before(le) {
			tomorrow := day.AddDate(0, 0, 1)
			ls, le = c.LunchStart.on(tomorrow), c.LunchEnd.on(tomorrow)
		} else if !cur.Before(ls) {
			cur = le
			continue
		}

		avail := ls.Sub(cur)
		if remaining <= avail {
			return cur.Add(remaining)
		}
		remaining -= avail
		cur = le
	}
}

// snapForward moves t to the next instant at which business minutes accrue.
// Instants inside an open business day are returned unchanged.
func (c *Calendar) snapForward(t time.Time) (time.Time, bool) {
	for i := 0; i < maxScanDays; i++ {
		day := c.midnight(t)
		if !c.IsBusinessDay(day) {
			t = c.Open.on(day.AddDate(0, 0, 1))
			continue
		}
		opening, closing := c.Open.on(day), c.Close.on(day)
		if t.Before(opening) {
			return opening, true
		}
		if !t.Before(closing) {
			t = c.Open.on(day.AddDate(0, 0, 1))
			continue
		}
		return t, true
	}
	return t, false
}

func (c *Calendar) midnight(t time.Time) time.Time {
	t = t.In(c.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.Location)
}

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	from, to := later(aStart, bStart), earlier(aEnd, bEnd)
	if !to.After(from) {
		return 0
	}
	return to.Sub(from)
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func toDuration(minutes float64) time.Duration {
	return time.Duration(math.Round(minutes * float64(time.Minute)))
}
