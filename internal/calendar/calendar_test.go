package calendar

import (
	"math"
	"testing"
	"time"
)

// 2025-03-03 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, time.UTC)
}

func testCalendar() *Calendar {
	return New(time.UTC, DefaultHolidays())
}

func TestElapsedMinutes_Bounded(t *testing.T) {
	cal := testCalendar()

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  float64
	}{
		{"SameDayInsideHours", at(3, 10, 0), at(3, 12, 0), 120},
		{"BeforeOpening", at(3, 7, 0), at(3, 9, 30), 30},
		{"AfterClosing", at(3, 17, 0), at(3, 22, 0), 60},
		{"OvernightSpan", at(3, 17, 0), at(4, 10, 0), 120},
		{"WeekendSpan", at(7, 17, 0), at(10, 10, 0), 120},
		{"InsideSaturday", at(8, 10, 0), at(8, 16, 0), 0},
		{"InsideSunday", at(9, 0, 0), at(9, 23, 59), 0},
		{"FullWeek", at(3, 0, 0), at(10, 0, 0), 5 * 540},
		{"EndBeforeStart", at(3, 12, 0), at(3, 10, 0), 0},
		{"EndEqualsStart", at(3, 12, 0), at(3, 12, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cal.ElapsedMinutes(tt.start, tt.end, Bounded, false); got != tt.want {
				t.Errorf("ElapsedMinutes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestElapsedMinutes_Holidays(t *testing.T) {
	cal := testCalendar()

	easterMonday := time.Date(2025, time.April, 21, 10, 0, 0, 0, time.UTC)
	if got := cal.ElapsedMinutes(easterMonday, easterMonday.Add(2*time.Hour), Bounded, false); got != 0 {
		t.Errorf("Easter Monday should not accrue minutes, got %v", got)
	}

	liberation := time.Date(2025, time.April, 25, 9, 0, 0, 0, time.UTC)
	if got := cal.ElapsedMinutes(liberation, liberation.Add(9*time.Hour), Bounded, false); got != 0 {
		t.Errorf("fixed holiday should not accrue minutes, got %v", got)
	}
}

func TestHolidayTable_UnknownYear(t *testing.T) {
	table := HolidayTable{
		Movable: map[int][]MonthDay{2025: {{time.April, 21}}},
	}
	if !table.IsHoliday(time.Date(2025, time.April, 21, 12, 0, 0, 0, time.UTC)) {
		t.Error("expected listed movable holiday to match")
	}
	if table.IsHoliday(time.Date(2026, time.April, 21, 12, 0, 0, 0, time.UTC)) {
		t.Error("movable holiday must not leak into other years")
	}
	if table.IsHoliday(time.Date(2099, time.April, 13, 12, 0, 0, 0, time.UTC)) {
		t.Error("year outside the table should not be a holiday")
	}
}

func TestElapsedMinutes_LunchExclusion(t *testing.T) {
	cal := testCalendar()
	start, end := at(3, 12, 30), at(3, 14, 30)

	with := cal.ElapsedMinutes(start, end, Bounded, true)
	without := cal.ElapsedMinutes(start, end, Bounded, false)
	if without-with != 60 {
		t.Errorf("expected exactly 60 minutes excluded, got with=%v without=%v", with, without)
	}

	cWith := cal.ElapsedMinutes(start, end, Continuous, true)
	cWithout := cal.ElapsedMinutes(start, end, Continuous, false)
	if cWithout-cWith != 60 {
		t.Errorf("continuous: expected exactly 60 minutes excluded, got with=%v without=%v", cWith, cWithout)
	}
}

func TestElapsedMinutes_Continuous(t *testing.T) {
	cal := testCalendar()

	if got := cal.ElapsedMinutes(at(8, 10, 0), at(8, 12, 0), Continuous, false); got != 120 {
		t.Errorf("weekend minutes should count in continuous regime, got %v", got)
	}
	if got := cal.ElapsedMinutes(at(7, 22, 0), at(10, 2, 0), Continuous, false); got != 52*60 {
		t.Errorf("expected %v, got %v", 52*60, got)
	}
	if got := cal.ElapsedMinutes(at(8, 12, 0), at(9, 15, 0), Continuous, true); got != 27*60-120 {
		t.Errorf("expected two lunches removed, got %v", got)
	}
}

func TestElapsedMinutes_NeverExceedsWallClock(t *testing.T) {
	cal := testCalendar()
	starts := []time.Time{at(3, 0, 0), at(3, 8, 45), at(5, 13, 30), at(7, 17, 59), at(8, 11, 0)}
	spans := []time.Duration{time.Minute, 45 * time.Minute, 5 * time.Hour, 26 * time.Hour, 9 * 24 * time.Hour}

	for _, s := range starts {
		for _, d := range spans {
			e := s.Add(d)
			for _, lunch := range []bool{false, true} {
				got := cal.ElapsedMinutes(s, e, Bounded, lunch)
				if got < 0 || got > d.Minutes() {
					t.Errorf("ElapsedMinutes(%v, %v, lunch=%v) = %v, outside [0, %v]", s, e, lunch, got, d.Minutes())
				}
			}
		}
	}
}

func TestAddMinutes_Bounded(t *testing.T) {
	cal := testCalendar()

	tests := []struct {
		name    string
		from    time.Time
		minutes float64
		lunch   bool
		want    time.Time
	}{
		{"CarryOverToNextDay", at(3, 17, 50), 30, false, at(4, 9, 20)},
		{"CarryOverWeekend", at(7, 17, 50), 30, false, at(10, 9, 20)},
		{"SnapBeforeOpening", at(3, 7, 0), 60, false, at(3, 10, 0)},
		{"SnapAfterClosing", at(3, 19, 0), 60, false, at(4, 10, 0)},
		{"SnapFromSaturday", at(8, 11, 0), 15, false, at(10, 9, 15)},
		{"SkipLunch", at(3, 12, 30), 60, true, at(3, 14, 30)},
		{"StartInsideLunch", at(3, 13, 20), 30, true, at(3, 14, 30)},
		{"LunchIgnoredWhenDisabled", at(3, 12, 30), 60, false, at(3, 13, 30)},
		{"ExactlyToClosing", at(3, 17, 0), 60, false, at(3, 18, 0)},
		{"MultiDay", at(3, 9, 0), 3 * 540, false, at(5, 18, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cal.AddMinutes(tt.from, tt.minutes, Bounded, tt.lunch); !got.Equal(tt.want) {
				t.Errorf("AddMinutes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddMinutes_NonPositive(t *testing.T) {
	cal := testCalendar()
	from := at(8, 3, 0)
	for _, m := range []float64{0, -5} {
		if got := cal.AddMinutes(from, m, Bounded, true); !got.Equal(from) {
			t.Errorf("AddMinutes(%v) = %v, want unchanged %v", m, got, from)
		}
	}
}

func TestAddMinutes_Continuous(t *testing.T) {
	cal := testCalendar()

	if got := cal.AddMinutes(at(8, 23, 0), 120, Continuous, false); !got.Equal(at(9, 1, 0)) {
		t.Errorf("expected plain wall-clock addition, got %v", got)
	}
	if got := cal.AddMinutes(at(8, 12, 0), 120, Continuous, true); !got.Equal(at(8, 15, 0)) {
		t.Errorf("expected lunch to be skipped, got %v", got)
	}
	if got := cal.AddMinutes(at(8, 13, 30), 30, Continuous, true); !got.Equal(at(8, 14, 30)) {
		t.Errorf("expected start inside lunch to resume at 14:00, got %v", got)
	}
}

func TestAddMinutes_RoundTrip(t *testing.T) {
	cal := testCalendar()
	cases := []struct{ start, end time.Time }{
		{at(3, 8, 0), at(4, 11, 0)},
		{at(3, 10, 15), at(3, 17, 45)},
		{at(7, 16, 0), at(10, 9, 30)},
		{at(8, 12, 0), at(11, 15, 10)},
		{at(3, 9, 0), at(3, 18, 0)},
	}

	for _, c := range cases {
		for _, lunch := range []bool{false, true} {
			minutes := cal.ElapsedMinutes(c.start, c.end, Bounded, lunch)
			got := cal.AddMinutes(c.start, minutes, Bounded, lunch)
			if diff := math.Abs(got.Sub(c.end).Seconds()); diff > 1 {
				t.Errorf("round trip %v -> %v (lunch=%v): landed on %v", c.start, c.end, lunch, got)
			}
		}
	}
}

func TestPolicy_DelegatesToCalendar(t *testing.T) {
	cal := testCalendar()
	p := cal.Policy(Bounded, true)

	if got := p.Elapsed(at(3, 12, 30), at(3, 14, 30)); got != 60 {
		t.Errorf("Policy.Elapsed() = %v, want 60", got)
	}
	if got := p.Add(at(3, 17, 50), 30); !got.Equal(at(4, 9, 20)) {
		t.Errorf("Policy.Add() = %v, want %v", got, at(4, 9, 20))
	}
	if p.Regime.String() != "bounded" {
		t.Errorf("unexpected regime name %q", p.Regime.String())
	}
}
