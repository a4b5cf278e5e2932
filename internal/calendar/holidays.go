package calendar

import "time"

// MonthDay identifies a calendar day independent of the year.
type MonthDay struct {
	Month time.Month `json:"month" yaml:"month"`
	Day   int        `json:"day" yaml:"day"`
}

// HolidayTable lists non-working days. Fixed entries repeat every year;
// Movable entries only apply to the years they are listed under.
type HolidayTable struct {
	Fixed   []MonthDay         `json:"fixed" yaml:"fixed"`
	Movable map[int][]MonthDay `json:"movable,omitempty" yaml:"movable,omitempty"`
}

// IsHoliday reports whether the day containing t is a holiday.
// A year missing from the movable table only matches fixed dates.
func (h HolidayTable) IsHoliday(t time.Time) bool {
	month, day := t.Month(), t.Day()
	for _, f := range h.Fixed {
		if f.Month == month && f.Day == day {
			return true
		}
	}
	for _, m := range h.Movable[t.Year()] {
		if m.Month == month && m.Day == day {
			return true
		}
	}
	return false
}

// DefaultHolidays returns the national holiday set the support desk observes,
// with Easter Monday listed for the years currently in scope.
func DefaultHolidays() HolidayTable {
	return HolidayTable{
		Fixed: []MonthDay{
			{time.January, 1},
			{time.January, 6},
			{time.April, 25},
			{time.May, 1},
			{time.June, 2},
			{time.August, 15},
			{time.November, 1},
			{time.December, 8},
			{time.December, 25},
			{time.December, 26},
		},
		Movable: map[int][]MonthDay{
			2022: {{time.April, 18}},
			2023: {{time.April, 10}},
			2024: {{time.April, 1}},
			2025: {{time.April, 21}},
			2026: {{time.April, 6}},
			2027: {{time.March, 29}},
			2028: {{time.April, 17}},
			2029: {{time.April, 2}},
			2030: {{time.April, 22}},
		},
	}
}
