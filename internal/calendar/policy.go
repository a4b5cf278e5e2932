package calendar

import "time"

// Policy binds a calendar to a regime and lunch setting. It is chosen once
// per issue and handed to every component that measures or projects time.
type Policy struct {
	Regime       Regime
	ExcludeLunch bool
	cal          *Calendar
}

// Policy returns the calendar bound to the given regime.
func (c *Calendar) Policy(regime Regime, excludeLunch bool) Policy {
	return Policy{Regime: regime, ExcludeLunch: excludeLunch, cal: c}
}

// Elapsed returns the working minutes between start and end under this policy.
func (p Policy) Elapsed(start, end time.Time) float64 {
	return p.cal.ElapsedMinutes(start, end, p.Regime, p.ExcludeLunch)
}

// Add returns the instant reached after the given working minutes from `from`.
func (p Policy) Add(from time.Time, minutes float64) time.Time {
	return p.cal.AddMinutes(from, minutes, p.Regime, p.ExcludeLunch)
}
