package calendar

import (
	"fmt"
	"time"
)

// Rule derives the reference date of a holiday for an arbitrary year.
type Rule interface {
	Date(year int) time.Time
}

// Fixed is a holiday on the same month and day every year.
type Fixed struct {
	Month time.Month
	Day   int
}

func (r Fixed) Date(year int) time.Time {
	return time.Date(year, r.Month, r.Day, 0, 0, 0, 0, time.UTC)
}

// NthWeekday is the N-th given weekday of a month, e.g. the second Sunday of May.
type NthWeekday struct {
	Month   time.Month
	Weekday time.Weekday
	N       int
}

func (r NthWeekday) Date(year int) time.Time {
	first := time.Date(year, r.Month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(r.Weekday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(r.N-1))
}

// DayAfterNthWeekday is the day following an NthWeekday; Black Friday follows the fourth
// Thursday of November.
type DayAfterNthWeekday NthWeekday

func (r DayAfterNthWeekday) Date(year int) time.Time {
	return NthWeekday(r).Date(year).AddDate(0, 0, 1)
}

// EasterOffset is a movable feast a fixed number of days from Western Easter Sunday.
type EasterOffset struct {
	Days int
}

func (r EasterOffset) Date(year int) time.Time {
	return easter(year).AddDate(0, 0, r.Days)
}

// easter computes Western Easter Sunday with the anonymous Gregorian algorithm.
func easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ruleDoc is the YAML form of a Rule:
//
//	rule: {kind: fixed, month: 12, day: 25}
//	rule: {kind: nth_weekday, month: 5, weekday: 0, n: 2}
//	rule: {kind: day_after_nth_weekday, month: 11, weekday: 4, n: 4}
//	rule: {kind: easter, offset: -47}
type ruleDoc struct {
	Kind    string `yaml:"kind"`
	Month   int    `yaml:"month"`
	Day     int    `yaml:"day"`
	Weekday int    `yaml:"weekday"`
	N       int    `yaml:"n"`
	Offset  int    `yaml:"offset"`
}

func (d ruleDoc) rule() (Rule, error) {
	needMonth := func() error {
		if d.Month < 1 || d.Month > 12 {
			return fmt.Errorf("rule %s: month %d out of range", d.Kind, d.Month)
		}
		return nil
	}
	needWeekday := func() error {
		if err := needMonth(); err != nil {
			return err
		}
		if d.Weekday < 0 || d.Weekday > 6 {
			return fmt.Errorf("rule %s: weekday %d out of range", d.Kind, d.Weekday)
		}
		if d.N < 1 || d.N > 5 {
			return fmt.Errorf("rule %s: n %d out of range", d.Kind, d.N)
		}
		return nil
	}

	switch d.Kind {
	case "fixed":
		if err := needMonth(); err != nil {
			return nil, err
		}
		if d.Day < 1 || d.Day > 31 {
			return nil, fmt.Errorf("rule fixed: day %d out of range", d.Day)
		}
		return Fixed{Month: time.Month(d.Month), Day: d.Day}, nil
	case "nth_weekday":
		if err := needWeekday(); err != nil {
			return nil, err
		}
		return NthWeekday{Month: time.Month(d.Month), Weekday: time.Weekday(d.Weekday), N: d.N}, nil
	case "day_after_nth_weekday":
		if err := needWeekday(); err != nil {
			return nil, err
		}
		return DayAfterNthWeekday{Month: time.Month(d.Month), Weekday: time.Weekday(d.Weekday), N: d.N}, nil
	case "easter":
		return EasterOffset{Days: d.Offset}, nil
	default:
		return nil, fmt.Errorf("unknown rule kind %q", d.Kind)
	}
}
