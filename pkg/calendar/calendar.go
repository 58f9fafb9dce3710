// Package calendar flags purchases that happen close to high-demand holidays.
package calendar

import (
	"fmt"
	"os"
	"sort"
	"time"

	"rfm-segments/pkg/models"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Window is a named holiday with one reference date per observed year.
type Window struct {
	Name  string
	Dates map[int]time.Time // year -> reference date (UTC midnight)
	Rule  Rule              // derives the date for years missing from Dates; may be nil
}

// Calendar is an ordered set of holiday windows sharing one proximity radius.
type Calendar struct {
	windows  []Window
	days     int
	useRules bool
}

// Option customizes a Calendar.
type Option func(*Calendar)

// WithWindowDays sets the ± proximity radius in days.
func WithWindowDays(days int) Option {
	return func(c *Calendar) { c.days = days }
}

// WithRules lets rule-based dates fill years missing from the static table.
func WithRules(enabled bool) Option {
	return func(c *Calendar) { c.useRules = enabled }
}

// New builds a calendar over windows. Window order is kept; it is the order of the flags.
func New(windows []Window, opts ...Option) *Calendar {
	c := &Calendar{windows: windows, days: models.DefaultHolidayWindowDays, useRules: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Default returns the Brazilian retail calendar observed in the 2017-2018 dataset.
func Default(opts ...Option) *Calendar {
	return New([]Window{
		{Name: "Black Friday", Dates: dates("2017-11-24", "2018-11-23"), Rule: DayAfterNthWeekday{Month: time.November, Weekday: time.Thursday, N: 4}},
		{Name: "Christmas", Dates: dates("2017-12-25", "2018-12-25"), Rule: Fixed{Month: time.December, Day: 25}},
		{Name: "Mothers Day", Dates: dates("2017-05-14", "2018-05-13"), Rule: NthWeekday{Month: time.May, Weekday: time.Sunday, N: 2}},
		{Name: "Fathers Day", Dates: dates("2017-08-13", "2018-08-12"), Rule: NthWeekday{Month: time.August, Weekday: time.Sunday, N: 2}},
		{Name: "Valentines Day", Dates: dates("2017-06-12", "2018-06-12"), Rule: Fixed{Month: time.June, Day: 12}},
		{Name: "Carnival", Dates: dates("2017-02-27", "2018-02-13"), Rule: EasterOffset{Days: -47}},
	}, opts...)
}

// Names returns the holiday names in flag order.
func (c *Calendar) Names() []string {
	out := make([]string, len(c.windows))
	for i, w := range c.windows {
		out[i] = w.Name
	}
	return out
}

// WindowDays returns the proximity radius.
func (c *Calendar) WindowDays() int { return c.days }

// WithDays returns a copy of c using a different proximity radius.
func (c *Calendar) WithDays(days int) *Calendar {
	cp := *c
	cp.days = days
	return &cp
}

// ReferenceDate returns the date of holiday i in year. ok is false when neither the table
// nor an enabled rule knows the year.
func (c *Calendar) ReferenceDate(i int, year int) (time.Time, bool) {
	w := c.windows[i]
	if d, ok := w.Dates[year]; ok {
		return d, true
	}
	if c.useRules && w.Rule != nil {
		return w.Rule.Date(year), true
	}
	return time.Time{}, false
}

// Flags tests t against every window independently, using the reference date of t's
// calendar year. Distances are whole calendar days, so a purchase at any time on the
// seventh day before the holiday is inside a 7-day window.
func (c *Calendar) Flags(t time.Time) []models.HolidayFlag {
	day := civil(t)
	out := make([]models.HolidayFlag, len(c.windows))
	for i, w := range c.windows {
		out[i].Holiday = w.Name
		ref, ok := c.ReferenceDate(i, day.Year())
		if !ok {
			continue
		}
		out[i].InWindow = absDays(day.Sub(ref)) <= c.days
	}
	return out
}

// Resolve lists the reference dates of every window for the given years.
func (c *Calendar) Resolve(years []int) map[string][]time.Time {
	sorted := append([]int(nil), years...)
	sort.Ints(sorted)
	out := make(map[string][]time.Time, len(c.windows))
	for i, w := range c.windows {
		for _, y := range sorted {
			if d, ok := c.ReferenceDate(i, y); ok {
				out[w.Name] = append(out[w.Name], d)
			}
		}
	}
	return out
}

type fileWindow struct {
	Name  string   `yaml:"name"`
	Dates []string `yaml:"dates"`
	Rule  *ruleDoc `yaml:"rule,omitempty"`
}

type fileFormat struct {
	Holidays []fileWindow `yaml:"holidays"`
}

// Load reads a YAML holiday table. A missing path yields the default calendar.
func Load(path string, opts ...Option) (*Calendar, error) {
	if path == "" {
		return Default(opts...), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(opts...), nil
		}
		return nil, fmt.Errorf("reading holiday table %s: %w", path, err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing holiday table %s: %w", path, err)
	}
	windows := make([]Window, 0, len(f.Holidays))
	seen := make(map[string]bool, len(f.Holidays))
	for _, fw := range f.Holidays {
		if fw.Name == "" {
			return nil, fmt.Errorf("holiday table %s: entry without name", path)
		}
		if seen[fw.Name] {
			return nil, fmt.Errorf("holiday table %s: %q listed twice", path, fw.Name)
		}
		seen[fw.Name] = true
		w := Window{Name: fw.Name, Dates: make(map[int]time.Time, len(fw.Dates))}
		for _, s := range fw.Dates {
			d, err := time.Parse(dateLayout, s)
			if err != nil {
				return nil, fmt.Errorf("holiday %s: %w", fw.Name, err)
			}
			if _, dup := w.Dates[d.Year()]; dup {
				return nil, fmt.Errorf("holiday %s: two dates in %d", fw.Name, d.Year())
			}
			w.Dates[d.Year()] = d
		}
		if fw.Rule != nil {
			r, err := fw.Rule.rule()
			if err != nil {
				return nil, fmt.Errorf("holiday %s: %w", fw.Name, err)
			}
			w.Rule = r
		}
		windows = append(windows, w)
	}
	return New(windows, opts...), nil
}

func dates(ss ...string) map[int]time.Time {
	out := make(map[int]time.Time, len(ss))
	for _, s := range ss {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			panic(err)
		}
		out[d.Year()] = d
	}
	return out
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func absDays(d time.Duration) int {
	days := int(d.Round(time.Hour) / (24 * time.Hour))
	if days < 0 {
		return -days
	}
	return days
}
