package calendar

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func flagOf(t *testing.T, c *Calendar, at time.Time, name string) bool {
	t.Helper()
	for _, f := range c.Flags(at) {
		if f.Holiday == name {
			return f.InWindow
		}
	}
	t.Fatalf("holiday %q not in calendar", name)
	return false
}

func TestFlags_SevenDaysInsideEightDaysOutside(t *testing.T) {
	c := Default()
	ref := day("2018-11-23")

	assert.True(t, flagOf(t, c, ref.AddDate(0, 0, -7).Add(15*time.Hour), "Black Friday"))
	assert.False(t, flagOf(t, c, ref.AddDate(0, 0, -8), "Black Friday"))
	assert.True(t, flagOf(t, c, ref.AddDate(0, 0, 7), "Black Friday"))
	assert.False(t, flagOf(t, c, ref.AddDate(0, 0, 8), "Black Friday"))
}

func TestFlags_WindowsAreIndependent(t *testing.T) {
	c := Default()
	// 2018-12-01 is 8 days after Black Friday and 24 days before Christmas.
	flags := c.Flags(day("2018-12-01"))
	require.Len(t, flags, 6)
	for _, f := range flags {
		assert.False(t, f.InWindow, f.Holiday)
	}

	wide := Default(WithWindowDays(30))
	assert.True(t, flagOf(t, wide, day("2018-12-01"), "Black Friday"))
	assert.True(t, flagOf(t, wide, day("2018-12-01"), "Christmas"))

	widened := c.WithDays(8)
	assert.Equal(t, 8, widened.WindowDays())
	assert.Equal(t, 7, c.WindowDays())
	assert.True(t, flagOf(t, widened, day("2018-12-01"), "Black Friday"))
}

func TestFlags_UsesReferenceDateOfSameYear(t *testing.T) {
	c := Default()
	// Christmas 2017 is 7 days before 2018-01-01 but only the 2018 date counts.
	assert.False(t, flagOf(t, c, day("2018-01-01"), "Christmas"))
}

func TestFlags_StaticTableWinsOverRules(t *testing.T) {
	c := Default()
	// The table says Carnival 2017 was observed on 02-27; the Easter rule gives 02-28.
	d, ok := c.ReferenceDate(5, 2017)
	require.True(t, ok)
	assert.Equal(t, day("2017-02-27"), d)
}

func TestFlags_MissingYearWithoutRules(t *testing.T) {
	c := Default(WithRules(false))
	_, ok := c.ReferenceDate(0, 2019)
	assert.False(t, ok)
	assert.False(t, flagOf(t, c, day("2019-11-29"), "Black Friday"))

	withRules := Default()
	assert.True(t, flagOf(t, withRules, day("2019-11-29"), "Black Friday"))
}

func TestRules(t *testing.T) {
	cases := []struct {
		name string
		rule Rule
		year int
		want string
	}{
		{"black friday", DayAfterNthWeekday{Month: time.November, Weekday: time.Thursday, N: 4}, 2018, "2018-11-23"},
		{"black friday 2019", DayAfterNthWeekday{Month: time.November, Weekday: time.Thursday, N: 4}, 2019, "2019-11-29"},
		{"mothers day", NthWeekday{Month: time.May, Weekday: time.Sunday, N: 2}, 2019, "2019-05-12"},
		{"fathers day", NthWeekday{Month: time.August, Weekday: time.Sunday, N: 2}, 2019, "2019-08-11"},
		{"carnival", EasterOffset{Days: -47}, 2018, "2018-02-13"},
		{"easter", EasterOffset{}, 2019, "2019-04-21"},
		{"christmas", Fixed{Month: time.December, Day: 25}, 2030, "2030-12-25"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, day(tc.want), tc.rule.Date(tc.year))
		})
	}
}

func TestLoad(t *testing.T) {
	doc := `
holidays:
  - name: Dia do Cliente
    dates: ["2018-09-15"]
    rule: {kind: fixed, month: 9, day: 15}
  - name: Cyber Monday
    rule: {kind: day_after_nth_weekday, month: 11, weekday: 0, n: 4}
`
	path := filepath.Join(t.TempDir(), "holidays.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := Load(path, WithWindowDays(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"Dia do Cliente", "Cyber Monday"}, c.Names())
	assert.Equal(t, 3, c.WindowDays())
	assert.True(t, flagOf(t, c, day("2019-09-12"), "Dia do Cliente"))
	// Fourth Sunday of November 2018 is the 25th; the rule names the following Monday.
	assert.True(t, flagOf(t, c, day("2018-11-26"), "Cyber Monday"))
}

func TestLoad_Rejects(t *testing.T) {
	for name, doc := range map[string]string{
		"duplicate name": "holidays:\n  - name: A\n  - name: A\n",
		"bad date":       "holidays:\n  - name: A\n    dates: [\"2018-13-01\"]\n",
		"two per year":   "holidays:\n  - name: A\n    dates: [\"2018-01-01\", \"2018-02-01\"]\n",
		"bad rule":       "holidays:\n  - name: A\n    rule: {kind: lunar}\n",
		"bad month":      "holidays:\n  - name: A\n    rule: {kind: fixed, month: 0, day: 1}\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "h.yaml")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	got := Default().Resolve([]int{2018, 2017})
	assert.Equal(t, []time.Time{day("2017-12-25"), day("2018-12-25")}, got["Christmas"])
}
