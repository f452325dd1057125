package summary

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Period identifiers: "2026-W07" (ISO week), "2026-02", "2026".

const (
	Weekly  = "weekly"
	Monthly = "monthly"
	Yearly  = "yearly"
)

// WeekID returns the ISO week identifier for a date.
func WeekID(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func MonthID(t time.Time) string { return t.Format("2006-01") }
func YearID(t time.Time) string { return t.Format("2006") }

func PrevWeekID(t time.Time) string { return WeekID(t.AddDate(0, 0, -7)) }
func PrevMonthID(t time.Time) string {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return MonthID(first.AddDate(0, 0, -1))
}
func PrevYearID(t time.Time) string { return strconv.Itoa(t.Year() - 1) }

func IsWeekBoundary(t time.Time) bool { return t.Weekday() == time.Monday }
func IsMonthBoundary(t time.Time) bool { return t.Day() == 1 }
func IsYearBoundary(t time.Time) bool { return t.Month() == time.January && t.Day() == 1 }

// WeekRange returns the Monday..Sunday dates of an ISO week id. ISO week 1
// is the week containing January 4th.
func WeekRange(weekID string) (start, end time.Time, err error) {
	parts := strings.SplitN(weekID, "-W", 2)
	if len(parts) != 2 {
		return start, end, fmt.Errorf("bad week id %q", weekID)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return start, end, fmt.Errorf("bad week id %q", weekID)
	}
	week, err := strconv.Atoi(parts[1])
	if err != nil || week < 1 || week > 53 {
		return start, end, fmt.Errorf("bad week id %q", weekID)
	}

	jan4 := time.Date(year, 1, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday()+6) % 7 // Monday=0
	week1Monday := jan4.AddDate(0, 0, -weekday)
	start = week1Monday.AddDate(0, 0, (week-1)*7)
	return start, start.AddDate(0, 0, 6), nil
}

// MonthRange returns the first and last day of a month id.
func MonthRange(monthID string) (start, end time.Time, err error) {
	start, err = time.Parse("2006-01", monthID)
	if err != nil {
		return start, end, fmt.Errorf("bad month id %q", monthID)
	}
	return start, start.AddDate(0, 1, -1), nil
}

// WeeksInMonth lists the ISO weeks overlapping a month, sorted. A week that
// straddles a month boundary appears in both months.
func WeeksInMonth(monthID string) ([]string, error) {
	start, end, err := MonthRange(monthID)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		id := WeekID(d)
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// MonthsInYear lists the twelve month ids of a year.
func MonthsInYear(yearID string) []string {
	out := make([]string, 0, 12)
	for m := 1; m <= 12; m++ {
		out = append(out, fmt.Sprintf("%s-%02d", yearID, m))
	}
	return out
}
