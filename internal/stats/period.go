package stats

import (
    "errors"
    "fmt"
    "time"
)

type Period string

const (
    PeriodAll       Period = "all"
    PeriodToday     Period = "today"
    PeriodThisMonth Period = "this_month"
    PeriodLast7Days Period = "last_7_days"
)

var ErrInvalidPeriod = errors.New("invalid period")

func ParsePeriod(s string) (Period, error) {
    switch Period(s) {
    case "":
        return PeriodAll, nil
    case PeriodAll, PeriodToday, PeriodThisMonth, PeriodLast7Days:
        return Period(s), nil
    }
    return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// Window returns [since, until) for the period in now's location. PeriodAll
// has a zero since.
func (p Period) Window(now time.Time) (since, until time.Time) {
    today := startOfDay(now)
    until = today.AddDate(0, 0, 1)
    switch p {
    case PeriodToday:
        return today, until
    case PeriodThisMonth:
        return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), until
    case PeriodLast7Days:
        return today.AddDate(0, 0, -6), until
    }
    return time.Time{}, until
}

func startOfDay(t time.Time) time.Time {
    return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
