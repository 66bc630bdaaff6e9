package market

import (
	"fmt"
	"time"
)

// periodDays maps a chart period label to its lookback in days. "max" is
// capped at thirty years, which predates every bucket we retain.
var periodDays = map[string]int{
	"1m":  31,
	"3m":  93,
	"6m":  186,
	"1y":  366,
	"2y":  731,
	"5y":  1827,
	"max": 365 * 30,
}

// Periods returns the supported period labels in display order
func Periods() []string {
	return []string{"1m", "3m", "6m", "1y", "2y", "5y", "max"}
}

// PeriodRange resolves a period label into an absolute [from, to) range
// ending now
func PeriodRange(period string, now time.Time) (from, to time.Time, err error) {
	days, ok := periodDays[period]
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("unsupported period %q", period)
	}

	to = now
	from = now.AddDate(0, 0, -days)
	return from, to, nil
}
