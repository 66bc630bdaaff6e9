package market

import (
	"time"

	"github.com/stock-track/pkg/models"
)

// AggregateWeekly rolls daily bars up into weekly bars. Bars must be
// sorted oldest first. Each output bar is stamped with the Monday of its
// ISO week: open from the first session, close from the last, high/low
// across the week, volume summed.
func AggregateWeekly(daily []models.Bar) []models.Bar {
	if len(daily) == 0 {
		return nil
	}

	var weekly []models.Bar
	var current *models.Bar
	var currentWeek time.Time

	for _, bar := range daily {
		week := weekStart(bar.Timestamp)

		if current == nil || !week.Equal(currentWeek) {
			if current != nil {
				weekly = append(weekly, *current)
			}
			currentWeek = week
			current = &models.Bar{
				Symbol:    bar.Symbol,
				Timestamp: week,
				Open:      bar.Open,
				High:      bar.High,
				Low:       bar.Low,
				Close:     bar.Close,
				Volume:    bar.Volume,
			}
			continue
		}

		if bar.High > current.High {
			current.High = bar.High
		}
		if bar.Low < current.Low {
			current.Low = bar.Low
		}
		current.Close = bar.Close
		current.Volume += bar.Volume
	}

	if current != nil {
		weekly = append(weekly, *current)
	}

	return weekly
}

// weekStart truncates a timestamp to the Monday of its week, UTC midnight
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	day := t.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}
