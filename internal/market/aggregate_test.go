package market

import (
	"testing"
	"time"

	"github.com/stock-track/pkg/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregateWeekly(t *testing.T) {
	// Mon Jan 6 - Wed Jan 8, then Mon Jan 13 of 2025
	daily := []models.Bar{
		{Symbol: "AAPL", Timestamp: day(2025, 1, 6), Open: 10, High: 12, Low: 9, Close: 11, Volume: 100},
		{Symbol: "AAPL", Timestamp: day(2025, 1, 7), Open: 11, High: 15, Low: 10, Close: 14, Volume: 200},
		{Symbol: "AAPL", Timestamp: day(2025, 1, 8), Open: 14, High: 14.5, Low: 8, Close: 9, Volume: 300},
		{Symbol: "AAPL", Timestamp: day(2025, 1, 13), Open: 9, High: 10, Low: 8.5, Close: 9.5, Volume: 50},
	}

	weekly := AggregateWeekly(daily)

	if len(weekly) != 2 {
		t.Fatalf("weeks = %d, want 2", len(weekly))
	}

	first := weekly[0]
	if !first.Timestamp.Equal(day(2025, 1, 6)) {
		t.Errorf("week start = %v, want Monday Jan 6", first.Timestamp)
	}
	if first.Open != 10 || first.Close != 9 {
		t.Errorf("open/close = %v/%v, want 10/9", first.Open, first.Close)
	}
	if first.High != 15 || first.Low != 8 {
		t.Errorf("high/low = %v/%v, want 15/8", first.High, first.Low)
	}
	if first.Volume != 600 {
		t.Errorf("volume = %v, want 600", first.Volume)
	}

	if !weekly[1].Timestamp.Equal(day(2025, 1, 13)) {
		t.Errorf("second week start = %v, want Monday Jan 13", weekly[1].Timestamp)
	}
}

func TestAggregateWeekly_SundayBelongsToPriorMonday(t *testing.T) {
	daily := []models.Bar{
		{Timestamp: day(2025, 1, 10), Close: 1}, // Friday
		{Timestamp: day(2025, 1, 12), Close: 2}, // Sunday
	}

	weekly := AggregateWeekly(daily)

	if len(weekly) != 1 {
		t.Fatalf("weeks = %d, want 1", len(weekly))
	}
	if !weekly[0].Timestamp.Equal(day(2025, 1, 6)) {
		t.Errorf("week start = %v, want Monday Jan 6", weekly[0].Timestamp)
	}
}

func TestAggregateWeekly_Empty(t *testing.T) {
	if got := AggregateWeekly(nil); got != nil {
		t.Errorf("AggregateWeekly(nil) = %v, want nil", got)
	}
}

func TestPeriodRange(t *testing.T) {
	now := day(2025, 6, 15)

	from, to, err := PeriodRange("6m", now)
	if err != nil {
		t.Fatalf("PeriodRange() error = %v", err)
	}
	if !to.Equal(now) {
		t.Errorf("to = %v, want %v", to, now)
	}
	if !from.Before(now.AddDate(0, 0, -180)) {
		t.Errorf("from = %v, want at least 180 days back", from)
	}

	if _, _, err := PeriodRange("7q", now); err == nil {
		t.Error("PeriodRange(7q) error = nil, want error")
	}
}
