package models

import "time"

// Sync states for historical bar backfill
const (
	SyncPending   = "pending"
	SyncRunning   = "syncing"
	SyncCompleted = "completed"
	SyncFailed    = "failed"
)

// SyncStatus represents the backfill progress of one symbol
type SyncStatus struct {
	Symbol    string    `json:"symbol"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"` // 0-100 percentage
	TotalBars int       `json:"total_bars"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
