package models

import (
	"time"
)

// SymbolInfo represents a tracked stock symbol
type SymbolInfo struct {
	ID        int       `json:"id" db:"id"`
	Exchange  string    `json:"exchange" db:"exchange"`
	Symbol    string    `json:"symbol" db:"symbol"`
	FullName  string    `json:"full_name" db:"full_name"`
	Sector    string    `json:"sector" db:"sector"`
	Currency  string    `json:"currency" db:"currency"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
