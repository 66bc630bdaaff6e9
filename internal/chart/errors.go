package chart

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInitialized is returned when Initialize is called on a
	// manager that already holds a live instance.
	ErrAlreadyInitialized = errors.New("chart already initialized")

	// ErrNotReady is returned when an operation needs a live instance
	// and the manager never had one.
	ErrNotReady = errors.New("chart not initialized")

	// ErrUnknownIndicator is returned for indicator ids missing from
	// the registry.
	ErrUnknownIndicator = errors.New("unknown indicator")
)

// RenderInitError reports that the rendering engine or one of its required
// capability modules failed to load. Non-fatal: the manager degrades to a
// chart-absent state and the host keeps running.
type RenderInitError struct {
	Module string
	Err    error
}

func (e *RenderInitError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("render init failed: module %s: %v", e.Module, e.Err)
	}
	return fmt.Sprintf("render init failed: %v", e.Err)
}

func (e *RenderInitError) Unwrap() error { return e.Err }

// DataFetchError reports a failed series fetch. The previous chart state
// stays visible; callers should surface a notice rather than tear down.
type DataFetchError struct {
	Symbol string
	Period string
	Err    error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("chart data fetch failed for %s (%s): %v", e.Symbol, e.Period, e.Err)
}

func (e *DataFetchError) Unwrap() error { return e.Err }
