package render

import (
	"fmt"
	"sync"
)

// Factory builds an engine for a chart session
type Factory func(sessionID string) Engine

// The process-wide default factory stands in for the lazily loaded
// charting library handle the frontend keeps on a global. It is set once
// at startup; ResetDefault exists so tests can swap it out.
var (
	defaultMu      sync.Mutex
	defaultFactory Factory
)

// InitDefault installs the process-wide engine factory. Calling it twice
// is an error: the handle has init-once semantics.
func InitDefault(f Factory) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultFactory != nil {
		return fmt.Errorf("default engine factory already initialized")
	}
	defaultFactory = f
	return nil
}

// Default returns the installed factory
func Default() (Factory, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultFactory == nil {
		return nil, fmt.Errorf("default engine factory not initialized")
	}
	return defaultFactory, nil
}

// ResetDefault clears the installed factory. Test hook.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultFactory = nil
}
