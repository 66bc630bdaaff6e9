package chart

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/stock-track/internal/render"
)

// Capability names one engine module the manager activates during
// Initialize. Required modules abort initialization when they fail to
// load; optional ones degrade to a logged warning.
type Capability struct {
	Name     string
	Required bool
}

// DefaultCapabilities is the deterministic activation list: the core
// chart module first, then the optional feature modules in a fixed order.
var DefaultCapabilities = []Capability{
	{Name: render.ModuleCore, Required: true},
	{Name: render.ModuleIndicators, Required: false},
	{Name: render.ModuleRangeSelector, Required: false},
	{Name: render.ModuleExportData, Required: false},
}

// activateCapabilities tries each capability in order. A required failure
// returns RenderInitError immediately. If every module fails, the engine
// is unusable and initialization fails even when all were optional.
func activateCapabilities(engine render.Engine, caps []Capability, log *logrus.Entry) error {
	activated := 0

	for _, c := range caps {
		err := engine.Activate(c.Name)
		if err == nil {
			activated++
			continue
		}

		if c.Required {
			return &RenderInitError{Module: c.Name, Err: err}
		}

		log.WithError(err).WithField("module", c.Name).Warn("Optional engine module unavailable")
	}

	if len(caps) > 0 && activated == 0 {
		return &RenderInitError{Err: errAllModulesFailed}
	}

	return nil
}

var errAllModulesFailed = errors.New("no engine capability module could be activated")
