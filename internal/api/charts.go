package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stock-track/internal/chart"
	"github.com/stock-track/internal/session"
)

// chartResponse is the wire shape of one chart session
type chartResponse struct {
	ID     string       `json:"id"`
	State  string       `json:"state"`
	Config chart.Config `json:"config"`
	Layout chart.Layout `json:"layout"`
	Slots  []chart.Slot `json:"slots"`
}

func chartResponseFor(s *session.Session) chartResponse {
	return chartResponse{
		ID:     s.ID,
		State:  s.Manager.State().String(),
		Config: s.Manager.Config(),
		Layout: s.Manager.Layout(),
		Slots:  s.Manager.Slots(),
	}
}

// handleCreateChart creates a chart session and performs the initial load
func (s *Server) handleCreateChart(w http.ResponseWriter, r *http.Request) {
	var cfg chart.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if cfg.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if !s.symbolMgr.IsActive(cfg.Symbol) {
		writeError(w, http.StatusNotFound, "unknown symbol")
		return
	}

	sess, err := s.sessions.Create(r.Context(), cfg)
	if err != nil {
		var initErr *chart.RenderInitError
		var fetchErr *chart.DataFetchError
		switch {
		case errors.As(err, &initErr):
			s.logger.WithError(err).Error("Chart session degraded at creation")
			writeError(w, http.StatusServiceUnavailable, "chart rendering unavailable")
		case errors.As(err, &fetchErr):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, chartResponseFor(sess))
}

// handleGetChart returns the current state of a chart session
func (s *Server) handleGetChart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "chart session not found")
		return
	}

	writeJSON(w, http.StatusOK, chartResponseFor(sess))
}

// handleUpdateChart changes symbol/period/view (a data reload) or chart
// type and theme (in-place restyles)
func (s *Server) handleUpdateChart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "chart session not found")
		return
	}

	var req struct {
		Symbol    string `json:"symbol"`
		Period    string `json:"period"`
		View      string `json:"view"`
		ChartType string `json:"chart_type"`
		Theme     string `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Symbol != "" && !s.symbolMgr.IsActive(req.Symbol) {
		writeError(w, http.StatusNotFound, "unknown symbol")
		return
	}

	if req.ChartType != "" {
		if err := sess.Manager.SetChartType(req.ChartType); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
	}
	if req.Theme != "" {
		if err := sess.Manager.SetTheme(req.Theme); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
	}

	if req.Symbol != "" || req.Period != "" || req.View != "" {
		current := sess.Manager.Config()
		symbol := current.Symbol
		period := current.Period
		view := current.View
		if req.Symbol != "" {
			symbol = req.Symbol
		}
		if req.Period != "" {
			period = req.Period
		}
		if req.View != "" {
			view = chart.ViewType(req.View)
		}

		if err := sess.Manager.LoadData(r.Context(), symbol, period, view); err != nil {
			var fetchErr *chart.DataFetchError
			if errors.As(err, &fetchErr) {
				// Previous chart state is still live; report the failure
				writeError(w, http.StatusBadGateway, err.Error())
				return
			}
			writeError(w, http.StatusConflict, err.Error())
			return
		}
	}

	s.sessions.Persist(r.Context(), sess)
	writeJSON(w, http.StatusOK, chartResponseFor(sess))
}

// handleDeleteChart disposes a chart session
func (s *Server) handleDeleteChart(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.sessions.Destroy(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// handleAddIndicator toggles an indicator on
func (s *Server) handleAddIndicator(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "chart session not found")
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "indicator id is required")
		return
	}

	if err := sess.Manager.AddIndicator(req.ID); err != nil {
		if errors.Is(err, chart.ErrUnknownIndicator) {
			writeError(w, http.StatusBadRequest, "unknown indicator "+req.ID)
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	s.sessions.Persist(r.Context(), sess)
	writeJSON(w, http.StatusOK, chartResponseFor(sess))
}

// handleRemoveIndicator toggles an indicator off. Removing an indicator
// that is not active succeeds and changes nothing.
func (s *Server) handleRemoveIndicator(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sess, ok := s.sessions.Get(vars["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "chart session not found")
		return
	}

	if err := sess.Manager.RemoveIndicator(vars["indicatorID"]); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	s.sessions.Persist(r.Context(), sess)
	writeJSON(w, http.StatusOK, chartResponseFor(sess))
}
