package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/stock-track/internal/chart"
	"github.com/stock-track/internal/indicator"
)

// handleGetChartData serves a chart payload without a session: bars plus
// indicator series for the requested period and view
func (s *Server) handleGetChartData(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if !s.symbolMgr.IsActive(symbol) {
		writeError(w, http.StatusNotFound, "unknown symbol")
		return
	}

	query := r.URL.Query()
	period := query.Get("period")
	if period == "" {
		period = s.cfg.Chart.DefaultPeriod
	}
	view := chart.ViewDaily
	if query.Get("view") != "" {
		view = chart.ViewType(query.Get("view"))
	}

	var indicators []string
	if raw := query.Get("indicators"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id == "" || id == chart.VolumeID {
				continue
			}
			if _, ok := indicator.Lookup(id); !ok {
				writeError(w, http.StatusBadRequest, "unknown indicator "+id)
				return
			}
			indicators = append(indicators, id)
		}
	}

	data, err := s.marketSvc.ChartData(r.Context(), symbol, period, view, indicators)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, data)
}

// handleGetQuote serves the latest quote for a symbol
func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if !s.symbolMgr.IsActive(symbol) {
		writeError(w, http.StatusNotFound, "unknown symbol")
		return
	}

	quote, err := s.marketSvc.Quote(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// handleGetSyncStatus reports backfill progress for a symbol
func (s *Server) handleGetSyncStatus(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	status, err := s.mysqlDB.GetSyncStatus(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if status == nil {
		writeError(w, http.StatusNotFound, "no sync status for "+symbol)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleGetSymbols lists the tracked symbol catalog; ?q= filters by
// ticker or company name
func (s *Server) handleGetSymbols(w http.ResponseWriter, r *http.Request) {
	if err := s.symbolMgr.RefreshIfNeeded(r.Context()); err != nil {
		s.logger.WithError(err).Warn("Symbol catalog refresh failed")
	}

	if query := r.URL.Query().Get("q"); query != "" {
		writeJSON(w, http.StatusOK, s.symbolMgr.SearchSymbols(query))
		return
	}

	writeJSON(w, http.StatusOK, s.symbolMgr.GetActiveSymbolsInfo())
}

// handleGetSymbol returns catalog info for one ticker
func (s *Server) handleGetSymbol(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["symbol"]

	info, ok := s.symbolMgr.GetSymbol(ticker)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown symbol")
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// handleGetIndicators lists every indicator the chart can draw
func (s *Server) handleGetIndicators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, indicator.All())
}
