package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/stock-track/internal/cache"
	"github.com/stock-track/internal/database"
	"github.com/stock-track/internal/market"
	"github.com/stock-track/internal/messaging"
	"github.com/stock-track/internal/session"
	"github.com/stock-track/internal/stream"
	"github.com/stock-track/internal/symbols"
	"github.com/stock-track/pkg/config"
)

// Server is the HTTP API: chart session lifecycle, chart data, the
// symbol catalog and the WebSocket attach point
type Server struct {
	cfg        *config.Config
	logger     *logrus.Logger
	router     *mux.Router
	httpServer *http.Server

	influxDB   *database.InfluxClient
	mysqlDB    *database.MySQLClient
	redisCache *cache.RedisClient
	natsClient *messaging.NATSClient
	marketSvc  *market.Service
	symbolMgr  *symbols.Manager
	sessions   *session.Registry
	hub        *stream.Hub
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	logger *logrus.Logger,
	influxDB *database.InfluxClient,
	mysqlDB *database.MySQLClient,
	redisCache *cache.RedisClient,
	natsClient *messaging.NATSClient,
	marketSvc *market.Service,
	symbolMgr *symbols.Manager,
	sessions *session.Registry,
	hub *stream.Hub,
) *Server {
	s := &Server{
		cfg:        cfg,
		logger:     logger,
		influxDB:   influxDB,
		mysqlDB:    mysqlDB,
		redisCache: redisCache,
		natsClient: natsClient,
		marketSvc:  marketSvc,
		symbolMgr:  symbolMgr,
		sessions:   sessions,
		hub:        hub,
	}

	s.setupRoutes()

	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	if s.cfg.Security.CORSEnabled {
		s.router.Use(s.corsMiddleware)
	}

	apiV1 := s.router.PathPrefix("/api/v1").Subrouter()

	apiV1.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Chart sessions
	apiV1.HandleFunc("/charts", s.handleCreateChart).Methods("POST")
	apiV1.HandleFunc("/charts/{id}", s.handleGetChart).Methods("GET")
	apiV1.HandleFunc("/charts/{id}", s.handleUpdateChart).Methods("PATCH")
	apiV1.HandleFunc("/charts/{id}", s.handleDeleteChart).Methods("DELETE")
	apiV1.HandleFunc("/charts/{id}/indicators", s.handleAddIndicator).Methods("POST")
	apiV1.HandleFunc("/charts/{id}/indicators/{indicatorID}", s.handleRemoveIndicator).Methods("DELETE")

	// Chart stream attach
	apiV1.HandleFunc("/ws", s.handleWebSocket).Methods("GET")

	// Stock data
	apiV1.HandleFunc("/stocks/{symbol}/chart", s.handleGetChartData).Methods("GET")
	apiV1.HandleFunc("/stocks/{symbol}/quote", s.handleGetQuote).Methods("GET")
	apiV1.HandleFunc("/stocks/{symbol}/sync", s.handleGetSyncStatus).Methods("GET")

	// Symbol catalog
	apiV1.HandleFunc("/symbols", s.handleGetSymbols).Methods("GET")
	apiV1.HandleFunc("/symbols/{symbol}", s.handleGetSymbol).Methods("GET")

	// Indicator catalog
	apiV1.HandleFunc("/indicators", s.handleGetIndicators).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.WithField("address", addr).Info("Starting HTTP server")

	err := s.httpServer.ListenAndServe()
	if err != nil && strings.Contains(err.Error(), "address already in use") {
		return fmt.Errorf("port %d is already in use", s.cfg.Server.Port)
	}
	return err
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Middleware

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"duration": time.Since(start),
			"remote":   r.RemoteAddr,
		}).Info("HTTP request")
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.WithFields(logrus.Fields{
					"error": err,
					"path":  r.URL.Path,
				}).Error("Panic recovered")

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(s.cfg.Security.CORSOrigins),
		handlers.AllowedMethods(s.cfg.Security.CORSMethods),
		handlers.AllowedHeaders(s.cfg.Security.CORSHeaders),
		handlers.AllowCredentials(),
	)(next)
}

// handleHealth reports component health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "healthy",
		"services": map[string]bool{
			"mysql":  s.mysqlDB != nil,
			"influx": s.influxDB != nil,
			"redis":  s.redisCache != nil,
			"nats":   s.natsClient != nil && s.natsClient.IsConnected(),
		},
		"chart_sessions": s.sessions.Count(),
		"stream_clients": s.hub.ClientCount(),
		"timestamp":      time.Now().Unix(),
	}

	writeJSON(w, http.StatusOK, health)
}

// handleWebSocket attaches a browser to a chart session's frame stream
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	chartID := r.URL.Query().Get("chart")
	if chartID == "" {
		http.Error(w, "chart query parameter required", http.StatusBadRequest)
		return
	}

	if _, ok := s.sessions.Get(chartID); !ok {
		http.Error(w, "chart session not found", http.StatusNotFound)
		return
	}

	s.hub.HandleWebSocket(w, r, chartID)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack supports WebSocket upgrades through the logging wrapper
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("ResponseWriter does not implement http.Hijacker")
}
