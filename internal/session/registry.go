package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stock-track/internal/cache"
	"github.com/stock-track/internal/chart"
	"github.com/stock-track/internal/messaging"
	"github.com/stock-track/internal/render"
	"github.com/stock-track/pkg/config"
	"github.com/stock-track/pkg/models"
)

// Session is one live chart: a manager bound to a streaming engine,
// addressed by id from the HTTP API and the WebSocket attach.
type Session struct {
	ID        string
	Manager   *chart.Manager
	CreatedAt time.Time

	mu         sync.Mutex
	lastAccess time.Time
}

// Touch marks the session as recently used
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastAccess = time.Now()
	s.mu.Unlock()
}

// LastAccess returns the last use time
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// Registry owns every live chart session: creation, lookup, idle expiry
// and the live-bar fan-in from NATS
type Registry struct {
	cfg      *config.ChartConfig
	provider chart.DataProvider
	redis    *cache.RedisClient
	nats     *messaging.NATSClient
	logger   *logrus.Entry

	sessions   map[string]*Session
	sessionsMu sync.RWMutex

	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewRegistry creates a chart session registry
func NewRegistry(
	cfg *config.ChartConfig,
	provider chart.DataProvider,
	redis *cache.RedisClient,
	nats *messaging.NATSClient,
	logger *logrus.Logger,
) *Registry {
	return &Registry{
		cfg:      cfg,
		provider: provider,
		redis:    redis,
		nats:     nats,
		logger:   logger.WithField("component", "session-registry"),
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
}

// Start subscribes to live bar updates and begins the idle sweeper
func (r *Registry) Start(ctx context.Context) error {
	if r.running {
		return fmt.Errorf("session registry already running")
	}

	if r.nats != nil {
		if err := r.nats.SubscribeBars(r.handleBar); err != nil {
			return fmt.Errorf("failed to subscribe to bar updates: %w", err)
		}
	}

	r.running = true

	r.wg.Add(1)
	go r.sweepIdle(ctx)

	r.logger.Info("Session registry started")
	return nil
}

// Stop disposes every session and stops the sweeper
func (r *Registry) Stop() error {
	if !r.running {
		return nil
	}

	close(r.done)
	r.running = false
	r.wg.Wait()

	r.sessionsMu.Lock()
	for id, session := range r.sessions {
		session.Manager.Dispose()
		delete(r.sessions, id)
	}
	r.sessionsMu.Unlock()

	r.logger.Info("Session registry stopped")
	return nil
}

// Create initializes a new chart session. Empty config fields fall back
// to the configured defaults. The initial series load happens here so
// the first frame a client sees is a full chart.
func (r *Registry) Create(ctx context.Context, cfg chart.Config) (*Session, error) {
	r.sessionsMu.RLock()
	count := len(r.sessions)
	r.sessionsMu.RUnlock()
	if count >= r.cfg.MaxSessions {
		return nil, fmt.Errorf("session limit reached (%d)", r.cfg.MaxSessions)
	}

	if cfg.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if cfg.Period == "" {
		cfg.Period = r.cfg.DefaultPeriod
	}
	if cfg.View == "" {
		cfg.View = chart.ViewDaily
	}
	if cfg.ChartType == "" {
		cfg.ChartType = r.cfg.DefaultType
	}
	if cfg.Theme == "" {
		cfg.Theme = r.cfg.DefaultTheme
	}
	if cfg.Indicators == nil {
		cfg.Indicators = r.cfg.DefaultIndicators
	}

	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	factory, err := render.Default()
	if err != nil {
		return nil, err
	}

	manager := chart.NewManager(r.provider, r.logger.Logger)
	if err := manager.Initialize(factory(id), cfg); err != nil {
		return nil, err
	}

	if err := manager.LoadData(ctx, cfg.Symbol, cfg.Period, cfg.View); err != nil {
		manager.Dispose()
		return nil, err
	}

	session := &Session{
		ID:         id,
		Manager:    manager,
		CreatedAt:  time.Now(),
		lastAccess: time.Now(),
	}

	r.sessionsMu.Lock()
	r.sessions[id] = session
	r.sessionsMu.Unlock()

	r.persist(ctx, session)

	r.logger.WithFields(logrus.Fields{
		"session": id,
		"symbol":  cfg.Symbol,
	}).Info("Chart session created")

	return session, nil
}

// Get returns a session by id and refreshes its idle timer
func (r *Registry) Get(id string) (*Session, bool) {
	r.sessionsMu.RLock()
	session, ok := r.sessions[id]
	r.sessionsMu.RUnlock()

	if ok {
		session.Touch()
	}
	return session, ok
}

// Destroy disposes a session and forgets it. Unknown ids are a no-op.
func (r *Registry) Destroy(ctx context.Context, id string) {
	r.sessionsMu.Lock()
	session, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.sessionsMu.Unlock()

	if !ok {
		return
	}

	session.Manager.Dispose()
	if r.redis != nil {
		if err := r.redis.DeleteSession(ctx, id); err != nil {
			r.logger.WithError(err).WithField("session", id).Warn("Failed to delete persisted session")
		}
	}

	r.logger.WithField("session", id).Info("Chart session destroyed")
}

// Persist saves the session's current configuration after a mutation
func (r *Registry) Persist(ctx context.Context, session *Session) {
	r.persist(ctx, session)
}

func (r *Registry) persist(ctx context.Context, session *Session) {
	if r.redis == nil {
		return
	}
	if err := r.redis.SetSessionConfig(ctx, session.ID, session.Manager.Config(), r.cfg.SessionIdleTTL); err != nil {
		r.logger.WithError(err).WithField("session", session.ID).Warn("Failed to persist session config")
	}
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.sessionsMu.RLock()
	defer r.sessionsMu.RUnlock()
	return len(r.sessions)
}

// handleBar fans a live bar update into every session; each manager
// drops bars for symbols it is not showing
func (r *Registry) handleBar(bar *models.Bar) {
	r.sessionsMu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.sessionsMu.RUnlock()

	for _, session := range sessions {
		session.Manager.ApplyBar(bar)
	}
}

// sweepIdle disposes sessions that have been untouched past the idle TTL
func (r *Registry) sweepIdle(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-r.cfg.SessionIdleTTL)

			r.sessionsMu.RLock()
			var expired []string
			for id, session := range r.sessions {
				if session.LastAccess().Before(cutoff) {
					expired = append(expired, id)
				}
			}
			r.sessionsMu.RUnlock()

			for _, id := range expired {
				r.logger.WithField("session", id).Info("Expiring idle chart session")
				r.Destroy(ctx, id)
			}
		}
	}
}

func newSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
