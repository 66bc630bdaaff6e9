package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/stock-track/pkg/config"
	"github.com/stock-track/pkg/models"
)

// RedisClient handles Redis caching operations
type RedisClient struct {
	client   *redis.Client
	logger   *logrus.Entry
	chartTTL time.Duration
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig, logger *logrus.Logger) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
		MaxRetries:   2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisClient{
		client:   client,
		logger:   logger.WithField("component", "redis"),
		chartTTL: cfg.ChartTTL,
	}, nil
}

// Close closes the Redis connection
func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

// Health checks Redis health
func (rc *RedisClient) Health(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Chart data operations

// chartKey identifies one chart fetch. The indicator set is part of the
// key: the same symbol/period with a different indicator list is a
// different payload.
func chartKey(symbol, period, view string, indicators []string) string {
	if view == "" {
		view = "daily"
	}
	return fmt.Sprintf("chart:%s:%s:%s:%s", symbol, period, view, strings.Join(indicators, ","))
}

// SetChartData caches a chart payload
func (rc *RedisClient) SetChartData(ctx context.Context, view string, indicators []string, data *models.ChartData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal chart data: %w", err)
	}

	key := chartKey(data.Symbol, data.Period, view, indicators)
	return rc.client.Set(ctx, key, payload, rc.chartTTL).Err()
}

// GetChartData returns a cached chart payload, or nil on a miss
func (rc *RedisClient) GetChartData(ctx context.Context, symbol, period, view string, indicators []string) (*models.ChartData, error) {
	key := chartKey(symbol, period, view, indicators)

	data, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chart data: %w", err)
	}

	var chart models.ChartData
	if err := json.Unmarshal([]byte(data), &chart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chart data: %w", err)
	}

	return &chart, nil
}

// InvalidateSymbol drops every cached chart payload for a symbol. Called
// when fresh bars land so the next fetch recomputes.
func (rc *RedisClient) InvalidateSymbol(ctx context.Context, symbol string) error {
	return rc.deletePattern(ctx, fmt.Sprintf("chart:%s:*", symbol))
}

// Quote operations

// SetQuote caches the latest quote for a symbol
func (rc *RedisClient) SetQuote(ctx context.Context, quote *models.Quote) error {
	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	key := fmt.Sprintf("quote:%s", quote.Symbol)
	return rc.client.Set(ctx, key, data, rc.chartTTL).Err()
}

// GetQuote returns the cached quote for a symbol, or nil on a miss
func (rc *RedisClient) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	key := fmt.Sprintf("quote:%s", symbol)

	data, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	var quote models.Quote
	if err := json.Unmarshal([]byte(data), &quote); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote: %w", err)
	}

	return &quote, nil
}

// GetQuotes returns cached quotes for multiple symbols; misses are absent
// from the result
func (rc *RedisClient) GetQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error) {
	pipe := rc.client.Pipeline()

	cmds := make(map[string]*redis.StringCmd)
	for _, symbol := range symbols {
		cmds[symbol] = pipe.Get(ctx, fmt.Sprintf("quote:%s", symbol))
	}

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	results := make(map[string]*models.Quote)
	for symbol, cmd := range cmds {
		data, err := cmd.Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			rc.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to get quote")
			continue
		}

		var quote models.Quote
		if err := json.Unmarshal([]byte(data), &quote); err != nil {
			rc.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to unmarshal quote")
			continue
		}

		results[symbol] = &quote
	}

	return results, nil
}

// Session operations

// SetSessionConfig persists a chart session's configuration so the
// session survives an API restart
func (rc *RedisClient) SetSessionConfig(ctx context.Context, sessionID string, cfg interface{}, ttl time.Duration) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal session config: %w", err)
	}

	key := fmt.Sprintf("session:%s", sessionID)
	return rc.client.Set(ctx, key, data, ttl).Err()
}

// GetSessionConfig loads a persisted session configuration into dest.
// Returns false when the session is unknown or expired.
func (rc *RedisClient) GetSessionConfig(ctx context.Context, sessionID string, dest interface{}) (bool, error) {
	key := fmt.Sprintf("session:%s", sessionID)

	data, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get session config: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal session config: %w", err)
	}

	return true, nil
}

// DeleteSession removes a persisted session configuration
func (rc *RedisClient) DeleteSession(ctx context.Context, sessionID string) error {
	return rc.client.Del(ctx, fmt.Sprintf("session:%s", sessionID)).Err()
}

// deletePattern deletes all keys matching a pattern using SCAN
func (rc *RedisClient) deletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	var keys []string

	for {
		var err error
		var batch []string
		batch, cursor, err = rc.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	if len(keys) > 0 {
		return rc.client.Del(ctx, keys...).Err()
	}

	return nil
}
