package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `env:", prefix=SERVER_"`
	MySQL      MySQLConfig      `env:", prefix=MYSQL_"`
	InfluxDB   InfluxConfig     `env:", prefix=INFLUXDB_"`
	Redis      RedisConfig      `env:", prefix=REDIS_"`
	NATS       NATSConfig       `env:", prefix=NATS_"`
	DataSource DataSourceConfig `env:", prefix=DATASOURCE_"`
	Chart      ChartConfig      `env:", prefix=CHART_"`
	Feed       FeedConfig       `env:", prefix=FEED_"`
	Security   SecurityConfig   `env:", prefix=SECURITY_"`
	WebSocket  WebSocketConfig  `env:", prefix=WEBSOCKET_"`
	Logging    LoggingConfig    `env:", prefix=LOG_"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `env:"HOST, default=0.0.0.0"`
	Port         int           `env:"PORT, default=8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT, default=120s"`
}

// MySQLConfig holds the symbol catalog database configuration
type MySQLConfig struct {
	Host            string        `env:"HOST, default=localhost"`
	Port            int           `env:"PORT, default=3306"`
	Database        string        `env:"DATABASE, default=stocktrack"`
	User            string        `env:"USER, default=stocktrack"`
	Password        string        `env:"PASSWORD, default=stocktrack123"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS, default=25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS, default=5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME, default=5m"`
}

// InfluxConfig holds the OHLCV time-series store configuration
type InfluxConfig struct {
	URL     string        `env:"URL, default=http://localhost:8086"`
	Token   string        `env:"TOKEN, default=stock-track-dev-token"`
	Org     string        `env:"ORG, default=stock-track"`
	Bucket  string        `env:"BUCKET, default=stocks"`
	Timeout time.Duration `env:"TIMEOUT, default=10s"`
}

// RedisConfig holds the cache configuration
type RedisConfig struct {
	Host         string        `env:"HOST, default=localhost"`
	Port         int           `env:"PORT, default=6379"`
	Password     string        `env:"PASSWORD"`
	DB           int           `env:"DB, default=0"`
	PoolSize     int           `env:"POOL_SIZE, default=10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS, default=5"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT, default=5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=3s"`
	ChartTTL     time.Duration `env:"CHART_TTL, default=5m"`
}

// NATSConfig holds messaging configuration
type NATSConfig struct {
	URL           string        `env:"URL, default=nats://localhost:4222"`
	MaxReconnect  int           `env:"MAX_RECONNECT, default=10"`
	ReconnectWait time.Duration `env:"RECONNECT_WAIT, default=2s"`
	DrainTimeout  time.Duration `env:"DRAIN_TIMEOUT, default=30s"`
}

// DataSourceConfig holds the upstream stock-data provider configuration.
// The feed updater and the remote chart-data client both talk to this
// endpoint; when it is unreachable the API keeps serving from local storage.
type DataSourceConfig struct {
	BaseURL string        `env:"BASE_URL, default=http://localhost:8090/api/v1/stocks"`
	APIKey  string        `env:"API_KEY"`
	Timeout time.Duration `env:"TIMEOUT, default=15s"`
}

// ChartConfig holds chart session defaults
type ChartConfig struct {
	DefaultType       string        `env:"DEFAULT_TYPE, default=candlestick"`
	DefaultTheme      string        `env:"DEFAULT_THEME, default=light"`
	DefaultPeriod     string        `env:"DEFAULT_PERIOD, default=1y"`
	DefaultIndicators []string      `env:"DEFAULT_INDICATORS, default=volume,sma20,sma50"`
	SessionIdleTTL    time.Duration `env:"SESSION_IDLE_TTL, default=30m"`
	MaxSessions       int           `env:"MAX_SESSIONS, default=500"`
}

// FeedConfig holds the live price feed configuration
type FeedConfig struct {
	Enabled        bool          `env:"ENABLED, default=true"`
	UpdateInterval time.Duration `env:"UPDATE_INTERVAL, default=1m"`
	BatchSize      int           `env:"BATCH_SIZE, default=20"`
}

// SecurityConfig holds CORS configuration
type SecurityConfig struct {
	CORSEnabled bool     `env:"CORS_ENABLED, default=true"`
	CORSOrigins []string `env:"CORS_ORIGINS, default=*"`
	CORSMethods []string `env:"CORS_METHODS, default=GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	CORSHeaders []string `env:"CORS_HEADERS, default=*"`
}

// WebSocketConfig holds chart stream configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `env:"READ_BUFFER_SIZE, default=1024"`
	WriteBufferSize int           `env:"WRITE_BUFFER_SIZE, default=4096"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT, default=10s"`
	PingInterval    time.Duration `env:"PING_INTERVAL, default=30s"`
	PongTimeout     time.Duration `env:"PONG_TIMEOUT, default=60s"`
	MaxClients      int           `env:"MAX_CLIENTS, default=1000"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `env:"LEVEL, default=info"`
	Format string `env:"FORMAT, default=json"`
	Output string `env:"OUTPUT, default=stdout"`
}

// Load loads configuration from environment variables using go-envconfig
func Load() (*Config, error) {
	ctx := context.Background()
	var cfg Config

	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.MySQL.Host == "" {
		return fmt.Errorf("MySQL host is required")
	}

	if c.InfluxDB.URL == "" {
		return fmt.Errorf("InfluxDB URL is required")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("Redis host is required")
	}

	if c.NATS.URL == "" {
		return fmt.Errorf("NATS URL is required")
	}

	if c.DataSource.BaseURL == "" {
		return fmt.Errorf("data source base URL is required")
	}

	switch c.Chart.DefaultType {
	case "candlestick", "line", "area":
	default:
		return fmt.Errorf("invalid default chart type: %s", c.Chart.DefaultType)
	}

	return nil
}

// GetMySQLDSN returns MySQL DSN string
func (c *Config) GetMySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		c.MySQL.User,
		c.MySQL.Password,
		c.MySQL.Host,
		c.MySQL.Port,
		c.MySQL.Database,
	)
}

// GetRedisAddr returns Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// GetServerAddr returns server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
