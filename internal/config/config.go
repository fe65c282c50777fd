package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Mode selects where detections are read from and written to.
type Mode string

const (
	ModeHosted Mode = "hosted" // PostgREST-compatible hosted backend
	ModeSQLite Mode = "sqlite" // local database file
	ModeMock   Mode = "mock"   // in-memory synthetic data, no backend writes
)

type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	DB      DatabaseConfig
	Mock    MockConfig
	SAR     SARConfig
	Feed    FeedConfig
	Worker  WorkerConfig
	Cache   CacheConfig
	Analyst AnalystConfig
	MQTT    MQTTConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	RateLimitRPS int
	CORSOrigins  []string
}

// BackendConfig holds the two hosted-backend credentials. Both must be set
// for hosted mode.
type BackendConfig struct {
	URL                string
	Key                string
	ChangePollInterval time.Duration
	Timeout            time.Duration
}

type DatabaseConfig struct {
	Path string
}

type MockConfig struct {
	InitialCount int
	Interval     time.Duration
	Seed         int64
}

type SARConfig struct {
	Enabled  bool
	Interval time.Duration
}

type FeedConfig struct {
	Limit     int
	MockLimit int
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type CacheConfig struct {
	TTL time.Duration
}

type AnalystConfig struct {
	ID string
}

type MQTTConfig struct {
	Enabled  bool
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnvInt("SERVER_PORT", 8000),
			RateLimitRPS: getEnvInt("RATE_LIMIT_RPS", 20),
			CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Backend: BackendConfig{
			URL:                strings.TrimRight(getEnv("BACKEND_URL", ""), "/"),
			Key:                getEnv("BACKEND_KEY", ""),
			ChangePollInterval: getEnvDuration("CHANGE_POLL_INTERVAL", 10*time.Second),
			Timeout:            getEnvDuration("BACKEND_TIMEOUT", 15*time.Second),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", ""),
		},
		Mock: MockConfig{
			InitialCount: getEnvInt("MOCK_INITIAL_COUNT", 8),
			Interval:     getEnvDuration("MOCK_INTERVAL", 15*time.Second),
			Seed:         int64(getEnvInt("MOCK_SEED", 0)),
		},
		SAR: SARConfig{
			Enabled:  getEnvBool("SAR_ENABLED", false),
			Interval: getEnvDuration("SAR_INTERVAL", 5*time.Second),
		},
		Feed: FeedConfig{
			Limit:     getEnvInt("FEED_LIMIT", 50),
			MockLimit: getEnvInt("MOCK_FEED_LIMIT", 25),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		Cache: CacheConfig{
			TTL: getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		Analyst: AnalystConfig{
			ID: getEnv("ANALYST_ID", "analyst-001"),
		},
		MQTT: MQTTConfig{
			Enabled:  getEnvBool("MQTT_ENABLED", false),
			Broker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
			Topic:    getEnv("MQTT_TOPIC", "sentinel-sea"),
			ClientID: getEnv("MQTT_CLIENT_ID", "sentinel-sea"),
			Username: getEnv("MQTT_USERNAME", ""),
			Password: getEnv("MQTT_PASSWORD", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Mode reports hosted mode only when both credentials are present. A missing
// credential falls back to SQLite when a database path is configured and to
// mock data otherwise.
func (c *Config) Mode() Mode {
	if c.Backend.URL != "" && c.Backend.Key != "" {
		return ModeHosted
	}
	if c.DB.Path != "" {
		return ModeSQLite
	}
	return ModeMock
}

// FeedLimit is the number of detections kept in the live feed for the
// current mode.
func (c *Config) FeedLimit() int {
	if c.Mode() == ModeMock {
		return c.Feed.MockLimit
	}
	return c.Feed.Limit
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 1 {
		return fmt.Errorf("rate limit must be at least 1 req/s")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Mock.Interval < time.Second {
		return fmt.Errorf("mock interval must be at least 1 second")
	}
	if c.SAR.Interval < time.Second {
		return fmt.Errorf("SAR interval must be at least 1 second")
	}
	if c.Backend.ChangePollInterval < time.Second {
		return fmt.Errorf("change poll interval must be at least 1 second")
	}
	if c.Mock.InitialCount < 0 {
		return fmt.Errorf("invalid mock initial count: %d", c.Mock.InitialCount)
	}
	if c.Feed.Limit < 1 || c.Feed.MockLimit < 1 {
		return fmt.Errorf("feed limits must be positive")
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.Worker.BufferSize < 0 {
		return fmt.Errorf("invalid worker buffer size: %d", c.Worker.BufferSize)
	}
	if c.Cache.TTL < time.Second {
		return fmt.Errorf("cache TTL must be at least 1 second")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("MQTT broker is required when MQTT is enabled")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
