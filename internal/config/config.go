package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends.
const (
	SessionStoreFile     = "file"
	SessionStoreMemory   = "memory"
	SessionStoreRedis    = "redis"
	SessionStorePostgres = "postgres"
)

// Realtime transports.
const (
	RealtimeSTOMP = "stomp"
	RealtimeRedis = "redis"
	RealtimeOff   = "off"
)

// Config aggregates runtime configuration for the client agent.
type Config struct {
	App          AppConfig
	Backend      BackendConfig
	Session      SessionConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Notification NotificationConfig
	Realtime     RealtimeConfig
	LocalAPI     LocalAPIConfig
}

// AppConfig identifies the running agent.
type AppConfig struct {
	Name    string
	Env     string
	Version string
}

// BackendConfig points at the helpdesk REST backend.
type BackendConfig struct {
	BaseURL               string
	RequestTimeoutSeconds int
}

// SessionConfig controls where the auth token is persisted.
type SessionConfig struct {
	TokenKey string
	Store    string
	File     string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Encoding    string
	Output      string
	Development bool
}

// NotificationConfig controls background notification polling.
type NotificationConfig struct {
	PollIntervalSeconds int
}

// RealtimeConfig selects and tunes the push channel.
type RealtimeConfig struct {
	Transport    string
	WSURL        string
	RedisChannel string
	DebounceMS   int
	ReconnectMS  int
	HeartbeatMS  int
}

// LocalAPIConfig configures the local state API.
type LocalAPIConfig struct {
	Host                  string
	Port                  string
	JWTSecret             string
	TokenTTLMinutes       int
	PasswordHash          string
	RequestTimeoutSeconds int
	ExportDir             string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "helpdesk-client"),
			Env:     getEnv("APP_ENV", "development"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Backend: BackendConfig{
			BaseURL:               strings.TrimRight(getEnv("HELPDESK_BASE_URL", "http://127.0.0.1:8080"), "/"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Session: SessionConfig{
			TokenKey: getEnv("SESSION_TOKEN_KEY", "helpdesk_auth_token"),
			Store:    strings.ToLower(getEnv("SESSION_STORE", SessionStoreFile)),
			File:     getEnv("SESSION_FILE", defaultSessionFile()),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Encoding:    getEnv("LOG_ENCODING", "json"),
			Output:      getEnv("LOG_OUTPUT", "stderr"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Notification: NotificationConfig{
			PollIntervalSeconds: getEnvAsInt("NOTIFICATION_POLL_INTERVAL_SECONDS", 15),
		},
		Realtime: RealtimeConfig{
			Transport:    strings.ToLower(getEnv("REALTIME_TRANSPORT", RealtimeSTOMP)),
			WSURL:        os.Getenv("REALTIME_WS_URL"),
			RedisChannel: getEnv("REALTIME_REDIS_CHANNEL", "helpdesk:tickets"),
			DebounceMS:   getEnvAsInt("REALTIME_DEBOUNCE_MS", 600),
			ReconnectMS:  getEnvAsInt("REALTIME_RECONNECT_MS", 3000),
			HeartbeatMS:  getEnvAsInt("REALTIME_HEARTBEAT_MS", 10000),
		},
		LocalAPI: LocalAPIConfig{
			Host:                  getEnv("LOCAL_API_HOST", "127.0.0.1"),
			Port:                  getEnv("LOCAL_API_PORT", "7070"),
			JWTSecret:             getEnv("LOCAL_API_JWT_SECRET", "dev-secret"),
			TokenTTLMinutes:       getEnvAsInt("LOCAL_API_TOKEN_TTL_MINUTES", 60),
			PasswordHash:          os.Getenv("LOCAL_API_PASSWORD_HASH"),
			RequestTimeoutSeconds: getEnvAsInt("LOCAL_API_REQUEST_TIMEOUT_SECONDS", 30),
			ExportDir:             getEnv("LOCAL_API_EXPORT_DIR", os.TempDir()),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown backend selections.
func (c *Config) Validate() error {
	switch c.Session.Store {
	case SessionStoreFile, SessionStoreMemory, SessionStoreRedis, SessionStorePostgres:
	default:
		return fmt.Errorf("invalid SESSION_STORE %q", c.Session.Store)
	}
	if c.Session.Store == SessionStorePostgres && c.Postgres.DSN == "" {
		return fmt.Errorf("SESSION_STORE=postgres requires POSTGRES_DSN")
	}
	switch c.Realtime.Transport {
	case RealtimeSTOMP, RealtimeRedis, RealtimeOff:
	default:
		return fmt.Errorf("invalid REALTIME_TRANSPORT %q", c.Realtime.Transport)
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("HELPDESK_BASE_URL must not be empty")
	}
	return nil
}

// RequestTimeout returns the configured backend request timeout.
func (b BackendConfig) RequestTimeout() time.Duration {
	if b.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(b.RequestTimeoutSeconds) * time.Second
}

// PollInterval returns the notification polling period.
func (n NotificationConfig) PollInterval() time.Duration {
	if n.PollIntervalSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(n.PollIntervalSeconds) * time.Second
}

// WebSocketURL returns the STOMP endpoint, derived from the backend URL when
// not set explicitly.
func (r RealtimeConfig) WebSocketURL(backendBaseURL string) string {
	if r.WSURL != "" {
		return r.WSURL
	}
	switch {
	case strings.HasPrefix(backendBaseURL, "https://"):
		return "wss://" + strings.TrimPrefix(backendBaseURL, "https://") + "/ws"
	case strings.HasPrefix(backendBaseURL, "http://"):
		return "ws://" + strings.TrimPrefix(backendBaseURL, "http://") + "/ws"
	}
	return backendBaseURL + "/ws"
}

// Debounce returns the reload coalescing window.
func (r RealtimeConfig) Debounce() time.Duration {
	return millis(r.DebounceMS, 600)
}

// ReconnectDelay returns the fixed backoff between connection attempts.
func (r RealtimeConfig) ReconnectDelay() time.Duration {
	return millis(r.ReconnectMS, 3000)
}

// Heartbeat returns the STOMP heart-beat period.
func (r RealtimeConfig) Heartbeat() time.Duration {
	return millis(r.HeartbeatMS, 10000)
}

// Addr returns the HTTP bind address.
func (a LocalAPIConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a LocalAPIConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// TokenTTL returns the lifetime of local API tokens.
func (a LocalAPIConfig) TokenTTL() time.Duration {
	if a.TokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

func millis(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Millisecond
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".helpdesk-session.json"
	}
	return dir + string(os.PathSeparator) + "helpdesk-client" + string(os.PathSeparator) + "session.json"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
