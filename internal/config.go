package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Sync          SyncConfig          `mapstructure:"sync"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig selects the document store backend. Backend "memory" keeps
// documents in process (development and tests), "sqlite" and "postgres"
// persist them through the SQL store.
type DatabaseConfig struct {
	Backend         string        `mapstructure:"backend"`
	Source          string        `mapstructure:"source"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type SecurityConfig struct {
	TokenSecret     string        `mapstructure:"token_secret"`
	TokenDuration   time.Duration `mapstructure:"token_duration"`
	BCryptCost      int           `mapstructure:"bcrypt_cost"`
	MinSecretLength int           `mapstructure:"min_secret_length"`
	SignUpDisabled  bool          `mapstructure:"signup_disabled"`
	AutoVerify      bool          `mapstructure:"auto_verify"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	AttemptWindow   time.Duration `mapstructure:"attempt_window"`
}

// SyncConfig tunes the session and mirror machinery.
type SyncConfig struct {
	// BootstrapGuardWindow is how long the ambient profile bootstrap stays
	// suppressed after an explicit sign-up created the profile document.
	BootstrapGuardWindow time.Duration `mapstructure:"bootstrap_guard_window"`
	// ProfileWaitTimeout bounds how long the bootstrap waits for the account
	// mirror's first snapshot before giving up for this session.
	ProfileWaitTimeout time.Duration `mapstructure:"profile_wait_timeout"`
	NotificationTTL    time.Duration `mapstructure:"notification_ttl"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ----------------- ENV FALLBACK -----------------

// LoadConfigFromEnv builds a config purely from environment variables, used
// for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("HTTP_BASE_URL", ""),
			AllowedOrigins:    getEnv("HTTP_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Backend:         getEnv("DB_BACKEND", "sqlite"),
			Source:          getEnv("DB_SOURCE", "staff.db"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Security: SecurityConfig{
			TokenSecret:     getEnv("SECURITY_TOKEN_SECRET", ""),
			TokenDuration:   getEnvAsDuration("SECURITY_TOKEN_DURATION", 12*time.Hour),
			BCryptCost:      getEnvAsInt("SECURITY_BCRYPT_COST", 10),
			MinSecretLength: getEnvAsInt("SECURITY_MIN_SECRET_LENGTH", 8),
			SignUpDisabled:  getEnv("SECURITY_SIGNUP_DISABLED", "false") == "true",
			AutoVerify:      getEnv("SECURITY_AUTO_VERIFY", "false") == "true",
			MaxAttempts:     getEnvAsInt("SECURITY_MAX_ATTEMPTS", 5),
			AttemptWindow:   getEnvAsDuration("SECURITY_ATTEMPT_WINDOW", 5*time.Minute),
		},
		Sync: SyncConfig{
			BootstrapGuardWindow: getEnvAsDuration("SYNC_BOOTSTRAP_GUARD_WINDOW", 10*time.Second),
			ProfileWaitTimeout:   getEnvAsDuration("SYNC_PROFILE_WAIT_TIMEOUT", 10*time.Second),
			NotificationTTL:      getEnvAsDuration("SYNC_NOTIFICATION_TTL", 6*time.Second),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	switch c.Backend {
	case "memory":
	case "sqlite", "postgres":
		if c.Source == "" {
			return fmt.Errorf("source is required for backend %q", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if c.TokenSecret == "" {
		return errors.New("token_secret is required")
	}
	if len(c.TokenSecret) < 32 {
		return errors.New("token_secret must be at least 32 characters")
	}
	if c.BCryptCost < 4 || c.BCryptCost > 31 {
		return errors.New("bcrypt_cost must be between 4 and 31")
	}
	return nil
}

// Defaults fills zero values with the same defaults the env loader uses, so a
// partial config file still yields a runnable configuration.
func (c *Config) Defaults() {
	if c.Database.Backend == "" {
		c.Database.Backend = "sqlite"
	}
	if c.Security.TokenDuration == 0 {
		c.Security.TokenDuration = 12 * time.Hour
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 10
	}
	if c.Security.MinSecretLength == 0 {
		c.Security.MinSecretLength = 8
	}
	if c.Security.MaxAttempts == 0 {
		c.Security.MaxAttempts = 5
	}
	if c.Security.AttemptWindow == 0 {
		c.Security.AttemptWindow = 5 * time.Minute
	}
	if c.Sync.BootstrapGuardWindow == 0 {
		c.Sync.BootstrapGuardWindow = 10 * time.Second
	}
	if c.Sync.ProfileWaitTimeout == 0 {
		c.Sync.ProfileWaitTimeout = 10 * time.Second
	}
	if c.Sync.NotificationTTL == 0 {
		c.Sync.NotificationTTL = 6 * time.Second
	}
}
