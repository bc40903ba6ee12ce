package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE"`
	} `yaml:"database"`

	Realtime struct {
		// Source selects the change feed: "postgres" (LISTEN) or "websocket"
		Source         string        `yaml:"source" env:"REALTIME_SOURCE"`
		Channel        string        `yaml:"channel" env:"REALTIME_CHANNEL"`
		URL            string        `yaml:"url" env:"REALTIME_URL"`
		APIKey         string        `yaml:"api_key" env:"REALTIME_API_KEY"`
		QueueSize      int           `yaml:"queue_size" env:"REALTIME_QUEUE_SIZE"`
		ReconnectEvery time.Duration `yaml:"reconnect_every" env:"REALTIME_RECONNECT_EVERY"`
		ReconnectBurst int           `yaml:"reconnect_burst" env:"REALTIME_RECONNECT_BURST"`
	} `yaml:"realtime"`

	Auth struct {
		Secret   string `yaml:"secret" env:"AUTH_JWT_SECRET"`
		Issuer   string `yaml:"issuer" env:"AUTH_JWT_ISSUER"`
		TokenTTL string `yaml:"token_ttl" env:"AUTH_TOKEN_TTL"`
		// AccessToken identifies the acting user of this process
		AccessToken string `yaml:"access_token" env:"AUTH_ACCESS_TOKEN"`
	} `yaml:"auth"`

	Cache struct {
		// Driver is "memory" or "redis"
		Driver   string        `yaml:"driver" env:"CACHE_DRIVER"`
		Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
		Password string        `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int           `yaml:"db" env:"REDIS_DB"`
		TTL      time.Duration `yaml:"ttl" env:"CACHE_TTL"`
	} `yaml:"cache"`

	Broker struct {
		Enabled  bool   `yaml:"enabled" env:"BROKER_ENABLED"`
		URL      string `yaml:"url" env:"AMQP_URL"`
		Exchange string `yaml:"exchange" env:"AMQP_EXCHANGE"`
		// RoutingKey for push hand-off messages
		RoutingKey string `yaml:"routing_key" env:"AMQP_ROUTING_KEY"`
	} `yaml:"broker"`

	Calendar struct {
		// Timezone is the IANA zone used for "today" when a user has none
		Timezone string `yaml:"timezone" env:"CALENDAR_TIMEZONE"`
	} `yaml:"calendar"`

	Reminders struct {
		Enabled     bool          `yaml:"enabled" env:"REMINDERS_ENABLED"`
		Interval    time.Duration `yaml:"interval" env:"REMINDERS_INTERVAL"`
		WindowStart string        `yaml:"window_start" env:"REMINDERS_WINDOW_START"`
		WindowEnd   string        `yaml:"window_end" env:"REMINDERS_WINDOW_END"`
	} `yaml:"reminders"`

	Notifications struct {
		InboxSize int `yaml:"inbox_size" env:"NOTIFICATIONS_INBOX_SIZE"`
	} `yaml:"notifications"`

	Logging struct {
		Level          string `yaml:"level" env:"LOG_LEVEL"`
		Format         string `yaml:"format" env:"LOG_FORMAT"`
		File           string `yaml:"file" env:"LOG_FILE"`
		FileMaxSizeMB  int    `yaml:"file_max_size_mb" env:"LOG_FILE_MAX_SIZE_MB"`
		FileMaxBackups int    `yaml:"file_max_backups" env:"LOG_FILE_MAX_BACKUPS"`
		FileMaxAgeDays int    `yaml:"file_max_age_days" env:"LOG_FILE_MAX_AGE_DAYS"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a file, a .env file and environment
// variables, in increasing order of precedence.
func LoadConfig(configPath string) (*Config, error) {
	// Load default config with sane defaults
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Variables already present in the environment win over .env
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	// Override with environment variables
	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Database defaults
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "fitchallenge"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 2
	config.Database.MaxOpenConns = 10
	config.Database.ConnMaxLifetime = "1h"
	config.Database.AutoMigrate = true

	// Realtime defaults
	config.Realtime.Source = "postgres"
	config.Realtime.Channel = "row_changes"
	config.Realtime.QueueSize = 64
	config.Realtime.ReconnectEvery = 2 * time.Second
	config.Realtime.ReconnectBurst = 3

	// Auth defaults
	config.Auth.Issuer = "fitchallenge"
	config.Auth.TokenTTL = "1h"

	// Cache defaults
	config.Cache.Driver = "memory"
	config.Cache.Addr = "localhost:6379"
	config.Cache.TTL = 30 * time.Minute

	// Broker defaults
	config.Broker.Exchange = "notifications"
	config.Broker.RoutingKey = "push.reminder"

	config.Calendar.Timezone = "UTC"

	// Reminder defaults: one pass per minute inside 20:00-20:30 local
	config.Reminders.Enabled = true
	config.Reminders.Interval = time.Minute
	config.Reminders.WindowStart = "20:00"
	config.Reminders.WindowEnd = "20:30"

	config.Notifications.InboxSize = 10

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.FileMaxSizeMB = 50
	config.Logging.FileMaxBackups = 3
	config.Logging.FileMaxAgeDays = 14
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	// Recursively process the config structure and look for env tags
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if _, err := time.ParseDuration(config.Database.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid database connection max lifetime: %w", err)
	}

	switch config.Realtime.Source {
	case "postgres":
	case "websocket":
		if config.Realtime.URL == "" {
			return fmt.Errorf("realtime url is required for the websocket source")
		}
	default:
		return fmt.Errorf("unknown realtime source %q", config.Realtime.Source)
	}

	if config.Auth.Secret == "" {
		return fmt.Errorf("auth JWT secret is required")
	}
	if _, err := time.ParseDuration(config.Auth.TokenTTL); err != nil {
		return fmt.Errorf("invalid auth token ttl: %w", err)
	}

	switch config.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache driver %q", config.Cache.Driver)
	}

	if config.Broker.Enabled && config.Broker.URL == "" {
		return fmt.Errorf("broker url is required when the broker is enabled")
	}

	if _, err := time.LoadLocation(config.Calendar.Timezone); err != nil {
		return fmt.Errorf("invalid calendar timezone: %w", err)
	}

	if _, _, err := config.ReminderWindow(); err != nil {
		return err
	}
	if config.Reminders.Interval <= 0 {
		return fmt.Errorf("reminder interval must be positive")
	}

	if config.Notifications.InboxSize <= 0 {
		return fmt.Errorf("notification inbox size must be positive")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// Location returns the default calendar zone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ReminderWindow parses the reminder window bounds as offsets from local midnight
func (c *Config) ReminderWindow() (time.Duration, time.Duration, error) {
	start, err := parseClock(c.Reminders.WindowStart)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid reminder window start: %w", err)
	}
	end, err := parseClock(c.Reminders.WindowEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid reminder window end: %w", err)
	}
	if end <= start {
		return 0, 0, fmt.Errorf("reminder window end must be after its start")
	}
	return start, end, nil
}

// parseClock parses "HH:MM" into an offset from midnight
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
