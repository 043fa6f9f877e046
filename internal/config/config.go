package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	applog "gastos/internal/log"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Backends lists the accepted BACKEND values.
var Backends = []string{BackendFile, BackendSQLite, BackendMemory}

type Config struct {
	// HTTP server
	Port           string   `yaml:"port" env:"PORT" env-default:"3000"`
	LogLevel       string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	AuthRateLimit  int      `yaml:"auth-rate-limit" env:"AUTH_RATE_LIMIT" env-default:"20"`
	TrustedProxies []string `yaml:"trusted-proxies" env:"TRUSTED_PROXIES" env-separator:"," env-default:"127.0.0.0/8,::1/128,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16"`

	// Sessions
	AuthSecret   string `yaml:"auth-secret" env:"AUTH_SECRET"`
	AppPassword  string `yaml:"app-password" env:"APP_PASSWORD"`
	CookieSecure bool   `yaml:"cookie-secure" env:"COOKIE_SECURE" env-default:"false"`

	// Storage
	DataBackend  string `yaml:"backend" env:"BACKEND" env-default:"file"`
	DataFile     string `yaml:"data-file" env:"DATA_FILE" env-default:"data.local.json"`
	SQLiteDBPath string `yaml:"sqlite-path" env:"SQLITE_PATH" env-default:"./data/gastos.db"`

	// Game sessions; an empty RedisAddr keeps them in process memory.
	RedisAddr string        `yaml:"redis-addr" env:"REDIS_ADDR"`
	GameTTL   time.Duration `yaml:"game-ttl" env:"GAME_TTL" env-default:"24h"`

	// AMQP; an empty URL disables sync events.
	AMQPURL      string `yaml:"amqp-url" env:"AMQP_URL"`
	AMQPExchange string `yaml:"amqp-exchange" env:"AMQP_EXCHANGE" env-default:"gastos"`
	AMQPQueue    string `yaml:"amqp-queue" env:"AMQP_QUEUE" env-default:"sync_months"`

	// Google Sheets
	GoogleSpreadsheetID       string `yaml:"google-spreadsheet-id" env:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName           string `yaml:"google-sheet-name" env:"GOOGLE_SHEET_NAME" env-default:"Gastos"`
	GoogleServiceAccountJSON  string `yaml:"google-service-account-json" env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleServiceAccountFile  string `yaml:"google-service-account-file" env:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleApplicationDefaults string `yaml:"-" env:"GOOGLE_APPLICATION_CREDENTIALS"`

	// Worker
	SyncBatchSize int           `yaml:"sync-batch-size" env:"SYNC_BATCH_SIZE" env-default:"10"`
	SyncInterval  time.Duration `yaml:"sync-interval" env:"SYNC_INTERVAL" env-default:"1m"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// LoadFile reads a YAML config file; environment variables override it.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings the web server needs and reports every
// problem at once.
func (c *Config) Validate() error {
	var errs []string
	errs = c.validateCommon(errs)

	if c.AuthRateLimit < 1 {
		errs = append(errs, fmt.Sprintf("invalid auth rate limit %d: must be at least 1", c.AuthRateLimit))
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(strings.TrimSpace(cidr)); err != nil {
			errs = append(errs, fmt.Sprintf("invalid trusted proxy '%s': %v", cidr, err))
		}
	}
	if c.AuthSecret != "" && len(c.AuthSecret) < 16 {
		errs = append(errs, "AUTH_SECRET must be at least 16 characters")
	}
	if c.GameTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid game TTL %v: must be at least 1 minute", c.GameTTL))
	}

	return joinErrors(errs)
}

// ValidateWorker checks the settings the sync worker needs.
func (c *Config) ValidateWorker() error {
	var errs []string
	errs = c.validateCommon(errs)

	if c.DataBackend != BackendSQLite {
		errs = append(errs, fmt.Sprintf("sync worker requires the sqlite backend, got '%s'", c.DataBackend))
	}
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "GOOGLE_SPREADSHEET_ID is required for the sync worker")
	}
	if c.GoogleSheetName == "" {
		errs = append(errs, "GOOGLE_SHEET_NAME cannot be empty")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleCredentialsFile() == "" {
		errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the sync worker")
	}
	if f := c.GoogleCredentialsFile(); c.GoogleServiceAccountJSON == "" && f != "" {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", f))
		}
	}

	if c.SyncBatchSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}
	if c.SyncInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	return joinErrors(errs)
}

// GoogleCredentialsFile is the explicit service account file, falling back to
// GOOGLE_APPLICATION_CREDENTIALS.
func (c *Config) GoogleCredentialsFile() string {
	if c.GoogleServiceAccountFile != "" {
		return c.GoogleServiceAccountFile
	}
	return c.GoogleApplicationDefaults
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) validateCommon(errs []string) []string {
	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	switch c.DataBackend {
	case BackendFile:
		if c.DataFile == "" {
			errs = append(errs, "DATA_FILE cannot be empty when using file backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}
	return errs
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
}
