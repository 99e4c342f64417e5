package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LICENSE"

// ConfigFileEnv names an optional YAML file applied on top of the environment.
const ConfigFileEnv = "LICENSE_CONFIG_FILE"

type Config struct {
	ListenAddr      string        `yaml:"listen_addr" envconfig:"LISTEN_ADDR" default:":8080" validate:"required"`
	DataDir         string        `yaml:"data_dir" envconfig:"DATA_DIR" default:"data" validate:"required"`
	StorageBackend  string        `yaml:"storage_backend" envconfig:"STORAGE_BACKEND" default:"file" validate:"oneof=file sqlite memory"`
	SQLitePath      string        `yaml:"sqlite_path" envconfig:"SQLITE_PATH" default:"data/license.db" validate:"required_if=StorageBackend sqlite"`
	EventLogPath    string        `yaml:"event_log_path" envconfig:"EVENT_LOG_PATH" default:"data/events.db"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	AdminUsername string        `yaml:"admin_username" envconfig:"ADMIN_USERNAME" default:"admin" validate:"required,max=20"`
	AdminPassword string        `yaml:"admin_password" envconfig:"ADMIN_PASSWORD"`
	JWTSecret     string        `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	TokenTTL      time.Duration `yaml:"token_ttl" envconfig:"TOKEN_TTL" default:"2h" validate:"gt=0"`

	// ProxyHeader names the header holding the client IP when running behind a proxy.
	ProxyHeader    string   `yaml:"proxy_header" envconfig:"PROXY_HEADER"`
	TrustedProxies []string `yaml:"trusted_proxies" envconfig:"TRUSTED_PROXIES" validate:"omitempty,dive,required"`

	WebhookURL     string        `yaml:"webhook_url" envconfig:"WEBHOOK_URL" validate:"omitempty,url"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout" envconfig:"WEBHOOK_TIMEOUT" default:"5s" validate:"gt=0"`

	Sheets    SheetsConfig    `yaml:"sheets" envconfig:"SHEETS"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Log       LogConfig       `yaml:"log" envconfig:"LOG"`
}

// SheetsConfig enables mirroring licenses into a Google Sheet.
type SheetsConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	CredentialPath string `yaml:"credential_path" envconfig:"CREDENTIAL_PATH" validate:"required_if=Enabled true"`
	SpreadsheetID  string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID" validate:"required_if=Enabled true"`
	SheetName      string `yaml:"sheet_name" envconfig:"SHEET_NAME" default:"Licenses"`
}

// RateLimitConfig limits public endpoints per client IP. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" envconfig:"RPS" default:"5" validate:"gte=0"`
	Burst int     `yaml:"burst" envconfig:"BURST" default:"10" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
}

// Load reads the environment (with defaults), then the YAML file named by
// LICENSE_CONFIG_FILE if set. Keys present in the file override the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
