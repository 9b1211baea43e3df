package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Record store drivers
const (
	DriverSQLite  = "sqlite"
	DriverMongoDB = "mongodb"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Google   GoogleConfig   `mapstructure:"google"`
	Session  SessionConfig  `mapstructure:"session"`
	Voucher  VoucherConfig  `mapstructure:"voucher"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig selects and configures the record store
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MongoURI        string        `mapstructure:"mongo_uri"`
	MongoDatabase   string        `mapstructure:"mongo_database"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// GoogleConfig holds Sheets, Drive and userinfo API configuration
type GoogleConfig struct {
	CredentialsFile string        `mapstructure:"credentials_file"`
	APITimeout      time.Duration `mapstructure:"api_timeout"`
	ShareWithOwner  bool          `mapstructure:"share_with_owner"`
	ShareRole       string        `mapstructure:"share_role"`
}

// SessionConfig holds session lifetime and cookie settings
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	CookieName    string        `mapstructure:"cookie_name"`
	Secure        bool          `mapstructure:"secure"`
}

// VoucherConfig holds document rendering configuration
type VoucherConfig struct {
	RenderDir     string        `mapstructure:"render_dir"`
	LogoDir       string        `mapstructure:"logo_dir"`
	PreviewDPI    float64       `mapstructure:"preview_dpi"`
	ScratchMaxAge time.Duration `mapstructure:"scratch_max_age"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads .env (when present), then the YAML file at configPath, then
// environment overrides. An empty configPath uses defaults and environment only.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("VOUCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/vouchers.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.mongo_database", "vouchers")
	v.SetDefault("database.connect_timeout", 10*time.Second)

	v.SetDefault("google.api_timeout", 30*time.Second)
	v.SetDefault("google.share_with_owner", true)
	v.SetDefault("google.share_role", "writer")

	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.sweep_interval", 10*time.Minute)
	v.SetDefault("session.cookie_name", "voucher_session")
	v.SetDefault("session.secure", false)

	v.SetDefault("voucher.render_dir", "tmp/render")
	v.SetDefault("voucher.logo_dir", "assets/logos")
	v.SetDefault("voucher.preview_dpi", 72.0)
	v.SetDefault("voucher.scratch_max_age", time.Hour)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the conventional secret variables
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"google.credentials_file": "GOOGLE_APPLICATION_CREDENTIALS",
		"database.mongo_uri":      "MONGO_URI",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverMongoDB:
		if c.Database.MongoURI == "" {
			return fmt.Errorf("database.mongo_uri is required for the mongodb driver")
		}
		if c.Database.MongoDatabase == "" {
			return fmt.Errorf("database.mongo_database is required for the mongodb driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}

	if c.Google.CredentialsFile == "" {
		return fmt.Errorf("google.credentials_file is required")
	}
	if c.Google.APITimeout <= 0 {
		return fmt.Errorf("google.api_timeout must be positive")
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session.cookie_name is required")
	}

	if c.Voucher.RenderDir == "" {
		return fmt.Errorf("voucher.render_dir is required")
	}

	return nil
}
