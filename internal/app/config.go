package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the socialink backend.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Email      EmailConfig      `mapstructure:"email"`
	Generator  GeneratorConfig  `mapstructure:"generator"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Tasks      TasksConfig      `mapstructure:"tasks"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	// PublicURL is the externally visible base URL used in emailed links.
	// When empty, links are derived from the incoming request.
	PublicURL string `mapstructure:"public_url"`
	// AuthRateLimit caps /register and /token requests per client within
	// AuthRateWindow. Zero disables the limit.
	AuthRateLimit  int           `mapstructure:"auth_rate_limit"`
	AuthRateWindow time.Duration `mapstructure:"auth_rate_window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT        JWTSettings `mapstructure:"jwt"`
	BcryptCost int         `mapstructure:"bcrypt_cost"`
}

// JWTSettings configures signed access and confirmation tokens.
type JWTSettings struct {
	Secret          string        `mapstructure:"secret"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTTL       time.Duration `mapstructure:"access_token_ttl"`
	ConfirmationTTL time.Duration `mapstructure:"confirmation_token_ttl"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	// Provider selects the delivery backend: smtp, mailgun or none.
	Provider string        `mapstructure:"provider"`
	From     string        `mapstructure:"from"`
	SMTP     SMTPConfig    `mapstructure:"smtp"`
	Mailgun  MailgunConfig `mapstructure:"mailgun"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MailgunConfig defines Mailgun API credentials.
type MailgunConfig struct {
	Domain  string        `mapstructure:"domain"`
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GeneratorConfig configures the external image generation API.
type GeneratorConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StorageConfig describes blob storage for uploaded files.
type StorageConfig struct {
	S3             S3Config `mapstructure:"s3"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
}

// S3Config holds S3-compatible bucket settings (Backblaze B2, MinIO, AWS).
type S3Config struct {
	Enabled        bool   `mapstructure:"enabled"`
	Endpoint       string `mapstructure:"endpoint"`
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	PublicURL      string `mapstructure:"public_url"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
}

// TasksConfig sizes the background task runner.
type TasksConfig struct {
	Workers         int           `mapstructure:"workers"`
	QueueSize       int           `mapstructure:"queue_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("SOCIALINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate reports configuration that the server cannot start without.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	c.Auth.JWT.Secret = strings.TrimSpace(c.Auth.JWT.Secret)
	if c.Auth.JWT.Secret == "" {
		return errors.New("auth.jwt.secret must be configured")
	}
	if len(c.Auth.JWT.Secret) < 16 {
		return fmt.Errorf("auth.jwt.secret must be at least 16 characters (current: %d)", len(c.Auth.JWT.Secret))
	}

	switch strings.ToLower(strings.TrimSpace(c.Email.Provider)) {
	case "", "none", "smtp", "mailgun":
	default:
		return fmt.Errorf("email.provider %q is not supported", c.Email.Provider)
	}

	if c.Storage.S3.Enabled && strings.TrimSpace(c.Storage.S3.Bucket) == "" {
		return errors.New("storage.s3.bucket must be configured when storage is enabled")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.auth_rate_limit", 20)
	v.SetDefault("server.auth_rate_window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/socialink.sqlite")

	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "socialink")
	v.SetDefault("auth.jwt.access_token_ttl", "30m")
	v.SetDefault("auth.jwt.confirmation_token_ttl", "1440m")
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("email.provider", "none")
	v.SetDefault("email.from", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")
	v.SetDefault("email.mailgun.base_url", "https://api.mailgun.net")
	v.SetDefault("email.mailgun.timeout", "10s")

	v.SetDefault("generator.endpoint", "https://api.deepai.org/api/cute-creature-generator")
	v.SetDefault("generator.api_key", "")
	v.SetDefault("generator.timeout", "60s")

	v.SetDefault("storage.s3.enabled", false)
	v.SetDefault("storage.s3.region", "us-west-004")
	v.SetDefault("storage.s3.force_path_style", true)
	v.SetDefault("storage.max_upload_bytes", 10<<20)

	v.SetDefault("tasks.workers", 4)
	v.SetDefault("tasks.queue_size", 64)
	v.SetDefault("tasks.shutdown_timeout", "30s")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
