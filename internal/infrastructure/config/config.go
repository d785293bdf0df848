package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Storage      StorageConfig
	Notification NotificationConfig
	Quoting      QuotingConfig
	Render       RenderConfig
	Telemetry    TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	// MigrateOnStart applies pending schema migrations before serving
	MigrateOnStart bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
	// RequestTimeout bounds every API request
	RequestTimeout time.Duration
	CORSOrigins    []string
	HSTS           bool
}

// StorageConfig holds signature file storage settings
type StorageConfig struct {
	Type            string // s3 or memory
	Endpoint        string // custom endpoint for S3-compatible stores
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
}

// NotificationConfig holds the delivery queue settings
type NotificationConfig struct {
	Driver   string // asynq or log
	Queue    string
	MaxRetry int
	Timeout  time.Duration // per task on the worker side
	// Worker-side mail settings. An empty SMTPHost logs messages instead of sending them.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromAddress  string
	Concurrency  int
}

// QuotingConfig holds quote engine behavior settings
type QuotingConfig struct {
	ShowDiscount       bool
	Currency           string
	IntegrationTimeout time.Duration
	RenderTimeout      time.Duration
	NotifyTimeout      time.Duration
	DefaultNetTerms    int
	DefaultTerm        int
	TaxRateCacheTTL    time.Duration
	IntegrationEnabled bool
	IntegrationURL     string // base URL of the finance system's quote tax endpoint
	IntegrationToken   string
	// IdempotencyTTL is how long execute and co-term responses are replayed for a repeated Idempotency-Key
	IdempotencyTTL time.Duration
}

// RenderConfig selects how quote and contract PDFs are produced
type RenderConfig struct {
	Engine    string // pdf (in-process) or chrome (HTML printed by headless Chrome)
	ChromeURL string // remote DevTools endpoint; empty launches a local browser
	NoSandbox bool
	PaperSize string // A4 or Letter
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	ExportLogs        bool   // Bridge zap logs to the collector
	TraceSQL          bool   // Register the otelgorm plugin
	ProfilingAddress  string // Pyroscope server; empty disables profiling
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with QUOTE_ prefix (e.g., QUOTE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("QUOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			MigrateOnStart:  v.GetBool("database.migrate_on_start"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
			RequestTimeout: v.GetDuration("http.request_timeout"),
			CORSOrigins:    v.GetStringSlice("http.cors_origins"),
			HSTS:           v.GetBool("http.hsts"),
		},
		Storage: StorageConfig{
			Type:            v.GetString("storage.type"),
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			KeyPrefix:       v.GetString("storage.key_prefix"),
		},
		Notification: NotificationConfig{
			Driver:   v.GetString("notification.driver"),
			Queue:    v.GetString("notification.queue"),
			MaxRetry: v.GetInt("notification.max_retry"),
			Timeout:  v.GetDuration("notification.timeout"),

			SMTPHost:     v.GetString("notification.smtp_host"),
			SMTPPort:     v.GetInt("notification.smtp_port"),
			SMTPUsername: v.GetString("notification.smtp_username"),
			SMTPPassword: v.GetString("notification.smtp_password"),
			FromAddress:  v.GetString("notification.from_address"),
			Concurrency:  v.GetInt("notification.concurrency"),
		},
		Quoting: QuotingConfig{
			ShowDiscount:       v.GetBool("quoting.show_discount"),
			Currency:           v.GetString("quoting.currency"),
			IntegrationTimeout: v.GetDuration("quoting.integration_timeout"),
			RenderTimeout:      v.GetDuration("quoting.render_timeout"),
			NotifyTimeout:      v.GetDuration("quoting.notify_timeout"),
			DefaultNetTerms:    v.GetInt("quoting.default_net_terms"),
			DefaultTerm:        v.GetInt("quoting.default_term"),
			TaxRateCacheTTL:    v.GetDuration("quoting.tax_rate_cache_ttl"),
			IntegrationEnabled: v.GetBool("quoting.integration_enabled"),
			IntegrationURL:     v.GetString("quoting.integration_url"),
			IntegrationToken:   v.GetString("quoting.integration_token"),
			IdempotencyTTL:     v.GetDuration("quoting.idempotency_ttl"),
		},
		Render: RenderConfig{
			Engine:    v.GetString("render.engine"),
			ChromeURL: v.GetString("render.chrome_url"),
			NoSandbox: v.GetBool("render.no_sandbox"),
			PaperSize: v.GetString("render.paper_size"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			ExportLogs:        v.GetBool("telemetry.export_logs"),
			TraceSQL:          v.GetBool("telemetry.trace_sql"),
			ProfilingAddress:  v.GetString("telemetry.profiling_address"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "quoting"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "quoting"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 5 << 20 // signatures travel as base64 in JSON
	}
	if cfg.HTTP.RequestTimeout == 0 {
		cfg.HTTP.RequestTimeout = 25 * time.Second
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "signatures/"
	}
	if cfg.Notification.Driver == "" {
		cfg.Notification.Driver = "log"
	}
	if cfg.Notification.Queue == "" {
		cfg.Notification.Queue = "notifications"
	}
	if cfg.Notification.MaxRetry == 0 {
		cfg.Notification.MaxRetry = 5
	}
	if cfg.Notification.Timeout == 0 {
		cfg.Notification.Timeout = 2 * time.Minute
	}
	if cfg.Quoting.Currency == "" {
		cfg.Quoting.Currency = "USD"
	}
	if cfg.Quoting.IntegrationTimeout == 0 {
		cfg.Quoting.IntegrationTimeout = 5 * time.Second
	}
	if cfg.Quoting.RenderTimeout == 0 {
		cfg.Quoting.RenderTimeout = 10 * time.Second
	}
	if cfg.Quoting.NotifyTimeout == 0 {
		cfg.Quoting.NotifyTimeout = 5 * time.Second
	}
	if cfg.Quoting.DefaultNetTerms == 0 {
		cfg.Quoting.DefaultNetTerms = 30
	}
	if cfg.Quoting.DefaultTerm == 0 {
		cfg.Quoting.DefaultTerm = 12
	}
	if cfg.Quoting.TaxRateCacheTTL == 0 {
		cfg.Quoting.TaxRateCacheTTL = time.Hour
	}
	if cfg.Quoting.IdempotencyTTL == 0 {
		cfg.Quoting.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Notification.SMTPPort == 0 {
		cfg.Notification.SMTPPort = 587
	}
	if cfg.Notification.FromAddress == "" {
		cfg.Notification.FromAddress = "quotes@localhost"
	}
	if cfg.Notification.Concurrency == 0 {
		cfg.Notification.Concurrency = 5
	}
	if cfg.Render.Engine == "" {
		cfg.Render.Engine = "pdf"
	}
	if cfg.Render.PaperSize == "" {
		cfg.Render.PaperSize = "Letter"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "quoting"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Storage.Type {
	case "memory":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required when storage.type is s3")
		}
	default:
		return fmt.Errorf("storage.type must be s3 or memory, got %q", c.Storage.Type)
	}

	switch c.Notification.Driver {
	case "log", "asynq":
	default:
		return fmt.Errorf("notification.driver must be asynq or log, got %q", c.Notification.Driver)
	}

	switch c.Render.Engine {
	case "pdf", "chrome":
	default:
		return fmt.Errorf("render.engine must be pdf or chrome, got %q", c.Render.Engine)
	}
	switch c.Render.PaperSize {
	case "A4", "Letter":
	default:
		return fmt.Errorf("render.paper_size must be A4 or Letter, got %q", c.Render.PaperSize)
	}

	if c.Quoting.IntegrationEnabled && c.Quoting.IntegrationURL == "" {
		return fmt.Errorf("quoting.integration_url is required when the finance integration is enabled")
	}

	if c.Quoting.DefaultNetTerms < 0 || c.Quoting.DefaultTerm < 0 {
		return fmt.Errorf("quoting.default_net_terms and quoting.default_term cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Storage.Type == "memory" {
			return fmt.Errorf("storage.type memory loses signatures on restart and is not allowed in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
