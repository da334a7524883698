package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server
	APIPort int

	// Storage
	AttachmentCachePath string

	// Logging
	LogLevel string

	// Security
	APIKey         string
	AllowedOrigins string
	AppEnv         string

	// Rate Limiting
	RateLimitRequests float64
	RateLimitBurst    int

	IMAP    IMAPConfig
	SMTP    SMTPConfig
	Contact ContactConfig
}

// IMAPConfig describes the mailbox that is synchronized.
type IMAPConfig struct {
	Host            string
	Port            int
	UseSSL          bool
	Username        string
	Password        string
	FilterLabel     string
	SyncInterval    time.Duration
	TimeZone        string
	MaxMessages     int
	Timeout         time.Duration
	GmailLabels     bool
	DetailedLogging bool
	SyncEnabled     bool
}

// Address returns host:port.
func (c IMAPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SMTPConfig describes the outbound mail relay.
type SMTPConfig struct {
	Host      string
	Port      int
	UseTLS    bool
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// Enabled reports whether outbound mail is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.FromEmail != ""
}

// ContactConfig controls contact form notifications.
type ContactConfig struct {
	AdminEmail       string
	SendConfirmation bool
	BusinessName     string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_PORT", 8080)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RATE_LIMIT_REQUESTS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("ATTACHMENT_CACHE_PATH", "./data/attachments")

	v.SetDefault("IMAP_HOST", "imap.gmail.com")
	v.SetDefault("IMAP_PORT", 993)
	v.SetDefault("IMAP_USE_SSL", true)
	v.SetDefault("IMAP_SYNC_INTERVAL_SECONDS", 60)
	v.SetDefault("IMAP_TIME_ZONE", "Asia/Kolkata")
	v.SetDefault("IMAP_MAX_MESSAGES", 200)
	v.SetDefault("IMAP_TIMEOUT_SECONDS", 30)
	v.SetDefault("IMAP_DETAILED_LOGGING", false)

	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USE_TLS", false)
	v.SetDefault("SMTP_FROM_NAME", "Website Contact Form")
	v.SetDefault("CONTACT_SEND_CONFIRMATION", true)
	v.SetDefault("CONTACT_BUSINESS_NAME", "us")
}

// loadDotEnv reads .env outside production. Existing variables win.
func loadDotEnv() {
	v := viper.New()
	v.AutomaticEnv()
	if env := v.GetString("APP_ENV"); env != "" && env != "development" {
		return
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", slog.String("error", err.Error()))
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	loadDotEnv()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{}

	// Required: DATABASE_URL
	cfg.DatabaseURL = v.GetString("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	var err error
	if cfg.APIPort, err = getInt(v, "API_PORT"); err != nil {
		return nil, err
	}
	if cfg.RateLimitRequests, err = cast.ToFloat64E(v.Get("RATE_LIMIT_REQUESTS")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_REQUESTS must be a valid number: %w", err)
	}
	if cfg.RateLimitBurst, err = getInt(v, "RATE_LIMIT_BURST"); err != nil {
		return nil, err
	}

	cfg.AppEnv = v.GetString("APP_ENV")
	cfg.LogLevel = strings.ToLower(v.GetString("LOG_LEVEL"))
	cfg.APIKey = v.GetString("API_KEY")
	cfg.AllowedOrigins = v.GetString("ALLOWED_ORIGINS")
	cfg.AttachmentCachePath = v.GetString("ATTACHMENT_CACHE_PATH")

	if cfg.IMAP, err = loadIMAP(v); err != nil {
		return nil, err
	}
	if cfg.SMTP, err = loadSMTP(v); err != nil {
		return nil, err
	}

	if cfg.Contact.SendConfirmation, err = getBool(v, "CONTACT_SEND_CONFIRMATION"); err != nil {
		return nil, err
	}
	cfg.Contact.AdminEmail = v.GetString("ADMIN_EMAIL")
	cfg.Contact.BusinessName = v.GetString("CONTACT_BUSINESS_NAME")

	return cfg, nil
}

func loadIMAP(v *viper.Viper) (IMAPConfig, error) {
	c := IMAPConfig{
		Host:        v.GetString("IMAP_HOST"),
		Username:    v.GetString("IMAP_USERNAME"),
		Password:    v.GetString("IMAP_PASSWORD"),
		FilterLabel: v.GetString("IMAP_FILTER_LABEL"),
		TimeZone:    v.GetString("IMAP_TIME_ZONE"),
	}

	var err error
	if c.Port, err = getInt(v, "IMAP_PORT"); err != nil {
		return c, err
	}
	if c.UseSSL, err = getBool(v, "IMAP_USE_SSL"); err != nil {
		return c, err
	}
	if c.MaxMessages, err = getInt(v, "IMAP_MAX_MESSAGES"); err != nil {
		return c, err
	}
	if c.DetailedLogging, err = getBool(v, "IMAP_DETAILED_LOGGING"); err != nil {
		return c, err
	}

	interval, err := getInt(v, "IMAP_SYNC_INTERVAL_SECONDS")
	if err != nil {
		return c, err
	}
	c.SyncInterval = time.Duration(interval) * time.Second

	timeout, err := getInt(v, "IMAP_TIMEOUT_SECONDS")
	if err != nil {
		return c, err
	}
	c.Timeout = time.Duration(timeout) * time.Second

	// X-GM-LABELS is a Gmail extension; other servers reject it.
	c.GmailLabels = strings.Contains(strings.ToLower(c.Host), "gmail")
	if v.IsSet("IMAP_GMAIL_LABELS") {
		if c.GmailLabels, err = getBool(v, "IMAP_GMAIL_LABELS"); err != nil {
			return c, err
		}
	}

	c.SyncEnabled = c.Username != ""
	if v.IsSet("SYNC_ENABLED") {
		if c.SyncEnabled, err = getBool(v, "SYNC_ENABLED"); err != nil {
			return c, err
		}
	}

	return c, nil
}

func loadSMTP(v *viper.Viper) (SMTPConfig, error) {
	c := SMTPConfig{
		Host:      v.GetString("SMTP_HOST"),
		Username:  v.GetString("SMTP_USERNAME"),
		Password:  v.GetString("SMTP_PASSWORD"),
		FromEmail: v.GetString("SMTP_FROM_EMAIL"),
		FromName:  v.GetString("SMTP_FROM_NAME"),
	}

	var err error
	if c.Port, err = getInt(v, "SMTP_PORT"); err != nil {
		return c, err
	}
	if c.UseTLS, err = getBool(v, "SMTP_USE_TLS"); err != nil {
		return c, err
	}
	return c, nil
}

func getInt(v *viper.Viper, key string) (int, error) {
	n, err := cast.ToIntE(v.Get(key))
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func getBool(v *viper.Viper, key string) (bool, error) {
	b, err := cast.ToBoolE(v.Get(key))
	if err != nil {
		return false, fmt.Errorf("%s must be a valid boolean: %w", key, err)
	}
	return b, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Production-specific validation
	if cfg.IsProduction() {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.AttachmentCachePath == "" {
		return fmt.Errorf("AttachmentCachePath cannot be empty")
	}
	if _, err := time.LoadLocation(c.IMAP.TimeZone); err != nil {
		return fmt.Errorf("IMAP_TIME_ZONE %q is not a known time zone: %w", c.IMAP.TimeZone, err)
	}

	if c.IMAP.SyncEnabled {
		if c.IMAP.Host == "" || c.IMAP.Username == "" || c.IMAP.Password == "" {
			return fmt.Errorf("IMAP_HOST, IMAP_USERNAME and IMAP_PASSWORD are required when sync is enabled")
		}
		if c.IMAP.Port <= 0 || c.IMAP.Port > 65535 {
			return fmt.Errorf("IMAP_PORT must be between 1 and 65535")
		}
		if c.IMAP.SyncInterval < time.Second {
			return fmt.Errorf("IMAP_SYNC_INTERVAL_SECONDS must be at least 1")
		}
		if c.IMAP.MaxMessages <= 0 {
			return fmt.Errorf("IMAP_MAX_MESSAGES must be positive")
		}
		if c.IMAP.Timeout <= 0 {
			return fmt.Errorf("IMAP_TIMEOUT_SECONDS must be positive")
		}
	}

	if c.SMTP.Enabled() && (c.SMTP.Port <= 0 || c.SMTP.Port > 65535) {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	// Check for wildcard in production
	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	// Check for sslmode=disable in database URL
	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	if c.SMTP.Enabled() && c.Contact.AdminEmail == "" {
		return fmt.Errorf("ADMIN_EMAIL is required when SMTP is configured in production")
	}

	return nil
}

// Origins splits ALLOWED_ORIGINS into a list.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Location returns the display time zone for received timestamps.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.IMAP.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LOG_LEVEL to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Int("api_port", c.APIPort),
		slog.String("storage_path", c.AttachmentCachePath),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
		slog.Group("imap",
			slog.String("host", c.IMAP.Host),
			slog.Int("port", c.IMAP.Port),
			slog.Bool("ssl", c.IMAP.UseSSL),
			slog.Bool("username_set", c.IMAP.Username != ""),
			slog.Bool("password_set", c.IMAP.Password != ""),
			slog.String("filter_label", c.IMAP.FilterLabel),
			slog.Duration("sync_interval", c.IMAP.SyncInterval),
			slog.String("time_zone", c.IMAP.TimeZone),
			slog.Int("max_messages", c.IMAP.MaxMessages),
			slog.Bool("sync_enabled", c.IMAP.SyncEnabled),
		),
		slog.Group("smtp",
			slog.String("host", c.SMTP.Host),
			slog.Int("port", c.SMTP.Port),
			slog.Bool("implicit_tls", c.SMTP.UseTLS),
			slog.Bool("enabled", c.SMTP.Enabled()),
			slog.Bool("admin_email_set", c.Contact.AdminEmail != ""),
		),
	)
}
