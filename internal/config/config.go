// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for taxgo. It is loaded once at startup
// by viper and treated as read-only afterwards.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Browser     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	Humanoid    HumanoidConfig    `mapstructure:"humanoid" yaml:"humanoid"`
	Certificate CertificateConfig `mapstructure:"certificate" yaml:"certificate"`
	Buyer       BuyerConfig       `mapstructure:"buyer" yaml:"buyer"`
	Sheet       SheetConfig       `mapstructure:"sheet" yaml:"sheet"`
	Retry       RetryConfig       `mapstructure:"retry" yaml:"retry"`
	Timeouts    TimeoutConfig     `mapstructure:"timeouts" yaml:"timeouts"`
	// Dev enables operator prompts between retries and verbose step logs.
	Dev bool `mapstructure:"dev" yaml:"dev"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls how Chrome is launched and which profile it is bound to.
type BrowserConfig struct {
	ExecPath        string   `mapstructure:"exec_path" yaml:"exec_path"`
	UserDataParent  string   `mapstructure:"user_data_parent" yaml:"user_data_parent"`
	DefaultProfile  string   `mapstructure:"default_profile" yaml:"default_profile"`
	StartURL        string   `mapstructure:"start_url" yaml:"start_url"`
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string `mapstructure:"args" yaml:"args"`

	// Locale and Timezone are emulated on the tab. Empty leaves Chrome's own.
	Locale   string `mapstructure:"locale" yaml:"locale"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// PasswordRule maps a substring of a certificate's display text to its password.
type PasswordRule struct {
	Match    string `mapstructure:"match" yaml:"match"`
	Password string `mapstructure:"password" yaml:"password"`
}

// CertificateConfig selects the certificate used for login. Negative indexes mean "unset".
type CertificateConfig struct {
	DriveName  string         `mapstructure:"drive_name" yaml:"drive_name"`
	DriveIndex int            `mapstructure:"drive_index" yaml:"drive_index"`
	Name       string         `mapstructure:"name" yaml:"name"`
	Index      int            `mapstructure:"index" yaml:"index"`
	Password   string         `mapstructure:"password" yaml:"password"`
	Passwords  []PasswordRule `mapstructure:"passwords" yaml:"passwords"`
}

// ResolvePassword returns the password of the first rule with a password
// whose Match is contained in certText, falling back to the default Password.
func (c CertificateConfig) ResolvePassword(certText string) string {
	for _, rule := range c.Passwords {
		if rule.Match != "" && rule.Password != "" && strings.Contains(certText, rule.Match) {
			return rule.Password
		}
	}
	return c.Password
}

// BuyerConfig holds static buyer overrides.
type BuyerConfig struct {
	BizNo string `mapstructure:"biz_no" yaml:"biz_no"`
}

// SheetConfig locates the Google spreadsheet used as the invoice source.
type SheetConfig struct {
	SpreadsheetID     string  `mapstructure:"spreadsheet_id" yaml:"spreadsheet_id"`
	CredentialsFile   string  `mapstructure:"credentials_file" yaml:"credentials_file"`
	InvoiceRange      string  `mapstructure:"invoice_range" yaml:"invoice_range"`
	BuyerRange        string  `mapstructure:"buyer_range" yaml:"buyer_range"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// URL returns the browser URL of the spreadsheet.
func (s SheetConfig) URL() string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit", s.SpreadsheetID)
}

// Validate checks the fields required by commands that touch the spreadsheet.
func (s SheetConfig) Validate() error {
	if s.SpreadsheetID == "" {
		return fmt.Errorf("sheet.spreadsheet_id is required")
	}
	if s.CredentialsFile == "" {
		return fmt.Errorf("sheet.credentials_file is required. Set it in config or TAXGO_SHEET_CREDENTIALS")
	}
	if s.InvoiceRange == "" || s.BuyerRange == "" {
		return fmt.Errorf("sheet.invoice_range and sheet.buyer_range are required")
	}
	return nil
}

// RetryConfig bounds the login retry loop.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay" yaml:"delay"`
	CertDelay   time.Duration `mapstructure:"cert_delay" yaml:"cert_delay"`
}

// TimeoutConfig holds the per-wait timeouts used by the page steps.
type TimeoutConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Field        time.Duration `mapstructure:"field" yaml:"field"`
	Buyer        time.Duration `mapstructure:"buyer" yaml:"buyer"`
	Login        time.Duration `mapstructure:"login" yaml:"login"`
	CertModal    time.Duration `mapstructure:"cert_modal" yaml:"cert_modal"`
	Menu         time.Duration `mapstructure:"menu" yaml:"menu"`
	Resign       time.Duration `mapstructure:"resign" yaml:"resign"`
	UserConfirm  time.Duration `mapstructure:"user_confirm" yaml:"user_confirm"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "taxgo")
	v.SetDefault("logger.log_file", "taxgo.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_data_parent", "~/taxgo-profiles")
	v.SetDefault("browser.default_profile", "")
	v.SetDefault("browser.start_url", "https://hometax.go.kr/")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", true)
	v.SetDefault("browser.locale", "ko-KR")
	v.SetDefault("browser.timezone", "Asia/Seoul")

	setHumanoidDefaults(v)

	// -- Certificate --
	v.SetDefault("certificate.drive_name", "")
	v.SetDefault("certificate.drive_index", -1)
	v.SetDefault("certificate.name", "")
	v.SetDefault("certificate.index", -1)

	// -- Buyer --
	v.SetDefault("buyer.biz_no", "")

	// -- Sheet --
	v.SetDefault("sheet.spreadsheet_id", "")
	v.SetDefault("sheet.invoice_range", "세금계산서(발행)!A1:R2000")
	v.SetDefault("sheet.buyer_range", "거래처!A:H")
	v.SetDefault("sheet.requests_per_minute", 60.0)

	// -- Retry --
	v.SetDefault("retry.max_attempts", 30)
	v.SetDefault("retry.delay", "1s")
	v.SetDefault("retry.cert_delay", "1200ms")

	// -- Timeouts --
	v.SetDefault("timeouts.poll_interval", "200ms")
	v.SetDefault("timeouts.field", "8s")
	v.SetDefault("timeouts.buyer", "20s")
	v.SetDefault("timeouts.login", "60s")
	v.SetDefault("timeouts.cert_modal", "60s")
	v.SetDefault("timeouts.menu", "60s")
	v.SetDefault("timeouts.resign", "10s")
	v.SetDefault("timeouts.user_confirm", "300s")

	v.SetDefault("dev", false)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Secrets are expected to come from the environment rather than the file.
	_ = v.BindEnv("certificate.password", "TAXGO_CERT_PASSWORD")
	_ = v.BindEnv("sheet.credentials_file", "TAXGO_SHEET_CREDENTIALS")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values. Sheet settings are
// validated separately by the commands that need them.
func (c *Config) Validate() error {
	switch c.Logger.Format {
	case "console", "plain", "json":
	default:
		return fmt.Errorf("logger.format must be console, plain or json, got %q", c.Logger.Format)
	}
	if c.Browser.StartURL == "" {
		return fmt.Errorf("browser.start_url is required")
	}
	if c.Browser.UserDataParent == "" {
		return fmt.Errorf("browser.user_data_parent is required")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be a positive integer")
	}
	if c.Retry.Delay < 0 || c.Retry.CertDelay < 0 {
		return fmt.Errorf("retry delays must not be negative")
	}
	if c.Timeouts.PollInterval <= 0 {
		return fmt.Errorf("timeouts.poll_interval must be a positive duration")
	}
	for i, rule := range c.Certificate.Passwords {
		if rule.Match == "" {
			return fmt.Errorf("certificate.passwords[%d].match must not be empty", i)
		}
	}
	if err := c.Humanoid.Validate(); err != nil {
		return fmt.Errorf("humanoid configuration invalid: %w", err)
	}
	return nil
}
