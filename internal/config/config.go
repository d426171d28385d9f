package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Secret Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (ATSQUICK_AI_APIKEY, etc.)
// 4. Legacy environment variables (GCP_GEMINI_API_KEY, SMTP_HOST, etc.)
// 5. Default values - Lowest priority
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Contact       ContactConfig       `mapstructure:"contact"`
	Client        ClientConfig        `mapstructure:"client"`
	Store         StoreConfig         `mapstructure:"store"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds AI service configuration
type AIConfig struct {
	Provider       string               `mapstructure:"provider"`
	Model          string               `mapstructure:"model"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	APIKey         string               `mapstructure:"apiKey"`
	BaseURL        string               `mapstructure:"baseURL"` // Overrides the Gemini API endpoint
	Temperature    float32              `mapstructure:"temperature"`
	CustomPrompts  PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// PromptConfig holds configuration for the analysis instruction text
type PromptConfig struct {
	AnalyzeResume     string        `mapstructure:"analyzeResume"`
	AnalyzeResumeFile string        `mapstructure:"analyzeResumeFile"`
	Watch             bool          `mapstructure:"watch"`         // Reload the prompt file on change
	DebounceDelay     time.Duration `mapstructure:"debounceDelay"` // Debounce delay for file change events
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	TLS TLSConfig `mapstructure:"tls"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Mode       string `mapstructure:"mode"`       // TLS mode: "disabled", "server"
	CertFile   string `mapstructure:"certFile"`   // Server certificate file (PEM)
	KeyFile    string `mapstructure:"keyFile"`    // Server private key file (PEM)
	MinVersion string `mapstructure:"minVersion"` // Minimum TLS version: "1.2", "1.3"
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool          `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// CORSConfig holds cross-origin configuration for browser clients
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	Environment      string   `mapstructure:"environment"` // Only "development" exposes error details to clients
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
	ValidatePDF      bool     `mapstructure:"validatePdf"` // Reject uploads without a PDF header
}

// IsDevelopment reports whether error details may be shown to clients
func (a AppConfig) IsDevelopment() bool {
	return strings.EqualFold(a.Environment, "development")
}

// ContactConfig holds the contact form configuration
type ContactConfig struct {
	Receiver  string          `mapstructure:"receiver"`
	Recaptcha RecaptchaConfig `mapstructure:"recaptcha"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
}

// RecaptchaConfig holds bot verification settings
type RecaptchaConfig struct {
	SecretKey string        `mapstructure:"secretKey"`
	VerifyURL string        `mapstructure:"verifyUrl"`
	MinScore  float64       `mapstructure:"minScore"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SMTPConfig holds mail delivery settings
type SMTPConfig struct {
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	FromName  string        `mapstructure:"fromName"`
	TLSPolicy string        `mapstructure:"tlsPolicy"` // "opportunistic", "mandatory", "none"
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ClientConfig holds settings for the CLI analysis client
type ClientConfig struct {
	BaseURL string        `mapstructure:"baseUrl"`
	APIKey  string        `mapstructure:"apiKey"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreConfig holds the result store configuration
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // "file", "sqlite", "memory"
	Path    string `mapstructure:"path"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	AIOperations    AIOperationsMetricsConfig   `mapstructure:"aiOperations"`
	BusinessMetrics BusinessMetricsConfig       `mapstructure:"businessMetrics"`
	Infrastructure  InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// AIOperationsMetricsConfig holds AI operation metrics configuration
type AIOperationsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
	TrackModelInfo  bool `mapstructure:"trackModelInfo"`
}

// BusinessMetricsConfig holds business metrics configuration
type BusinessMetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	TrackSuccessRates bool `mapstructure:"trackSuccessRates"`
	TrackContentSizes bool `mapstructure:"trackContentSizes"`
	TrackContact      bool `mapstructure:"trackContact"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return loadConfig(newViper())
}

// Config file search locations, most specific last
var configSearchPaths = []string{"/etc/atsquick/", "$HOME/.atsquick", "."}

// newViper returns a viper instance wired with defaults, env and file lookup
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ATSQUICK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range configSearchPaths {
		v.AddConfigPath(dir)
	}
	return v
}

// readConfigFile returns the path of the file viper read, or "" when none was found
func readConfigFile(v *viper.Viper) (string, error) {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		return v.ConfigFileUsed(), nil
	case errors.As(err, &notFound):
		return "", nil
	default:
		return "", fmt.Errorf("failed to read config file: %w", err)
	}
}

func loadConfig(v *viper.Viper) (*Config, error) {
	source, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyFallbacks()
	cfg.logConfigurationSources(source)

	steps := []struct {
		what string
		run  func() error
	}{
		{"prompt file validation failed", cfg.validatePromptFiles},
		{"failed to load custom prompts from files", cfg.loadPromptsFromFiles},
		{"invalid configuration", cfg.Validate},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.what, err)
		}
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
// A missing AI key is not fatal here: the analysis endpoint reports it per request.
func (c *Config) Validate() error {
	breaker := c.AI.CircuitBreaker
	minScore := c.Contact.Recaptcha.MinScore

	checks := []struct {
		failed bool
		err    func() error
	}{
		{c.AI.Timeout <= 0, func() error { return fmt.Errorf("AI timeout must be positive") }},
		{c.Server.Port == "", func() error { return fmt.Errorf("server port is required") }},
		{c.App.MaxFileSize <= 0, func() error { return fmt.Errorf("max file size must be positive") }},
		{!slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat), func() error {
			return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
		}},
		{minScore < 0 || minScore > 1, func() error {
			return fmt.Errorf("reCAPTCHA minScore must be between 0 and 1, got %v", minScore)
		}},
		{!slices.Contains([]string{"file", "sqlite", "memory"}, c.Store.Backend), func() error {
			return fmt.Errorf("invalid store backend: %s (must be 'file', 'sqlite', or 'memory')", c.Store.Backend)
		}},
		{breaker.Enabled && (breaker.FailureThreshold <= 0 || breaker.FailureThreshold > 1), func() error {
			return fmt.Errorf("circuit breaker failureThreshold must be in (0, 1], got %v", breaker.FailureThreshold)
		}},
	}
	for _, check := range checks {
		if check.failed {
			return check.err()
		}
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}
	return nil
}

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	switch tls.Mode {
	case "", "disabled":
		return nil
	case "server":
		if tls.CertFile == "" || tls.KeyFile == "" {
			return fmt.Errorf("TLS certificate and key files are required for server mode")
		}
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled' or 'server')", tls.Mode)
	}

	switch tls.MinVersion {
	case "", "1.2", "1.3":
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", tls.MinVersion)
	}

	return nil
}

// GetLoadedAnalyzePrompt returns the analysis prompt loaded from file, if any
func (c *Config) GetLoadedAnalyzePrompt() string {
	return loadedPrompts.AnalyzeResume()
}
