package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"
)

const (
	Development = "development"
	Production  = "production"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Host           string        `yaml:"host"`
	Port           string        `yaml:"port"`
	Environment    string        `yaml:"environment"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// TrustProxyHeaders keys clients by X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`

	// Filesystem and tools
	StoreDir    string `yaml:"store_dir"`
	WorkDir     string `yaml:"work_dir"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`

	// Artifacts and jobs
	ArtifactTTL       time.Duration `yaml:"artifact_ttl"`
	JanitorInterval   time.Duration `yaml:"janitor_interval"`
	MaxConcurrentJobs int           `yaml:"max_concurrent_jobs"`
	IdempotencyTTL    time.Duration `yaml:"idempotency_ttl"`

	// Source download
	DownloadTimeout  time.Duration `yaml:"download_timeout"`
	MaxDownloadBytes int64         `yaml:"max_download_bytes"`
	AllowFileURLs    bool          `yaml:"allow_file_urls"`

	// Reloadable request limits
	Limits             audio.Limits `yaml:"limits"`
	RateLimitPerMinute int          `yaml:"rate_limit_per_minute"`

	// AWS configuration
	AWSRegion    string `yaml:"aws_region"`
	JobsTable    string `yaml:"jobs_table"`
	EventBusName string `yaml:"event_bus_name"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Authentication
	JWTSecret string `yaml:"-"`
	JWTIssuer string `yaml:"jwt_issuer"`

	// Feature flags
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableTracing bool   `yaml:"enable_tracing"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`
	EnableCORS    bool   `yaml:"enable_cors"`

	// ConfigFile is the YAML overlay this config was read from, if any.
	ConfigFile string `yaml:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               "8080",
		Environment:        Development,
		RequestTimeout:     5 * time.Minute,
		StoreDir:           "/tmp/audio_out",
		WorkDir:            os.TempDir(),
		FFmpegPath:         "ffmpeg",
		FFprobePath:        "ffprobe",
		ArtifactTTL:        24 * time.Hour,
		JanitorInterval:    10 * time.Minute,
		MaxConcurrentJobs:  0,
		IdempotencyTTL:     time.Hour,
		DownloadTimeout:    60 * time.Second,
		MaxDownloadBytes:   200 << 20,
		Limits:             audio.DefaultLimits(),
		RateLimitPerMinute: 30,
		AWSRegion:          "us-west-2",
		LogLevel:           "info",
		JWTIssuer:          "timestretch-api",
		EnableCORS:         true,
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by CONFIG_FILE, and environment variables, in increasing priority.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Host = getEnv("HOST", cfg.Host)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", cfg.TrustProxyHeaders)

	cfg.StoreDir = getEnv("STORE_DIR", cfg.StoreDir)
	cfg.WorkDir = getEnv("WORK_DIR", cfg.WorkDir)
	cfg.FFmpegPath = getEnv("FFMPEG_PATH", cfg.FFmpegPath)
	cfg.FFprobePath = getEnv("FFPROBE_PATH", cfg.FFprobePath)

	cfg.ArtifactTTL = getEnvDuration("ARTIFACT_TTL", cfg.ArtifactTTL)
	cfg.JanitorInterval = getEnvDuration("JANITOR_INTERVAL", cfg.JanitorInterval)
	cfg.MaxConcurrentJobs = getEnvInt("MAX_CONCURRENT_JOBS", cfg.MaxConcurrentJobs)
	cfg.IdempotencyTTL = getEnvDuration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL)

	cfg.DownloadTimeout = getEnvDuration("DOWNLOAD_TIMEOUT", cfg.DownloadTimeout)
	cfg.MaxDownloadBytes = getEnvInt64("MAX_DOWNLOAD_BYTES", cfg.MaxDownloadBytes)
	cfg.AllowFileURLs = getEnvBool("ALLOW_FILE_URLS", cfg.AllowFileURLs)

	cfg.Limits.MaxTargetDurationMs = getEnvInt("MAX_TARGET_DURATION_MS", cfg.Limits.MaxTargetDurationMs)
	cfg.Limits.MinStretchFactor = getEnvFloat("MIN_STRETCH_FACTOR", cfg.Limits.MinStretchFactor)
	cfg.Limits.MaxStretchFactor = getEnvFloat("MAX_STRETCH_FACTOR", cfg.Limits.MaxStretchFactor)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)

	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.JobsTable = getEnv("JOBS_TABLE", cfg.JobsTable)
	cfg.EventBusName = getEnv("EVENT_BUS_NAME", cfg.EventBusName)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)

	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableTracing = getEnvBool("ENABLE_TRACING", cfg.EnableTracing)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("PORT must be a TCP port number, got %q", c.Port)
	}
	if c.StoreDir == "" {
		return fmt.Errorf("STORE_DIR is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.DownloadTimeout <= 0 {
		return fmt.Errorf("DOWNLOAD_TIMEOUT must be positive")
	}
	if c.MaxDownloadBytes <= 0 {
		return fmt.Errorf("MAX_DOWNLOAD_BYTES must be positive")
	}
	if c.ArtifactTTL <= 0 || c.JanitorInterval <= 0 {
		return fmt.Errorf("ARTIFACT_TTL and JANITOR_INTERVAL must be positive")
	}
	if c.MaxConcurrentJobs < 0 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must not be negative")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("invalid limits: %w", err)
	}
	if c.EnableTracing && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required when tracing is enabled")
	}
	if c.IsProduction() && c.AllowFileURLs {
		return fmt.Errorf("ALLOW_FILE_URLS must not be set in production")
	}
	return nil
}

// ServerAddress is the listen address, HOST:PORT.
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
