package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TWCOLLECTOR_"

// Config holds all configuration options for the timeline collector
type Config struct {
	// Twitter API credentials and endpoint
	Twitter TwitterConfig `yaml:"twitter" json:"twitter"`

	// Collection loop behaviour
	Collection CollectionConfig `yaml:"collection" json:"collection"`

	// Rate limiting and retry configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TwitterConfig holds the four OAuth 1.0a credentials and API settings
type TwitterConfig struct {
	ConsumerKey       string        `yaml:"consumer_key" json:"consumer_key"`
	ConsumerSecret    string        `yaml:"consumer_secret" json:"consumer_secret"`
	AccessToken       string        `yaml:"access_token" json:"access_token"`
	AccessSecret      string        `yaml:"access_secret" json:"access_secret"`
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout"`
	VerifyCredentials bool          `yaml:"verify_credentials" json:"verify_credentials"`
}

// HasCredentials reports whether all four credentials are set
func (t TwitterConfig) HasCredentials() bool {
	return t.ConsumerKey != "" && t.ConsumerSecret != "" && t.AccessToken != "" && t.AccessSecret != ""
}

// CollectionConfig holds the per-run reporting switches
type CollectionConfig struct {
	PostsPerAccount   int  `yaml:"posts_per_account" json:"posts_per_account"`
	PrintFailed       bool `yaml:"print_failed" json:"print_failed"`
	PrintUnauthorized bool `yaml:"print_unauthorized" json:"print_unauthorized"`
	PrintErrors       bool `yaml:"print_errors" json:"print_errors"`
}

// RateLimitConfig holds client-side pacing and retry configuration
type RateLimitConfig struct {
	RequestsPerWindow int           `yaml:"requests_per_window" json:"requests_per_window"`
	Window            time.Duration `yaml:"window" json:"window"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay"`
	Backoff           string        `yaml:"backoff" json:"backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" json:"backoff_multiplier"`
	MaxDelay          time.Duration `yaml:"max_delay" json:"max_delay"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	NetworkRetryDelay time.Duration `yaml:"network_retry_delay" json:"network_retry_delay"`
	MaxNetworkRetries int           `yaml:"max_network_retries" json:"max_network_retries"`
}

// OutputConfig holds output file configuration
type OutputConfig struct {
	Format      string `yaml:"format" json:"format"`
	File        string `yaml:"file" json:"file"`
	SummaryFile string `yaml:"summary_file" json:"summary_file"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Twitter: TwitterConfig{
			BaseURL:        "https://api.twitter.com/1.1",
			RequestTimeout: 30 * time.Second,
		},
		Collection: CollectionConfig{
			PostsPerAccount:   200,
			PrintFailed:       true,
			PrintUnauthorized: true,
			PrintErrors:       true,
		},
		RateLimit: RateLimitConfig{
			// user_timeline allows 900 requests per 15 minute window per user token
			RequestsPerWindow: 900,
			Window:            15 * time.Minute,
			RetryDelay:        20 * time.Second,
			Backoff:           "constant",
			BackoffMultiplier: 2.0,
			MaxDelay:          15 * time.Minute,
			MaxRetries:        15,
			NetworkRetryDelay: 0,
			MaxNetworkRetries: 5,
		},
		Output: OutputConfig{
			Format: "json",
			File:   "timelines.jsonl",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Twitter credentials
	if v := getEnv("CONSUMER_KEY"); v != "" {
		c.Twitter.ConsumerKey = v
	}
	if v := getEnv("CONSUMER_SECRET"); v != "" {
		c.Twitter.ConsumerSecret = v
	}
	if v := getEnv("ACCESS_TOKEN"); v != "" {
		c.Twitter.AccessToken = v
	}
	if v := getEnv("ACCESS_SECRET"); v != "" {
		c.Twitter.AccessSecret = v
	}
	if v := getEnv("BASE_URL"); v != "" {
		c.Twitter.BaseURL = v
	}

	// Reporting switches
	var err error
	if c.Collection.PrintFailed, err = getEnvBool("PRINT_FAILED", c.Collection.PrintFailed); err != nil {
		return err
	}
	if c.Collection.PrintUnauthorized, err = getEnvBool("PRINT_UNAUTHORIZED", c.Collection.PrintUnauthorized); err != nil {
		return err
	}
	if c.Collection.PrintErrors, err = getEnvBool("PRINT_ERRORS", c.Collection.PrintErrors); err != nil {
		return err
	}

	// Retry
	if c.RateLimit.RetryDelay, err = getEnvDuration("RATE_LIMIT_DELAY", c.RateLimit.RetryDelay); err != nil {
		return err
	}
	if c.RateLimit.MaxRetries, err = getEnvInt("MAX_RATE_LIMIT_RETRIES", c.RateLimit.MaxRetries); err != nil {
		return err
	}
	if c.RateLimit.MaxNetworkRetries, err = getEnvInt("MAX_NETWORK_RETRIES", c.RateLimit.MaxNetworkRetries); err != nil {
		return err
	}

	// Output
	if v := getEnv("OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := getEnv("OUTPUT_FILE"); v != "" {
		c.Output.File = v
	}
	if v := getEnv("SUMMARY_FILE"); v != "" {
		c.Output.SummaryFile = v
	}
	if v := getEnv("METRICS_TEXTFILE"); v != "" {
		c.Metrics.Textfile = v
	}

	// Logging level
	if v := getEnv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return nil
}

func getEnv(key string) string {
	return os.Getenv(envPrefix + key)
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := getEnv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	return b, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := getEnv(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	return i, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := getEnv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	return d, nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"twcollector.yaml",
		".twcollector.yaml",
		".twcollector.yml",
		filepath.Join(home, ".config", "twcollector", "config.yaml"),
		filepath.Join(home, ".config", "twcollector", "config.yml"),
		filepath.Join(home, ".twcollector.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
// Credentials are not required here; they may come from the credential store.
func (c *Config) Validate() error {
	var errs []error

	if c.Twitter.BaseURL == "" {
		errs = append(errs, errors.New("twitter base URL is required"))
	}
	if c.Twitter.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Collection.PostsPerAccount <= 0 || c.Collection.PostsPerAccount > 200 {
		errs = append(errs, errors.New("posts per account must be between 1 and 200"))
	}

	if c.RateLimit.RequestsPerWindow <= 0 {
		errs = append(errs, errors.New("requests per window must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}
	if c.RateLimit.RetryDelay < 0 {
		errs = append(errs, errors.New("retry delay cannot be negative"))
	}
	if c.RateLimit.NetworkRetryDelay < 0 {
		errs = append(errs, errors.New("network retry delay cannot be negative"))
	}
	if c.RateLimit.MaxRetries < 1 {
		errs = append(errs, errors.New("max rate limit retries must be at least 1"))
	}
	if c.RateLimit.MaxNetworkRetries < 1 {
		errs = append(errs, errors.New("max network retries must be at least 1"))
	}
	switch strings.ToLower(c.RateLimit.Backoff) {
	case "constant", "linear":
	case "exponential":
		if c.RateLimit.BackoffMultiplier < 1 {
			errs = append(errs, errors.New("backoff multiplier must be at least 1"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid backoff strategy: %q", c.RateLimit.Backoff))
	}

	switch strings.ToLower(c.Output.Format) {
	case "json", "hashtags":
	default:
		errs = append(errs, fmt.Errorf("invalid output format: %q", c.Output.Format))
	}
	if c.Output.File == "" {
		errs = append(errs, errors.New("output file is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["format"].(string); ok && v != "" {
		c.Output.Format = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.File = v
	}
	if v, ok := flags["summary"].(string); ok && v != "" {
		c.Output.SummaryFile = v
	}
	if v, ok := flags["metrics-textfile"].(string); ok && v != "" {
		c.Metrics.Textfile = v
	}
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.Twitter.BaseURL = v
	}
	if v, ok := flags["verify"].(bool); ok {
		c.Twitter.VerifyCredentials = v
	}
	if v, ok := flags["print-errors"].(bool); ok {
		c.Collection.PrintErrors = v
	}
	if v, ok := flags["print-failed"].(bool); ok {
		c.Collection.PrintFailed = v
	}
	if v, ok := flags["print-unauthorized"].(bool); ok {
		c.Collection.PrintUnauthorized = v
	}
	if v, ok := flags["rate-limit-delay"].(time.Duration); ok && v >= 0 {
		c.RateLimit.RetryDelay = v
	}
	if v, ok := flags["max-retries"].(int); ok && v > 0 {
		c.RateLimit.MaxRetries = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".twcollector.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
