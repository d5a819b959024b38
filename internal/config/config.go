// Package config assembles the service configuration from, in increasing
// priority: built-in defaults, an optional JSON or YAML file named by the
// CONFIG environment variable, environment variables (optionally loaded from
// a .env file) and command line flags. The result is validated before use.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
	EnvironmentTest        = "test"

	EmbeddingProviderGemini = "gemini"
	EmbeddingProviderHTTP   = "http"
)

// Config holds every setting of the service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" yaml:"server_address" validate:"hostname_port"`
	GRPCAddr            string        `env:"GRPC_ADDRESS" yaml:"grpc_address" validate:"omitempty,hostname_port"`
	Environment         string        `env:"ENV" yaml:"env" validate:"oneof=development production test"`
	LogLevel            string        `env:"LOG_LEVEL" yaml:"log_level" validate:"loglevel"`
	DatabaseDSN         string        `env:"DATABASE_URL" yaml:"database_url"`
	SQLitePath          string        `env:"SQLITE_PATH" yaml:"sqlite_path" validate:"storagepath"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" yaml:"db_connection_timeout" validate:"gt=0"`

	TwitterBearerToken string  `env:"TWITTER_BEARER_TOKEN" yaml:"twitter_bearer_token"`
	TwitterAPIURL      string  `env:"TWITTER_API_URL" yaml:"twitter_api_url" validate:"url"`
	TwitterAPIRPS      float64 `env:"TWITTER_API_RPS" yaml:"twitter_api_rps" validate:"gt=0"`
	TwitterAPIBurst    int     `env:"TWITTER_API_BURST" yaml:"twitter_api_burst" validate:"gte=1"`

	EmbeddingProvider string `env:"EMBEDDING_PROVIDER" yaml:"embedding_provider" validate:"oneof=gemini http"`
	EmbeddingModel    string `env:"EMBEDDING_MODEL" yaml:"embedding_model" validate:"required"`
	GeminiAPIKey      string `env:"GEMINI_API_KEY" yaml:"gemini_api_key"`
	EmbeddingAPIURL   string `env:"EMBEDDING_API_URL" yaml:"embedding_api_url" validate:"omitempty,url"`
	EmbeddingAPIKey   string `env:"EMBEDDING_API_KEY" yaml:"embedding_api_key"`

	AdminTokenSecret string `env:"ADMIN_TOKEN_SECRET" yaml:"admin_token_secret"`

	// SeedUsers are registered on startup before the server starts listening.
	SeedUsers []string `env:"SEED_USERS" envSeparator:"," yaml:"seed_users" validate:"dive,required"`

	ConfigFile string `env:"CONFIG" yaml:"-"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	Environment:         EnvironmentDevelopment,
	LogLevel:            "info",
	DBConnectionTimeout: 10 * time.Second,
	TwitterAPIURL:       "https://api.twitter.com/2",
	TwitterAPIRPS:       1,
	TwitterAPIBurst:     5,
	EmbeddingProvider:   EmbeddingProviderGemini,
	EmbeddingModel:      "text-embedding-004",
}

// ErrMissingCredential is returned when an upstream API credential required
// by the selected environment or provider is not configured.
var ErrMissingCredential = errors.New("missing credential")

// InitOption customizes New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	disableDotEnv       bool
	args                []string
}

// WithDisableFlagsParsing skips command line flags, which tests need.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithDisableDotEnv skips loading the .env file.
func WithDisableDotEnv(disableDotEnv bool) InitOption {
	return func(options *initOptions) {
		options.disableDotEnv = disableDotEnv
	}
}

// WithArgs parses args instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// IsProduction reports whether the service runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// New builds and validates the configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if !options.disableDotEnv {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("Unable to load .env file: %v", err)
		}
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	configFile := os.Getenv("CONFIG")
	if configFile != "" {
		if err := values.loadFile(configFile); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	if !options.disableFlagsParsing {
		if err := values.parseFlags(options.args); err != nil {
			return nil, err
		}
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

// loadFile reads a JSON or YAML file. JSON is a subset of YAML, so one decoder serves both.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadFile(): error while `os.ReadFile()` calling: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("in internal/config/config.go/loadFile(): error while `yaml.Unmarshal()` calling: %w", err)
	}
	c.ConfigFile = path

	return nil
}

func (c *Config) parseFlags(args []string) error {
	flags := flag.NewFlagSet("twitoff", flag.ContinueOnError)
	flags.StringVar(&c.RunAddr, "a", c.RunAddr, "address and port to run the HTTP server")
	flags.StringVar(&c.GRPCAddr, "g", c.GRPCAddr, "address and port to run the gRPC health server")
	flags.StringVar(&c.Environment, "e", c.Environment, "environment name (development, production, test)")
	flags.StringVar(&c.LogLevel, "l", c.LogLevel, "logger level")
	flags.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "PostgreSQL connection string")
	flags.StringVar(&c.SQLitePath, "f", c.SQLitePath, "SQLite database file")
	flags.Func("seed", "comma separated user names to register on startup", func(value string) error {
		c.SeedUsers = splitNames(value)
		return nil
	})

	return flags.Parse(args)
}

func splitNames(value string) []string {
	result := []string{}
	for _, name := range strings.Split(value, ",") {
		if name = strings.TrimSpace(name); name != "" {
			result = append(result, name)
		}
	}

	return result
}

func validateStoragePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	info, err := os.Stat(path)
	if err != nil {
		return os.IsNotExist(err)
	}

	return !info.IsDir()
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warn":    true,
		"warning": true,
		"error":   true,
		"fatal":   true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("storagepath", validateStoragePath)
	if err != nil {
		return err
	}

	if err := validate.Struct(c); err != nil {
		return err
	}

	return c.validateCredentials()
}

// validateCredentials checks the upstream credentials. The test environment
// runs against fakes and needs none.
func (c *Config) validateCredentials() error {
	if c.Environment == EnvironmentTest {
		return nil
	}
	if c.TwitterBearerToken == "" {
		return fmt.Errorf("%w: TWITTER_BEARER_TOKEN is required", ErrMissingCredential)
	}
	switch c.EmbeddingProvider {
	case EmbeddingProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required by the gemini embedding provider", ErrMissingCredential)
		}
	case EmbeddingProviderHTTP:
		if c.EmbeddingAPIURL == "" {
			return fmt.Errorf("%w: EMBEDDING_API_URL is required by the http embedding provider", ErrMissingCredential)
		}
	}

	return nil
}
