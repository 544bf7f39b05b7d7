package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported job store drivers
const (
	DriverMongo  = "mongo"
	DriverBadger = "badger"
)

// CallbackPath is the route the external workflow calls back on
const CallbackPath = "/api/v1/callbacks"

// Config holds all application configuration
type Config struct {
	// Store Configuration
	StoreDriver string       `env:"STORE_DRIVER" envDefault:"mongo"`
	Mongo       MongoConfig  `envPrefix:"MONGO_"`
	Badger      BadgerConfig `envPrefix:"BADGER_"`

	// HTTP Server Configuration
	HTTP HTTPConfig `envPrefix:"HTTP_"`

	// Logging Configuration
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// PublicBaseURL is the externally reachable address of this service,
	// used to build the callback address handed to the trigger.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// Trigger Configuration
	Trigger  TriggerConfig  `envPrefix:"TRIGGER_"`
	Dispatch DispatchConfig `envPrefix:"DISPATCH_"`

	AllowedTargetHosts []string `env:"ALLOWED_TARGET_HOSTS" envDefault:"instagram.com"`

	// Callback Configuration
	Callback CallbackConfig `envPrefix:"CALLBACK_"`

	// Purge Configuration
	Purge PurgeConfig `envPrefix:"PURGE_"`

	// CORS Configuration
	CORS CORSConfig `envPrefix:"CORS_"`
}

// MongoConfig configures the MongoDB job store
type MongoConfig struct {
	URI      string        `env:"URI"      envDefault:"mongodb://localhost:27017/boomerang?authSource=admin"`
	Database string        `env:"DATABASE" envDefault:"boomerang"`
	Timeout  time.Duration `env:"TIMEOUT"  envDefault:"10s"`
}

// BadgerConfig configures the embedded job store
type BadgerConfig struct {
	Dir      string `env:"DIR"       envDefault:"./data"`
	InMemory bool   `env:"IN_MEMORY" envDefault:"false"`
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Port         string        `env:"PORT"          envDefault:"8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT"  envDefault:"30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
}

// TriggerConfig configures the outbound trigger call
type TriggerConfig struct {
	URL     string            `env:"URL"`
	Timeout time.Duration     `env:"TIMEOUT" envDefault:"5s"`
	Params  map[string]string `env:"PARAMS"`
	Headers map[string]string `env:"HEADERS"`
}

// DispatchConfig sizes the dispatch worker pool
type DispatchConfig struct {
	Workers   int `env:"WORKERS"    envDefault:"10"`
	QueueSize int `env:"QUEUE_SIZE" envDefault:"1000"`
}

// CallbackConfig controls callback normalization
type CallbackConfig struct {
	Marker         string   `env:"MARKER"           envDefault:"="`
	JobIDPaths     []string `env:"JOB_ID_PATHS"     envDefault:"$.jobId,$.job_id"`
	SuccessPaths   []string `env:"SUCCESS_PATHS"    envDefault:"$.success"`
	ItemsPaths     []string `env:"ITEMS_PATHS"      envDefault:"$.items"`
	ItemCountPaths []string `env:"ITEM_COUNT_PATHS" envDefault:"$.itemCount,$.item_count"`
	ErrorPaths     []string `env:"ERROR_PATHS"      envDefault:"$.error,$.errorMessage"`
}

// PurgeConfig controls the scheduled age-based purge
type PurgeConfig struct {
	Enabled       bool   `env:"ENABLED"         envDefault:"true"`
	Schedule      string `env:"SCHEDULE"        envDefault:"@daily"`
	OlderThanDays int    `env:"OLDER_THAN_DAYS" envDefault:"7"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `env:"ALLOWED_ORIGINS"   envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"ALLOWED_METHODS"   envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"ALLOWED_HEADERS"   envDefault:"Content-Type,X-Correlation-ID"`
	AllowCredentials bool     `env:"ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"MAX_AGE"           envDefault:"3600"`
}

// Load reads an optional .env file and parses configuration from the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.sanitize()
	return &cfg, nil
}

func (c *Config) sanitize() {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")

	hosts := c.AllowedTargetHosts[:0]
	for _, h := range c.AllowedTargetHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	c.AllowedTargetHosts = hosts
}

// CallbackURL is the address handed to the trigger for the later callback
func (c *Config) CallbackURL() string {
	return c.PublicBaseURL + CallbackPath
}

// ValidateStore checks the settings needed to open the job store
func (c *Config) ValidateStore() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.Mongo.URI == "" {
			return errors.New("MONGO_URI is required for the mongo store")
		}
	case DriverBadger:
		if !c.Badger.InMemory && c.Badger.Dir == "" {
			return errors.New("BADGER_DIR is required unless BADGER_IN_MEMORY is set")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER: %q (valid options: mongo, badger)", c.StoreDriver)
	}
	return nil
}

// Validate checks everything the server needs to run
func (c *Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}

	if c.Trigger.URL == "" {
		return errors.New("TRIGGER_URL is required")
	}
	if err := validateHTTPURL(c.Trigger.URL); err != nil {
		return fmt.Errorf("invalid TRIGGER_URL: %w", err)
	}
	if err := validateHTTPURL(c.PublicBaseURL); err != nil {
		return fmt.Errorf("invalid PUBLIC_BASE_URL: %w", err)
	}
	if c.Trigger.Timeout <= 0 {
		return errors.New("TRIGGER_TIMEOUT must be positive")
	}
	if c.Dispatch.Workers <= 0 || c.Dispatch.QueueSize <= 0 {
		return errors.New("DISPATCH_WORKERS and DISPATCH_QUEUE_SIZE must be positive")
	}
	if len(c.AllowedTargetHosts) == 0 {
		return errors.New("ALLOWED_TARGET_HOSTS must name at least one host")
	}
	if len(c.Callback.JobIDPaths) == 0 {
		return errors.New("CALLBACK_JOB_ID_PATHS must not be empty")
	}
	if c.Purge.Enabled && c.Purge.OlderThanDays <= 0 {
		return errors.New("PURGE_OLDER_THAN_DAYS must be positive")
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	if u.Host == "" {
		return errors.New("URL must include a host")
	}
	return nil
}
