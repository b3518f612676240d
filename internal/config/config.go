package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

const envPrefix = "DEBTPLAN_"

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
	Debug      bool   `yaml:"debug" json:"debug"`

	// Directories
	DataDirectory      string `yaml:"data_directory" json:"data_directory"`
	TemplatesDirectory string `yaml:"templates_directory" json:"templates_directory"`
	StaticDirectory    string `yaml:"static_directory" json:"static_directory"`

	Calculator Calculator `yaml:"calculator" json:"calculator"`
	Intake     Intake     `yaml:"intake" json:"intake"`
	Cache      Cache      `yaml:"cache" json:"cache"`
	Retention  Retention  `yaml:"retention" json:"retention"`
}

// Calculator holds the defaults shown on the calculator form
type Calculator struct {
	MinimumPaymentFloor       float64 `yaml:"minimum_payment_floor" json:"minimum_payment_floor"`
	IssuerPrincipalPercentage float64 `yaml:"issuer_principal_percentage" json:"issuer_principal_percentage"`
	DefaultBalance            float64 `yaml:"default_balance" json:"default_balance"`
	DefaultAPR                float64 `yaml:"default_apr" json:"default_apr"`
}

// Intake selects where submissions are stored: "file", "sqlite" or "postgres"
type Intake struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"-"`
}

// Cache configures the schedule cache. An empty RedisAddr keeps it in memory.
type Cache struct {
	RedisAddr string        `yaml:"redis_addr" json:"redis_addr"`
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
}

// Retention configures the intake purge. Days == 0 keeps submissions forever.
type Retention struct {
	Days     int    `yaml:"days" json:"days"`
	Schedule string `yaml:"schedule" json:"schedule"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		ListenAddr:         ":8080",
		DataDirectory:      filepath.Join(wd, "data"),
		TemplatesDirectory: filepath.Join(wd, "web", "templates"),
		StaticDirectory:    filepath.Join(wd, "web", "static"),
		Calculator: Calculator{
			MinimumPaymentFloor:       25,
			IssuerPrincipalPercentage: 1.5,
			DefaultBalance:            5000,
			DefaultAPR:                22.9,
		},
		Intake: Intake{Driver: "file"},
		Cache:  Cache{TTL: 10 * time.Minute},
		Retention: Retention{
			Schedule: "0 0 3 * * *",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and DEBTPLAN_* environment variables, in that order
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			file := &Config{}
			if err := yaml.Unmarshal(data, file); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
			if err := mergo.Merge(cfg, file, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("merge config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.Intake.Driver == "sqlite" && cfg.Intake.DSN == "" {
		cfg.Intake.DSN = filepath.Join(cfg.DataDirectory, "intake.db")
	}

	cfg.ensureDirectories()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}

	str("LISTEN_ADDR", &c.ListenAddr)
	str("DATA_DIR", &c.DataDirectory)
	str("TEMPLATES_DIR", &c.TemplatesDirectory)
	str("STATIC_DIR", &c.StaticDirectory)
	str("INTAKE_DRIVER", &c.Intake.Driver)
	str("INTAKE_DSN", &c.Intake.DSN)
	str("REDIS_ADDR", &c.Cache.RedisAddr)
	str("RETENTION_CRON", &c.Retention.Schedule)

	if v := os.Getenv(envPrefix + "DEBUG"); v == "true" || v == "1" {
		c.Debug = true
	}
	if v := os.Getenv(envPrefix + "RETENTION_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sRETENTION_DAYS: %w", envPrefix, err)
		}
		c.Retention.Days = days
	}
	if v := os.Getenv(envPrefix + "CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sCACHE_TTL: %w", envPrefix, err)
		}
		c.Cache.TTL = ttl
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	switch c.Intake.Driver {
	case "file", "sqlite":
	case "postgres":
		if c.Intake.DSN == "" {
			return fmt.Errorf("intake.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("intake.driver %q is not one of file, sqlite, postgres", c.Intake.Driver)
	}
	if c.Calculator.MinimumPaymentFloor <= 0 {
		return fmt.Errorf("calculator.minimum_payment_floor must be positive")
	}
	if p := c.Calculator.IssuerPrincipalPercentage; p < 0 || p > 100 {
		return fmt.Errorf("calculator.issuer_principal_percentage must be between 0 and 100")
	}
	if c.Retention.Days < 0 {
		return fmt.Errorf("retention.days cannot be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}
	return nil
}

// ensureDirectories creates required directories if they don't exist
func (c *Config) ensureDirectories() {
	dirs := []string{
		c.DataDirectory,
		filepath.Join(c.DataDirectory, "intake"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("Warning: could not create directory %s: %v", dir, err)
		}
	}
}
