//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-salesmart.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// DateLayout is the layout of the seed date range values.
const DateLayout = time.DateOnly

// Config holds all configuration for pgedge-salesmart.
type Config struct {
	// Connection is the PostgreSQL connection string.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Warehouse holds configuration for the build subcommand.
	Warehouse WarehouseConfig `mapstructure:"warehouse"`

	// Seed holds configuration for the seed subcommand.
	Seed SeedConfig `mapstructure:"seed"`

	// Serve holds configuration for the analytics API.
	Serve ServeConfig `mapstructure:"serve"`
}

// WarehouseConfig holds configuration for warehouse builds.
type WarehouseConfig struct {
	// SourceSchema is the namespace holding the production tables.
	SourceSchema string `mapstructure:"source_schema"`

	// WarehouseSchema is the namespace the star schema is built in.
	WarehouseSchema string `mapstructure:"warehouse_schema"`

	// HistoryMode is "snapshot" or "true_scd2".
	HistoryMode string `mapstructure:"history_mode"`

	// KeyMissPolicy is "drop" or "fail".
	KeyMissPolicy string `mapstructure:"key_miss_policy"`

	// ReportPath, when set, receives the JSON run summary of every build.
	ReportPath string `mapstructure:"report_path"`

	// PaymentMethods are the known payment methods and their types.
	PaymentMethods []warehouse.PaymentMethodConfig `mapstructure:"payment_methods"`
}

// SeedConfig holds configuration for synthetic data generation.
type SeedConfig struct {
	Customers    int    `mapstructure:"customers"`
	Products     int    `mapstructure:"products"`
	Transactions int    `mapstructure:"transactions"`
	StartDate    string `mapstructure:"start_date"`
	EndDate      string `mapstructure:"end_date"`

	// Seed makes generation repeatable.
	Seed uint64 `mapstructure:"seed"`

	// Truncate clears the production tables before loading.
	Truncate bool `mapstructure:"truncate"`
}

// ServeConfig holds configuration for the analytics API.
type ServeConfig struct {
	// Listen is the address the API listens on.
	Listen string `mapstructure:"listen"`

	// QueryTimeout bounds each request's database work.
	QueryTimeout time.Duration `mapstructure:"query_timeout"`

	// MaxConns is the size of the API connection pool.
	MaxConns int32 `mapstructure:"max_conns"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Warehouse: WarehouseConfig{
			SourceSchema:    "production",
			WarehouseSchema: "warehouse",
			HistoryMode:     string(warehouse.HistorySnapshot),
			KeyMissPolicy:   string(warehouse.KeyMissDrop),
			PaymentMethods:  warehouse.DefaultPaymentMethods(),
		},
		Seed: SeedConfig{
			Customers:    1000,
			Products:     200,
			Transactions: 5000,
			StartDate:    "2023-01-01",
			EndDate:      "2024-12-31",
			Seed:         42,
		},
		Serve: ServeConfig{
			Listen:       ":8080",
			QueryTimeout: 10 * time.Second,
			MaxConns:     10,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-salesmart.yaml
// 3. ~/.config/pgedge-salesmart/pgedge-salesmart.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-salesmart")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-salesmart"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required")
	}
	if c.Warehouse.SourceSchema == "" || c.Warehouse.WarehouseSchema == "" {
		return fmt.Errorf("source_schema and warehouse_schema are required")
	}
	if c.Warehouse.SourceSchema == c.Warehouse.WarehouseSchema {
		return fmt.Errorf("source_schema and warehouse_schema must differ")
	}
	return nil
}

// ValidateBuild checks configuration required for the build command.
func (c *Config) ValidateBuild() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return c.WarehouseOptions().Validate()
}

// ValidateSeed checks configuration required for the seed command.
func (c *Config) ValidateSeed() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Seed.Customers < 1 || c.Seed.Products < 1 {
		return fmt.Errorf("seed customers and products must be at least 1")
	}
	if c.Seed.Transactions < 0 {
		return fmt.Errorf("seed transactions must be non-negative")
	}
	start, end, err := c.Seed.DateRange()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("seed end_date must not be before start_date")
	}
	return nil
}

// ValidateServe checks configuration required for the serve command.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Serve.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Serve.QueryTimeout <= 0 {
		return fmt.Errorf("query_timeout must be positive")
	}
	if c.Serve.MaxConns < 1 {
		return fmt.Errorf("max_conns must be at least 1")
	}
	return nil
}

// Schemas returns the configured production and warehouse namespaces.
func (c *Config) Schemas() (production, warehouse string) {
	return c.Warehouse.SourceSchema, c.Warehouse.WarehouseSchema
}

// WarehouseOptions converts the warehouse section into build options.
func (c *Config) WarehouseOptions() warehouse.Options {
	return warehouse.Options{
		HistoryMode:    warehouse.HistoryMode(c.Warehouse.HistoryMode),
		KeyMissPolicy:  warehouse.KeyMissPolicy(c.Warehouse.KeyMissPolicy),
		PaymentMethods: c.Warehouse.PaymentMethods,
	}
}

// DateRange parses the seed start and end dates.
func (s SeedConfig) DateRange() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, s.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid seed start_date %q: %w", s.StartDate, err)
	}
	end, err := time.Parse(DateLayout, s.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid seed end_date %q: %w", s.EndDate, err)
	}
	return start, end, nil
}
