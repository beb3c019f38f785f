// Package config provides the unified configuration system for Tidemark.
// It defines a single BaseConfig structure that all connectors use,
// organized into logical sections:
//   - Connection: DSN, entity and column selection
//   - HWM: the tracked expression and its store location
//   - Performance: batch and fetch sizing
//   - Output: file destination settings
//   - Observability: logging, metrics and tracing
//
// Example usage:
//
//	cfg := config.NewBaseConfig("orders", "postgres")
//	cfg.Connection.DSN = "postgres://app@db:5432/shop"
//	cfg.Connection.Table = "public.orders"
//	cfg.HWM.Expression = "id"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"
)

// BaseConfig is the single configuration structure all connectors use
type BaseConfig struct {
	// Name identifies the connector instance
	Name string `yaml:"name" json:"name"`
	// Type specifies the connector type (e.g., "postgres", "mysql", "csv")
	Type string `yaml:"type" json:"type"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version"`

	// Connection settings for database-backed connectors
	Connection ConnectionConfig `yaml:"connection" json:"connection"`

	// HWM settings for incremental reads
	HWM HWMConfig `yaml:"hwm" json:"hwm"`

	// Performance settings control batch sizing
	Performance PerformanceConfig `yaml:"performance" json:"performance"`

	// Output settings for file-backed destinations
	Output OutputConfig `yaml:"output" json:"output"`

	// Observability settings for logging and monitoring
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ConnectionConfig describes how a database connector reaches its source
type ConnectionConfig struct {
	// DSN is the driver connection string
	DSN string `yaml:"dsn" json:"dsn"`
	// Table is the qualified entity to read (e.g., "public.orders")
	Table string `yaml:"table" json:"table"`
	// Columns restricts the selected columns; empty selects all
	Columns []string `yaml:"columns" json:"columns"`
	// Filter is an extra WHERE clause ANDed into every read
	Filter string `yaml:"filter" json:"filter"`
	// ConnectTimeout bounds connection establishment
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
}

// HWMConfig describes the tracked high-water-mark expression
type HWMConfig struct {
	// Expression is the column or SQL expression the mark tracks
	Expression string `yaml:"expression" json:"expression"`
	// ColumnType overrides catalog type resolution (e.g., "bigint")
	ColumnType string `yaml:"column_type" json:"column_type"`
	// Process namespaces the mark so independent consumers of the same
	// source keep separate watermarks
	Process string `yaml:"process" json:"process"`
	// StorePath is the file store directory; empty keeps marks in memory
	StorePath string `yaml:"store_path" json:"store_path"`
}

// PerformanceConfig contains batch sizing settings
type PerformanceConfig struct {
	// BatchSize controls the number of records processed together
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// FetchSize controls driver-level row fetching where supported
	FetchSize int `yaml:"fetch_size" json:"fetch_size"`
}

// OutputConfig contains file destination settings
type OutputConfig struct {
	// Path is the destination file path
	Path string `yaml:"path" json:"path"`
	// Compression selects the output compression: none, gzip, zstd, lz4
	Compression string `yaml:"compression" json:"compression"`
	// Append opens the destination file in append mode
	Append bool `yaml:"append" json:"append"`
}

// ObservabilityConfig contains logging and monitoring settings
type ObservabilityConfig struct {
	// LogLevel sets the minimum log level
	LogLevel string `yaml:"log_level" json:"log_level"`
	// EnableMetrics activates Prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates OpenTelemetry tracing
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
}

// NewBaseConfig creates a configuration with sensible defaults
func NewBaseConfig(name, connectorType string) *BaseConfig {
	return &BaseConfig{
		Name:    name,
		Type:    connectorType,
		Version: "1.0",
		Connection: ConnectionConfig{
			ConnectTimeout: 30 * time.Second,
		},
		Performance: PerformanceConfig{
			BatchSize: 10000,
			FetchSize: 1000,
		},
		Output: OutputConfig{
			Compression: "none",
		},
		Observability: ObservabilityConfig{
			LogLevel:      "info",
			EnableMetrics: true,
		},
	}
}

// Validate checks the configuration for errors
func (c *BaseConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("connector name is required")
	}
	if c.Type == "" {
		return fmt.Errorf("connector type is required")
	}
	if c.Performance.BatchSize < 0 {
		return fmt.Errorf("batch_size cannot be negative")
	}
	if c.Performance.FetchSize < 0 {
		return fmt.Errorf("fetch_size cannot be negative")
	}
	return nil
}
