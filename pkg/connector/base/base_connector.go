// Package base provides the foundational BaseConnector all Tidemark
// connectors embed. It carries the shared metadata, configuration and
// logger so implementations only add their transport specifics.
//
// All connectors should embed BaseConnector:
//
//	type MyConnector struct {
//	    *base.BaseConnector
//	    // connector-specific fields
//	}
package base

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tidemark-io/tidemark/pkg/config"
	"github.com/tidemark-io/tidemark/pkg/connector/core"
	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/logger"
)

// BaseConnector provides common functionality for all connectors
type BaseConnector struct {
	name          string
	connectorType core.ConnectorType
	version       string

	config *config.BaseConfig
	logger *zap.Logger

	closed     bool
	closeMutex sync.Mutex
}

// NewBaseConnector creates a new base connector with the specified name,
// type, and version. Connector implementations call this during
// construction.
func NewBaseConnector(name string, connectorType core.ConnectorType, version string) *BaseConnector {
	return &BaseConnector{
		name:          name,
		connectorType: connectorType,
		version:       version,
		logger:        logger.Get().With(zap.String("connector", name)),
	}
}

// Name returns the connector identifier
func (b *BaseConnector) Name() string { return b.name }

// Type returns whether this is a source or destination
func (b *BaseConnector) Type() core.ConnectorType { return b.connectorType }

// Version returns the connector version
func (b *BaseConnector) Version() string { return b.version }

// Initialize stores and validates the configuration
func (b *BaseConnector) Initialize(_ context.Context, cfg *config.BaseConfig) error {
	if cfg == nil {
		return errors.New(errors.ErrorTypeConfig, "configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}
	b.config = cfg
	return nil
}

// Close marks the connector closed. Safe to call more than once.
func (b *BaseConnector) Close(_ context.Context) error {
	b.closeMutex.Lock()
	defer b.closeMutex.Unlock()
	b.closed = true
	return nil
}

// Config returns the stored configuration, nil before Initialize
func (b *BaseConnector) Config() *config.BaseConfig { return b.config }

// GetLogger returns the connector's logger
func (b *BaseConnector) GetLogger() *zap.Logger { return b.logger }

// IsClosed reports whether Close has been called
func (b *BaseConnector) IsClosed() bool {
	b.closeMutex.Lock()
	defer b.closeMutex.Unlock()
	return b.closed
}
