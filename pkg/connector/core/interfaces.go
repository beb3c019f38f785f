// Package core defines the connector contracts: sources expose a bounded
// range query capability the strategy engine drives, destinations accept
// tabular results. The execution engine behind a source is an external
// collaborator; this layer owns no retries and no timeouts.
package core

import (
	"context"

	"github.com/tidemark-io/tidemark/pkg/config"
	"github.com/tidemark-io/tidemark/pkg/hwm"
	"github.com/tidemark-io/tidemark/pkg/models"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource      ConnectorType = "source"
	ConnectorTypeDestination ConnectorType = "destination"
)

// Connector is the base interface for all connectors
type Connector interface {
	// Metadata
	Name() string
	Type() ConnectorType
	Version() string

	// Lifecycle
	Initialize(ctx context.Context, cfg *config.BaseConfig) error
	Close(ctx context.Context) error

	// Health
	Health(ctx context.Context) error
}

// Source is a connector exposing the bounded range query capability the
// strategy engine needs. It also satisfies strategy.BoundSource.
type Source interface {
	Connector

	// InstanceID returns a stable string identifying the physical source
	// instance, used in high-water-mark qualified names
	InstanceID() string

	// ColumnType returns the native type name of a column or expression,
	// resolved against the source's catalog
	ColumnType(ctx context.Context, entity, expression string) (string, error)

	// DiscoverBound computes MIN or MAX of the expression within the given
	// window. ok is false when the range holds no rows.
	DiscoverBound(ctx context.Context, entity, expression string, agg hwm.Agg, kind hwm.Kind, within hwm.Window) (value hwm.Value, ok bool, err error)

	// RunBoundedQuery reads the slice of the entity selected by the
	// predicate. An empty predicate reads the full entity.
	RunBoundedQuery(ctx context.Context, entity string, columns []string, predicate string) (*models.RecordSet, error)
}

// Destination is a connector accepting tabular results
type Destination interface {
	Connector

	// Write appends the record set to the destination
	Write(ctx context.Context, rs *models.RecordSet) error
}
