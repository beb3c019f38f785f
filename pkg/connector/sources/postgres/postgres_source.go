// Package postgres implements the PostgreSQL source connector. It
// exposes the bounded range query capability the strategy engine drives:
// catalog type resolution, MIN/MAX bound discovery and predicate-sliced
// reads, all over a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tidemark-io/tidemark/pkg/config"
	"github.com/tidemark-io/tidemark/pkg/connector/base"
	"github.com/tidemark-io/tidemark/pkg/connector/core"
	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/hwm"
	"github.com/tidemark-io/tidemark/pkg/models"
)

// PostgresSource implements core.Source for PostgreSQL
type PostgresSource struct {
	*base.BaseConnector

	dsn        string
	instanceID string

	pool *pgxpool.Pool

	mu            sync.RWMutex
	isInitialized bool
}

// NewPostgresSource creates a new PostgreSQL source connector
func NewPostgresSource(_ *config.BaseConfig) (core.Source, error) {
	return &PostgresSource{
		BaseConnector: base.NewBaseConnector("postgres", core.ConnectorTypeSource, "1.0.0"),
	}, nil
}

// Initialize sets up the connection pool
func (s *PostgresSource) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	if err := s.BaseConnector.Initialize(ctx, cfg); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize base connector")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isInitialized {
		return errors.New(errors.ErrorTypeValidation, "source already initialized")
	}
	if cfg.Connection.DSN == "" {
		return errors.New(errors.ErrorTypeConfig, "connection.dsn is required")
	}
	s.dsn = cfg.Connection.DSN

	poolConfig, err := pgxpool.ParseConfig(s.dsn)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid connection string")
	}
	if cfg.Connection.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.Connection.ConnectTimeout
	}

	s.instanceID = fmt.Sprintf("postgres://%s:%d/%s",
		poolConfig.ConnConfig.Host, poolConfig.ConnConfig.Port, poolConfig.ConnConfig.Database)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to ping database")
	}
	s.pool = pool
	s.isInitialized = true

	s.GetLogger().Info("postgres source initialized",
		zap.String("instance", s.instanceID))
	return nil
}

// Close releases the connection pool
func (s *PostgresSource) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return s.BaseConnector.Close(ctx)
}

// Health verifies the pool can reach the database
func (s *PostgresSource) Health(ctx context.Context) error {
	s.mu.RLock()
	pool := s.pool
	s.mu.RUnlock()
	if pool == nil {
		return errors.New(errors.ErrorTypeState, "source not initialized")
	}
	if err := pool.Ping(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "health check failed")
	}
	return nil
}

// InstanceID returns "postgres://host:port/database"
func (s *PostgresSource) InstanceID() string { return s.instanceID }

// ColumnType resolves a column's native type from information_schema.
// Entity is "schema.table"; an unqualified entity defaults to public.
func (s *PostgresSource) ColumnType(ctx context.Context, entity, expression string) (string, error) {
	schema, table := splitEntity(entity)

	const q = `SELECT data_type FROM information_schema.columns
	           WHERE table_schema = $1 AND table_name = $2 AND column_name = $3`

	var dataType string
	row := s.pool.QueryRow(ctx, q, schema, table, expression)
	if err := row.Scan(&dataType); err != nil {
		return "", errors.Wrapf(err, errors.ErrorTypeNotFound,
			"column %q not found in %s", expression, entity)
	}
	return dataType, nil
}

// DiscoverBound computes MIN or MAX of the expression within the window
func (s *PostgresSource) DiscoverBound(ctx context.Context, entity, expression string, agg hwm.Agg, kind hwm.Kind, within hwm.Window) (hwm.Value, bool, error) {
	query := fmt.Sprintf("SELECT %s(%s) FROM %s", strings.ToUpper(string(agg)), expression, entity)
	if pred := within.Predicate(); pred != "" {
		query += " WHERE " + pred
	}

	var raw interface{}
	if err := s.pool.QueryRow(ctx, query).Scan(&raw); err != nil {
		return nil, false, errors.Wrapf(err, errors.ErrorTypeQuery,
			"failed to discover %s(%s) on %s", agg, expression, entity)
	}
	if raw == nil {
		return nil, false, nil
	}
	v, err := hwm.FromScalar(kind, raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// RunBoundedQuery reads the slice of the entity selected by the predicate
func (s *PostgresSource) RunBoundedQuery(ctx context.Context, entity string, columns []string, predicate string) (*models.RecordSet, error) {
	query := buildSelect(entity, columns, predicate)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeQuery, "query failed on %s", entity)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = fd.Name
	}

	rs := models.NewRecordSet(names...)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read row")
		}
		rec := models.NewRecord()
		for i, name := range names {
			rec.Data[name] = values[i]
		}
		rs.Append(rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeQuery, "row iteration failed on %s", entity)
	}
	return rs, nil
}

func splitEntity(entity string) (schema, table string) {
	if i := strings.IndexByte(entity, '.'); i >= 0 {
		return entity[:i], entity[i+1:]
	}
	return "public", entity
}

func buildSelect(entity string, columns []string, predicate string) string {
	cols := "*"
	if len(columns) > 0 {
		cols = strings.Join(columns, ", ")
	}
	query := fmt.Sprintf("SELECT %s FROM %s", cols, entity)
	if predicate != "" {
		query += " WHERE " + predicate
	}
	return query
}
