// Package mysql implements the MySQL source connector over database/sql
// with the go-sql-driver driver.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	gomysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/tidemark-io/tidemark/pkg/config"
	"github.com/tidemark-io/tidemark/pkg/connector/base"
	"github.com/tidemark-io/tidemark/pkg/connector/core"
	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/hwm"
	"github.com/tidemark-io/tidemark/pkg/models"
)

// MySQLSource implements core.Source for MySQL
type MySQLSource struct {
	*base.BaseConnector

	dsn        string
	database   string
	instanceID string

	db *sql.DB

	mu            sync.RWMutex
	isInitialized bool
}

// NewMySQLSource creates a new MySQL source connector
func NewMySQLSource(_ *config.BaseConfig) (core.Source, error) {
	return &MySQLSource{
		BaseConnector: base.NewBaseConnector("mysql", core.ConnectorTypeSource, "1.0.0"),
	}, nil
}

// Initialize opens the connection pool
func (s *MySQLSource) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
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

	dsnCfg, err := gomysql.ParseDSN(s.dsn)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid connection string")
	}
	if cfg.Connection.ConnectTimeout > 0 {
		dsnCfg.Timeout = cfg.Connection.ConnectTimeout
	}
	// parseTime gives us time.Time for date and timestamp columns instead
	// of raw []byte
	dsnCfg.ParseTime = true

	s.database = dsnCfg.DBName
	s.instanceID = fmt.Sprintf("mysql://%s/%s", dsnCfg.Addr, dsnCfg.DBName)

	db, err := sql.Open("mysql", dsnCfg.FormatDSN())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to open database")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to ping database")
	}
	s.db = db
	s.isInitialized = true

	s.GetLogger().Info("mysql source initialized",
		zap.String("instance", s.instanceID))
	return nil
}

// Close releases the connection pool
func (s *MySQLSource) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.GetLogger().Error("failed to close database", zap.Error(err))
		}
		s.db = nil
	}
	return s.BaseConnector.Close(ctx)
}

// Health verifies the pool can reach the database
func (s *MySQLSource) Health(ctx context.Context) error {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	if db == nil {
		return errors.New(errors.ErrorTypeState, "source not initialized")
	}
	if err := db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "health check failed")
	}
	return nil
}

// InstanceID returns "mysql://host:port/database"
func (s *MySQLSource) InstanceID() string { return s.instanceID }

// ColumnType resolves a column's native type from information_schema.
// Entity is "schema.table"; an unqualified entity uses the DSN database.
func (s *MySQLSource) ColumnType(ctx context.Context, entity, expression string) (string, error) {
	schema, table := s.splitEntity(entity)

	const q = `SELECT DATA_TYPE FROM information_schema.COLUMNS
	           WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND COLUMN_NAME = ?`

	var dataType string
	row := s.db.QueryRowContext(ctx, q, schema, table, expression)
	if err := row.Scan(&dataType); err != nil {
		return "", errors.Wrapf(err, errors.ErrorTypeNotFound,
			"column %q not found in %s", expression, entity)
	}
	return dataType, nil
}

// DiscoverBound computes MIN or MAX of the expression within the window
func (s *MySQLSource) DiscoverBound(ctx context.Context, entity, expression string, agg hwm.Agg, kind hwm.Kind, within hwm.Window) (hwm.Value, bool, error) {
	query := fmt.Sprintf("SELECT %s(%s) FROM %s", strings.ToUpper(string(agg)), expression, entity)
	if pred := within.Predicate(); pred != "" {
		query += " WHERE " + pred
	}

	var raw interface{}
	if err := s.db.QueryRowContext(ctx, query).Scan(&raw); err != nil {
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
func (s *MySQLSource) RunBoundedQuery(ctx context.Context, entity string, columns []string, predicate string) (*models.RecordSet, error) {
	cols := "*"
	if len(columns) > 0 {
		cols = strings.Join(columns, ", ")
	}
	query := fmt.Sprintf("SELECT %s FROM %s", cols, entity)
	if predicate != "" {
		query += " WHERE " + predicate
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeQuery, "query failed on %s", entity)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read column names")
	}

	rs := models.NewRecordSet(names...)
	values := make([]interface{}, len(names))
	scanArgs := make([]interface{}, len(names))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read row")
		}
		rec := models.NewRecord()
		for i, name := range names {
			// the driver hands text protocol results back as []byte
			if b, ok := values[i].([]byte); ok {
				rec.Data[name] = string(b)
			} else {
				rec.Data[name] = values[i]
			}
		}
		rs.Append(rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeQuery, "row iteration failed on %s", entity)
	}
	return rs, nil
}

func (s *MySQLSource) splitEntity(entity string) (schema, table string) {
	if i := strings.IndexByte(entity, '.'); i >= 0 {
		return entity[:i], entity[i+1:]
	}
	return s.database, entity
}
