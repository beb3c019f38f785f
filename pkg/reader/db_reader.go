// Package reader provides DBReader, the strategy-aware read operation.
// A reader ties a source connector to one entity and one tracked
// expression; each Run asks the session's active strategy for the window
// bounding the next read, executes it, and reports the read span back so
// the strategy can advance.
package reader

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/tidemark-io/tidemark/pkg/connector/core"
	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/hwm"
	"github.com/tidemark-io/tidemark/pkg/logger"
	"github.com/tidemark-io/tidemark/pkg/metrics"
	"github.com/tidemark-io/tidemark/pkg/models"
	"github.com/tidemark-io/tidemark/pkg/strategy"
)

// Config describes what a DBReader reads
type Config struct {
	// Table is the entity to read (e.g., "public.orders")
	Table string
	// Columns restricts the selected columns; empty selects all
	Columns []string
	// HWMExpression is the column or SQL expression the mark tracks.
	// Required for bounded strategies, ignored by snapshot reads.
	HWMExpression string
	// HWMColumnType overrides catalog type resolution for the expression.
	// Required when HWMExpression is not a plain column.
	HWMColumnType string
	// Process namespaces the mark for independent consumers
	Process string
	// Filter is an extra WHERE clause ANDed into every read
	Filter string
	// Registry resolves native type names to mark kinds; nil uses the
	// default registry
	Registry *hwm.Registry
}

// DBReader reads one entity through a source connector
type DBReader struct {
	source core.Source
	cfg    Config
	logger *zap.Logger

	// kind is resolved once per reader, on the first bounded run
	kind         hwm.Kind
	kindResolved bool
}

// New creates a reader for the given source and configuration
func New(source core.Source, cfg Config) (*DBReader, error) {
	if source == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "reader requires a source")
	}
	if cfg.Table == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "reader requires a table")
	}
	return &DBReader{
		source: source,
		cfg:    cfg,
		logger: logger.With(
			zap.String("component", "db_reader"),
			zap.String("source", source.Name()),
			zap.String("entity", cfg.Table)),
	}, nil
}

// Run executes one read under the session's active strategy. With no
// session, no open scope, or a snapshot strategy the read is unbounded
// except for the configured filter. Under a bounded strategy the read is
// sliced by the strategy's window; an exhausted or empty window returns
// an empty record set without touching the source.
func (r *DBReader) Run(ctx context.Context, sess *strategy.Session) (*models.RecordSet, error) {
	strat := currentStrategy(sess)
	if strat == nil || !strat.Bounded() {
		return r.read(ctx, r.cfg.Filter)
	}

	if r.cfg.HWMExpression == "" {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"%s strategy requires an HWM expression", strat.Name())
	}

	kind, err := r.resolveKind(ctx)
	if err != nil {
		return nil, err
	}

	win, ok, err := sess.AcquireWindow(ctx, strategy.Binding{
		Source:     r.source,
		Entity:     r.cfg.Table,
		Expression: r.cfg.HWMExpression,
		Kind:       kind,
		Process:    r.cfg.Process,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return models.NewRecordSet(r.cfg.Columns...), nil
	}

	rs, err := r.read(ctx, combinePredicates(win.Predicate(), r.cfg.Filter))
	if err != nil {
		return nil, err
	}
	if win.Upper != nil {
		sess.CompleteWindow(win.Upper)
	}
	return rs, nil
}

// resolveKind maps the tracked expression to a mark kind, through the
// configured type override or the source catalog. Fractional column
// types are rejected here, before any read happens.
func (r *DBReader) resolveKind(ctx context.Context) (hwm.Kind, error) {
	if r.kindResolved {
		return r.kind, nil
	}

	typeName := r.cfg.HWMColumnType
	if typeName == "" {
		var err error
		typeName, err = r.source.ColumnType(ctx, r.cfg.Table, r.cfg.HWMExpression)
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrorTypeConfig,
				"failed to resolve type of %s; set HWMColumnType for expressions", r.cfg.HWMExpression)
		}
	}

	reg := r.cfg.Registry
	var kind hwm.Kind
	var err error
	if reg != nil {
		kind, err = reg.Resolve(typeName)
	} else {
		kind, err = hwm.Resolve(typeName)
	}
	if err != nil {
		return "", err
	}

	r.kind = kind
	r.kindResolved = true
	r.logger.Debug("resolved high-water-mark kind",
		zap.String("expression", r.cfg.HWMExpression),
		zap.String("column_type", typeName),
		zap.String("kind", string(kind)))
	return kind, nil
}

func (r *DBReader) read(ctx context.Context, predicate string) (*models.RecordSet, error) {
	timer := metrics.NewTimer()
	rs, err := r.source.RunBoundedQuery(ctx, r.cfg.Table, r.cfg.Columns, predicate)
	if err != nil {
		return nil, err
	}
	metrics.ReadLatency.WithLabelValues(r.source.Name(), r.cfg.Table).Observe(timer.Stop().Seconds())
	metrics.RowsRead.WithLabelValues(r.source.Name(), r.cfg.Table).Add(float64(rs.Len()))

	logger.WithContext(ctx).Debug("bounded read complete",
		zap.String("source", r.source.Name()),
		zap.String("entity", r.cfg.Table),
		zap.String("predicate", predicate),
		zap.Int("rows", rs.Len()))
	return rs, nil
}

func currentStrategy(sess *strategy.Session) strategy.Strategy {
	if sess == nil {
		return nil
	}
	return sess.Current()
}

func combinePredicates(window, filter string) string {
	switch {
	case window == "":
		return filter
	case filter == "":
		return window
	default:
		return window + " AND (" + strings.TrimSpace(filter) + ")"
	}
}
