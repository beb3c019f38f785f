// Package pipeline orchestrates one source-to-destination run under a
// read strategy: it opens the strategy scope, drives the reader (batch by
// batch for span-producing strategies), and hands each record set to the
// destination. The high-water-mark only advances when the whole scope
// succeeds.
package pipeline

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tidemark-io/tidemark/pkg/connector/core"
	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/logger"
	"github.com/tidemark-io/tidemark/pkg/observability"
	"github.com/tidemark-io/tidemark/pkg/reader"
	"github.com/tidemark-io/tidemark/pkg/strategy"
)

// spanIterator is the batch surface: SnapshotBatch and IncrementalBatch
// yield one read per Next.
type spanIterator interface {
	Next() bool
	Err() error
}

// Pipeline moves rows from one reader to one destination
type Pipeline struct {
	reader *reader.DBReader
	dest   core.Destination
	sess   *strategy.Session
	logger *zap.Logger

	rowsMoved int64
	reads     int
}

// New creates a pipeline over an already-initialized reader and
// destination
func New(r *reader.DBReader, dest core.Destination, sess *strategy.Session) (*Pipeline, error) {
	if r == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "pipeline requires a reader")
	}
	if dest == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "pipeline requires a destination")
	}
	if sess == nil {
		sess = strategy.NewSession()
	}
	return &Pipeline{
		reader: r,
		dest:   dest,
		sess:   sess,
		logger: logger.With(zap.String("component", "pipeline")),
	}, nil
}

// Run executes one full read under the given strategy. Batch strategies
// loop span by span; the others read once. Any read or write failure
// aborts the scope and leaves the mark at its last committed value.
func (p *Pipeline) Run(ctx context.Context, strat strategy.Strategy) error {
	ctx, span := observability.StartSpan(ctx, "pipeline.run")
	defer span.End()
	if strat != nil {
		span.SetAttributes(attribute.String("strategy", strat.Name()))
	}

	err := p.sess.Run(ctx, strat, func(ctx context.Context) error {
		if it, ok := strat.(spanIterator); ok {
			for it.Next() {
				if err := p.moveOnce(ctx); err != nil {
					return err
				}
			}
			return it.Err()
		}
		return p.moveOnce(ctx)
	})
	if err != nil {
		return err
	}

	p.logger.Info("pipeline run complete",
		zap.String("strategy", strat.Name()),
		zap.Int("reads", p.reads),
		zap.Int64("rows_moved", p.rowsMoved))
	return nil
}

func (p *Pipeline) moveOnce(ctx context.Context) error {
	rs, err := p.reader.Run(ctx, p.sess)
	if err != nil {
		return err
	}
	p.reads++
	if rs.Len() == 0 {
		return nil
	}
	if err := p.dest.Write(ctx, rs); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to write batch")
	}
	p.rowsMoved += int64(rs.Len())
	return nil
}

// RowsMoved returns the number of rows written so far
func (p *Pipeline) RowsMoved() int64 { return p.rowsMoved }
