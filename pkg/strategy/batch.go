package strategy

import (
	"context"

	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/hwm"
	"github.com/tidemark-io/tidemark/pkg/metrics"
)

// batch is the span iterator shared by SnapshotBatch and
// IncrementalBatch. Once entered it yields a lazy, finite,
// non-restartable sequence of (lower, upper] spans of size step, the
// last span clipped to the stop value. Bounds are resolved by the first
// read executed inside the loop, so the iterator stays lazy until then.
type batch struct {
	scope
	step       hwm.Step
	opts       options
	fetchPrior bool
	persist    bool

	bnd      *bound
	cur      hwm.Value
	first    bool
	started  bool
	finished bool
	iterErr  error
}

// Bounded implements Strategy
func (s *batch) Bounded() bool { return true }

func (s *batch) enter() error {
	if err := s.scope.enter(); err != nil {
		return err
	}
	if s.step == nil {
		return errors.Newf(errors.ErrorTypeConfig, "%s strategy requires a step", s.name)
	}
	if !s.step.Positive() {
		return errors.Newf(errors.ErrorTypeConfig,
			"step must be strictly positive, got %s", s.step)
	}
	return nil
}

// Next reports whether another span remains. Each span maps 1:1 to one
// read operation, which must execute before the next call advances. The
// sequence is not restartable.
func (s *batch) Next() bool {
	if s.iterErr != nil || s.finished {
		return false
	}
	if s.state != stateEntered {
		s.iterErr = errors.Newf(errors.ErrorTypeValidation,
			"%s strategy iterated outside its scope", s.name)
		return false
	}

	if s.bnd == nil {
		if s.started {
			// a full loop iteration ran without a read, so nothing will
			// ever resolve the bounds
			s.finished = true
			return false
		}
		s.started = true
		return true
	}

	if s.cur == nil {
		s.finished = true
		return false
	}
	c, err := s.cur.Compare(s.bnd.stop)
	if err != nil {
		s.iterErr = err
		return false
	}
	if c >= 0 {
		s.finished = true
		return false
	}
	return true
}

// Err returns the first iteration error, if any
func (s *batch) Err() error { return s.iterErr }

func (s *batch) acquire(ctx context.Context, sess *Session, b Binding) (hwm.Window, bool, error) {
	if s.finished {
		return hwm.Window{}, false, nil
	}

	if s.bnd == nil {
		bnd, err := resolveBound(ctx, sess, b, boundOptions{
			start:      s.opts.start,
			stop:       s.opts.stop,
			offset:     s.opts.offset,
			fetchPrior: s.fetchPrior,
		})
		if err != nil {
			return hwm.Window{}, false, err
		}
		s.bnd = bnd
		if bnd.empty {
			s.finished = true
			return hwm.Window{}, false, nil
		}
		s.cur = bnd.lower
		s.first = true
	}

	upper, err := s.cur.Add(s.step)
	if err != nil {
		return hwm.Window{}, false, err
	}
	if c, cmpErr := upper.Compare(s.bnd.stop); cmpErr != nil {
		return hwm.Window{}, false, cmpErr
	} else if c > 0 {
		upper = s.bnd.stop
	}

	s.bnd.spans++
	metrics.SpansProduced.WithLabelValues(s.name).Inc()
	return hwm.Window{
		Expression:     b.Expression,
		Lower:          s.cur,
		LowerInclusive: s.first && s.bnd.lowerInclusive,
		Upper:          upper,
	}, true, nil
}

func (s *batch) complete(upper hwm.Value) {
	if s.bnd == nil || upper == nil {
		return
	}
	s.cur = upper
	s.first = false
	s.bnd.observe(upper)
}

func (s *batch) commit(ctx context.Context, sess *Session) error {
	if !s.persist {
		return nil
	}
	return commitPending(ctx, sess, s.bnd)
}

// SnapshotBatch reads the full (start, stop) range in step-sized spans.
// Nothing is persisted: every run re-reads the whole range, batch by
// batch, with the very first span inclusive at its lower edge.
type SnapshotBatch struct {
	batch
}

// NewSnapshotBatch creates a snapshot batch strategy with the given span
// size
func NewSnapshotBatch(step hwm.Step, opts ...Option) *SnapshotBatch {
	s := &SnapshotBatch{batch{
		scope: scope{name: "snapshot_batch"},
		step:  step,
	}}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// IncrementalBatch reads from the last committed high-water-mark to the
// stop value in step-sized spans. The maximum upper bound observed
// becomes the new mark when the scope exits cleanly; a failed scope
// leaves the mark untouched so no span is ever skipped.
type IncrementalBatch struct {
	batch
}

// NewIncrementalBatch creates an incremental batch strategy with the
// given span size
func NewIncrementalBatch(step hwm.Step, opts ...Option) *IncrementalBatch {
	s := &IncrementalBatch{batch{
		scope:      scope{name: "incremental_batch"},
		step:       step,
		fetchPrior: true,
		persist:    true,
	}}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}
