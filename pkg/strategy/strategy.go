package strategy

import (
	"context"

	"go.uber.org/zap"

	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/hwm"
	"github.com/tidemark-io/tidemark/pkg/logger"
	"github.com/tidemark-io/tidemark/pkg/metrics"
)

// Strategy governs how read operations are bounded within one session
// scope. Implementations live in this package; a scope moves through
// NotEntered -> Entered -> Exited exactly once.
type Strategy interface {
	// Name returns the strategy name used in logs and metrics
	Name() string
	// Bounded reports whether the strategy needs a high-water-mark binding
	Bounded() bool

	enter() error
	exitScope()
	acquire(ctx context.Context, sess *Session, b Binding) (hwm.Window, bool, error)
	complete(upper hwm.Value)
	commit(ctx context.Context, sess *Session) error
}

// Option configures strategy bounds
type Option func(*options)

type options struct {
	start  hwm.Value
	stop   hwm.Value
	offset hwm.Step
}

// WithStart overrides the lower bound. An explicit start skips the
// persisted high-water-mark and is read inclusively.
func WithStart(v hwm.Value) Option {
	return func(o *options) { o.start = v }
}

// WithStop overrides the upper bound, skipping MAX discovery
func WithStop(v hwm.Value) Option {
	return func(o *options) { o.stop = v }
}

// WithOffset shifts the resumed lower boundary backwards by the given
// step, deliberately re-reading a window before the last committed mark
func WithOffset(step hwm.Step) Option {
	return func(o *options) { o.offset = step }
}

type scopeState int

const (
	stateNew scopeState = iota
	stateEntered
	stateExited
)

// scope holds the state machine shared by all strategies
type scope struct {
	name  string
	state scopeState
}

// Name implements Strategy
func (s *scope) Name() string { return s.name }

func (s *scope) enter() error {
	if s.state != stateNew {
		return errors.Newf(errors.ErrorTypeValidation,
			"%s strategy instance already used, construct a fresh one per scope", s.name)
	}
	s.state = stateEntered
	return nil
}

func (s *scope) exitScope() {
	s.state = stateExited
}

// Snapshot reads the source without bounds: every run is a full scan and
// nothing is persisted. It is the default when no scope is open.
type Snapshot struct {
	scope
}

// NewSnapshot creates a snapshot strategy
func NewSnapshot() *Snapshot {
	return &Snapshot{scope{name: "snapshot"}}
}

// Bounded implements Strategy
func (s *Snapshot) Bounded() bool { return false }

func (s *Snapshot) acquire(_ context.Context, _ *Session, b Binding) (hwm.Window, bool, error) {
	return hwm.Window{Expression: b.Expression}, true, nil
}

func (s *Snapshot) complete(hwm.Value) {}

func (s *Snapshot) commit(context.Context, *Session) error { return nil }

// Incremental bounds a single read to the rows beyond the last committed
// high-water-mark: lower edge exclusive at the stored mark (inclusive at
// the discovered MIN on a first run), upper edge at the explicit stop or
// the discovered MAX. The upper bound becomes the new mark on clean exit.
type Incremental struct {
	scope
	opts options
	bnd  *bound
}

// NewIncremental creates an incremental strategy
func NewIncremental(opts ...Option) *Incremental {
	s := &Incremental{scope: scope{name: "incremental"}}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Bounded implements Strategy
func (s *Incremental) Bounded() bool { return true }

func (s *Incremental) acquire(ctx context.Context, sess *Session, b Binding) (hwm.Window, bool, error) {
	if s.bnd == nil {
		bnd, err := resolveBound(ctx, sess, b, boundOptions{
			start:      s.opts.start,
			stop:       s.opts.stop,
			offset:     s.opts.offset,
			fetchPrior: true,
		})
		if err != nil {
			return hwm.Window{}, false, err
		}
		s.bnd = bnd
	}
	if s.bnd.empty {
		return hwm.Window{}, false, nil
	}

	s.bnd.spans++
	metrics.SpansProduced.WithLabelValues(s.name).Inc()
	return hwm.Window{
		Expression:     b.Expression,
		Lower:          s.bnd.lower,
		LowerInclusive: s.bnd.lowerInclusive,
		Upper:          s.bnd.stop,
	}, true, nil
}

func (s *Incremental) complete(upper hwm.Value) {
	s.bnd.observe(upper)
}

func (s *Incremental) commit(ctx context.Context, sess *Session) error {
	return commitPending(ctx, sess, s.bnd)
}

// commitPending writes the maximum observed upper bound to the current
// store. A scope that never produced a new value commits nothing.
func commitPending(ctx context.Context, sess *Session, bnd *bound) error {
	log := logger.With(zap.String("component", "strategy"))

	if bnd == nil || bnd.pending == nil {
		log.Debug("no new high-water-mark produced, nothing to commit")
		return nil
	}

	mark := bnd.binding.mark().WithValue(bnd.pending)
	kind := string(bnd.pending.Kind())
	if err := sess.CurrentStore().Set(ctx, &mark); err != nil {
		metrics.HWMCommitFailures.WithLabelValues(kind).Inc()
		return err
	}

	metrics.HWMCommits.WithLabelValues(kind).Inc()
	log.Info("high-water-mark committed",
		zap.String("qualified_name", mark.QualifiedName()),
		zap.String("value", bnd.pending.String()),
		zap.Int("spans", bnd.spans))
	return nil
}
