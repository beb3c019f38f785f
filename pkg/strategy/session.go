// Package strategy implements the incremental read strategies and the
// session that scopes them: Snapshot, Incremental, SnapshotBatch and
// IncrementalBatch, with high-water-mark fetch on entry, boundary-window
// computation per read, and commit-on-clean-exit semantics.
package strategy

import (
	"context"

	"go.uber.org/zap"

	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/hwm"
	"github.com/tidemark-io/tidemark/pkg/hwm/store"
	"github.com/tidemark-io/tidemark/pkg/logger"
	"github.com/tidemark-io/tidemark/pkg/metrics"
)

// Session is the execution context for strategies: it carries the
// strategy stack and the current-store stack that the original design
// kept in process-wide registries. A session is single-goroutine state;
// nothing here is safe for concurrent mutation.
type Session struct {
	logger *zap.Logger
	stores []store.Store
	stack  []Strategy
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithStore sets the session's base high-water-mark store. The default is
// an in-memory store that does not survive the process.
func WithStore(st store.Store) SessionOption {
	return func(s *Session) {
		s.stores = []store.Store{st}
	}
}

// NewSession creates a session with an empty strategy stack
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		logger: logger.With(zap.String("component", "strategy_session")),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.stores) == 0 {
		s.stores = []store.Store{store.NewMemoryStore()}
	}
	return s
}

// PushStore makes st the current high-water-mark store until PopStore
func (s *Session) PushStore(st store.Store) {
	s.stores = append(s.stores, st)
}

// PopStore restores the previously current store. The base store is never
// popped; popping it returns nil.
func (s *Session) PopStore() store.Store {
	if len(s.stores) <= 1 {
		return nil
	}
	st := s.stores[len(s.stores)-1]
	s.stores = s.stores[:len(s.stores)-1]
	return st
}

// CurrentStore returns the store strategies read and commit through,
// resolved at the moment of use
func (s *Session) CurrentStore() store.Store {
	return s.stores[len(s.stores)-1]
}

// Current returns the active strategy, or nil when no scope is open.
// Only the top of the stack is ever consulted for bounding.
func (s *Session) Current() Strategy {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

// Depth returns the number of open strategy scopes
func (s *Session) Depth() int {
	return len(s.stack)
}

// Run executes fn inside a strategy scope. The strategy is pushed on
// entry and always popped on the way out, including when fn fails or
// panics. The pending high-water-mark is committed to the current store
// only when fn returns nil; on failure the mark stays at its last
// committed value, so the next run resumes without skipping rows. A
// commit failure after a successful scope is returned to the caller,
// never swallowed. Strategy instances are single-use: construct a fresh
// one per scope.
func (s *Session) Run(ctx context.Context, strat Strategy, fn func(context.Context) error) error {
	if strat == nil {
		return errors.New(errors.ErrorTypeConfig, "nil strategy")
	}
	if fn == nil {
		return errors.New(errors.ErrorTypeConfig, "nil strategy scope function")
	}
	if err := strat.enter(); err != nil {
		return err
	}

	s.logger.Debug("strategy scope entered",
		zap.String("strategy", strat.Name()),
		zap.Int("depth", len(s.stack)))
	s.stack = append(s.stack, strat)
	defer func() {
		s.stack = s.stack[:len(s.stack)-1]
		strat.exitScope()
		s.logger.Debug("strategy scope exited",
			zap.String("strategy", strat.Name()),
			zap.Int("depth", len(s.stack)))
	}()

	scopeCtx := context.WithValue(ctx, logger.StrategyKey, strat.Name())
	if err := fn(scopeCtx); err != nil {
		metrics.StrategyScopes.WithLabelValues(strat.Name(), "failure").Inc()
		s.logger.Warn("strategy scope failed, high-water-mark not advanced",
			zap.String("strategy", strat.Name()),
			zap.Error(err))
		return err
	}

	if err := strat.commit(ctx, s); err != nil {
		metrics.StrategyScopes.WithLabelValues(strat.Name(), "failure").Inc()
		return errors.Wrap(err, errors.ErrorTypeState, "failed to commit high-water-mark")
	}

	metrics.StrategyScopes.WithLabelValues(strat.Name(), "success").Inc()
	return nil
}

// AcquireWindow asks the active strategy for the window bounding the next
// read. ok is false when the strategy has nothing left to read. With no
// open scope the read is an unbounded snapshot.
func (s *Session) AcquireWindow(ctx context.Context, b Binding) (w hwm.Window, ok bool, err error) {
	cur := s.Current()
	if cur == nil {
		return hwm.Window{Expression: b.Expression}, true, nil
	}
	return cur.acquire(ctx, s, b)
}

// CompleteWindow reports the inclusive upper bound of a successfully
// executed read back to the active strategy
func (s *Session) CompleteWindow(upper hwm.Value) {
	if cur := s.Current(); cur != nil {
		cur.complete(upper)
	}
}
