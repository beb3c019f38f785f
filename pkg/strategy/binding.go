package strategy

import (
	"context"

	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/hwm"
)

// BoundSource is the discovery capability a strategy needs from a source:
// a stable instance identity for qualified names, and MIN/MAX discovery
// over the remaining unread range. Connector sources satisfy it.
type BoundSource interface {
	// InstanceID returns a stable string identifying the physical source
	// instance
	InstanceID() string
	// DiscoverBound computes MIN or MAX of the expression within the given
	// window. ok is false when the range holds no rows.
	DiscoverBound(ctx context.Context, entity, expression string, agg hwm.Agg, kind hwm.Kind, within hwm.Window) (value hwm.Value, ok bool, err error)
}

// Binding ties a strategy scope to one (source, expression) pair. The
// reader builds it on its first run inside the scope.
type Binding struct {
	// Source provides bound discovery
	Source BoundSource
	// Entity is the table or path being read
	Entity string
	// Expression is the column or SQL expression the mark tracks
	Expression string
	// Kind is the resolved high-water-mark kind of the expression
	Kind hwm.Kind
	// Process is an optional namespace for the qualified name
	Process string
}

func (b Binding) validate() error {
	switch {
	case b.Source == nil:
		return errors.New(errors.ErrorTypeConfig, "strategy binding requires a source")
	case b.Entity == "":
		return errors.New(errors.ErrorTypeConfig, "strategy binding requires an entity")
	case b.Expression == "":
		return errors.New(errors.ErrorTypeConfig, "strategy binding requires an HWM expression")
	case b.Kind == "":
		return errors.New(errors.ErrorTypeConfig, "strategy binding requires an HWM kind")
	}
	return nil
}

// mark returns the high-water-mark identity for this binding, without a value
func (b Binding) mark() hwm.HWM {
	return hwm.HWM{
		Entity:     b.Entity,
		Expression: b.Expression,
		Instance:   b.Source.InstanceID(),
		Process:    b.Process,
	}
}

// bound is the resolved state of one strategy scope: the effective lower
// edge, the stop value, and the progress observed so far.
type bound struct {
	binding        Binding
	prior          *hwm.HWM
	lower          hwm.Value
	lowerInclusive bool
	stop           hwm.Value
	empty          bool
	pending        hwm.Value
	spans          int
}

type boundOptions struct {
	start      hwm.Value
	stop       hwm.Value
	offset     hwm.Step
	fetchPrior bool
}

// resolveBound computes the effective read range for a scope: explicit
// start, else the persisted mark, else the discovered MIN; explicit stop,
// else the discovered MAX. Discovery queries carry the opposite bound so
// rows inserted beyond the run's snapshot point are not picked up. An
// empty range is legitimate and marks the bound as empty, not an error.
func resolveBound(ctx context.Context, sess *Session, b Binding, opts boundOptions) (*bound, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	if err := checkBoundKind(b.Kind, opts.start, "start"); err != nil {
		return nil, err
	}
	if err := checkBoundKind(b.Kind, opts.stop, "stop"); err != nil {
		return nil, err
	}

	bnd := &bound{binding: b}

	lower := opts.start
	lowerInclusive := lower != nil

	if lower == nil && opts.fetchPrior {
		prior, err := sess.CurrentStore().Get(ctx, b.mark().QualifiedName())
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeState, "failed to read high-water-mark")
		}
		if prior != nil {
			if prior.Entity != b.Entity || prior.Expression != b.Expression {
				return nil, errors.Newf(errors.ErrorTypeConfig,
					"stored high-water-mark identity %s#%s does not match declared %s#%s",
					prior.Expression, prior.Entity, b.Expression, b.Entity)
			}
			if prior.Value.Kind() != b.Kind {
				return nil, errors.Newf(errors.ErrorTypeConfig,
					"high-water-mark kind changed from %s to %s for %s",
					prior.Value.Kind(), b.Kind, prior.QualifiedName())
			}
			bnd.prior = prior
			lower = prior.Value
			if opts.offset != nil {
				shifted, err := lower.Add(opts.offset.Negate())
				if err != nil {
					return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to apply offset")
				}
				// the offset window is meant to be re-read, boundary row included
				lower = shifted
				lowerInclusive = true
			}
		}
	}

	if lower == nil {
		// first run: the source's own MIN is the lower edge, inclusive so
		// the smallest row itself is read
		min, ok, err := b.Source.DiscoverBound(ctx, b.Entity, b.Expression, hwm.AggMin, b.Kind,
			hwm.Window{Expression: b.Expression, Upper: opts.stop})
		if err != nil {
			return nil, err
		}
		if !ok {
			bnd.empty = true
			return bnd, nil
		}
		lower = min
		lowerInclusive = true
	}

	stop := opts.stop
	if stop == nil {
		max, ok, err := b.Source.DiscoverBound(ctx, b.Entity, b.Expression, hwm.AggMax, b.Kind,
			hwm.Window{Expression: b.Expression, Lower: lower, LowerInclusive: lowerInclusive})
		if err != nil {
			return nil, err
		}
		if !ok {
			bnd.empty = true
			return bnd, nil
		}
		stop = max
	}

	c, err := lower.Compare(stop)
	if err != nil {
		return nil, err
	}
	if c > 0 {
		bnd.empty = true
		return bnd, nil
	}
	// a resumed exclusive lower equal to stop also leaves nothing to read
	if c == 0 && !lowerInclusive {
		bnd.empty = true
		return bnd, nil
	}

	bnd.lower = lower
	bnd.lowerInclusive = lowerInclusive
	bnd.stop = stop
	return bnd, nil
}

// observe folds a successfully read upper bound into the pending mark
func (bnd *bound) observe(upper hwm.Value) {
	if bnd == nil || upper == nil {
		return
	}
	if bnd.pending == nil {
		bnd.pending = upper
		return
	}
	if c, err := upper.Compare(bnd.pending); err == nil && c > 0 {
		bnd.pending = upper
	}
}

func checkBoundKind(kind hwm.Kind, v hwm.Value, name string) error {
	if v == nil || v.Kind() == kind {
		return nil
	}
	return errors.Newf(errors.ErrorTypeConfig,
		"%s value kind %s does not match HWM kind %s", name, v.Kind(), kind)
}
