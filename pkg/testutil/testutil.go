// Package testutil provides in-memory connector fakes for unit tests.
package testutil

import (
	"context"

	"github.com/tidemark-io/tidemark/pkg/config"
	"github.com/tidemark-io/tidemark/pkg/connector/core"
	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/hwm"
	"github.com/tidemark-io/tidemark/pkg/models"
)

// FakeSource is an in-memory core.Source. Bound discovery runs against
// Values, the ordered contents of the tracked column; reads delegate to
// QueryFn so tests control what each predicate returns.
type FakeSource struct {
	Instance string
	// Types maps expressions to native column type names for ColumnType
	Types map[string]string
	// Values holds the tracked column's contents, any order
	Values []hwm.Value
	// QueryFn handles RunBoundedQuery; nil returns an empty set
	QueryFn func(entity string, columns []string, predicate string) (*models.RecordSet, error)

	// Predicates records every predicate passed to RunBoundedQuery
	Predicates []string
	// DiscoverCalls counts bound discovery queries
	DiscoverCalls int

	// DiscoverErr, when set, fails every discovery
	DiscoverErr error
}

// NewFakeSource creates a fake source with the given instance identity
func NewFakeSource(instance string) *FakeSource {
	return &FakeSource{
		Instance: instance,
		Types:    make(map[string]string),
	}
}

// SetInts fills Values with integer marks
func (s *FakeSource) SetInts(ns ...int64) *FakeSource {
	s.Values = s.Values[:0]
	for _, n := range ns {
		s.Values = append(s.Values, hwm.Int(n))
	}
	return s
}

// Name implements core.Connector
func (s *FakeSource) Name() string { return "fake" }

// Type implements core.Connector
func (s *FakeSource) Type() core.ConnectorType { return core.ConnectorTypeSource }

// Version implements core.Connector
func (s *FakeSource) Version() string { return "test" }

// Initialize implements core.Connector
func (s *FakeSource) Initialize(context.Context, *config.BaseConfig) error { return nil }

// Close implements core.Connector
func (s *FakeSource) Close(context.Context) error { return nil }

// Health implements core.Connector
func (s *FakeSource) Health(context.Context) error { return nil }

// InstanceID implements core.Source
func (s *FakeSource) InstanceID() string { return s.Instance }

// ColumnType implements core.Source
func (s *FakeSource) ColumnType(_ context.Context, entity, expression string) (string, error) {
	t, ok := s.Types[expression]
	if !ok {
		return "", errors.Newf(errors.ErrorTypeNotFound, "column %q not found in %s", expression, entity)
	}
	return t, nil
}

// DiscoverBound implements core.Source against Values
func (s *FakeSource) DiscoverBound(_ context.Context, _, _ string, agg hwm.Agg, _ hwm.Kind, within hwm.Window) (hwm.Value, bool, error) {
	s.DiscoverCalls++
	if s.DiscoverErr != nil {
		return nil, false, s.DiscoverErr
	}

	var best hwm.Value
	for _, v := range s.Values {
		in, err := contains(within, v)
		if err != nil {
			return nil, false, err
		}
		if !in {
			continue
		}
		if best == nil {
			best = v
			continue
		}
		c, err := v.Compare(best)
		if err != nil {
			return nil, false, err
		}
		if (agg == hwm.AggMin && c < 0) || (agg == hwm.AggMax && c > 0) {
			best = v
		}
	}
	if best == nil {
		return nil, false, nil
	}
	return best, true, nil
}

// RunBoundedQuery implements core.Source, recording the predicate
func (s *FakeSource) RunBoundedQuery(_ context.Context, entity string, columns []string, predicate string) (*models.RecordSet, error) {
	s.Predicates = append(s.Predicates, predicate)
	if s.QueryFn != nil {
		return s.QueryFn(entity, columns, predicate)
	}
	return models.NewRecordSet(columns...), nil
}

func contains(w hwm.Window, v hwm.Value) (bool, error) {
	if w.Lower != nil {
		c, err := v.Compare(w.Lower)
		if err != nil {
			return false, err
		}
		if c < 0 || (c == 0 && !w.LowerInclusive) {
			return false, nil
		}
	}
	if w.Upper != nil {
		c, err := v.Compare(w.Upper)
		if err != nil {
			return false, err
		}
		if c > 0 {
			return false, nil
		}
	}
	return true, nil
}

// FakeDestination is an in-memory core.Destination collecting every
// written record set
type FakeDestination struct {
	Written []*models.RecordSet
	// WriteErr, when set, fails every write
	WriteErr error
}

// Name implements core.Connector
func (d *FakeDestination) Name() string { return "fake" }

// Type implements core.Connector
func (d *FakeDestination) Type() core.ConnectorType { return core.ConnectorTypeDestination }

// Version implements core.Connector
func (d *FakeDestination) Version() string { return "test" }

// Initialize implements core.Connector
func (d *FakeDestination) Initialize(context.Context, *config.BaseConfig) error { return nil }

// Close implements core.Connector
func (d *FakeDestination) Close(context.Context) error { return nil }

// Health implements core.Connector
func (d *FakeDestination) Health(context.Context) error { return nil }

// Write implements core.Destination
func (d *FakeDestination) Write(_ context.Context, rs *models.RecordSet) error {
	if d.WriteErr != nil {
		return d.WriteErr
	}
	d.Written = append(d.Written, rs)
	return nil
}

// Rows returns the total number of rows written
func (d *FakeDestination) Rows() int {
	n := 0
	for _, rs := range d.Written {
		n += rs.Len()
	}
	return n
}
