package strategy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/hwm"
	"github.com/tidemark-io/tidemark/pkg/hwm/store"
	"github.com/tidemark-io/tidemark/pkg/strategy"
	"github.com/tidemark-io/tidemark/pkg/testutil"
)

// failingStore rejects every write
type failingStore struct {
	store.Store
}

func (failingStore) Set(context.Context, *hwm.HWM) error {
	return errors.New(errors.ErrorTypeState, "disk full")
}

func storedValue(t *testing.T, st store.Store, b strategy.Binding) hwm.Value {
	t.Helper()
	mark := hwm.HWM{Entity: b.Entity, Expression: b.Expression, Instance: b.Source.InstanceID(), Process: b.Process}
	got, err := st.Get(context.Background(), mark.QualifiedName())
	require.NoError(t, err)
	if got == nil {
		return nil
	}
	return got.Value
}

func TestSnapshotReadsEverythingAndPersistsNothing(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sess := strategy.NewSession(strategy.WithStore(st))
	src := testutil.NewFakeSource("i").SetInts(1, 2, 3)
	b := intBinding(src)

	err := sess.Run(ctx, strategy.NewSnapshot(), func(ctx context.Context) error {
		win, ok, err := sess.AcquireWindow(ctx, b)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, win.IsUnbounded())
		sess.CompleteWindow(win.Upper)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())
	assert.Equal(t, 0, src.DiscoverCalls)
}

func TestIncrementalFirstRun(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sess := strategy.NewSession(strategy.WithStore(st))
	src := testutil.NewFakeSource("i").SetInts(10, 20, 30)
	b := intBinding(src)

	err := sess.Run(ctx, strategy.NewIncremental(), func(ctx context.Context) error {
		win, ok, err := sess.AcquireWindow(ctx, b)
		require.NoError(t, err)
		require.True(t, ok)

		// first run reads from the source's own MIN, boundary included
		assert.Equal(t, "id >= 10 AND id <= 30", win.Predicate())

		sess.CompleteWindow(win.Upper)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, hwm.Int(30), storedValue(t, st, b))
}

func TestIncrementalResumedRunIsExclusive(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sess := strategy.NewSession(strategy.WithStore(st))
	src := testutil.NewFakeSource("i").SetInts(10, 20, 30, 40)
	b := intBinding(src)

	prior := hwm.HWM{Entity: b.Entity, Expression: b.Expression, Instance: "i", Value: hwm.Int(30)}
	require.NoError(t, st.Set(ctx, &prior))

	err := sess.Run(ctx, strategy.NewIncremental(), func(ctx context.Context) error {
		win, ok, err := sess.AcquireWindow(ctx, b)
		require.NoError(t, err)
		require.True(t, ok)

		// the boundary row was read by the previous run
		assert.Equal(t, "id > 30 AND id <= 40", win.Predicate())

		sess.CompleteWindow(win.Upper)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, hwm.Int(40), storedValue(t, st, b))
}

func TestIncrementalNothingNewLeavesMarkUntouched(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sess := strategy.NewSession(strategy.WithStore(st))
	src := testutil.NewFakeSource("i").SetInts(10, 20, 30)
	b := intBinding(src)

	prior := hwm.HWM{Entity: b.Entity, Expression: b.Expression, Instance: "i", Value: hwm.Int(30)}
	require.NoError(t, st.Set(ctx, &prior))

	err := sess.Run(ctx, strategy.NewIncremental(), func(ctx context.Context) error {
		_, ok, err := sess.AcquireWindow(ctx, b)
		require.NoError(t, err)
		assert.False(t, ok, "no rows beyond the mark")
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, hwm.Int(30), storedValue(t, st, b))
}

func TestIncrementalFailedScopeDoesNotCommit(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sess := strategy.NewSession(strategy.WithStore(st))
	src := testutil.NewFakeSource("i").SetInts(10, 20, 30)
	b := intBinding(src)

	err := sess.Run(ctx, strategy.NewIncremental(), func(ctx context.Context) error {
		win, ok, err := sess.AcquireWindow(ctx, b)
		require.NoError(t, err)
		require.True(t, ok)
		sess.CompleteWindow(win.Upper)
		return errors.New(errors.ErrorTypeQuery, "write side failed")
	})
	require.Error(t, err)

	assert.Nil(t, storedValue(t, st, b), "failed scope must not advance the mark")
}

func TestIncrementalCommitFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	sess := strategy.NewSession(strategy.WithStore(failingStore{store.NewMemoryStore()}))
	src := testutil.NewFakeSource("i").SetInts(1, 2)
	b := intBinding(src)

	err := sess.Run(ctx, strategy.NewIncremental(), func(ctx context.Context) error {
		win, ok, err := sess.AcquireWindow(ctx, b)
		require.NoError(t, err)
		require.True(t, ok)
		sess.CompleteWindow(win.Upper)
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeState))
	assert.Contains(t, err.Error(), "failed to commit")
}

func TestIncrementalExplicitBounds(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sess := strategy.NewSession(strategy.WithStore(st))
	src := testutil.NewFakeSource("i").SetInts(1, 50, 100, 200)
	b := intBinding(src)

	strat := strategy.NewIncremental(
		strategy.WithStart(hwm.Int(50)),
		strategy.WithStop(hwm.Int(100)),
	)
	err := sess.Run(ctx, strat, func(ctx context.Context) error {
		win, ok, err := sess.AcquireWindow(ctx, b)
		require.NoError(t, err)
		require.True(t, ok)

		// explicit bounds skip discovery entirely
		assert.Equal(t, "id >= 50 AND id <= 100", win.Predicate())
		assert.Equal(t, 0, src.DiscoverCalls)

		sess.CompleteWindow(win.Upper)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, hwm.Int(100), storedValue(t, st, b))
}

func TestIncrementalOffsetReReadsWindow(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sess := strategy.NewSession(strategy.WithStore(st))
	src := testutil.NewFakeSource("i").SetInts(80, 90, 100, 110)
	b := intBinding(src)

	prior := hwm.HWM{Entity: b.Entity, Expression: b.Expression, Instance: "i", Value: hwm.Int(100)}
	require.NoError(t, st.Set(ctx, &prior))

	strat := strategy.NewIncremental(strategy.WithOffset(hwm.IntStep(15)))
	err := sess.Run(ctx, strat, func(ctx context.Context) error {
		win, ok, err := sess.AcquireWindow(ctx, b)
		require.NoError(t, err)
		require.True(t, ok)

		// the offset window behind the mark is re-read, boundary included
		assert.Equal(t, "id >= 85 AND id <= 110", win.Predicate())
		sess.CompleteWindow(win.Upper)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, hwm.Int(110), storedValue(t, st, b))
}

func TestIncrementalKindChangeRejected(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sess := strategy.NewSession(strategy.WithStore(st))
	src := testutil.NewFakeSource("i").SetInts(1, 2)
	b := intBinding(src)

	prior := hwm.HWM{Entity: b.Entity, Expression: b.Expression, Instance: "i",
		Value: hwm.Timestamp(time.Now())}
	require.NoError(t, st.Set(ctx, &prior))

	err := sess.Run(ctx, strategy.NewIncremental(), func(ctx context.Context) error {
		_, _, err := sess.AcquireWindow(ctx, b)
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "kind changed")
}

func TestIncrementalEmptySource(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sess := strategy.NewSession(strategy.WithStore(st))
	src := testutil.NewFakeSource("i")
	b := intBinding(src)

	err := sess.Run(ctx, strategy.NewIncremental(), func(ctx context.Context) error {
		_, ok, err := sess.AcquireWindow(ctx, b)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())
}

func TestBindingValidation(t *testing.T) {
	ctx := context.Background()
	sess := strategy.NewSession()
	src := testutil.NewFakeSource("i").SetInts(1)

	tests := []struct {
		name    string
		binding strategy.Binding
	}{
		{"missing source", strategy.Binding{Entity: "t", Expression: "id", Kind: hwm.KindInt}},
		{"missing entity", strategy.Binding{Source: src, Expression: "id", Kind: hwm.KindInt}},
		{"missing expression", strategy.Binding{Source: src, Entity: "t", Kind: hwm.KindInt}},
		{"missing kind", strategy.Binding{Source: src, Entity: "t", Expression: "id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sess.Run(ctx, strategy.NewIncremental(), func(ctx context.Context) error {
				_, _, err := sess.AcquireWindow(ctx, tt.binding)
				return err
			})
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}
