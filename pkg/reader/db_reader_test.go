package reader_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/hwm"
	"github.com/tidemark-io/tidemark/pkg/hwm/store"
	"github.com/tidemark-io/tidemark/pkg/models"
	"github.com/tidemark-io/tidemark/pkg/reader"
	"github.com/tidemark-io/tidemark/pkg/strategy"
	"github.com/tidemark-io/tidemark/pkg/testutil"
)

func rowsOf(n int) func(string, []string, string) (*models.RecordSet, error) {
	return func(_ string, columns []string, _ string) (*models.RecordSet, error) {
		rs := models.NewRecordSet(columns...)
		for i := 0; i < n; i++ {
			rec := models.NewRecord()
			rec.Data["id"] = int64(i)
			rs.Append(rec)
		}
		return rs, nil
	}
}

func TestReaderRequiresSourceAndTable(t *testing.T) {
	_, err := reader.New(nil, reader.Config{Table: "t"})
	assert.Error(t, err)

	_, err = reader.New(testutil.NewFakeSource("i"), reader.Config{})
	assert.Error(t, err)
}

func TestReaderSnapshotWithoutSession(t *testing.T) {
	src := testutil.NewFakeSource("i")
	src.QueryFn = rowsOf(3)

	r, err := reader.New(src, reader.Config{Table: "public.orders"})
	require.NoError(t, err)

	rs, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, rs.Len())
	assert.Equal(t, []string{""}, src.Predicates, "snapshot reads carry no predicate")
}

func TestReaderSnapshotAppliesFilterOnly(t *testing.T) {
	src := testutil.NewFakeSource("i")
	src.QueryFn = rowsOf(1)

	r, err := reader.New(src, reader.Config{Table: "public.orders", Filter: "status = 'open'"})
	require.NoError(t, err)

	sess := strategy.NewSession()
	err = sess.Run(context.Background(), strategy.NewSnapshot(), func(ctx context.Context) error {
		_, err := r.Run(ctx, sess)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"status = 'open'"}, src.Predicates)
}

func TestReaderIncrementalBoundsAndCommits(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sess := strategy.NewSession(strategy.WithStore(st))

	src := testutil.NewFakeSource("postgres://db:5432/shop").SetInts(10, 20, 30)
	src.Types["id"] = "bigint"
	src.QueryFn = rowsOf(3)

	r, err := reader.New(src, reader.Config{
		Table:         "public.orders",
		HWMExpression: "id",
	})
	require.NoError(t, err)

	err = sess.Run(ctx, strategy.NewIncremental(), func(ctx context.Context) error {
		rs, err := r.Run(ctx, sess)
		if err != nil {
			return err
		}
		assert.Equal(t, 3, rs.Len())
		return nil
	})
	require.NoError(t, err)

	require.Len(t, src.Predicates, 1)
	assert.Equal(t, "id >= 10 AND id <= 30", src.Predicates[0])

	mark := hwm.HWM{Entity: "public.orders", Expression: "id", Instance: src.Instance}
	got, err := st.Get(ctx, mark.QualifiedName())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, hwm.Int(30), got.Value)
}

func TestReaderCombinesWindowAndFilter(t *testing.T) {
	sess := strategy.NewSession()
	src := testutil.NewFakeSource("i").SetInts(1, 5)
	src.QueryFn = rowsOf(1)

	r, err := reader.New(src, reader.Config{
		Table:         "public.orders",
		HWMExpression: "id",
		HWMColumnType: "bigint",
		Filter:        "deleted_at IS NULL",
	})
	require.NoError(t, err)

	err = sess.Run(context.Background(), strategy.NewIncremental(), func(ctx context.Context) error {
		_, err := r.Run(ctx, sess)
		return err
	})
	require.NoError(t, err)

	require.Len(t, src.Predicates, 1)
	assert.Equal(t, "id >= 1 AND id <= 5 AND (deleted_at IS NULL)", src.Predicates[0])
}

func TestReaderFractionalColumnRejected(t *testing.T) {
	sess := strategy.NewSession()
	src := testutil.NewFakeSource("i")
	src.Types["price"] = "double precision"

	r, err := reader.New(src, reader.Config{
		Table:         "public.orders",
		HWMExpression: "price",
	})
	require.NoError(t, err)

	err = sess.Run(context.Background(), strategy.NewIncremental(), func(ctx context.Context) error {
		_, err := r.Run(ctx, sess)
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Empty(t, src.Predicates, "no read happens for an unsupported column")
}

func TestReaderRequiresExpressionForBoundedStrategy(t *testing.T) {
	sess := strategy.NewSession()
	src := testutil.NewFakeSource("i")

	r, err := reader.New(src, reader.Config{Table: "public.orders"})
	require.NoError(t, err)

	err = sess.Run(context.Background(), strategy.NewIncremental(), func(ctx context.Context) error {
		_, err := r.Run(ctx, sess)
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestReaderExhaustedWindowSkipsQuery(t *testing.T) {
	sess := strategy.NewSession()
	src := testutil.NewFakeSource("i") // nothing to read
	src.Types["id"] = "bigint"

	r, err := reader.New(src, reader.Config{
		Table:         "public.orders",
		HWMExpression: "id",
	})
	require.NoError(t, err)

	err = sess.Run(context.Background(), strategy.NewIncremental(), func(ctx context.Context) error {
		rs, err := r.Run(ctx, sess)
		if err != nil {
			return err
		}
		assert.Equal(t, 0, rs.Len())
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, src.Predicates, "an exhausted strategy never touches the source")
}

func TestReaderBatchDrivesSpans(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sess := strategy.NewSession(strategy.WithStore(st))

	src := testutil.NewFakeSource("i").SetInts(0, 100, 150, 300)
	src.QueryFn = rowsOf(2)

	r, err := reader.New(src, reader.Config{
		Table:         "public.orders",
		HWMExpression: "id",
		HWMColumnType: "bigint",
	})
	require.NoError(t, err)

	strat := strategy.NewIncrementalBatch(hwm.IntStep(100))
	err = sess.Run(ctx, strat, func(ctx context.Context) error {
		for strat.Next() {
			if _, err := r.Run(ctx, sess); err != nil {
				return err
			}
		}
		return strat.Err()
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"id >= 0 AND id <= 100",
		"id > 100 AND id <= 200",
		"id > 200 AND id <= 300",
	}, src.Predicates)

	mark := hwm.HWM{Entity: "public.orders", Expression: "id", Instance: "i"}
	got, err := st.Get(ctx, mark.QualifiedName())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, hwm.Int(300), got.Value)
}
