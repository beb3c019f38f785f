package pipeline

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

func intRows(n int) func(string, []string, string) (*models.RecordSet, error) {
	return func(_ string, columns []string, _ string) (*models.RecordSet, error) {
		rs := models.NewRecordSet("id")
		for i := 0; i < n; i++ {
			rec := models.NewRecord()
			rec.Data["id"] = int64(i)
			rs.Append(rec)
		}
		return rs, nil
	}
}

func newReader(t *testing.T, src *testutil.FakeSource) *reader.DBReader {
	t.Helper()
	r, err := reader.New(src, reader.Config{
		Table:         "public.orders",
		HWMExpression: "id",
		HWMColumnType: "bigint",
	})
	require.NoError(t, err)
	return r
}

func TestPipelineSnapshotRun(t *testing.T) {
	src := testutil.NewFakeSource("i")
	src.QueryFn = intRows(5)
	dest := &testutil.FakeDestination{}

	p, err := New(newReader(t, src), dest, nil)
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background(), strategy.NewSnapshot()))
	assert.Equal(t, 5, dest.Rows())
	assert.Equal(t, int64(5), p.RowsMoved())
}

func TestPipelineIncrementalBatchRun(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sess := strategy.NewSession(strategy.WithStore(st))

	src := testutil.NewFakeSource("i").SetInts(0, 150, 300)
	src.QueryFn = intRows(2)
	dest := &testutil.FakeDestination{}

	p, err := New(newReader(t, src), dest, sess)
	require.NoError(t, err)

	require.NoError(t, p.Run(ctx, strategy.NewIncrementalBatch(hwm.IntStep(100))))

	// three step-100 spans cover 0..300
	assert.Equal(t, []string{
		"id >= 0 AND id <= 100",
		"id > 100 AND id <= 200",
		"id > 200 AND id <= 300",
	}, src.Predicates)
	assert.Equal(t, 6, dest.Rows())

	mark := hwm.HWM{Entity: "public.orders", Expression: "id", Instance: "i"}
	got, err := st.Get(ctx, mark.QualifiedName())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, hwm.Int(300), got.Value)
}

func TestPipelineWriteFailureAbortsScope(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sess := strategy.NewSession(strategy.WithStore(st))

	src := testutil.NewFakeSource("i").SetInts(0, 300)
	src.QueryFn = intRows(1)
	dest := &testutil.FakeDestination{WriteErr: errors.New(errors.ErrorTypeConnection, "sink down")}

	p, err := New(newReader(t, src), dest, sess)
	require.NoError(t, err)

	err = p.Run(ctx, strategy.NewIncrementalBatch(hwm.IntStep(100)))
	require.Error(t, err)
	assert.Equal(t, 0, st.Len(), "failed pipeline must not advance the mark")
}

func TestPipelineEmptySpansWriteNothing(t *testing.T) {
	sess := strategy.NewSession()
	src := testutil.NewFakeSource("i").SetInts(0, 100)
	src.QueryFn = func(_ string, _ []string, _ string) (*models.RecordSet, error) {
		return models.NewRecordSet("id"), nil
	}
	dest := &testutil.FakeDestination{}

	p, err := New(newReader(t, src), dest, sess)
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background(), strategy.NewIncremental()))
	assert.Empty(t, dest.Written, "empty record sets never reach the destination")
}

func TestPipelineRequiresReaderAndDestination(t *testing.T) {
	src := testutil.NewFakeSource("i")
	dest := &testutil.FakeDestination{}

	_, err := New(nil, dest, nil)
	assert.Error(t, err)

	_, err = New(newReader(t, src), nil, nil)
	assert.Error(t, err)
}
