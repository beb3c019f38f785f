package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-io/tidemark/pkg/errors"
	"github.com/tidemark-io/tidemark/pkg/hwm"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	st, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return st
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newFileStore(t)

	marks := []hwm.HWM{
		{Entity: "public.orders", Expression: "id", Instance: "postgres://db:5432/shop", Value: hwm.Int(42)},
		{Entity: "public.events", Expression: "event_date", Instance: "postgres://db:5432/shop", Value: hwm.Date(2024, time.July, 4)},
		{Entity: "app.audit", Expression: "changed_at", Instance: "mysql://db:3306/app", Process: "reporting",
			Value: hwm.Timestamp(time.Date(2024, time.July, 4, 12, 0, 0, 123456000, time.UTC))},
	}

	for _, mark := range marks {
		t.Run(string(mark.Value.Kind()), func(t *testing.T) {
			require.NoError(t, st.Set(ctx, &mark))

			got, err := st.Get(ctx, mark.QualifiedName())
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, mark.Equal(*got), "got %+v", got)
		})
	}
}

func TestFileStoreAbsent(t *testing.T) {
	st := newFileStore(t)

	got, err := st.Get(context.Background(), "id#missing@nowhere")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := NewFileStore(dir)
	require.NoError(t, err)

	mark := hwm.HWM{Entity: "t", Expression: "id", Instance: "i", Value: hwm.Int(77)}
	require.NoError(t, st.Set(ctx, &mark))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)

	got, err := reopened.Get(ctx, mark.QualifiedName())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, mark.Equal(*got))
}

func TestFileStoreSetIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := NewFileStore(dir)
	require.NoError(t, err)

	mark := hwm.HWM{Entity: "t", Expression: "id", Instance: "i", Value: hwm.Int(9)}
	require.NoError(t, st.Set(ctx, &mark))
	require.NoError(t, st.Set(ctx, &mark))

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)

	got, err := st.Get(ctx, mark.QualifiedName())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, mark.Equal(*got))
}

func TestFileStoreRejectsNilValue(t *testing.T) {
	st := newFileStore(t)

	err := st.Set(context.Background(), &hwm.HWM{Entity: "t", Expression: "id", Instance: "i"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestFileStoreUnknownKindFailsLoudly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := NewFileStore(dir)
	require.NoError(t, err)

	mark := hwm.HWM{Entity: "t", Expression: "id", Instance: "i", Value: hwm.Int(1)}
	require.NoError(t, st.Set(ctx, &mark))

	// rewrite the record with a kind this version does not know
	path := st.path(mark.QualifiedName())
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &rec))
	rec["kind"] = "uuid"
	data, err = json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = st.Get(ctx, mark.QualifiedName())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestFileStoreDistinctNamesDistinctFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := NewFileStore(dir)
	require.NoError(t, err)

	// both names sanitize to the same slug, the digest keeps them apart
	a := hwm.HWM{Entity: "t", Expression: "id", Instance: "host:5432/db", Value: hwm.Int(1)}
	b := hwm.HWM{Entity: "t", Expression: "id", Instance: "host#5432/db", Value: hwm.Int(2)}
	require.NoError(t, st.Set(ctx, &a))
	require.NoError(t, st.Set(ctx, &b))

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	got, err := st.Get(ctx, a.QualifiedName())
	require.NoError(t, err)
	assert.True(t, a.Equal(*got))
}

func TestFileStoreRequiresDirectory(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}
