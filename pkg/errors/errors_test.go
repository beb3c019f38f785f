package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndError(t *testing.T) {
	err := New(ErrorTypeConfig, "bad setting")
	assert.Equal(t, "config: bad setting", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("network down")
	err := Wrap(cause, ErrorTypeConnection, "failed to connect")

	assert.Contains(t, err.Error(), "failed to connect")
	assert.Contains(t, err.Error(), "network down")
	assert.ErrorIs(t, err, cause)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "nothing"))
	assert.Nil(t, Wrapf(nil, ErrorTypeInternal, "nothing %d", 1))
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeValidation, "bad value")
	assert.True(t, IsType(err, ErrorTypeValidation))
	assert.False(t, IsType(err, ErrorTypeConfig))

	wrapped := Wrap(err, ErrorTypeState, "commit failed")
	assert.True(t, IsType(wrapped, ErrorTypeState))

	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeInternal))
	assert.False(t, IsType(nil, ErrorTypeInternal))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeQuery, "query failed").
		WithDetail("table", "public.orders").
		WithDetail("rows", 0)

	require.NotNil(t, err.Details)
	assert.Equal(t, "public.orders", err.Details["table"])
}

func TestNewfFormats(t *testing.T) {
	err := Newf(ErrorTypeNotFound, "source %q not registered", "kafka")
	assert.Equal(t, `not_found: source "kafka" not registered`, err.Error())
}
