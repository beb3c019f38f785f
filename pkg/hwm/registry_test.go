package hwm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-io/tidemark/pkg/errors"
)

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		typeName string
		want     Kind
	}{
		{"bigint", KindInt},
		{"BIGINT", KindInt},
		{"int4", KindInt},
		{"serial", KindInt},
		{"date", KindDate},
		{"timestamp", KindTimestamp},
		{"TIMESTAMP WITH TIME ZONE", KindTimestamp},
		{"datetime", KindTimestamp},
		{"  bigint  ", KindInt},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			kind, err := reg.Resolve(tt.typeName)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestRegistryResolveFractional(t *testing.T) {
	reg := NewRegistry()

	for _, typeName := range []string{"float", "double precision", "NUMERIC(10,2)", "decimal", "real"} {
		t.Run(typeName, func(t *testing.T) {
			_, err := reg.Resolve(typeName)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
			assert.Contains(t, err.Error(), "not supported")
		})
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Resolve("uuid")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Register("number", KindInt))

	kind, err := reg.Resolve("NUMBER(19)")
	require.NoError(t, err)
	assert.Equal(t, KindInt, kind)

	err = reg.Register("number", KindTimestamp)
	require.Error(t, err, "rebinding must fail")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	err = reg.Register("", KindInt)
	assert.Error(t, err)
}

func TestDefaultRegistry(t *testing.T) {
	kind, err := Resolve("bigint")
	require.NoError(t, err)
	assert.Equal(t, KindInt, kind)
	assert.NotNil(t, DefaultRegistry())
}
