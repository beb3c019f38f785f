package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledTracingIsNoop(t *testing.T) {
	require.NoError(t, InitTracing(TracingConfig{Enabled: false}))

	ctx, span := StartSpan(context.Background(), "test.op")
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
	assert.False(t, span.SpanContext().IsValid(), "disabled tracing records nothing")
	span.End()

	assert.NoError(t, Shutdown(context.Background()))
}

func TestTracerNeverNil(t *testing.T) {
	assert.NotNil(t, Tracer())
}
