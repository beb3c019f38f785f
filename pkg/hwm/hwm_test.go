package hwm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualifiedName(t *testing.T) {
	h := HWM{
		Entity:     "public.orders",
		Expression: "updated_at",
		Instance:   "postgres://db:5432/shop",
	}
	assert.Equal(t, "updated_at#public.orders@postgres://db:5432/shop", h.QualifiedName())

	h.Process = "reporting"
	assert.Equal(t, "updated_at#public.orders@postgres://db:5432/shop#reporting", h.QualifiedName())
}

func TestQualifiedNameSeparatesProcesses(t *testing.T) {
	a := HWM{Entity: "t", Expression: "id", Instance: "i", Process: "etl_a"}
	b := HWM{Entity: "t", Expression: "id", Instance: "i", Process: "etl_b"}
	assert.NotEqual(t, a.QualifiedName(), b.QualifiedName())
}

func TestHWMEqual(t *testing.T) {
	a := HWM{Entity: "t", Expression: "id", Instance: "i", Value: Int(5)}
	b := a.WithValue(Int(5))
	assert.True(t, a.Equal(b))

	assert.False(t, a.Equal(a.WithValue(Int(6))))
	assert.False(t, a.Equal(HWM{Entity: "t2", Expression: "id", Instance: "i", Value: Int(5)}))

	noValue := HWM{Entity: "t", Expression: "id", Instance: "i"}
	assert.False(t, a.Equal(noValue))
	assert.True(t, noValue.Equal(noValue))
}

func TestWithValueCopies(t *testing.T) {
	a := HWM{Entity: "t", Expression: "id", Instance: "i", Value: Int(5)}
	b := a.WithValue(Int(9))

	assert.Equal(t, Int(5), a.Value.(IntValue))
	assert.Equal(t, Int(9), b.Value.(IntValue))
}
