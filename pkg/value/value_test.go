package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoneIsConstAndZeroID(t *testing.T) {
	v := None()
	assert.True(t, v.IsConst())
	assert.Equal(t, NoneID, ID(0))
}

func TestKindStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "real", Real.String())
	assert.Equal(t, "unknown", Kind(250).String())
}

func TestNewErrorCarriesMessage(t *testing.T) {
	v := NewError("boom")
	assert.Equal(t, Error, v.Kind)
	assert.Equal(t, "boom", v.Msg)
}

func TestNewCFunctionIsConst(t *testing.T) {
	v := NewCFunction(func(vm any, args ID) ID { return NoneID }, NoneID)
	assert.True(t, v.IsConst())
}
