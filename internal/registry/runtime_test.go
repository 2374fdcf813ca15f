package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/fundcore/pkg/backtest"
)

type noopStrategy struct{}

func (noopStrategy) OnBar(bar backtest.Bar, ctx *backtest.Context) (*backtest.Signal, error) {
	return nil, nil
}

func TestRuntimeRegisterAndResolve(t *testing.T) {
	rt := NewRuntime()
	rt.Register("s1", noopStrategy{})

	impl, err := rt.Resolve("s1")
	require.NoError(t, err)
	assert.NotNil(t, impl)
}

func TestRuntimeResolveUnknownErrors(t *testing.T) {
	rt := NewRuntime()
	_, err := rt.Resolve("missing")
	assert.Error(t, err)
}

func TestRuntimeReRegisterReplaces(t *testing.T) {
	rt := NewRuntime()
	rt.Register("s1", noopStrategy{})
	rt.Register("s1", noopStrategy{})
	assert.Len(t, rt.IDs(), 1)
}
