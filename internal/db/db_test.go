package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/fundcore/internal/dbtest"
	"github.com/quantforge/fundcore/internal/risk"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	pg := dbtest.Start(t)
	return &DB{pool: pg.Pool, circuitBreaker: risk.NewCircuitBreakerManager()}
}

func TestPingAndHealth(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	assert.NoError(t, database.Ping(ctx))
	assert.NoError(t, database.Health(ctx))
}

func TestPoolReturnsUnderlyingPool(t *testing.T) {
	database := newTestDB(t)
	assert.NotNil(t, database.Pool())
}

func TestPingOnNilPoolErrors(t *testing.T) {
	database := &DB{}
	assert.Error(t, database.Ping(context.Background()))
}

func TestExecuteWithCircuitBreakerPassesThroughResult(t *testing.T) {
	database := newTestDB(t)

	result, err := database.ExecuteWithCircuitBreaker(func() (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestExecuteWithCircuitBreakerNoBreakerFallsThrough(t *testing.T) {
	database := &DB{}
	result, err := database.ExecuteWithCircuitBreaker(func() (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestSetPoolAndCircuitBreaker(t *testing.T) {
	database := &DB{}
	pg := dbtest.Start(t)
	database.SetPool(pg.Pool)
	assert.NotNil(t, database.Pool())

	cb := risk.NewCircuitBreakerManager()
	database.SetCircuitBreaker(cb)
	assert.Same(t, cb, database.GetCircuitBreaker())
}
