package exchange

import (
	"errors"
	"testing"

	binance "github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKlineToBarParsesFields(t *testing.T) {
	k := &binance.Kline{
		OpenTime: 1700000000000,
		Open:     "100.5",
		High:     "101.2",
		Low:      "99.8",
		Close:    "100.9",
		Volume:   "12.34",
	}

	bar, err := klineToBar(k)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), bar.TimestampMs)
	assert.Equal(t, 100.5, bar.Open)
	assert.Equal(t, 101.2, bar.High)
	assert.Equal(t, 99.8, bar.Low)
	assert.Equal(t, 100.9, bar.Close)
	assert.Equal(t, 12.34, bar.Volume)
}

func TestKlineToBarRejectsMalformedField(t *testing.T) {
	k := &binance.Kline{Open: "not-a-number", High: "1", Low: "1", Close: "1", Volume: "1"}
	_, err := klineToBar(k)
	assert.Error(t, err)
}

func TestIsRetryableRecognizesTransientErrors(t *testing.T) {
	assert.True(t, isRetryable(errors.New("connection reset by peer")))
	assert.True(t, isRetryable(errors.New("429 too many requests")))
	assert.True(t, isRetryable(errors.New("503 service unavailable")))
	assert.False(t, isRetryable(errors.New("invalid symbol")))
	assert.False(t, isRetryable(nil))
}

func TestWithRetrySucceedsWithoutRetryOnFirstSuccess(t *testing.T) {
	calls := 0
	err := withRetry(func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryStopsImmediatelyOnNonRetryableError(t *testing.T) {
	calls := 0
	err := withRetry(func() error {
		calls++
		return errors.New("invalid symbol")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryExhaustsAttemptsOnPersistentTransientError(t *testing.T) {
	calls := 0
	err := withRetry(func() error {
		calls++
		return errors.New("timeout")
	})
	assert.Error(t, err)
	assert.Equal(t, maxRetries+1, calls)
}
