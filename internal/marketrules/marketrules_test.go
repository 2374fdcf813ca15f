package marketrules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsOpenCryptoAlwaysOpen(t *testing.T) {
	sunday := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	assert.True(t, IsOpen("crypto", sunday))
}

func TestIsOpenClosedOnWeekends(t *testing.T) {
	sunday := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	assert.False(t, IsOpen("US", sunday))
}

func TestIsOpenWithinSession(t *testing.T) {
	monday := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	assert.True(t, IsOpen("US", monday))
}

func TestIsOpenOutsideSession(t *testing.T) {
	monday := time.Date(2026, 3, 2, 5, 0, 0, 0, time.UTC)
	assert.False(t, IsOpen("US", monday))
}

func TestIsOpenUnknownMarket(t *testing.T) {
	assert.False(t, IsOpen("MARS", time.Now()))
}

func TestValidLotSize(t *testing.T) {
	assert.True(t, ValidLotSize("US", 100))
	assert.True(t, ValidLotSize("SSE", 200))
	assert.False(t, ValidLotSize("SSE", 150))
}

func TestValidLotSizeUnknownMarketAlwaysValid(t *testing.T) {
	assert.True(t, ValidLotSize("MARS", 0.3))
}

func TestPriceLimitBand(t *testing.T) {
	low, high, limited := PriceLimitBand("SSE", 100, false)
	assert.True(t, limited)
	assert.InDelta(t, 90, low, 1e-9)
	assert.InDelta(t, 110, high, 1e-9)
}

func TestPriceLimitBandSTUsesNarrowerBand(t *testing.T) {
	low, high, limited := PriceLimitBand("SSE", 100, true)
	assert.True(t, limited)
	assert.InDelta(t, 95, low, 1e-9)
	assert.InDelta(t, 105, high, 1e-9)
}

func TestPriceLimitBandUnlimitedMarket(t *testing.T) {
	_, _, limited := PriceLimitBand("US", 100, false)
	assert.False(t, limited)
}

func TestSettlementDays(t *testing.T) {
	assert.Equal(t, 0, SettlementDays("crypto"))
	assert.Equal(t, 1, SettlementDays("SSE"))
	assert.Equal(t, 2, SettlementDays("US"))
}
