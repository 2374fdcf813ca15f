package fund

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateRiskZeroDrawdownIsNormal(t *testing.T) {
	r := EvaluateRisk(100000, 100500)
	assert.Equal(t, RiskNormal, r.Level)
	assert.Equal(t, 0.0, r.DailyDrawdown)
	assert.Equal(t, 1.0, r.ScaleFactor)
}

func TestEvaluateRiskThresholdsAreStrict(t *testing.T) {
	// exactly 3% drawdown stays in caution's lower bound (normal), not caution
	r := EvaluateRisk(100000, 97000)
	assert.Equal(t, RiskNormal, r.Level)

	r = EvaluateRisk(100000, 96999)
	assert.Equal(t, RiskCaution, r.Level)

	r = EvaluateRisk(100000, 95000)
	assert.Equal(t, RiskCaution, r.Level)
	r = EvaluateRisk(100000, 94999)
	assert.Equal(t, RiskWarning, r.Level)

	r = EvaluateRisk(100000, 90000)
	assert.Equal(t, RiskWarning, r.Level)
	r = EvaluateRisk(100000, 89999)
	assert.Equal(t, RiskCritical, r.Level)
}

func TestEvaluateRiskScaleFactors(t *testing.T) {
	assert.Equal(t, 0.8, EvaluateRisk(100000, 96000).ScaleFactor)
	assert.Equal(t, 0.5, EvaluateRisk(100000, 93000).ScaleFactor)
	assert.Equal(t, 0.0, EvaluateRisk(100000, 85000).ScaleFactor)
}

func TestEvaluateRiskTodayPnl(t *testing.T) {
	r := EvaluateRisk(100000, 101000)
	assert.InDelta(t, 1000.0, r.TodayPnl, 1e-9)
	assert.InDelta(t, 1.0, r.TodayPnlPct, 1e-9)
}
