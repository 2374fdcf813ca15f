package backtest

import (
	"context"
	"math"
)

// WindowResult is one train/test fold of a walk-forward run.
type WindowResult struct {
	TrainStartMs int64
	TrainEndMs   int64
	TestStartMs  int64
	TestEndMs    int64
	TrainSharpe  float64
	TestSharpe   float64
}

// WalkForwardResult is the validator's full output.
type WalkForwardResult struct {
	Passed            bool
	Windows           []WindowResult
	CombinedTestSharpe float64
	AvgTrainSharpe     float64
	Ratio              float64
	Threshold          float64
}

// WalkForwardOptions configures the validator; zero-value fields fall back
// to the documented defaults (5 windows, 0.7 in-sample, 0.6 threshold).
type WalkForwardOptions struct {
	Windows      int
	InSamplePct  float64
	Threshold    float64
}

func (o WalkForwardOptions) withDefaults() WalkForwardOptions {
	if o.Windows == 0 {
		o.Windows = 5
	}
	if o.InSamplePct == 0 {
		o.InSamplePct = 0.7
	}
	if o.Threshold == 0 {
		o.Threshold = 0.6
	}
	return o
}

// NewStrategy constructs a fresh strategy instance for each window so that
// per-strategy memory never leaks across folds, per §5's "independent run"
// requirement.
type NewStrategy func() Strategy

// RunWalkForward partitions bars into opts.Windows contiguous windows, each
// split into a training fold (the first InSamplePct of the window) and a
// test fold (the remainder), runs cfg's backtest independently on each, and
// reports whether the strategy generalises.
func RunWalkForward(ctx context.Context, strategyID string, newStrategy NewStrategy, bars []Bar, cfg Config, opts WalkForwardOptions) (*WalkForwardResult, error) {
	opts = opts.withDefaults()
	result := &WalkForwardResult{Threshold: opts.Threshold}

	if len(bars) < 2*opts.Windows {
		return result, nil
	}

	windowSize := len(bars) / opts.Windows
	trainSize := int(float64(windowSize) * opts.InSamplePct)

	var trainSharpes, testSharpes []float64

	for w := 0; w < opts.Windows; w++ {
		start := w * windowSize
		end := start + windowSize
		if end > len(bars) {
			end = len(bars)
		}
		windowBars := bars[start:end]
		if trainSize <= 0 || trainSize >= len(windowBars) {
			continue
		}
		trainBars := windowBars[:trainSize]
		testBars := windowBars[trainSize:]

		trainResult, err := Run(ctx, strategyID, newStrategy(), trainBars, cfg)
		if err != nil {
			return nil, err
		}
		testResult, err := Run(ctx, strategyID, newStrategy(), testBars, cfg)
		if err != nil {
			return nil, err
		}

		trainSharpe := finiteOrZero(trainResult.Sharpe)
		testSharpe := finiteOrZero(testResult.Sharpe)
		trainSharpes = append(trainSharpes, trainSharpe)
		testSharpes = append(testSharpes, testSharpe)

		result.Windows = append(result.Windows, WindowResult{
			TrainStartMs: trainBars[0].TimestampMs,
			TrainEndMs:   trainBars[len(trainBars)-1].TimestampMs,
			TestStartMs:  testBars[0].TimestampMs,
			TestEndMs:    testBars[len(testBars)-1].TimestampMs,
			TrainSharpe:  trainSharpe,
			TestSharpe:   testSharpe,
		})
	}

	result.AvgTrainSharpe = meanOrZero(trainSharpes)
	result.CombinedTestSharpe = meanOrZero(testSharpes)

	switch {
	case result.AvgTrainSharpe == 0:
		if result.CombinedTestSharpe >= 0 {
			result.Ratio = 1
		} else {
			result.Ratio = 0
		}
	default:
		result.Ratio = result.CombinedTestSharpe / result.AvgTrainSharpe
	}
	if math.IsNaN(result.Ratio) || math.IsInf(result.Ratio, 0) {
		result.Ratio = 0
	}

	result.Passed = result.Ratio >= opts.Threshold
	return result, nil
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func meanOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
