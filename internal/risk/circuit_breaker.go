// Package risk provides the circuit-breaker infrastructure: an exchange
// breaker and a database breaker. Only the database breaker has a caller in
// this module (internal/db's ExecuteWithCircuitBreaker); the OHLCV adapters
// do not route their exchange calls through the exchange breaker.
// Fund-level risk evaluation (drawdown state machine) lives in
// internal/fund, a distinct concern from this infrastructure breaker.
package risk

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

const (
	ExchangeMinRequests     = 5
	ExchangeFailureRatio    = 0.6
	ExchangeOpenTimeout     = 30 * time.Second
	ExchangeHalfOpenMaxReqs = 3
	ExchangeCountInterval   = 10 * time.Second

	DBMinRequests     = 10
	DBFailureRatio    = 0.6
	DBOpenTimeout     = 15 * time.Second
	DBHalfOpenMaxReqs = 5
	DBCountInterval   = 10 * time.Second
)

// CircuitBreakerManager holds the exchange and database breakers.
type CircuitBreakerManager struct {
	exchange *gobreaker.CircuitBreaker
	database *gobreaker.CircuitBreaker
	metrics  *CircuitBreakerMetrics
}

// CircuitBreakerMetrics holds the Prometheus series for breaker state and
// request outcomes.
type CircuitBreakerMetrics struct {
	state    *prometheus.GaugeVec
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
}

var (
	globalMetrics *CircuitBreakerMetrics
	metricsOnce   sync.Once
)

func initMetrics() {
	metricsOnce.Do(func() {
		globalMetrics = &CircuitBreakerMetrics{
			state: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "fundcore_circuit_breaker_state",
					Help: "Circuit breaker state (0=closed, 1=open, 2=half_open)",
				},
				[]string{"service"},
			),
			requests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "fundcore_circuit_breaker_requests_total",
					Help: "Total number of requests through circuit breaker",
				},
				[]string{"service", "result"},
			),
			failures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "fundcore_circuit_breaker_failures_total",
					Help: "Total number of failures tracked by circuit breaker",
				},
				[]string{"service"},
			),
		}
	})
}

// ServiceSettings holds circuit breaker configuration for a single service.
type ServiceSettings struct {
	MinRequests     uint32
	FailureRatio    float64
	OpenTimeout     time.Duration
	HalfOpenMaxReqs uint32
	CountInterval   time.Duration
}

// NewCircuitBreakerManager builds a manager with the package defaults.
func NewCircuitBreakerManager() *CircuitBreakerManager {
	return NewCircuitBreakerManagerWithSettings(nil, nil)
}

// NewCircuitBreakerManagerWithSettings builds a manager, falling back to
// package defaults for any nil settings.
func NewCircuitBreakerManagerWithSettings(exchangeSettings, dbSettings *ServiceSettings) *CircuitBreakerManager {
	initMetrics()

	if exchangeSettings == nil {
		exchangeSettings = &ServiceSettings{
			MinRequests: ExchangeMinRequests, FailureRatio: ExchangeFailureRatio,
			OpenTimeout: ExchangeOpenTimeout, HalfOpenMaxReqs: ExchangeHalfOpenMaxReqs,
			CountInterval: ExchangeCountInterval,
		}
	}
	if dbSettings == nil {
		dbSettings = &ServiceSettings{
			MinRequests: DBMinRequests, FailureRatio: DBFailureRatio,
			OpenTimeout: DBOpenTimeout, HalfOpenMaxReqs: DBHalfOpenMaxReqs,
			CountInterval: DBCountInterval,
		}
	}

	manager := &CircuitBreakerManager{metrics: globalMetrics}

	manager.exchange = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "exchange",
		MaxRequests: exchangeSettings.HalfOpenMaxReqs,
		Interval:    exchangeSettings.CountInterval,
		Timeout:     exchangeSettings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= exchangeSettings.MinRequests && failureRatio >= exchangeSettings.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			manager.updateMetrics("exchange", to)
		},
	})

	manager.database = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "database",
		MaxRequests: dbSettings.HalfOpenMaxReqs,
		Interval:    dbSettings.CountInterval,
		Timeout:     dbSettings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= dbSettings.MinRequests && failureRatio >= dbSettings.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			manager.updateMetrics("database", to)
		},
	})

	manager.updateMetrics("exchange", manager.exchange.State())
	manager.updateMetrics("database", manager.database.State())

	return manager
}

// NewPassthroughCircuitBreakerManager never trips; useful in tests.
func NewPassthroughCircuitBreakerManager() *CircuitBreakerManager {
	initMetrics()
	neverTrip := func(counts gobreaker.Counts) bool { return false }

	return &CircuitBreakerManager{
		metrics: globalMetrics,
		exchange: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "exchange_passthrough", MaxRequests: 1000, Timeout: time.Millisecond, ReadyToTrip: neverTrip,
		}),
		database: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "database_passthrough", MaxRequests: 1000, Timeout: time.Millisecond, ReadyToTrip: neverTrip,
		}),
	}
}

func (m *CircuitBreakerManager) Exchange() *gobreaker.CircuitBreaker { return m.exchange }
func (m *CircuitBreakerManager) Database() *gobreaker.CircuitBreaker { return m.database }

func (m *CircuitBreakerManager) updateMetrics(service string, state gobreaker.State) {
	var stateValue float64
	switch state {
	case gobreaker.StateClosed:
		stateValue = 0
	case gobreaker.StateOpen:
		stateValue = 1
	case gobreaker.StateHalfOpen:
		stateValue = 2
	}
	m.metrics.state.WithLabelValues(service).Set(stateValue)
}

// RecordRequest records a request outcome for metrics.
func (m *CircuitBreakerMetrics) RecordRequest(service string, success bool) {
	result := ResultSuccess
	if !success {
		result = ResultFailure
		m.failures.WithLabelValues(service).Inc()
	}
	m.requests.WithLabelValues(service, result).Inc()
}

// Metrics returns the metrics instance for manual recording.
func (m *CircuitBreakerManager) Metrics() *CircuitBreakerMetrics { return m.metrics }
