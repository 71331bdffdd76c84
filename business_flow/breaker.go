package businessflow

import (
	"errors"

	"github.com/amirphl/fast-ads/config"
	"github.com/amirphl/fast-ads/logger"
	"github.com/sony/gobreaker/v2"
)

// Store names used in logs and metric labels
const (
	storeFrequencyCap  = "frequency_cap"
	storeAbTest        = "ab_test"
	storeDecisionCache = "decision_cache"
)

// newStoreBreaker builds the circuit breaker guarding one store. It opens after
// cfg.ConsecutiveFailures failures in a row and retries after cfg.OpenTimeout.
func newStoreBreaker[T any](store string, cfg config.BreakerConfig, log *logger.Logger) *gobreaker.CircuitBreaker[T] {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	storeBreakerState.WithLabelValues(store).Set(0)

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        store,
		MaxRequests: max(cfg.HalfOpenMaxRequests, 1),
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Store circuit breaker state changed", "store", name, "from", from.String(), "to", to.String())
			storeBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// isBreakerRejection reports calls refused without reaching the store
func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// degraded records a store failure that was answered with the fallback value
func degraded(log *logger.Logger, store string, err error, kv ...any) {
	storeDegradedTotal.WithLabelValues(store).Inc()
	kv = append(kv, "store", store, "error", err.Error())
	if isBreakerRejection(err) {
		log.Debug("Store call rejected by circuit breaker", kv...)
		return
	}
	log.Warn("Store call failed, serving degraded answer", kv...)
}
