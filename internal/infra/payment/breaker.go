package payment

import (
	"errors"
	"log/slog"
	"time"

	"storefront/internal/domain/model"

	"github.com/sony/gobreaker/v2"
)

// 連続失敗でopen、openの間はゲートウェイを呼ばずにUnavailableを返す
type BreakerSettings struct {
	MaxConsecutiveFailures uint32
	OpenTimeout            time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxConsecutiveFailures: 5,
		OpenTimeout:            30 * time.Second,
	}
}

func newBreaker[T any](name string, s BreakerSettings, logger *slog.Logger) *gobreaker.CircuitBreaker[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxConsecutiveFailures
		},
		//カード拒否はサービス障害ではない
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, model.ErrPaymentDeclined)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("payment breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

func execute[T any](cb *gobreaker.CircuitBreaker[T], fn func() (T, error)) (T, error) {
	res, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, model.NewPaymentError(model.ErrPaymentServiceUnavailable, "")
	}
	return res, err
}
