package resilience

import (
	"context"

	"github.com/richxcame/geoippro/pkg/logger"
	"go.uber.org/zap"
)

// FallbackFunc runs when the breaker rejects a call.
type FallbackFunc func(ctx context.Context, err error) (interface{}, error)

// NoopFallback surfaces ErrCircuitOpen unchanged.
func NoopFallback(ctx context.Context, err error) (interface{}, error) {
	return nil, ErrCircuitOpen
}

// GracefulDegradation logs the rejection and returns ErrCircuitOpen so the
// caller can fail open.
func GracefulDegradation(upstream string) FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		logger.WithContext(ctx).Warn("circuit breaker open, skipping upstream",
			zap.String("upstream", upstream),
			zap.Error(err),
		)
		return nil, ErrCircuitOpen
	}
}
