// Package errtrack reports unexpected failures to Sentry. All functions are
// no-ops until Init is called with a DSN.
package errtrack

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/richxcame/geoippro/pkg/config"
)

// Init configures the Sentry client. An empty DSN leaves reporting disabled.
func Init(cfg config.SentryConfig, environment, release string) error {
	if cfg.DSN == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      environment,
		Release:          release,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
		AttachStacktrace: true,
	}); err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	return nil
}

// Capture reports err.
func Capture(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hubFrom(ctx).CaptureException(err)
}

// CaptureRecovered reports a value obtained from recover().
func CaptureRecovered(ctx context.Context, recovered interface{}) {
	hubFrom(ctx).RecoverWithContext(ctx, recovered)
}

// Flush waits up to timeout for queued events to be sent.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

func hubFrom(ctx context.Context) *sentry.Hub {
	if ctx != nil {
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			return hub
		}
	}
	return sentry.CurrentHub()
}
