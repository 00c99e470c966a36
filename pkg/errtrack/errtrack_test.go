package errtrack

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/richxcame/geoippro/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	events []*sentry.Event
}

func (t *recordingTransport) Flush(time.Duration) bool { return true }

func (t *recordingTransport) FlushWithContext(context.Context) bool { return true }

func (t *recordingTransport) Configure(sentry.ClientOptions) {}

func (t *recordingTransport) SendEvent(e *sentry.Event) { t.events = append(t.events, e) }

func (t *recordingTransport) Close() {}

func TestInit_EmptyDSNIsNoop(t *testing.T) {
	require.NoError(t, Init(config.SentryConfig{}, "test", "1.0.0"))
	Capture(context.Background(), errors.New("ignored"))
	CaptureRecovered(context.Background(), "ignored")
}

func TestCapture_UsesHubFromContext(t *testing.T) {
	transport := &recordingTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{Dsn: "https://key@sentry.example.com/1", Transport: transport})
	require.NoError(t, err)

	hub := sentry.NewHub(client, sentry.NewScope())
	ctx := sentry.SetHubOnContext(context.Background(), hub)

	Capture(ctx, errors.New("geoip database unreadable"))
	CaptureRecovered(ctx, "nil map write")

	assert.Len(t, transport.events, 2)
}
