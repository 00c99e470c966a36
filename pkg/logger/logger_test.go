package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit_Environments(t *testing.T) {
	require.NoError(t, Init("production"))
	assert.NotNil(t, Get())

	require.NoError(t, Init("development"))
	assert.NotNil(t, Get())
}

func TestWithContext_AddsCorrelationID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := Get()
	Set(zap.New(core))
	defer Set(prev)

	ctx := ContextWithCorrelationID(context.Background(), "req-42")
	WithContext(ctx).Info("evaluated")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0].ContextMap()["correlation_id"])
}

func TestWithContext_NoCorrelationID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := Get()
	Set(zap.New(core))
	defer Set(prev)

	WithContext(context.Background()).Info("plain")

	require.Len(t, logs.All(), 1)
	_, ok := logs.All()[0].ContextMap()["correlation_id"]
	assert.False(t, ok)
}
