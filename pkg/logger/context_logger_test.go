package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextLogger_AttachesContextFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cl := NewContextLogger(zap.New(core))

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, "u1")

	cl.LogRequest(ctx, "GET", "/token", 200, 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, "/token", fields["path"])
	assert.EqualValues(t, 200, fields["status_code"])
}

func TestContextLogger_NoFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cl := NewContextLogger(zap.New(core))

	cl.LogRequest(context.Background(), "GET", "/ping", 200, 1)

	require.Len(t, logs.All(), 1)
	_, ok := logs.All()[0].ContextMap()["request_id"]
	assert.False(t, ok)
}

func TestNew_FallsBackToInfo(t *testing.T) {
	l := New("not-a-level", "json")
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))

	d := New("debug", "console")
	assert.True(t, d.Core().Enabled(zap.DebugLevel))
}
