package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"telinsights/pkg/logging"
)

func TestContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromCore(core)
	log.SetServiceName("analysis-service")

	ctx := logging.WithConfigID(logging.WithRequestID(context.Background(), "req-1"), "cfg-9")
	log.Named("alerting").InfowCtx(ctx, "Frequency alert triggered", "count", 4)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "alerting", fields["component"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "cfg-9", fields["config_id"])
	assert.Equal(t, "analysis-service", fields["service_name"])
	assert.EqualValues(t, 4, fields["count"])
}

func TestContextServiceNameWins(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := FromCore(core)
	log.SetServiceName("ingest-service")

	log.WarnwCtx(logging.WithServiceName(context.Background(), "dlq"), "Message sent to DLQ")
	log.DebugwCtx(context.Background(), "below level")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "dlq", logs.All()[0].ContextMap()["service_name"])
}

func TestNewWithFormat(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		log, err := NewWithFormat("not-a-level", format)
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
}
