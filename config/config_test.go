package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, PlaceholderConnectionString, cfg.ConnectionString)
	assert.True(t, cfg.IsPlaceholder())
	assert.Equal(t, "task-queue", cfg.QueueName)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 5, cfg.WorkerCount)
	assert.Equal(t, 2*time.Second, cfg.ReceiveWait)
	assert.Equal(t, 30*time.Second, cfg.HandlerTimeout)
	assert.Equal(t, 10, cfg.MaxDeliveryCount)
	assert.Equal(t, 256*1024, cfg.MaxBatchBytes)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "task-queue:deadletter", cfg.DeadLetterQueue())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("QUEUE_CONNECTION_STRING", "redis://localhost:6379/2")
	t.Setenv("QUEUE_NAME", " orders ")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("HANDLER_TIMEOUT", "45s")
	t.Setenv("MAX_DELIVERY_COUNT", "3")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.False(t, cfg.IsPlaceholder())
	assert.Equal(t, "orders", cfg.QueueName)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 45*time.Second, cfg.HandlerTimeout)
	assert.Equal(t, 3, cfg.MaxDeliveryCount)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("QUEUE_NAME=from-file\nWORKER_COUNT=7\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("QUEUE_NAME")
		os.Unsetenv("WORKER_COUNT")
	})

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.QueueName)
	assert.Equal(t, 7, cfg.WorkerCount)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"unparsable duration", "RECEIVE_WAIT", "soon", "failed to parse environment"},
		{"bad log level", "LOG_LEVEL", "LOUD", "invalid log level"},
		{"zero workers", "WORKER_COUNT", "0", "invalid worker count"},
		{"zero deliveries", "MAX_DELIVERY_COUNT", "0", "invalid max delivery count"},
		{"tiny batch", "MAX_BATCH_BYTES", "10", "invalid max batch bytes"},
		{"negative timeout", "HANDLER_TIMEOUT", "-1s", "invalid handler timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
