package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "grid-fetch-requests", cfg.KafkaSourceTopic)
	assert.Equal(t, "grid-events", cfg.KafkaSinkTopic)
	assert.Equal(t, "grid-ingest", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Equal(t, "config", cfg.ConfigDir)
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
	assert.Empty(t, cfg.ProxyURLTemplate)
	assert.True(t, cfg.RejectAllZeros)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("CONFIG_DIR", "/etc/grid")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("PROXY_URL_TEMPLATE", "http://proxy-%s.internal:3128")
	t.Setenv("REJECT_ALL_ZEROS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, "/etc/grid", cfg.ConfigDir)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "http://proxy-%s.internal:3128", cfg.ProxyURLTemplate)
	assert.False(t, cfg.RejectAllZeros)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		value   string
		wantErr string
	}{
		{"shutdown timeout", "SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"negative shutdown timeout", "SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"batch size zero", "BATCH_SIZE", "0", "BATCH_SIZE"},
		{"batch size too large", "BATCH_SIZE", "9999", "BATCH_SIZE"},
		{"flush interval", "BATCH_FLUSH_INTERVAL", "not-a-duration", "BATCH_FLUSH_INTERVAL"},
		{"upstream timeout", "UPSTREAM_TIMEOUT", "bad", "UPSTREAM_TIMEOUT"},
		{"upstream timeout zero", "UPSTREAM_TIMEOUT", "0s", "UPSTREAM_TIMEOUT"},
		{"reject all zeros", "REJECT_ALL_ZEROS", "sometimes", "REJECT_ALL_ZEROS"},
		{"proxy template without placeholder", "PROXY_URL_TEMPLATE", "http://proxy:3128", "PROXY_URL_TEMPLATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
