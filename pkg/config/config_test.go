package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "info", c.Logger.Level)
	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Equal(t, 5*time.Second, c.Cache.TTL.Flow)
	assert.Equal(t, 10*time.Second, c.Cache.TTL.Candles)
	assert.Equal(t, 30*time.Second, c.Cache.TTL.Volatility)
	assert.Equal(t, "binance", c.Provider.Type)
	assert.Equal(t, 15*time.Second, c.Provider.Timeout)
	assert.Equal(t, uint32(5), c.Provider.Breaker.Failures)
	assert.False(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, c.Kafka.Brokers)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
	assert.Equal(t, "flowmetrics", c.ClickHouse.Database)
}

func TestLoadYAMLKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9090
cache:
  backend: redis
  ttl:
    flow: 2s
provider:
  type: rest
  base_url: https://data.example.com/api
  intervals: ["1d"]
kafka:
  enabled: true
  brokers: ["kafka-1:9092", "kafka-2:9092"]
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "redis", c.Cache.Backend)
	assert.Equal(t, 2*time.Second, c.Cache.TTL.Flow)
	assert.Equal(t, 10*time.Second, c.Cache.TTL.Candles)
	assert.Equal(t, []string{"1d"}, c.Provider.Intervals)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, c.Kafka.Brokers)
}

func TestValidationErrors(t *testing.T) {
	cases := map[string]string{
		"unknown provider":  "provider:\n  type: carrier-pigeon\n",
		"rest without url":  "provider:\n  type: rest\n",
		"bad interval":      "provider:\n  intervals: [\"2h\"]\n",
		"bad cache backend": "cache:\n  backend: memcached\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("FLOWMETRICS_PROVIDER_TYPE", "clickhouse")
	t.Setenv("FLOWMETRICS_SERVER_PORT", "7070")
	t.Setenv("FLOWMETRICS_KAFKA_ENABLED", "true")
	t.Setenv("FLOWMETRICS_KAFKA_BROKERS", "a:1,b:2")
	t.Setenv("FLOWMETRICS_LOG_LEVEL", "debug")

	c, err := LoadWithEnv(writeConfig(t, "provider:\n  type: binance\n"))
	require.NoError(t, err)

	assert.Equal(t, "clickhouse", c.Provider.Type)
	assert.Equal(t, 7070, c.Server.Port)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"a:1", "b:2"}, c.Kafka.Brokers)
	assert.Equal(t, "debug", c.Logger.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
