package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "STORE_BACKEND", "KAFKA_BROKERS", "REQUEST_TIMEOUT", "INVENTORY_WORKERS", "LOW_STOCK_THRESHOLD", "OTEL_ENDPOINT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 8, cfg.InventoryWorkers)
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.Empty(t, cfg.OtelEndpoint)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "MEMORY")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")
	t.Setenv("REQUEST_TIMEOUT", "750ms")
	t.Setenv("INVENTORY_WORKERS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.InventoryWorkers)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"unknown backend":  {"STORE_BACKEND", "sqlite"},
		"bad timeout":      {"REQUEST_TIMEOUT", "soon"},
		"negative timeout": {"REQUEST_TIMEOUT", "-1s"},
		"zero workers":     {"INVENTORY_WORKERS", "0"},
		"bad threshold":    {"LOW_STOCK_THRESHOLD", "x"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
