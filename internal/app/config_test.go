package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"OMS_HTTP_ADDR", "OMS_METRICS_ADDR", "DATABASE_URL", "KAFKA_BROKERS", "OMS_SEED_USERS", "OMS_CACHE_TTL"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q, want :9090", cfg.MetricsAddr)
	}
	if cfg.PostgresDSN != "" {
		t.Errorf("PostgresDSN = %q, want empty", cfg.PostgresDSN)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("KafkaBrokers = %v, want empty", cfg.KafkaBrokers)
	}
	if !cfg.SeedUsers {
		t.Error("SeedUsers must default to true")
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %s, want 30s", cfg.CacheTTL)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("OMS_HTTP_ADDR", ":18080")
	t.Setenv("OMS_METRICS_ADDR", ":19090")
	t.Setenv("DATABASE_URL", "postgres://localhost/orders")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("OMS_SEED_USERS", "false")
	t.Setenv("OMS_CACHE_TTL", "5s")

	cfg := LoadConfig()

	if cfg.HTTPAddr != ":18080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":19090" {
		t.Errorf("MetricsAddr = %q", cfg.MetricsAddr)
	}
	if cfg.PostgresDSN != "postgres://localhost/orders" {
		t.Errorf("PostgresDSN = %q", cfg.PostgresDSN)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "k1:9092" || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.SeedUsers {
		t.Error("SeedUsers must be disabled")
	}
	if cfg.CacheTTL != 5*time.Second {
		t.Errorf("CacheTTL = %s", cfg.CacheTTL)
	}
}

func TestLoadConfigIgnoresBadTTL(t *testing.T) {
	t.Setenv("OMS_CACHE_TTL", "soon")

	cfg := LoadConfig()
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %s, want default on bad input", cfg.CacheTTL)
	}
}
