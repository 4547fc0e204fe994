package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Solver.Ordering != OrderingOrdered {
		t.Errorf("default ordering = %q, want %q", cfg.Solver.Ordering, OrderingOrdered)
	}
	if cfg.Solver.MaxResults <= 0 {
		t.Errorf("default maxResults must be positive, got %d", cfg.Solver.MaxResults)
	}
	if cfg.Normalizer.DefaultEncoding != "utf-8" {
		t.Errorf("default encoding = %q", cfg.Normalizer.DefaultEncoding)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
dictionary:
  source: /tmp/hebrew.txt
solver:
  maxWords: 3
  maxResults: 10
  ordering: multiset
  searchTimeout: 2s
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AS_SOLVER_MAX_RESULTS", "25")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dictionary.Source != "/tmp/hebrew.txt" {
		t.Errorf("source = %q", cfg.Dictionary.Source)
	}
	if cfg.Solver.MaxWords != 3 {
		t.Errorf("maxWords = %d, want 3", cfg.Solver.MaxWords)
	}
	if cfg.Solver.MaxResults != 25 {
		t.Errorf("env override not applied: maxResults = %d", cfg.Solver.MaxResults)
	}
	if cfg.Solver.Ordering != OrderingMultiset {
		t.Errorf("ordering = %q", cfg.Solver.Ordering)
	}
	if cfg.Solver.SearchTimeout != 2*time.Second {
		t.Errorf("searchTimeout = %v", cfg.Solver.SearchTimeout)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Port != 3000 {
		t.Errorf("server port = %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative max words", func(c *Config) { c.Solver.MaxWords = -1 }},
		{"zero max results", func(c *Config) { c.Solver.MaxResults = 0 }},
		{"negative memo", func(c *Config) { c.Solver.MaxMemoEntries = -5 }},
		{"unknown ordering", func(c *Config) { c.Solver.Ordering = "sorted" }},
		{"missing source", func(c *Config) { c.Dictionary.Source = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverridesEnableSubsystems(t *testing.T) {
	t.Setenv("AS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("AS_RPC_ADDR", ":9400")
	t.Setenv("AS_DICTIONARY_WATCH", "true")
	t.Setenv("AS_TRACING_ENABLED", "1")
	t.Setenv("AS_ADMIN_KEY_HASHES", "aa,bb")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("kafka = %+v", cfg.Kafka)
	}
	if !cfg.RPC.Enabled || cfg.RPC.Addr != ":9400" {
		t.Errorf("rpc = %+v", cfg.RPC)
	}
	if !cfg.Dictionary.Watch || cfg.Dictionary.WatchDebounce <= 0 {
		t.Errorf("dictionary = %+v", cfg.Dictionary)
	}
	if !cfg.Tracing.Enabled {
		t.Error("tracing override not applied")
	}
	if len(cfg.Server.AdminKeyHashes) != 2 {
		t.Errorf("admin keys = %v", cfg.Server.AdminKeyHashes)
	}
}

func TestAnalyticsDefaults(t *testing.T) {
	a := Default().Analytics
	if a.Enabled || a.Persist {
		t.Errorf("analytics must be opt-in: %+v", a)
	}
	if a.BatchSize <= 0 || a.FlushInterval <= 0 || a.BufferSize < a.BatchSize {
		t.Errorf("analytics batching = %+v", a)
	}
}
