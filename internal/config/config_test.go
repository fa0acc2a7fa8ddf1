package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:   HTTPConfig{Port: 8080},
		Engine: EngineConfig{Addresses: []string{"http://localhost:9200"}},
		Redis:  RedisConfig{Addrs: []string{"localhost:6379"}},
		Source: SourceConfig{BaseURL: "http://localhost:8080/internal"},
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingEngineAddresses(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.Addresses = nil

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing engine addresses")
	}
	if err.Error() != "engine.addresses is required" {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_MissingSourceBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Source.BaseURL = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing source base url")
	}
}

func TestValidate_NonPositiveWeighting(t *testing.T) {
	cfg := validConfig()
	cfg.Search.Weighting = map[string]float64{"post_title": -1}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for negative boost")
	}
	expected := `search.weighting.post_title must be positive, got -1`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.Index.Prefix != "contentdex" {
		t.Errorf("prefix = %q", cfg.Index.Prefix)
	}
	if cfg.Search.DefaultPageSize != 10 || cfg.Search.MaxResultWindow != 10000 {
		t.Errorf("search defaults = %+v", cfg.Search)
	}
	if cfg.Sync.BulkSize != 350 {
		t.Errorf("bulk size = %d", cfg.Sync.BulkSize)
	}
	if len(cfg.Index.IndexableStatuses) != 1 || cfg.Index.IndexableStatuses[0] != "publish" {
		t.Errorf("indexable statuses = %v", cfg.Index.IndexableStatuses)
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("CONTENTDEX_TEST_PASSWORD", "s3cret")
	defer os.Unsetenv("CONTENTDEX_TEST_PASSWORD")

	in := []byte("password: ${CONTENTDEX_TEST_PASSWORD}\nprefix: ${CONTENTDEX_TEST_MISSING:-fallback}\n")
	out := string(expandEnvVars(in))

	want := "password: s3cret\nprefix: fallback\n"
	if out != want {
		t.Errorf("expanded = %q, want %q", out, want)
	}
}
