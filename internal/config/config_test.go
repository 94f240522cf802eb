package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8787" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.PresenceTTL != 5*time.Minute {
		t.Fatalf("expected 5m presence ttl, got %s", cfg.PresenceTTL)
	}
	if cfg.DefaultPageSize != 30 {
		t.Fatalf("expected default page size 30, got %d", cfg.DefaultPageSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9000")
	t.Setenv("MINIO_ENDPOINT", "  minio:9000 ")
	t.Setenv("DEFAULT_PAGE_SIZE", "50")
	t.Setenv("MAX_PAGE_SIZE", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("expected :9000, got %q", cfg.Addr)
	}
	if cfg.MinioEndpoint != "minio:9000" {
		t.Fatalf("expected trimmed endpoint, got %q", cfg.MinioEndpoint)
	}
	if cfg.MaxPageSize != 50 {
		t.Fatalf("expected max page size raised to default, got %d", cfg.MaxPageSize)
	}
}

func TestPageSize(t *testing.T) {
	cfg := Config{DefaultPageSize: 30, MaxPageSize: 100}
	cases := []struct {
		requested int
		want      int
	}{
		{requested: 0, want: 30},
		{requested: -4, want: 30},
		{requested: 10, want: 10},
		{requested: 500, want: 100},
	}
	for _, tc := range cases {
		if got := cfg.PageSize(tc.requested); got != tc.want {
			t.Fatalf("PageSize(%d) = %d, want %d", tc.requested, got, tc.want)
		}
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("PRESENCE_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error for invalid duration")
	}
}
