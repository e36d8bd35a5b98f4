package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("ORACLE_TIMEOUT", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoreBackend != "postgres" {
		t.Errorf("StoreBackend = %q, want postgres", cfg.StoreBackend)
	}
	if cfg.OracleTimeout != 120*time.Second {
		t.Errorf("OracleTimeout = %v, want 2m", cfg.OracleTimeout)
	}
	if cfg.RateLimitPerMinute != 100 {
		t.Errorf("RateLimitPerMinute = %d, want 100", cfg.RateLimitPerMinute)
	}
	if cfg.GenerationPolicy != "wait" {
		t.Errorf("GenerationPolicy = %q, want wait", cfg.GenerationPolicy)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad backend", map[string]string{"STORE_BACKEND": "sqlite"}},
		{"bad timeout", map[string]string{"ORACLE_TIMEOUT": "soon"}},
		{"negative limit", map[string]string{"RATE_LIMIT_PER_MINUTE": "-5"}},
		{"production without issuer", map[string]string{"ENV": "production", "OIDC_ISSUER": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV", "development")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestLoadYAMLFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(t *testing.T, cfg *YAMLConfig)
	}{
		{
			name: "organizations with profiles",
			content: `organizations:
  - slug: Northline
    name: Northline Pipeline
    profile_text: |
      Weld audit program in place.
  - slug: dev
`,
			check: func(t *testing.T, cfg *YAMLConfig) {
				org := cfg.GetOrganizationBySlug("northline")
				if org == nil {
					t.Fatal("northline not found")
				}
				if org.ProfileText != "Weld audit program in place.\n" {
					t.Errorf("ProfileText = %q", org.ProfileText)
				}
				if dev := cfg.GetOrganizationBySlug("dev"); dev == nil || dev.Name != "dev" {
					t.Errorf("dev = %+v, want name defaulted to slug", dev)
				}
			},
		},
		{name: "missing slug", content: "organizations:\n  - name: Nameless\n", wantErr: true},
		{name: "duplicate slug", content: "organizations:\n  - slug: a\n  - slug: A\n", wantErr: true},
		{name: "malformed", content: "organizations: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			cfg, err := loadYAMLFile(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadYAMLFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadYAMLFile_Missing(t *testing.T) {
	cfg, err := loadYAMLFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil || cfg != nil {
		t.Errorf("loadYAMLFile(absent) = %v, %v; want nil, nil", cfg, err)
	}
	var nilCfg *YAMLConfig
	if nilCfg.GetOrganizationBySlug("x") != nil {
		t.Error("nil config should find nothing")
	}
}
