package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blotter.yaml")
	yamlDoc := "database:\n  driver: postgres\n  dsn: postgres://yaml\nocr:\n  dpi: 300\ningest:\n  workers: 4\n"
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("BLOTTER_CONFIG", path)
	t.Setenv("DB_URL", "postgres://env")
	t.Setenv("BLOTTER_PROCESS_TIMEOUT", "30s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want yaml value", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "postgres://env" {
		t.Errorf("dsn = %q, env should win over yaml", cfg.Database.DSN)
	}
	if cfg.OCR.DPI != 300 || cfg.Ingest.Workers != 4 {
		t.Errorf("yaml overlay not applied: dpi=%d workers=%d", cfg.OCR.DPI, cfg.Ingest.Workers)
	}
	if cfg.Ingest.ProcessTimeout != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Ingest.ProcessTimeout)
	}
	if cfg.OCR.PSM != 6 {
		t.Errorf("default psm lost: %d", cfg.OCR.PSM)
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BLOTTER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig()
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Code != "CONFIG_ERROR" {
		t.Fatalf("expected CONFIG_ERROR, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"no dsn", func(c *Config) { c.Database.DSN = "" }, false},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, false},
		{"llm without key", func(c *Config) { c.LLM.Provider = "openai" }, false},
		{"llm with key", func(c *Config) { c.LLM.Provider = "gemini"; c.LLM.APIKey = "k" }, true},
		{"no workers", func(c *Config) { c.Ingest.Workers = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error should wrap ErrInvalidInput: %v", err)
			}
		})
	}
}
