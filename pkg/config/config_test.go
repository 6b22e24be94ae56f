package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxSteps != DefaultMaxSteps {
		t.Errorf("MaxSteps = %d, want %d", cfg.MaxSteps, DefaultMaxSteps)
	}
	if cfg.Timeout != DefaultTimeoutSeconds {
		t.Errorf("Timeout = %d, want %d", cfg.Timeout, DefaultTimeoutSeconds)
	}
	if cfg.Headless {
		t.Error("Headless should default to false")
	}
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("Provider = %q, want %q", cfg.Provider, ProviderAnthropic)
	}
}

func TestValidateRejectsBadProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestValidateRejectsNonPositiveMaxSteps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for maxSteps=0")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxSteps != DefaultMaxSteps {
		t.Errorf("expected defaults, got MaxSteps=%d", cfg.MaxSteps)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	content := `
baseUrl: http://example.test
maxSteps: 5
headless: true
timeout: 60
tests:
  - name: smoke
    prompt: check the homepage loads
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "http://example.test" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.MaxSteps != 5 {
		t.Errorf("MaxSteps = %d, want 5", cfg.MaxSteps)
	}
	if len(cfg.Tests) != 1 || cfg.Tests[0].Name != "smoke" {
		t.Errorf("Tests = %+v", cfg.Tests)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	content := `{"baseUrl": "http://example.test", "maxSteps": 3, "timeout": 30}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxSteps != 3 {
		t.Errorf("MaxSteps = %d, want 3", cfg.MaxSteps)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PROMPTQA_TEST_KEY", "secret-value")
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	content := "apiKey: ${PROMPTQA_TEST_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIKey != "secret-value" {
		t.Errorf("APIKey = %q, want expanded value", cfg.APIKey)
	}
}

func TestApplyEnvProviderOverride(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "mock")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != ProviderMock {
		t.Errorf("Provider = %q, want mock", cfg.Provider)
	}
}

func TestSaveRoundtrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://example.test"
	path := filepath.Join(t.TempDir(), "sub", "cfg.yaml")

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.BaseURL != cfg.BaseURL {
		t.Errorf("BaseURL = %q, want %q", loaded.BaseURL, cfg.BaseURL)
	}
}
