package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type mapEnv map[string]string

func (m mapEnv) Getenv(key string) string { return m[key] }

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{"MASTER_SECRET": "x"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("expected default gin mode release, got %q", cfg.GinMode)
	}
	if cfg.CompletionTimeout != 60*time.Second {
		t.Fatalf("expected default completion timeout 60s, got %v", cfg.CompletionTimeout)
	}
	if cfg.MaxTokens != 150 {
		t.Fatalf("expected default max tokens 150, got %d", cfg.MaxTokens)
	}
	want := []ModelSpec{
		{Selector: "gpt-3.5-turbo", Kind: ModelKindHosted},
		{Selector: "gpt-4", Kind: ModelKindHosted},
		{Selector: "falcon", Kind: ModelKindLocal},
	}
	if len(cfg.Models) != len(want) {
		t.Fatalf("expected %d models, got %+v", len(want), cfg.Models)
	}
	for i := range want {
		if cfg.Models[i] != want[i] {
			t.Fatalf("models[%d] = %+v, want %+v", i, cfg.Models[i], want[i])
		}
	}
}

func TestLoadConfigFromEnv_MissingSecret(t *testing.T) {
	_, err := LoadConfigFromEnv(mapEnv{})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadConfigFromEnv_PortOverride(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{"MASTER_SECRET": "x", "PORT": "1234"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 1234 {
		t.Fatalf("expected port 1234, got %d", cfg.Port)
	}
}

func TestLoadConfigFromEnv_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                       "70000",
		"TOKEN_EXPIRY_SECONDS":       "-1",
		"COMPLETION_TIMEOUT_SECONDS": "abc",
		"MAX_TOKENS":                 "0",
		"LOG_FORMAT":                 "xml",
	}
	for key, value := range cases {
		_, err := LoadConfigFromEnv(mapEnv{"MASTER_SECRET": "x", key: value})
		if err == nil {
			t.Fatalf("expected error for %s=%s", key, value)
		}
	}
}

func TestLoadConfigFromEnv_ModelOverrides(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{
		"MASTER_SECRET":   "x",
		"HOSTED_MODELS":   "gpt-4o, ,gpt-4o-mini",
		"LOCAL_MODEL_TAG": "llama",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(cfg.Models) != 3 {
		t.Fatalf("expected 3 models, got %+v", cfg.Models)
	}
	if cfg.Models[1].Selector != "gpt-4o-mini" || cfg.Models[2] != (ModelSpec{Selector: "llama", Kind: ModelKindLocal}) {
		t.Fatalf("unexpected models: %+v", cfg.Models)
	}
}

func TestLoadConfigFromEnv_ModelsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	content := "models:\n  - selector: gpt-4\n    kind: hosted\n  - selector: falcon\n    kind: LOCAL\n    model: falcon-7b-instruct\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfigFromEnv(mapEnv{"MASTER_SECRET": "x", "MODELS_FILE": path})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(cfg.Models) != 2 {
		t.Fatalf("expected 2 models, got %+v", cfg.Models)
	}
	if cfg.Models[1].Kind != ModelKindLocal || cfg.Models[1].Model != "falcon-7b-instruct" {
		t.Fatalf("unexpected local model: %+v", cfg.Models[1])
	}
}

func TestLoadModelsFile_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":     "models: []\n",
		"kind":      "models:\n  - selector: a\n    kind: remote\n",
		"selector":  "models:\n  - kind: hosted\n",
		"duplicate": "models:\n  - selector: a\n    kind: hosted\n  - selector: a\n    kind: local\n",
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), name+".yaml")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := LoadModelsFile(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
