package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CHAT_MAX_STEPS", "")
	t.Setenv("VALIDATOR_POLICY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChatMaxSteps != 10 {
		t.Fatalf("expected default max steps 10, got %d", cfg.ChatMaxSteps)
	}
	if cfg.ValidatorPolicy != "relaxed" {
		t.Fatalf("expected default validator policy relaxed, got %q", cfg.ValidatorPolicy)
	}
	if cfg.ValidatorThreshold != 0.8 {
		t.Fatalf("expected default validator threshold 0.8, got %v", cfg.ValidatorThreshold)
	}
	if cfg.NATSSubject != "index.updated" {
		t.Fatalf("expected default nats subject index.updated, got %q", cfg.NATSSubject)
	}
	if cfg.MatcherTopK != 10 {
		t.Fatalf("expected default matcher top k 10, got %d", cfg.MatcherTopK)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CHAT_MAX_STEPS", "6")
	t.Setenv("VALIDATOR_POLICY", "strict")
	t.Setenv("VALIDATOR_THRESHOLD", "0.9")
	t.Setenv("QDRANT_COLLECTION", "courses_v2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChatMaxSteps != 6 {
		t.Fatalf("expected max steps 6, got %d", cfg.ChatMaxSteps)
	}
	if cfg.ValidatorPolicy != "strict" {
		t.Fatalf("expected validator policy strict, got %q", cfg.ValidatorPolicy)
	}
	if cfg.ValidatorThreshold != 0.9 {
		t.Fatalf("expected validator threshold 0.9, got %v", cfg.ValidatorThreshold)
	}
	if cfg.QdrantCollection != "courses_v2" {
		t.Fatalf("expected collection courses_v2, got %q", cfg.QdrantCollection)
	}
}

func TestLoadYAMLFileWinsOverEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "chat_retrieve_k: 8\nvalidator_policy: strict\nqdrant_url: http://qdrant:6333\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CHAT_RETRIEVE_K", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChatRetrieveK != 8 {
		t.Fatalf("expected yaml retrieve k 8 to win, got %d", cfg.ChatRetrieveK)
	}
	if cfg.ValidatorPolicy != "strict" {
		t.Fatalf("expected yaml validator policy strict, got %q", cfg.ValidatorPolicy)
	}
	if cfg.QdrantURL != "http://qdrant:6333" {
		t.Fatalf("expected yaml qdrant url, got %q", cfg.QdrantURL)
	}
	if cfg.ChatMaxSteps != 10 {
		t.Fatalf("expected untouched fields to keep defaults, got %d", cfg.ChatMaxSteps)
	}
}

func TestLoadRejectsInvalidValidatorPolicy(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("VALIDATOR_POLICY", "lenient")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown validator policy")
	}
}

func TestLoadRejectsMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadRejectsInvertedSelectBounds(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CHAT_SELECT_MIN", "4")
	t.Setenv("CHAT_SELECT_MAX", "2")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when select min exceeds max")
	}
}
