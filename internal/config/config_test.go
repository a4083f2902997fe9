package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FreshnessCapacity != 5 {
		t.Fatalf("FreshnessCapacity: want=5 got=%d", cfg.FreshnessCapacity)
	}
	if cfg.AudioRetention != 6*time.Hour {
		t.Fatalf("AudioRetention: want=6h got=%s", cfg.AudioRetention)
	}
	if cfg.AudioSweepRetry != time.Hour {
		t.Fatalf("AudioSweepRetry: want=1h got=%s", cfg.AudioSweepRetry)
	}
	if cfg.OpenAIChatModel != "gpt-3.5-turbo" {
		t.Fatalf("OpenAIChatModel: want=%q got=%q", "gpt-3.5-turbo", cfg.OpenAIChatModel)
	}
	if cfg.AuthBypassToken != "" {
		t.Fatalf("AuthBypassToken: want empty by default, got %q", cfg.AuthBypassToken)
	}
	if cfg.HTTPAddress() != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddress: want=%q got=%q", "0.0.0.0:8080", cfg.HTTPAddress())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COMPLETION_PROVIDER", "gemini")
	t.Setenv("FRESHNESS_CAPACITY", "8")
	t.Setenv("ENRICH_TASK_TIMEOUT", "3s")
	t.Setenv("PUBSUB_PROJECT_ID", "drills")
	t.Setenv("PUBSUB_TOPIC", "exercise-generated")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CompletionProvider != "gemini" {
		t.Fatalf("CompletionProvider: want=%q got=%q", "gemini", cfg.CompletionProvider)
	}
	if cfg.FreshnessCapacity != 8 {
		t.Fatalf("FreshnessCapacity: want=8 got=%d", cfg.FreshnessCapacity)
	}
	if cfg.EnrichTaskTimeout != 3*time.Second {
		t.Fatalf("EnrichTaskTimeout: want=3s got=%s", cfg.EnrichTaskTimeout)
	}
	if !cfg.PubSubEnabled() {
		t.Fatalf("PubSubEnabled: want true")
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("TTS_PROVIDER", "espeak")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "TTS_PROVIDER") {
		t.Fatalf("want TTS_PROVIDER error, got %v", err)
	}
}

func TestLoadRedisBackendNeedsURL(t *testing.T) {
	t.Setenv("FRESHNESS_BACKEND", "redis")
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("want error when redis backend has no REDIS_URL")
	}
}
