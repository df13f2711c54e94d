package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "LOG_FORMAT", "METRICS_ENABLED",
		"SPEECH_APP_ID", "SPEECH_ACCESS_TOKEN", "SPEECH_API_KEY", "SPEECH_BASE_URL",
		"SPEECH_ASR_LANGUAGE", "SPEECH_CONCURRENT_MODE", "SPEECH_TIMEOUT",
		"SPEECH_BREAKER_FAILURES", "VOICE_MAX_CAPTURE_SECONDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("metrics should default to enabled")
	}
	if cfg.Speech.Enabled() {
		t.Fatal("speech should be disabled without credentials")
	}
	if cfg.Speech.ASRLanguage != "en-US" || cfg.Speech.Timeout != 30 || cfg.Speech.BreakerFailures != 3 {
		t.Fatalf("unexpected speech defaults %+v", cfg.Speech)
	}
	if cfg.Voice.MaxCapture != 30*time.Second {
		t.Fatalf("unexpected max capture %s", cfg.Voice.MaxCapture)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("SPEECH_APP_ID", "app")
	t.Setenv("SPEECH_API_KEY", "key")
	t.Setenv("SPEECH_CONCURRENT_MODE", "true")
	t.Setenv("SPEECH_BREAKER_FAILURES", "5")
	t.Setenv("VOICE_MAX_CAPTURE_SECONDS", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Log.Format != "console" || cfg.Metrics.Enabled {
		t.Fatalf("unexpected log/metrics config %+v %+v", cfg.Log, cfg.Metrics)
	}
	if !cfg.Speech.Enabled() || cfg.Speech.AccessToken != "key" {
		t.Fatalf("API key should fill access token: %+v", cfg.Speech)
	}
	model := cfg.Speech.Model()
	if !model.ConcurrentMode || model.BreakerFailures != 5 || model.AppID != "app" {
		t.Fatalf("unexpected model config %+v", model)
	}
	if cfg.Voice.MaxCapture != 12*time.Second {
		t.Fatalf("unexpected max capture %s", cfg.Voice.MaxCapture)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                      "80 80",
		"LOG_FORMAT":                "xml",
		"METRICS_ENABLED":           "maybe",
		"SPEECH_TIMEOUT":            "soon",
		"SPEECH_BREAKER_FAILURES":   "0",
		"VOICE_MAX_CAPTURE_SECONDS": "-1",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
