package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestConfigIgnoresFileAPIKeys(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearKeyEnv(t)

	configDir := filepath.Join(home, ".tripmate")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data := []byte("api_keys:\n  openai: file-openai\n  google: file-google\nstorage:\n  mongo_uri: mongodb://file:27017\n")
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenAIAPIKey != "" || cfg.GoogleAPIKey != "" {
		t.Fatalf("expected file API keys to be ignored")
	}
	if cfg.MongoURI != "mongodb://file:27017" {
		t.Fatalf("expected mongo uri from file, got %q", cfg.MongoURI)
	}
}

func TestConfigEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearKeyEnv(t)

	configDir := filepath.Join(home, ".tripmate")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data := []byte("server:\n  listen: \":9000\"\nstorage:\n  sql_driver: mysql\n  sql_dsn: file-dsn\n")
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TRIPMATE_SQL_DSN", "env-dsn")
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("GEMINI_API_KEY", "env-gemini")
	t.Setenv("SERP_API_KEY", "env-serp")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9000" {
		t.Fatalf("expected listen from file, got %q", cfg.Listen)
	}
	if cfg.SQLDriver != "mysql" || cfg.SQLDSN != "env-dsn" {
		t.Fatalf("unexpected sql settings %q %q", cfg.SQLDriver, cfg.SQLDSN)
	}
	if cfg.OpenAIAPIKey != "env-openai" || cfg.GoogleAPIKey != "env-gemini" || cfg.SerpAPIKey != "env-serp" {
		t.Fatalf("expected env API keys to be used")
	}
	if !cfg.HasAdapter("openai") || cfg.HasAdapter("anthropic") {
		t.Fatalf("unexpected adapter availability")
	}
}

func TestConfigDefaults(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearKeyEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SQLDriver != "sqlite" || cfg.SQLDSN != filepath.Join(home, ".tripmate", "tripmate.db") {
		t.Fatalf("unexpected sqlite defaults %q %q", cfg.SQLDriver, cfg.SQLDSN)
	}
	if cfg.RateLimit.PerMinute != 30 || cfg.RateLimit.Burst != 5 {
		t.Fatalf("unexpected rate limit defaults %+v", cfg.RateLimit)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.Models == nil || cfg.Models.ConfirmToken != "확인" {
		t.Fatalf("expected default model config")
	}
}

func setHomeEnv(t *testing.T, home string) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("TRIPMATE_HOME", "")
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
}

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"OPENAI_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY",
		"SERPAPI_API_KEY", "SERP_API_KEY", "GOOGLE_TRANSLATE_API_KEY",
		"TRIPMATE_LISTEN", "MONGO_URI", "MONGO_DATABASE", "TRIPMATE_SQL_DRIVER",
		"TRIPMATE_SQL_DSN", "REDIS_ADDR", "TRIPMATE_ALLOWED_ORIGINS", "TRIPMATE_RATE_PER_MINUTE",
	} {
		t.Setenv(name, "")
	}
}
