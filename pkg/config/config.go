package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	OpenAIAPIKey    string
	GoogleAPIKey    string
	AnthropicAPIKey string
	SerpAPIKey      string
	TranslateAPIKey string

	Listen         string
	AllowedOrigins []string
	RateLimit      RateLimitConfig

	MongoURI      string
	MongoDatabase string
	SQLDriver     string
	SQLDSN        string
	RedisAddr     string

	Models    *ModelConfig
	ConfigDir string
}

// RateLimitConfig bounds chat turns per user.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute,omitempty"`
	Burst     int `yaml:"burst,omitempty"`
}

// FileConfig represents the structure of ~/.tripmate/config.yaml.
// API keys are deliberately absent: they are read from the environment only.
type FileConfig struct {
	Server  ServerFileConfig  `yaml:"server"`
	Storage StorageFileConfig `yaml:"storage"`
}

// ServerFileConfig holds HTTP settings.
type ServerFileConfig struct {
	Listen         string          `yaml:"listen"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// StorageFileConfig holds storage endpoints.
type StorageFileConfig struct {
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
	SQLDriver     string `yaml:"sql_driver"`
	SQLDSN        string `yaml:"sql_dsn"`
	RedisAddr     string `yaml:"redis_addr"`
}

// Load reads configuration from config files and environment variables.
// Environment variables take precedence over file configuration.
func Load() (*Config, error) {
	return LoadWithModelsFile("")
}

// LoadWithModelsFile loads config with a specific model routing file. An empty
// path means ~/.tripmate/models.yaml when present, defaults otherwise.
func LoadWithModelsFile(modelsPath string) (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		GoogleAPIKey:    firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		SerpAPIKey:      firstEnv("SERPAPI_API_KEY", "SERP_API_KEY"),
		TranslateAPIKey: firstEnv("GOOGLE_TRANSLATE_API_KEY", "GOOGLE_API_KEY"),

		Listen:         getEnvOrDefault("TRIPMATE_LISTEN", orDefault(fileConfig.Server.Listen, ":8080")),
		AllowedOrigins: fileConfig.Server.AllowedOrigins,
		RateLimit:      fileConfig.Server.RateLimit,

		MongoURI:      getEnvOrDefault("MONGO_URI", fileConfig.Storage.MongoURI),
		MongoDatabase: getEnvOrDefault("MONGO_DATABASE", orDefault(fileConfig.Storage.MongoDatabase, "tripmate")),
		SQLDriver:     getEnvOrDefault("TRIPMATE_SQL_DRIVER", orDefault(fileConfig.Storage.SQLDriver, "sqlite")),
		SQLDSN:        getEnvOrDefault("TRIPMATE_SQL_DSN", fileConfig.Storage.SQLDSN),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", fileConfig.Storage.RedisAddr),

		ConfigDir: configDir,
	}

	if origins := os.Getenv("TRIPMATE_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if v := os.Getenv("TRIPMATE_RATE_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TRIPMATE_RATE_PER_MINUTE %q: %w", v, err)
		}
		cfg.RateLimit.PerMinute = n
	}
	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = 30
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 5
	}
	if cfg.SQLDSN == "" && cfg.SQLDriver == "sqlite" {
		cfg.SQLDSN = filepath.Join(configDir, "tripmate.db")
	}

	if modelsPath == "" {
		modelsPath = filepath.Join(configDir, "models.yaml")
		if _, err := os.Stat(modelsPath); err != nil {
			cfg.Models = DefaultModelConfig()
			return cfg, nil
		}
	}
	models, err := LoadModelConfig(modelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model config from %s: %w", modelsPath, err)
	}
	cfg.Models = models

	return cfg, nil
}

// HasAdapter returns true if the API key for the given adapter is configured.
func (c *Config) HasAdapter(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	case "mock":
		return true
	default:
		return false
	}
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, cfg)
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getConfigDir() (string, error) {
	if dir := os.Getenv("TRIPMATE_HOME"); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".tripmate")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
