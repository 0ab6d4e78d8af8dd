package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ModelConfig routes each generation task to an adapter/model pair and holds
// the conversational tunables.
type ModelConfig struct {
	Classifier RouteTarget `yaml:"classifier"`
	Chat       RouteTarget `yaml:"chat"`
	Rerank     RouteTarget `yaml:"rerank"`
	Itinerary  RouteTarget `yaml:"itinerary"`
	Memo       RouteTarget `yaml:"memo"`
	Narrative  RouteTarget `yaml:"narrative"`

	Retry             RetryConfig   `yaml:"retry,omitempty"`
	ConfirmToken      string        `yaml:"confirm_token,omitempty"`
	MemoryTurns       int           `yaml:"memory_turns,omitempty"`
	PendingTTLMinutes int           `yaml:"pending_ttl_minutes,omitempty"`
	Search            SearchConfig  `yaml:"search,omitempty"`
	Pricing           PricingConfig `yaml:"pricing,omitempty"`
}

// PricingConfig maps adapter -> model -> price. A "default" model entry
// applies to models without their own.
type PricingConfig map[string]map[string]ModelPricing

// ModelPricing is the USD price per 1k tokens.
type ModelPricing struct {
	PromptPer1K     float64 `yaml:"prompt_per_1k"`
	CompletionPer1K float64 `yaml:"completion_per_1k"`
}

// For returns the price for an adapter/model pair.
func (p PricingConfig) For(adapterName, model string) (ModelPricing, bool) {
	if p == nil {
		return ModelPricing{}, false
	}
	models, ok := p[adapterName]
	if !ok {
		return ModelPricing{}, false
	}
	if entry, ok := models[model]; ok {
		return entry, true
	}
	entry, ok := models["default"]
	return entry, ok
}

// RouteTarget specifies an adapter and model combination.
type RouteTarget struct {
	Adapter  string       `yaml:"adapter"`
	Model    string       `yaml:"model"`
	Fallback *RouteTarget `yaml:"fallback,omitempty"`
}

// RetryConfig defines retry and backoff behavior.
type RetryConfig struct {
	MaxRetries    int `yaml:"max_retries,omitempty"`
	BaseBackoffMs int `yaml:"base_backoff_ms,omitempty"`
	MaxBackoffMs  int `yaml:"max_backoff_ms,omitempty"`
}

// SearchConfig controls the place provider query and translation.
type SearchConfig struct {
	Locale      string `yaml:"locale,omitempty"`
	TranslateTo string `yaml:"translate_to,omitempty"`
	Zoom        int    `yaml:"zoom,omitempty"`
}

// LoadModelConfig reads model routing from a YAML file.
func LoadModelConfig(path string) (*ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ModelConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyModelDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultModelConfig returns the built-in routing: OpenAI for classification
// and chat, Gemini for ranking and itinerary work.
func DefaultModelConfig() *ModelConfig {
	cfg := &ModelConfig{
		Classifier: RouteTarget{Adapter: "openai", Model: "gpt-4o"},
		Chat:       RouteTarget{Adapter: "openai", Model: "gpt-4o"},
		Rerank:     RouteTarget{Adapter: "google", Model: "gemini-2.0-flash"},
		Itinerary:  RouteTarget{Adapter: "google", Model: "gemini-2.0-flash"},
		Memo:       RouteTarget{Adapter: "google", Model: "gemini-2.0-flash"},
		Narrative:  RouteTarget{Adapter: "google", Model: "gemini-2.0-flash"},
	}
	applyModelDefaults(cfg)
	return cfg
}

// Tasks returns the route targets keyed by task name.
func (c *ModelConfig) Tasks() map[string]RouteTarget {
	return map[string]RouteTarget{
		"classifier": c.Classifier,
		"chat":       c.Chat,
		"rerank":     c.Rerank,
		"itinerary":  c.Itinerary,
		"memo":       c.Memo,
		"narrative":  c.Narrative,
	}
}

// TaskNames returns task names in a stable order.
func (c *ModelConfig) TaskNames() []string {
	names := make([]string, 0, 6)
	for name := range c.Tasks() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PendingTTL is how long a staged plan edit survives without confirmation.
// Zero means it never expires.
func (c *ModelConfig) PendingTTL() time.Duration {
	return time.Duration(c.PendingTTLMinutes) * time.Minute
}

// Validate checks task targets and language tags.
func (c *ModelConfig) Validate() error {
	for _, name := range c.TaskNames() {
		target := c.Tasks()[name]
		if target.Adapter == "" || target.Model == "" {
			return fmt.Errorf("task %q needs both adapter and model", name)
		}
	}
	if _, err := language.Parse(c.Search.Locale); err != nil {
		return fmt.Errorf("search.locale %q: %w", c.Search.Locale, err)
	}
	if _, err := language.Parse(c.Search.TranslateTo); err != nil {
		return fmt.Errorf("search.translate_to %q: %w", c.Search.TranslateTo, err)
	}
	for adapterName, models := range c.Pricing {
		for model, price := range models {
			if price.PromptPer1K < 0 || price.CompletionPer1K < 0 {
				return fmt.Errorf("pricing %s/%s: negative price", adapterName, model)
			}
		}
	}
	return nil
}

func applyModelDefaults(cfg *ModelConfig) {
	if cfg == nil {
		return
	}
	def := RouteTarget{Adapter: "google", Model: "gemini-2.0-flash"}
	for _, target := range []*RouteTarget{&cfg.Rerank, &cfg.Itinerary, &cfg.Memo, &cfg.Narrative} {
		if target.Adapter == "" && target.Model == "" {
			*target = def
		}
	}
	for _, target := range []*RouteTarget{&cfg.Classifier, &cfg.Chat} {
		if target.Adapter == "" && target.Model == "" {
			*target = RouteTarget{Adapter: "openai", Model: "gpt-4o"}
		}
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 2
	}
	if cfg.Retry.BaseBackoffMs == 0 {
		cfg.Retry.BaseBackoffMs = 200
	}
	if cfg.Retry.MaxBackoffMs == 0 {
		cfg.Retry.MaxBackoffMs = 2000
	}
	if cfg.Retry.MaxBackoffMs < cfg.Retry.BaseBackoffMs {
		cfg.Retry.MaxBackoffMs = cfg.Retry.BaseBackoffMs
	}
	if cfg.ConfirmToken == "" {
		cfg.ConfirmToken = "확인"
	}
	if cfg.MemoryTurns == 0 {
		cfg.MemoryTurns = 40
	}
	if cfg.Search.Locale == "" {
		cfg.Search.Locale = language.English.String()
	}
	if cfg.Search.TranslateTo == "" {
		cfg.Search.TranslateTo = language.Korean.String()
	}
	if cfg.Search.Zoom == 0 {
		cfg.Search.Zoom = 14
	}
}
