package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/text/language"
	_ "modernc.org/sqlite"

	"github.com/zen-systems/tripmate/pkg/adapter"
	"github.com/zen-systems/tripmate/pkg/chat"
	"github.com/zen-systems/tripmate/pkg/config"
	"github.com/zen-systems/tripmate/pkg/intent"
	"github.com/zen-systems/tripmate/pkg/itinerary"
	"github.com/zen-systems/tripmate/pkg/memory"
	"github.com/zen-systems/tripmate/pkg/metrics"
	"github.com/zen-systems/tripmate/pkg/place"
	"github.com/zen-systems/tripmate/pkg/plan"
	"github.com/zen-systems/tripmate/pkg/rerank"
	"github.com/zen-systems/tripmate/pkg/selection"
	"github.com/zen-systems/tripmate/pkg/update"
)

// app is the fully wired service.
type app struct {
	cfg        *config.Config
	dispatcher *chat.Dispatcher
	plans      *plan.SQLStore
	registry   *prometheus.Registry
	closers    []func(context.Context) error
}

func (a *app) metricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})
}

func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Printf("[tripmate] close: %v", err)
		}
	}
}

func createAdapters(cfg *config.Config) (map[string]adapter.Adapter, error) {
	adapters := make(map[string]adapter.Adapter)

	if cfg.AnthropicAPIKey != "" {
		a, err := adapter.NewAnthropicAdapter(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic adapter: %w", err)
		}
		adapters["anthropic"] = a
	}

	if cfg.OpenAIAPIKey != "" {
		a, err := adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai adapter: %w", err)
		}
		adapters["openai"] = a
	}

	if cfg.GoogleAPIKey != "" {
		a, err := adapter.NewGoogleAdapter(cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create google adapter: %w", err)
		}
		adapters["google"] = a
	}

	adapters["mock"] = adapter.NewMockAdapter()

	return adapters, nil
}

// bindTask resolves a task's route target, falling back to the mock adapter
// when the configured provider has no key.
func retryPolicy(cfg *config.ModelConfig) adapter.RetryPolicy {
	return adapter.RetryPolicy{
		MaxRetries:  cfg.Retry.MaxRetries,
		BaseBackoff: time.Duration(cfg.Retry.BaseBackoffMs) * time.Millisecond,
		MaxBackoff:  time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
	}
}

func bindTask(adapters map[string]adapter.Adapter, cfg *config.ModelConfig, task string, m *metrics.Metrics) *adapter.Target {
	retry := retryPolicy(cfg)
	var bind func(rt config.RouteTarget) *adapter.Target
	bind = func(rt config.RouteTarget) *adapter.Target {
		a, ok := adapters[rt.Adapter]
		if !ok {
			log.Printf("[tripmate] %s: adapter %q not configured, using mock", task, rt.Adapter)
			a = adapters["mock"]
		}
		opts := []adapter.TargetOption{adapter.WithRetry(retry), adapter.WithObserver(m.CallObserver(task))}
		if rt.Fallback != nil {
			opts = append(opts, adapter.WithFallback(bind(*rt.Fallback)))
		}
		return adapter.Bind(a, rt.Model, opts...)
	}
	return bind(cfg.Tasks()[task])
}

type unconfiguredProvider struct{}

func (unconfiguredProvider) Search(context.Context, place.Query) (*place.Results, error) {
	return nil, errors.New("place search is not configured: set SERPAPI_API_KEY")
}

func buildSearcher(ctx context.Context, cfg *config.Config) (*place.Searcher, error) {
	var provider place.Provider = unconfiguredProvider{}
	if cfg.SerpAPIKey != "" {
		p, err := place.NewSerpProvider(cfg.SerpAPIKey)
		if err != nil {
			return nil, err
		}
		provider = p
	}

	var translator place.Translator = place.NopTranslator{}
	if cfg.TranslateAPIKey != "" {
		t, err := place.NewGoogleTranslator(ctx, cfg.TranslateAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create translator: %w", err)
		}
		translator = place.NewCachedTranslator(t, 24*time.Hour)
	}

	search := cfg.Models.Search
	return place.NewSearcher(provider,
		place.WithTranslator(translator),
		place.WithLanguages(language.Make(search.Locale), language.Make(search.TranslateTo)),
		place.WithZoom(search.Zoom),
	), nil
}

func openPlans(ctx context.Context, cfg *config.Config) (*plan.SQLStore, error) {
	store, err := plan.OpenSQL(cfg.SQLDriver, cfg.SQLDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.SQLDriver, err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.registry)
	m.UsePricing(cfg.Models.Pricing)

	adapters, err := createAdapters(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create adapters: %w", err)
	}

	plans, err := openPlans(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.plans = plans
	a.closers = append(a.closers, func(context.Context) error { return plans.Close() })

	var selections selection.Store = selection.NewMemoryStore()
	if cfg.MongoURI != "" {
		ms, err := selection.DialMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := ms.EnsureIndexes(ctx); err != nil {
			log.Printf("[tripmate] mongo indexes: %v", err)
		}
		a.closers = append(a.closers, ms.Close)
		selections = ms
	}

	var pending update.PendingStore = update.NewMemoryPendingStore(cfg.Models.PendingTTL())
	if cfg.RedisAddr != "" {
		rs, err := update.DialRedis(ctx, cfg.RedisAddr, cfg.Models.PendingTTL())
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return rs.Close() })
		pending = rs
	}

	searcher, err := buildSearcher(ctx, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	rules := intent.NewRuleClassifier(nil)
	var classifier intent.Classifier = rules
	if oa, ok := adapters["openai"].(*adapter.OpenAIAdapter); ok && cfg.Models.Classifier.Adapter == "openai" {
		classifier = intent.NewFunctionClassifier(oa.Client(), cfg.Models.Classifier.Model,
			intent.WithRetry(retryPolicy(cfg.Models)),
			intent.WithObserver(m.CallObserver("classifier")),
		)
	} else {
		log.Printf("[tripmate] classifier: no openai key, using keyword rules")
	}

	synth := itinerary.New(plans, selections, bindTask(adapters, cfg.Models, "itinerary", m),
		itinerary.WithMemo(bindTask(adapters, cfg.Models, "memo", m)),
		itinerary.WithNarrator(bindTask(adapters, cfg.Models, "narrative", m)),
	)

	a.dispatcher = chat.New(chat.Deps{
		Classifier:    classifier,
		Fallback:      rules,
		Memory:        memory.NewStore(memory.WithMaxItems(cfg.Models.MemoryTurns)),
		Searcher:      searcher,
		Reranker:      rerank.New(bindTask(adapters, cfg.Models, "rerank", m)),
		Selections:    selections,
		Itinerary:     synth,
		Updates:       update.NewMachine(plans, pending),
		Chat:          bindTask(adapters, cfg.Models, "chat", m),
		Personalities: plans,
	},
		chat.WithConfirmToken(cfg.Models.ConfirmToken),
		chat.WithMetrics(m),
	)
	return a, nil
}
