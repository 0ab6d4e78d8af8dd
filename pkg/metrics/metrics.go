// Package metrics exposes Prometheus instruments for the assistant.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zen-systems/tripmate/pkg/adapter"
	"github.com/zen-systems/tripmate/pkg/config"
)

// Metrics groups the service instruments. A nil *Metrics ignores every
// observation.
type Metrics struct {
	Intents         *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	TurnDuration    *prometheus.HistogramVec
	ModelCalls      *prometheus.CounterVec
	ModelLatency    *prometheus.HistogramVec
	ModelTokens     *prometheus.CounterVec
	ModelCost       *prometheus.CounterVec
	PlansCommitted  prometheus.Counter
	PendingConfirms *prometheus.CounterVec

	pricing config.PricingConfig
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Intents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripmate_intents_total",
			Help: "Turns handled, by classified intent and classifier source.",
		}, []string{"intent", "source"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripmate_turn_failures_total",
			Help: "Turns answered with an error message, by intent and error kind.",
		}, []string{"intent", "kind"}),
		TurnDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripmate_turn_duration_seconds",
			Help:    "Wall time of a conversational turn.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"intent"}),
		ModelCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripmate_model_calls_total",
			Help: "Generation calls by task, adapter and outcome.",
		}, []string{"task", "adapter", "outcome"}),
		ModelLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripmate_model_call_duration_seconds",
			Help:    "Generation call latency including retries.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"task"}),
		ModelTokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripmate_model_tokens_total",
			Help: "Tokens consumed by generation calls.",
		}, []string{"task", "kind"}),
		ModelCost: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripmate_model_cost_usd_total",
			Help: "Estimated spend of successful generation calls with known pricing.",
		}, []string{"task", "adapter"}),
		PlansCommitted: f.NewCounter(prometheus.CounterOpts{
			Name: "tripmate_plans_committed_total",
			Help: "Plan records written by itinerary synthesis.",
		}),
		PendingConfirms: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripmate_plan_updates_total",
			Help: "Plan edit steps, by stage and outcome.",
		}, []string{"stage", "outcome"}),
	}
}

// UsePricing enables cost estimation for CallObserver.
func (m *Metrics) UsePricing(p config.PricingConfig) {
	if m == nil {
		return
	}
	m.pricing = p
}

// Intent counts a classified turn.
func (m *Metrics) Intent(intent, source string) {
	if m == nil {
		return
	}
	m.Intents.WithLabelValues(intent, source).Inc()
}

// Failure counts a turn that ended in an error message.
func (m *Metrics) Failure(intent, kind string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(intent, kind).Inc()
}

// Turn records the duration of a turn in seconds.
func (m *Metrics) Turn(intent string, seconds float64) {
	if m == nil {
		return
	}
	m.TurnDuration.WithLabelValues(intent).Observe(seconds)
}

// Committed counts persisted plans.
func (m *Metrics) Committed(n int) {
	if m == nil {
		return
	}
	m.PlansCommitted.Add(float64(n))
}

// Update counts a plan edit step.
func (m *Metrics) Update(stage, outcome string) {
	if m == nil {
		return
	}
	m.PendingConfirms.WithLabelValues(stage, outcome).Inc()
}

// CallObserver returns an adapter observer recording calls for task.
func (m *Metrics) CallObserver(task string) func(adapter.CallReport) {
	return func(r adapter.CallReport) {
		if m == nil {
			return
		}
		outcome := "ok"
		switch {
		case r.Error != "":
			outcome = "error"
		case r.FallbackUsed:
			outcome = "fallback"
		}
		m.ModelCalls.WithLabelValues(task, r.Adapter, outcome).Inc()
		m.ModelLatency.WithLabelValues(task).Observe(r.Duration.Seconds())
		m.ModelTokens.WithLabelValues(task, "prompt").Add(float64(r.Usage.PromptTokens))
		m.ModelTokens.WithLabelValues(task, "completion").Add(float64(r.Usage.CompletionTokens))
		if r.Error != "" {
			return
		}
		if cost, ok := EstimateCost(m.pricing, r.Adapter, r.Model, r.Usage); ok {
			m.ModelCost.WithLabelValues(task, r.Adapter).Add(cost)
		}
	}
}
