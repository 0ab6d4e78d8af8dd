package metrics

import (
	"github.com/zen-systems/tripmate/pkg/adapter"
	"github.com/zen-systems/tripmate/pkg/config"
)

// EstimateCost prices usage in USD. It reports false when no price is
// configured for the adapter/model pair.
func EstimateCost(pricing config.PricingConfig, adapterName, model string, usage adapter.Usage) (float64, bool) {
	entry, ok := pricing.For(adapterName, model)
	if !ok {
		return 0, false
	}
	promptCost := (float64(usage.PromptTokens) / 1000.0) * entry.PromptPer1K
	completionCost := (float64(usage.CompletionTokens) / 1000.0) * entry.CompletionPer1K
	return promptCost + completionCost, true
}
