package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GoogleAdapter generates with Gemini models.
type GoogleAdapter struct {
	client *genai.Client
	cfg    providerConfig
}

// NewGoogleAdapter creates a Gemini adapter.
func NewGoogleAdapter(apiKey string, opts ...ProviderOption) (*GoogleAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}
	cfg := newProviderConfig(opts)

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.baseURL}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}
	return &GoogleAdapter{client: client, cfg: cfg}, nil
}

func (a *GoogleAdapter) Name() string {
	return "google"
}

func (a *GoogleAdapter) Models() []string {
	return []string{
		"gemini-2.0-flash",
		"gemini-2.5-flash",
		"gemini-2.5-pro",
	}
}

// Generate concatenates the text parts of the first candidate.
func (a *GoogleAdapter) Generate(ctx context.Context, model string, prompt string) (*Response, error) {
	gc := &genai.GenerateContentConfig{MaxOutputTokens: int32(a.cfg.maxTokens)}
	if a.cfg.temperature != nil {
		gc.Temperature = genai.Ptr(float32(*a.cfg.temperature))
	}

	resp, err := a.client.Models.GenerateContent(ctx, model, genai.Text(prompt), gc)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, statusError(a.Name(), apiErr.Code, err)
		}
		return nil, statusError(a.Name(), 0, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, statusError(a.Name(), 0, errors.New("no candidates"))
	}

	var b strings.Builder
	if c := resp.Candidates[0].Content; c != nil {
		for _, part := range c.Parts {
			b.WriteString(part.Text)
		}
	}

	out := &Response{Content: b.String(), Adapter: a.Name(), Model: model}
	if md := resp.UsageMetadata; md != nil {
		out.Usage = &Usage{
			PromptTokens:     int(md.PromptTokenCount),
			CompletionTokens: int(md.CandidatesTokenCount),
			TotalTokens:      int(md.TotalTokenCount),
		}
	}
	return out, nil
}
