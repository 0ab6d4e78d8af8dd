package intent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/openai/openai-go"

	"github.com/zen-systems/tripmate/pkg/adapter"
	"github.com/zen-systems/tripmate/pkg/memory"
)

// SystemPrompt frames every classification request.
const SystemPrompt = "You are a helpful assistant that helps users plan their travel plans."

// Input is one turn to classify.
type Input struct {
	// Transcript is the conversation before this turn, oldest first.
	Transcript []memory.Message
	Query      string
	UserID     string
	TripID     string
	Latitude   *float64
	Longitude  *float64
}

// Classifier picks the action for a turn. When the model selects an action
// with malformed arguments it returns an Unclassified decision together with
// an *IntentParseError.
type Classifier interface {
	Classify(ctx context.Context, in Input) (*Decision, error)
}

// FunctionClassifier uses OpenAI tool calling with the six action schemas.
type FunctionClassifier struct {
	client  *openai.Client
	model   string
	retry   adapter.RetryPolicy
	observe func(adapter.CallReport)
}

// FunctionOption configures a FunctionClassifier.
type FunctionOption func(*FunctionClassifier)

// WithRetry sets the retry policy for transient OpenAI failures.
func WithRetry(p adapter.RetryPolicy) FunctionOption {
	return func(c *FunctionClassifier) {
		c.retry = p
	}
}

// WithObserver receives one report per classification call.
func WithObserver(fn func(adapter.CallReport)) FunctionOption {
	return func(c *FunctionClassifier) {
		c.observe = fn
	}
}

// NewFunctionClassifier creates a classifier for model.
func NewFunctionClassifier(client *openai.Client, model string, opts ...FunctionOption) *FunctionClassifier {
	c := &FunctionClassifier{client: client, model: model, retry: adapter.DefaultRetryPolicy()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify sends the transcript and the tool menu and decodes the selected call.
func (c *FunctionClassifier) Classify(ctx context.Context, in Input) (*Decision, error) {
	resp, err := c.complete(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return &Decision{Kind: Unclassified, Reply: msg.Content, Source: "tools"}, nil
	}
	call := msg.ToolCalls[0]
	d, err := ParseCall(call.Function.Name, call.Function.Arguments)
	if err != nil {
		return &Decision{Kind: Unclassified, Reply: msg.Content, Source: "tools"}, err
	}
	d.Source = "tools"
	return d, nil
}

func (c *FunctionClassifier) complete(ctx context.Context, in Input) (*openai.ChatCompletion, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: buildMessages(in),
		Tools:    toolParams(),
	}
	report := adapter.CallReport{Adapter: "openai", Model: c.model}
	start := time.Now()

	var resp *openai.ChatCompletion
	retries, err := c.retry.Do(ctx, func() error {
		r, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			var apiErr *openai.Error
			if errors.As(err, &apiErr) {
				return &adapter.AdapterError{Provider: "openai", Status: apiErr.StatusCode, Err: err}
			}
			return err
		}
		if len(r.Choices) == 0 {
			return errors.New("openai returned no choices")
		}
		resp = r
		return nil
	})

	report.Retries = retries
	report.Duration = time.Since(start)
	if err != nil {
		report.Error = err.Error()
	} else {
		report.Usage = adapter.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		}
	}
	if c.observe != nil {
		c.observe(report)
	}
	return resp, err
}

func buildMessages(in Input) []openai.ChatCompletionMessageParamUnion {
	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(SystemPrompt),
		openai.SystemMessage(contextHint(in)),
	}
	for _, m := range in.Transcript {
		if m.Role == memory.RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		} else {
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return append(msgs, openai.UserMessage(in.Query))
}

func contextHint(in Input) string {
	return fmt.Sprintf("Context for function arguments: userId=%s, tripId=%s, latitude=%s, longitude=%s",
		in.UserID, in.TripID, formatCoord(in.Latitude), formatCoord(in.Longitude))
}

func formatCoord(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func toolParams() []openai.ChatCompletionToolParam {
	tools := Tools()
	params := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		params = append(params, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        string(t.Name),
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Schema()),
			},
		})
	}
	return params
}
