package intent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-systems/tripmate/pkg/adapter"
	"github.com/zen-systems/tripmate/pkg/memory"
)

type capturedRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"messages"`
	Tools []struct {
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	} `json:"tools"`
}

func fakeOpenAI(t *testing.T, message string) (*openai.Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o",`+
			`"choices":[{"index":0,"finish_reason":"stop","message":`+message+`}],`+
			`"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`)
	}))
	t.Cleanup(srv.Close)
	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	return &client, captured
}

func toolCall(name, args string) string {
	encoded, _ := json.Marshal(args)
	return `{"role":"assistant","content":null,"tool_calls":[{"id":"call_1","type":"function","function":{"name":"` +
		name + `","arguments":` + string(encoded) + `}}]}`
}

func TestFunctionClassifierToolCall(t *testing.T) {
	client, captured := fakeOpenAI(t, toolCall("save_place", `{"query":"1,3"}`))
	c := NewFunctionClassifier(client, "gpt-4o")

	d, err := c.Classify(context.Background(), Input{
		Transcript: []memory.Message{
			{Role: memory.RoleUser, Content: "카페 추천해줘"},
			{Role: memory.RoleAssistant, Content: "*1. 장소 이름: Cafe"},
		},
		Query:  "1,3 저장해줘",
		UserID: "u1",
		TripID: "t1",
	})
	require.NoError(t, err)
	assert.Equal(t, SavePlace, d.Kind)
	assert.Equal(t, "1,3", d.Query.Query)

	require.Len(t, captured.Tools, 6)
	require.Len(t, captured.Messages, 5)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "assistant", captured.Messages[3].Role)
	assert.Equal(t, "1,3 저장해줘", captured.Messages[4].Content)
}

func TestFunctionClassifierPlainReply(t *testing.T) {
	client, _ := fakeOpenAI(t, `{"role":"assistant","content":"Hello there!"}`)
	d, err := NewFunctionClassifier(client, "gpt-4o").Classify(context.Background(), Input{Query: "hi"})
	require.NoError(t, err)
	assert.Equal(t, Unclassified, d.Kind)
	assert.Equal(t, "Hello there!", d.Reply)
}

func TestFunctionClassifierBadArguments(t *testing.T) {
	client, _ := fakeOpenAI(t, toolCall("update_trip_plan", `{"title":`))
	d, err := NewFunctionClassifier(client, "gpt-4o").Classify(context.Background(), Input{Query: "change lunch"})
	var perr *IntentParseError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, Unclassified, d.Kind)
}

func TestFunctionClassifierReportsCall(t *testing.T) {
	client, _ := fakeOpenAI(t, toolCall("save_place", `{"query":"2"}`))
	var reports []adapter.CallReport
	c := NewFunctionClassifier(client, "gpt-4o", WithObserver(func(r adapter.CallReport) {
		reports = append(reports, r)
	}))

	_, err := c.Classify(context.Background(), Input{Query: "coffee near me"})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "openai", reports[0].Adapter)
	assert.Equal(t, "gpt-4o", reports[0].Model)
	assert.Equal(t, 2, reports[0].Usage.TotalTokens)
	assert.Zero(t, reports[0].Retries)
	assert.Empty(t, reports[0].Error)
}

func TestFunctionClassifierRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"chatcmpl-2","object":"chat.completion","created":1,"model":"gpt-4o",`+
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hi"}}],`+
			`"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`)
	}))
	defer srv.Close()
	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)

	var reports []adapter.CallReport
	c := NewFunctionClassifier(&client, "gpt-4o",
		WithRetry(adapter.RetryPolicy{MaxRetries: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}),
		WithObserver(func(r adapter.CallReport) { reports = append(reports, r) }),
	)

	d, err := c.Classify(context.Background(), Input{Query: "hello"})
	require.NoError(t, err)
	assert.Equal(t, Unclassified, d.Kind)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].Retries)
	assert.Equal(t, 4, reports[0].Usage.TotalTokens)
}

func TestFunctionClassifierReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad model","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()
	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)

	var reports []adapter.CallReport
	c := NewFunctionClassifier(&client, "gpt-4o",
		WithRetry(adapter.RetryPolicy{MaxRetries: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}),
		WithObserver(func(r adapter.CallReport) { reports = append(reports, r) }),
	)

	_, err := c.Classify(context.Background(), Input{Query: "hello"})
	require.Error(t, err)
	var aerr *adapter.AdapterError
	require.True(t, errors.As(err, &aerr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, aerr.Status)
	require.Len(t, reports, 1)
	assert.Zero(t, reports[0].Retries, "client errors are not retried")
	assert.NotEmpty(t, reports[0].Error)
}
