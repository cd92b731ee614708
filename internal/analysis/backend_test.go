// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

func TestOllamaGenerate(t *testing.T) {
	var got ollamaRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model":"qwen2.5:7b","response":"A concise summary.","done":true}`)
	}))
	defer ts.Close()

	b := NewOllamaBackend(types.LLMConfig{BaseURL: ts.URL + "/", Timeout: 5 * time.Second, Temperature: 0.2})
	text, err := b.Generate(context.Background(), types.ModelQwen25, "Title: X")
	require.NoError(t, err)

	assert.Equal(t, "A concise summary.", text)
	assert.Equal(t, "qwen2.5:7b", got.Model)
	assert.Equal(t, "Title: X", got.Prompt)
	assert.False(t, got.Stream)
	assert.InDelta(t, 0.2, got.Options.Temperature, 1e-9)
}

func TestOllamaGenerateFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		errMsg  string
	}{
		{
			name: "model not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error":"model 'gemma3' not found"}`)
			},
			errMsg: "status 404",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"response":`)
			},
			errMsg: "decoding response",
		},
		{
			name: "empty response",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"response":"  ","done":true}`)
			},
			errMsg: "empty response",
		},
		{
			name: "error field",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"error":"out of memory"}`)
			},
			errMsg: "out of memory",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			b := NewOllamaBackend(types.LLMConfig{BaseURL: ts.URL, Timeout: 5 * time.Second})
			_, err := b.Generate(context.Background(), types.ModelGemma3, "p")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestOllamaConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	e := NewEngine(NewOllamaBackend(types.LLMConfig{BaseURL: url, Timeout: time.Second}), nil)
	_, _, err := e.Analyze(context.Background(), testPapers(), types.ModelGemma3, types.DepthTitle)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "2403.00001", be.PaperID)
}

type fakeChat struct {
	in    []*schema.Message
	model string
	reply *schema.Message
	err   error
}

func (f *fakeChat) Generate(_ context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.in = in
	if m := model.GetCommonOptions(nil, opts...).Model; m != nil {
		f.model = *m
	}
	return f.reply, f.err
}

func (f *fakeChat) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not used")
}

func TestChatBackendGenerate(t *testing.T) {
	fc := &fakeChat{reply: schema.AssistantMessage("Summary text.", nil)}
	b := &ChatBackend{Chat: fc}

	text, err := b.Generate(context.Background(), types.ModelDeepSeekR1, "Title: Y")
	require.NoError(t, err)
	assert.Equal(t, "Summary text.", text)
	assert.Equal(t, "deepseek-r1:1.5b", fc.model)
	require.Len(t, fc.in, 2)
	assert.Equal(t, schema.System, fc.in[0].Role)
	assert.Equal(t, "Title: Y", fc.in[1].Content)
}

func TestChatBackendFailures(t *testing.T) {
	b := &ChatBackend{Chat: &fakeChat{err: errors.New("dial tcp: connection refused")}}
	_, err := b.Generate(context.Background(), types.ModelGemma3, "p")
	assert.ErrorContains(t, err, "connection refused")

	b = &ChatBackend{Chat: &fakeChat{reply: schema.AssistantMessage("", nil)}}
	_, err = b.Generate(context.Background(), types.ModelGemma3, "p")
	assert.ErrorContains(t, err, "no content")
}

func TestOpenAICompatibleRoundTrip(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"qwen2.5:7b",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Local answer."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`)
	}))
	defer ts.Close()

	b, err := NewBackend(context.Background(), types.LLMConfig{
		Provider: types.ProviderOpenAI,
		BaseURL:  ts.URL + "/v1",
		APIKey:   "local",
		Model:    "gemma3",
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	require.IsType(t, &ChatBackend{}, b)

	text, err := b.Generate(context.Background(), types.ModelQwen25, "Title: Z")
	require.NoError(t, err)
	assert.Equal(t, "Local answer.", text)
	assert.Equal(t, "qwen2.5:7b", body["model"])
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(context.Background(), types.LLMConfig{BaseURL: "http://localhost:11434"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaBackend{}, b)

	_, err = NewBackend(context.Background(), types.LLMConfig{Provider: "grpc"})
	assert.ErrorContains(t, err, "unknown llm provider")
}
