// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

const systemPrompt = "You are a concise research analyst. Answer only with the requested analysis."

// ChatBackend adapts any eino chat model. The model identifier is passed per
// call so one client serves every supported model.
type ChatBackend struct {
	Chat model.BaseChatModel
}

// NewOpenAICompatible builds a ChatBackend for a local server that speaks the
// OpenAI chat completions protocol (llama.cpp, vLLM, LM Studio).
func NewOpenAICompatible(ctx context.Context, cfg types.LLMConfig) (*ChatBackend, error) {
	temp := float32(cfg.Temperature)
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:      cfg.APIKey,
		Model:       string(NormalizeModel(cfg.Model)),
		Temperature: &temp,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat model: %w", err)
	}
	return &ChatBackend{Chat: cm}, nil
}

// Generate sends the prompt as a single user turn.
func (b *ChatBackend) Generate(ctx context.Context, m types.ModelID, prompt string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompt),
	}
	resp, err := b.Chat.Generate(ctx, messages, model.WithModel(string(m)))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("chat completion returned no content")
	}
	return resp.Content, nil
}
