// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// OllamaBackend calls a local Ollama server's generate endpoint. The model
// identifier is sent with every request; the server loads the weights.
type OllamaBackend struct {
	BaseURL     string
	Client      *http.Client
	Temperature float64
}

// NewOllamaBackend returns a backend for cfg.BaseURL with a client bounded by
// cfg.Timeout.
func NewOllamaBackend(cfg types.LLMConfig) *OllamaBackend {
	return &OllamaBackend{
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		Client:      &http.Client{Timeout: cfg.Timeout},
		Temperature: cfg.Temperature,
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate sends one non-streaming generate request.
func (b *OllamaBackend) Generate(ctx context.Context, model types.ModelID, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:   string(model),
		Prompt:  prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: b.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var or ollamaResponse
	if err := json.Unmarshal(data, &or); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if or.Error != "" {
		return "", fmt.Errorf("ollama error: %s", or.Error)
	}
	if strings.TrimSpace(or.Response) == "" {
		return "", fmt.Errorf("ollama returned an empty response")
	}
	return or.Response, nil
}
