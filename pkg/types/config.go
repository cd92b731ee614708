package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "arxiv-digest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// FeedConfig holds settings for the paper listing feed.
type FeedConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the feed query endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Category is the feed category queried for recent papers (e.g. "cs.AI").
	Category string `json:"category" yaml:"category" mapstructure:"category"`

	// MaxResults caps the listing size (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// RAGConfig holds settings for document context extraction.
type RAGConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Workers bounds concurrent document fetches within one batch.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// RequestsPerSecond paces document fetches. Zero disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// ExcerptChars caps the extracted excerpt, in runes.
	ExcerptChars int `json:"excerpt_chars" yaml:"excerpt_chars" mapstructure:"excerpt_chars"`

	// DisplayExcerptChars caps excerpts shown to users, in runes. Independent
	// of ExcerptChars.
	DisplayExcerptChars int `json:"display_excerpt_chars" yaml:"display_excerpt_chars" mapstructure:"display_excerpt_chars"`

	// MaxRetries is the number of retries on HTTP 429.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// MaxDocumentBytes caps the downloaded document size.
	MaxDocumentBytes int64 `json:"max_document_bytes" yaml:"max_document_bytes" mapstructure:"max_document_bytes"`
}

// LLMProvider selects the wire protocol of the local inference server.
type LLMProvider string

const (
	ProviderOllama LLMProvider = "ollama"
	ProviderOpenAI LLMProvider = "openai"
)

// LLMConfig holds settings for the analysis backend.
type LLMConfig struct {
	// Provider selects the backend protocol: ollama or openai (compatible).
	Provider LLMProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// BaseURL is the local inference endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey is only used by OpenAI-compatible servers that require one.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Model is the default model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Timeout bounds a single inference call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// Temperature is passed through to the backend.
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
}

// HistoryDriver selects the analysis history store.
type HistoryDriver string

const (
	HistorySQLite   HistoryDriver = "sqlite3"
	HistoryPostgres HistoryDriver = "postgres"
	HistoryFile     HistoryDriver = "file"
	HistoryMemory   HistoryDriver = "memory"
)

// HistoryConfig holds settings for the analysis history store.
type HistoryConfig struct {
	Driver HistoryDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DSN is a file path for sqlite3 and file, a connection string for postgres.
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// Config groups all settings.
type Config struct {
	Feed    FeedConfig    `json:"feed" yaml:"feed" mapstructure:"feed"`
	RAG     RAGConfig     `json:"rag" yaml:"rag" mapstructure:"rag"`
	LLM     LLMConfig     `json:"llm" yaml:"llm" mapstructure:"llm"`
	History HistoryConfig `json:"history" yaml:"history" mapstructure:"history"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
}

const defaultUserAgent = "arxiv-digest/0.1"

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() Config {
	return Config{
		Feed: FeedConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: defaultUserAgent},
			BaseURL:    "https://export.arxiv.org/api/query",
			Category:   "cs.AI",
			MaxResults: 20,
		},
		RAG: RAGConfig{
			HTTPConfig:          HTTPConfig{Timeout: 30 * time.Second, UserAgent: defaultUserAgent},
			Workers:             4,
			RequestsPerSecond:   1,
			ExcerptChars:        4000,
			DisplayExcerptChars: 500,
			MaxRetries:          2,
			MaxDocumentBytes:    20 << 20,
		},
		LLM: LLMConfig{
			Provider:    ProviderOllama,
			BaseURL:     "http://localhost:11434",
			Model:       string(DefaultModel),
			Timeout:     120 * time.Second,
			Temperature: 0.2,
		},
		History: HistoryConfig{
			Driver: HistorySQLite,
			DSN:    "data/history.db",
		},
		Log: LogConfig{Level: "info"},
	}
}
