// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the arxiv-digest CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/arxiv-digest/internal/logger"
	"github.com/pdiddy/arxiv-digest/internal/secrets"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// appConfig is the merged configuration, populated before any subcommand runs.
var appConfig = types.DefaultConfig()

// rootCmd is the base command for the arxiv-digest CLI.
var rootCmd = &cobra.Command{
	Use:   "arxiv-digest",
	Short: "Fetch recent arXiv papers and analyze them with a local LLM",
	Long: `arxiv-digest lists the newest papers of an arXiv category, analyzes them
with a locally hosted model (Ollama or an OpenAI-compatible server) at title,
abstract, or rag depth, and optionally compares the analysis against the most
recent earlier run that covered the same papers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
			return err
		}

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(secretsDir)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Log.WithField("keys", keys).Debug("loaded secrets")
		}
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = s[secrets.LLMAPIKey]
		}

		appConfig = cfg
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./arxiv-digest.yaml or ~/.config/arxiv-digest/config.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of plain-text secret files")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("arxiv-digest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "arxiv-digest"))
		}
	}

	viper.SetEnvPrefix("ARXIV_DIGEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper(), types.DefaultConfig())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key so environment overrides apply even when
// no config file sets them.
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("feed.base_url", d.Feed.BaseURL)
	v.SetDefault("feed.category", d.Feed.Category)
	v.SetDefault("feed.max_results", d.Feed.MaxResults)
	v.SetDefault("feed.timeout", d.Feed.Timeout)
	v.SetDefault("feed.user_agent", d.Feed.UserAgent)

	v.SetDefault("rag.timeout", d.RAG.Timeout)
	v.SetDefault("rag.user_agent", d.RAG.UserAgent)
	v.SetDefault("rag.workers", d.RAG.Workers)
	v.SetDefault("rag.requests_per_second", d.RAG.RequestsPerSecond)
	v.SetDefault("rag.excerpt_chars", d.RAG.ExcerptChars)
	v.SetDefault("rag.display_excerpt_chars", d.RAG.DisplayExcerptChars)
	v.SetDefault("rag.max_retries", d.RAG.MaxRetries)
	v.SetDefault("rag.max_document_bytes", d.RAG.MaxDocumentBytes)

	v.SetDefault("llm.provider", string(d.LLM.Provider))
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.temperature", d.LLM.Temperature)

	v.SetDefault("history.driver", string(d.History.Driver))
	v.SetDefault("history.dsn", d.History.DSN)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// loadConfig decodes viper's merged view onto the defaults.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
