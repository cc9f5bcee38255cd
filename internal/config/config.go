// Package config loads application configuration from a YAML file,
// environment variables, and an optional .env file, in that order of
// increasing precedence for the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Delivery  DeliveryConfig  `mapstructure:"delivery"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// SecretsConfig selects where credentials are resolved from when they are
// not set inline. See the secrets package for backends.
type SecretsConfig struct {
	// Provider is "env", "file", or "vault". Empty means env.
	Provider   string `mapstructure:"provider"`
	Path       string `mapstructure:"path"`
	VaultAddr  string `mapstructure:"vault_addr"`
	VaultToken string `mapstructure:"vault_token"`
	VaultMount string `mapstructure:"vault_mount"`
	VaultPath  string `mapstructure:"vault_path"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// WebhookSecret guards the POST endpoints; empty disables the check.
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	EmbedModel  string  `mapstructure:"embed_model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	// Requests and tokens per minute; zero disables client-side limiting.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	TokensPerMinute   int `mapstructure:"tokens_per_minute"`

	// Embeddings may run against a different provider than generation,
	// for example Anthropic for answers and OpenAI for vectors. Unset
	// fields inherit from the top-level LLM config.
	Embedder *EmbedderOverride `mapstructure:"embedder"`
}

// EmbedderOverride selects a separate provider for embedding calls.
type EmbedderOverride struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// ResolveEmbedder returns the LLM config the embedding provider should be
// built from, with override fields applied on top of the base config.
func (c LLMConfig) ResolveEmbedder() LLMConfig {
	if c.Embedder == nil {
		return c
	}
	resolved := c
	if c.Embedder.Provider != "" {
		resolved.Provider = c.Embedder.Provider
	}
	if c.Embedder.Model != "" {
		resolved.Model = c.Embedder.Model
		resolved.EmbedModel = c.Embedder.Model
	}
	if c.Embedder.APIKey != "" {
		resolved.APIKey = c.Embedder.APIKey
	}
	if c.Embedder.BaseURL != "" {
		resolved.BaseURL = c.Embedder.BaseURL
	}
	return resolved
}

type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	Dimension  int    `mapstructure:"dimension"`
}

type IngestConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	EmbedBatch   int `mapstructure:"embed_batch"`
}

type RetrievalConfig struct {
	TopK         int     `mapstructure:"top_k"`
	MinScore     float64 `mapstructure:"min_score"`
	ContextChars int     `mapstructure:"context_chars"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	Temperature  float64 `mapstructure:"temperature"`
}

type CrawlConfig struct {
	MaxPages  int           `mapstructure:"max_pages"`
	MaxChars  int           `mapstructure:"max_chars"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type DeliveryConfig struct {
	// Channel is "console" or "gmail".
	Channel string `mapstructure:"channel"`
	From    string `mapstructure:"from"`
	// AccessToken authorizes Gmail sends. OAuth token acquisition happens
	// outside this process.
	AccessToken string `mapstructure:"access_token"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type TracingConfig struct {
	// Endpoint is an OTLP gRPC endpoint; empty disables tracing.
	Endpoint string `mapstructure:"endpoint"`
	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.LLM.Provider != "" && c.LLM.Provider != "none" && c.LLM.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but api_key is empty", c.LLM.Provider))
	}
	if c.Retrieval.Temperature < 0 || c.Retrieval.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("temperature %.2f is outside recommended range [0.0, 2.0]", c.Retrieval.Temperature))
	}
	if c.Retrieval.TopK <= 0 {
		warnings = append(warnings, fmt.Sprintf("retrieval top_k %d must be positive", c.Retrieval.TopK))
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		warnings = append(warnings, fmt.Sprintf("retrieval min_score %.2f is outside [0.0, 1.0]", c.Retrieval.MinScore))
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		warnings = append(warnings, fmt.Sprintf("chunk_overlap %d is not smaller than chunk_size %d", c.Ingest.ChunkOverlap, c.Ingest.ChunkSize))
	}
	if c.Delivery.Channel == "gmail" && c.Delivery.AccessToken == "" {
		warnings = append(warnings, "delivery channel is gmail but access_token is empty")
	}

	return warnings
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.embed_model", "text-embedding-3-small")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1000)

	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "marketing-knowledge")
	v.SetDefault("vector.dimension", 1536)

	v.SetDefault("ingest.chunk_size", 1500)
	v.SetDefault("ingest.chunk_overlap", 300)
	v.SetDefault("ingest.embed_batch", 64)

	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.min_score", 0.0)
	v.SetDefault("retrieval.context_chars", 24000)
	v.SetDefault("retrieval.max_tokens", 1000)
	v.SetDefault("retrieval.temperature", 0.7)

	v.SetDefault("crawl.max_pages", 600)
	v.SetDefault("crawl.max_chars", 3_000_000)
	v.SetDefault("crawl.timeout", 15*time.Second)
	v.SetDefault("crawl.user_agent", "launchpad-crawler/1.0")

	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "launchpad-ingest")

	v.SetDefault("delivery.channel", "console")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Load reads configuration from the given file and the environment. A
// missing file is not an error; defaults and LAUNCHPAD_* variables still
// apply. Secrets in a local .env file are loaded first so viper sees them
// as environment variables.
func Load(path string) (*Config, error) {
	// Best effort; .env is optional everywhere but local dev.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("LAUNCHPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
