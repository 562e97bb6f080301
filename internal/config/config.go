package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the ragchat server.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Search    SearchConfig    `mapstructure:"search"`
	LLM       LLMConfig       `mapstructure:"llm"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
}

// AdminConfig holds optional API key protection for the chat endpoint.
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// SearchConfig holds the external retrieval endpoint configuration.
type SearchConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	APIToken string `mapstructure:"api_token"`
	Index    string `mapstructure:"index"`
}

// LLMConfig holds the external generation endpoint configuration.
type LLMConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIToken    string  `mapstructure:"api_token"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// RAGConfig holds per-request retrieval defaults.
type RAGConfig struct {
	MaxResults     int     `mapstructure:"max_results"`
	ScoreThreshold float64 `mapstructure:"score_threshold"`
	RewriteQuery   bool    `mapstructure:"rewrite_query"`
	SystemPrompt   string  `mapstructure:"system_prompt"`
}

// LimitsConfig holds request validation limits.
type LimitsConfig struct {
	MaxMessageChars      int `mapstructure:"max_message_chars"`
	MaxSystemPromptChars int `mapstructure:"max_system_prompt_chars"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	RedisAddr         string `mapstructure:"redis_addr"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("RAGCHAT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")

	v.SetDefault("admin.api_key", "")

	v.SetDefault("search.base_url", "http://localhost:9000")
	v.SetDefault("search.api_token", "")
	v.SetDefault("search.index", "default")

	v.SetDefault("llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.api_token", "")
	v.SetDefault("llm.model", "@cf/meta/llama-3.1-8b-instruct")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.7)

	v.SetDefault("rag.max_results", 5)
	v.SetDefault("rag.score_threshold", 0.3)
	v.SetDefault("rag.rewrite_query", true)
	v.SetDefault("rag.system_prompt", "You are a helpful assistant. Answer the user's questions clearly and concisely.")

	v.SetDefault("limits.max_message_chars", 50000)
	v.SetDefault("limits.max_system_prompt_chars", 10000)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.redis_addr", "localhost:6379")
	v.SetDefault("rate_limit.requests_per_minute", 60)
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
