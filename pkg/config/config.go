// Package config loads server configuration from config.yaml with
// environment variable overrides. Secrets (the AI API key) come from the
// environment only and never from the YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Providers accepted by AIConfig.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration for the engine. Environment variables
// override YAML values for fields that declare both.
type Config struct {
	Env     string `yaml:"env" env:"RAGLLM_ENV" env-default:"development"`
	Version string `yaml:"-"` // Set at load time, not from config

	Server  ServerConfig  `yaml:"server"`
	AI      AIConfig      `yaml:"ai"`
	Query   QueryConfig   `yaml:"query"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	MCP     MCPConfig     `yaml:"mcp"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	BindAddr        string        `yaml:"bind_addr" env:"RAGLLM_BIND_ADDR" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"RAGLLM_PORT" env-default:"5000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"RAGLLM_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"RAGLLM_WRITE_TIMEOUT" env-default:"300s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"RAGLLM_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// AllowedOrigin is the CORS origin served to browsers. "*" mirrors the
	// permissive default of the original deployment.
	AllowedOrigin string `yaml:"allowed_origin" env:"RAGLLM_ALLOWED_ORIGIN" env-default:"*"`
}

// AIConfig holds the text-generation provider settings. The defaults point
// at ZhipuAI's OpenAI-compatible endpoint with the glm-4-flash model.
type AIConfig struct {
	Provider string `yaml:"provider" env:"RAGLLM_AI_PROVIDER" env-default:"openai"`
	BaseURL  string `yaml:"base_url" env:"RAGLLM_AI_BASE_URL" env-default:"https://open.bigmodel.cn/api/paas/v4"`
	Model    string `yaml:"model" env:"RAGLLM_AI_MODEL" env-default:"glm-4-flash"`
	APIKey   string `yaml:"-" env:"RAGLLM_AI_API_KEY"` // Secret - not in YAML

	RequestTimeout    time.Duration `yaml:"request_timeout" env:"RAGLLM_AI_REQUEST_TIMEOUT" env-default:"45s"`
	MaxRetries        int           `yaml:"max_retries" env:"RAGLLM_AI_MAX_RETRIES" env-default:"3"`
	SQLTemperature    float32       `yaml:"sql_temperature" env:"RAGLLM_AI_SQL_TEMPERATURE" env-default:"0.5"`
	AnswerTemperature float32       `yaml:"answer_temperature" env:"RAGLLM_AI_ANSWER_TEMPERATURE" env-default:"0.7"`
	MaxTokens         int           `yaml:"max_tokens" env:"RAGLLM_AI_MAX_TOKENS" env-default:"1024"`
}

// QueryConfig bounds database work done on behalf of a request.
type QueryConfig struct {
	// MaxRows caps rows returned by any SELECT-like statement.
	MaxRows int `yaml:"max_rows" env:"RAGLLM_QUERY_MAX_ROWS" env-default:"1000"`
	// Timeout bounds a single database call.
	Timeout time.Duration `yaml:"timeout" env:"RAGLLM_QUERY_TIMEOUT" env-default:"30s"`
	// SampleRows is how many rows per table introspection samples for the prompt.
	SampleRows int `yaml:"sample_rows" env:"RAGLLM_QUERY_SAMPLE_ROWS" env-default:"3"`
	// PromptBudget is the assembled prompt size limit in runes.
	PromptBudget int `yaml:"prompt_budget" env:"RAGLLM_QUERY_PROMPT_BUDGET" env-default:"12000"`
	// MaxHistory caps conversation exchanges carried into the prompt.
	MaxHistory int `yaml:"max_history" env:"RAGLLM_QUERY_MAX_HISTORY" env-default:"10"`
}

// LoggingConfig selects the zap preset.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"RAGLLM_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"RAGLLM_LOG_FORMAT" env-default:"json"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"RAGLLM_METRICS_ENABLED" env-default:"true"`
}

// MCPConfig controls the Model Context Protocol tool surface.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"RAGLLM_MCP_ENABLED" env-default:"true"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. When config.yaml is absent the environment alone is used.
// The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read config from environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AI.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("ai.provider must be %q or %q, got %q",
			ProviderOpenAI, ProviderAnthropic, c.AI.Provider)
	}
	if c.Query.MaxRows <= 0 {
		return fmt.Errorf("query.max_rows must be positive, got %d", c.Query.MaxRows)
	}
	if c.Query.PromptBudget <= 0 {
		return fmt.Errorf("query.prompt_budget must be positive, got %d", c.Query.PromptBudget)
	}
	if c.Query.SampleRows < 0 {
		return fmt.Errorf("query.sample_rows must not be negative, got %d", c.Query.SampleRows)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *ServerConfig) Addr() string {
	return c.BindAddr + ":" + c.Port
}
