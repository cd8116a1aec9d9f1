// Package config loads mcpchat configuration from a YAML file, the
// environment and command line flags, in that order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/KamdynS/mcpchat/llm"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all mcpchat configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Server     ServerConfig     `yaml:"server"`
	Agent      AgentConfig      `yaml:"agent"`
	Retry      llm.RetryConfig  `yaml:"retry"`
	Memory     MemoryConfig     `yaml:"memory"`
	Guardrails GuardrailsConfig `yaml:"guardrails"`
	Log        LogConfig        `yaml:"log"`
}

// LLMConfig selects and authenticates the inference endpoint
type LLMConfig struct {
	Provider    string        `yaml:"provider" validate:"oneof=openai anthropic"`
	EndpointURL string        `yaml:"endpoint_url" validate:"omitempty,url"`
	APIKey      string        `yaml:"api_key" validate:"required"`
	// ModelName defaults to the provider's default model
	ModelName   string        `yaml:"model_name"`
	MaxTokens   int           `yaml:"max_tokens" validate:"gt=0"`
	Temperature *float64      `yaml:"temperature" validate:"omitempty,gte=0,lte=2"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
}

// ServerConfig controls the tool server subprocess
type ServerConfig struct {
	// Command overrides the interpreter picked from the script extension
	Command          string        `yaml:"command"`
	Env              []string      `yaml:"env"`
	Dir              string        `yaml:"dir"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" validate:"gt=0"`
	CallTimeout      time.Duration `yaml:"call_timeout" validate:"gte=0"`
	TerminateTimeout time.Duration `yaml:"terminate_timeout" validate:"gte=0"`
}

// AgentConfig bounds each conversation run
type AgentConfig struct {
	MaxRounds        int           `yaml:"max_rounds" validate:"gte=1"`
	SystemPrompt     string        `yaml:"system_prompt"`
	InferenceTimeout time.Duration `yaml:"inference_timeout" validate:"gte=0"`
	ToolTimeout      time.Duration `yaml:"tool_timeout" validate:"gte=0"`
}

// MemoryConfig selects the transcript store
type MemoryConfig struct {
	Backend     string        `yaml:"backend" validate:"oneof=none memory redis postgres"`
	RedisURL    string        `yaml:"redis_url" validate:"required_if=Backend redis"`
	PostgresDSN string        `yaml:"postgres_dsn" validate:"required_if=Backend postgres"`
	Table       string        `yaml:"table"`
	Prefix      string        `yaml:"prefix"`
	TTL         time.Duration `yaml:"ttl" validate:"gte=0"`
}

// GuardrailsConfig configures query and tool call filtering
type GuardrailsConfig struct {
	DenySubstrings []string `yaml:"deny_substrings"`
	DenyTools      []string `yaml:"deny_tools"`
	MaxInputChars  int      `yaml:"max_input_chars" validate:"gte=0"`
}

// Enabled reports whether any guardrail is configured
func (g GuardrailsConfig) Enabled() bool {
	return len(g.DenySubstrings) > 0 || len(g.DenyTools) > 0 || g.MaxInputChars > 0
}

// LogConfig configures logging output
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info notice warning error critical"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  string(llm.ProviderOpenAI),
			MaxTokens: 1000,
			Timeout:   60 * time.Second,
		},
		Server: ServerConfig{
			HandshakeTimeout: 15 * time.Second,
			CallTimeout:      30 * time.Second,
			TerminateTimeout: 5 * time.Second,
		},
		Agent: AgentConfig{
			MaxRounds:        10,
			InferenceTimeout: 60 * time.Second,
			ToolTimeout:      30 * time.Second,
		},
		Retry: llm.DefaultRetryConfig(),
		Memory: MemoryConfig{
			Backend: "none",
			Prefix:  "mcpchat",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults.
// ${VAR} references in the file are expanded from the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// ApplyEnv overrides configuration from environment variables. getenv is
// usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.LLM.Provider, "MCPCHAT_PROVIDER")
	set(&c.LLM.EndpointURL, "MCPCHAT_ENDPOINT_URL")
	set(&c.LLM.ModelName, "MCPCHAT_MODEL")
	set(&c.Log.Level, "MCPCHAT_LOG_LEVEL")
	set(&c.Memory.Backend, "MCPCHAT_MEMORY_BACKEND")
	set(&c.Memory.RedisURL, "REDIS_URL")
	set(&c.Memory.PostgresDSN, "DATABASE_URL")

	set(&c.LLM.APIKey, "MCPCHAT_API_KEY")
}

// providerKeys lists the vendor credential variables for each provider, in
// order of preference
var providerKeys = map[llm.Provider][]string{
	llm.ProviderOpenAI:    {"DEEPSEEK_API_KEY", "OPENAI_API_KEY"},
	llm.ProviderAnthropic: {"ANTHROPIC_API_KEY"},
}

// ResolveAPIKey fills an empty API key from the vendor variable of the
// configured provider. It must run after every provider override so a
// credential is only ever sent to its own vendor.
func (c *Config) ResolveAPIKey(getenv func(string) string) {
	if c.LLM.APIKey != "" {
		return
	}
	provider := llm.Provider(strings.ToLower(c.LLM.Provider))
	if provider == "" {
		provider = llm.ProviderOpenAI
	}
	for _, k := range providerKeys[provider] {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			c.LLM.APIKey = v
			return
		}
	}
}

// Validate checks field constraints and cross-field consistency
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if err := llm.ValidateProviderModel(llm.Provider(c.LLM.Provider), c.LLM.ModelName); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}
