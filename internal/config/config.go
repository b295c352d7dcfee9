// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Default bounds for the tool-use loop and selection.
const (
	// DefaultMaxToolIterations bounds the select→stream→dispatch loop
	// for a single user turn.
	DefaultMaxToolIterations = 10

	// DefaultMaxFallbackTools caps unfiltered selection to stay under
	// the provider's 128-tool ceiling with headroom.
	DefaultMaxFallbackTools = 120

	// DefaultToolTimeout bounds a single remote tool invocation.
	DefaultToolTimeout = 60 * time.Second
)

// Config holds all configuration for the application.
type Config struct {
	AI       AIConfig
	Selector SelectorConfig
	Catalog  CatalogConfig
	Logging  LoggingConfig
	Store    StoreConfig
}

// AIConfig holds LLM provider configuration.
type AIConfig struct {
	// Provider selects the backend: "openai" (default) or "anthropic".
	Provider string
	// APIKey is a provider-agnostic key used when the provider-specific
	// key is unset.
	APIKey          string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	// BaseURL overrides the OpenAI endpoint for compatible servers
	// (Ollama, vLLM, Groq, LiteLLM).
	BaseURL           string
	Model             string
	SystemPrompt      string
	MaxToolIterations int
	ToolTimeout       time.Duration
}

// SelectorConfig controls semantic tool filtering.
type SelectorConfig struct {
	// Enabled turns on semantic filtering when a scorer is available.
	Enabled bool
	// TopK is the maximum number of tools the scorer may return.
	TopK int
	// MinScore is the relevance threshold below which tools are dropped.
	MinScore float64
	// MaxFallbackTools caps unfiltered fallback selection.
	MaxFallbackTools int
	// StrictArgs validates tool-call arguments against the tool's input
	// schema before dispatching.
	StrictArgs bool
}

// CatalogConfig controls MCP server discovery.
type CatalogConfig struct {
	// MCPConfigFilePath points at a Cursor-style mcpServers JSON file.
	MCPConfigFilePath string
	// RefreshSchedule is a cron expression for re-listing tools on
	// connected servers. Empty disables refresh.
	RefreshSchedule string
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string
	FilePath string
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	DBPath string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		AI: AIConfig{
			Provider:          "openai",
			Model:             "gpt-4o",
			MaxToolIterations: DefaultMaxToolIterations,
			ToolTimeout:       DefaultToolTimeout,
		},
		Selector: SelectorConfig{
			Enabled:          false,
			TopK:             20,
			MinScore:         0.3,
			MaxFallbackTools: DefaultMaxFallbackTools,
		},
		Catalog: CatalogConfig{
			MCPConfigFilePath: filepath.Join(home, ".cursor", "mcp.json"),
			RefreshSchedule:   "@every 5m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Store: StoreConfig{
			DBPath: filepath.Join(home, ".mcp-chat", "chat.db"),
		},
	}
}

// FromEnv overrides configuration from environment variables.
func FromEnv(cfg *Config) {
	if v := os.Getenv("MCP_CHAT_AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.OpenAIAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AI.AnthropicAPIKey = v
	}
	if v := os.Getenv("MCP_CHAT_AI_BASE_URL"); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := os.Getenv("MCP_CHAT_AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("MCP_CHAT_SYSTEM_PROMPT"); v != "" {
		cfg.AI.SystemPrompt = v
	}
	if v := os.Getenv("MCP_CHAT_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AI.MaxToolIterations = n
		}
	}
	if v := os.Getenv("MCP_CHAT_TOOL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.AI.ToolTimeout = d
		}
	}
	if v := os.Getenv("MCP_CHAT_FILTER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Selector.Enabled = b
		}
	}
	if v := os.Getenv("MCP_CHAT_FILTER_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Selector.TopK = n
		}
	}
	if v := os.Getenv("MCP_CHAT_FILTER_MIN_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Selector.MinScore = f
		}
	}
	if v := os.Getenv("MCP_CHAT_STRICT_ARGS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Selector.StrictArgs = b
		}
	}
	if v := os.Getenv("MCP_CHAT_MCP_CONFIG_PATH"); v != "" {
		cfg.Catalog.MCPConfigFilePath = v
	}
	if v := os.Getenv("MCP_CHAT_CATALOG_REFRESH"); v != "" {
		cfg.Catalog.RefreshSchedule = v
	}
	if v := os.Getenv("MCP_CHAT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MCP_CHAT_LOG_FILE"); v != "" {
		cfg.Logging.FilePath = v
	}
	if v := os.Getenv("MCP_CHAT_DB_PATH"); v != "" {
		cfg.Store.DBPath = v
	}
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "openai", "anthropic", "":
	default:
		return fmt.Errorf("unsupported AI provider: %s", c.AI.Provider)
	}
	if c.AI.MaxToolIterations < 1 {
		return fmt.Errorf("max tool iterations must be at least 1, got %d", c.AI.MaxToolIterations)
	}
	if c.Selector.MaxFallbackTools < 1 {
		return fmt.Errorf("max fallback tools must be at least 1, got %d", c.Selector.MaxFallbackTools)
	}
	if c.Selector.Enabled {
		if c.Selector.TopK < 1 {
			return fmt.Errorf("filter top K must be at least 1, got %d", c.Selector.TopK)
		}
		if c.Selector.MinScore < 0 || c.Selector.MinScore > 1 {
			return fmt.Errorf("filter min score must be in [0,1], got %v", c.Selector.MinScore)
		}
	}
	if c.AI.ToolTimeout <= 0 {
		return fmt.Errorf("tool timeout must be positive, got %v", c.AI.ToolTimeout)
	}
	if c.Store.DBPath == "" {
		return fmt.Errorf("store DB path must not be empty")
	}
	return nil
}
