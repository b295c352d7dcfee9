// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.AI.Provider != "openai" {
		t.Errorf("Expected default provider openai, got %s", cfg.AI.Provider)
	}
	if cfg.AI.Model != "gpt-4o" {
		t.Errorf("Expected default model gpt-4o, got %s", cfg.AI.Model)
	}
	if cfg.AI.MaxToolIterations != DefaultMaxToolIterations {
		t.Errorf("Expected %d max iterations, got %d", DefaultMaxToolIterations, cfg.AI.MaxToolIterations)
	}
	if cfg.AI.ToolTimeout != DefaultToolTimeout {
		t.Errorf("Expected tool timeout %v, got %v", DefaultToolTimeout, cfg.AI.ToolTimeout)
	}
	if cfg.Selector.Enabled {
		t.Error("Expected semantic filtering disabled by default")
	}
	if cfg.Selector.MaxFallbackTools != DefaultMaxFallbackTools {
		t.Errorf("Expected fallback cap %d, got %d", DefaultMaxFallbackTools, cfg.Selector.MaxFallbackTools)
	}
	if cfg.Catalog.MCPConfigFilePath == "" {
		t.Error("Expected a default MCP config path")
	}
	if cfg.Catalog.RefreshSchedule != "@every 5m" {
		t.Errorf("Expected default refresh schedule @every 5m, got %s", cfg.Catalog.RefreshSchedule)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Logging.Level)
	}
	if cfg.Store.DBPath == "" {
		t.Error("Expected a default DB path")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("MCP_CHAT_AI_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("MCP_CHAT_AI_MODEL", "claude-sonnet-4-20250514")
	t.Setenv("MCP_CHAT_AI_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("MCP_CHAT_SYSTEM_PROMPT", "You are terse.")
	t.Setenv("MCP_CHAT_MAX_ITERATIONS", "3")
	t.Setenv("MCP_CHAT_TOOL_TIMEOUT", "30s")
	t.Setenv("MCP_CHAT_FILTER_ENABLED", "true")
	t.Setenv("MCP_CHAT_FILTER_TOP_K", "15")
	t.Setenv("MCP_CHAT_FILTER_MIN_SCORE", "0.5")
	t.Setenv("MCP_CHAT_STRICT_ARGS", "true")
	t.Setenv("MCP_CHAT_MCP_CONFIG_PATH", "/tmp/mcp.json")
	t.Setenv("MCP_CHAT_CATALOG_REFRESH", "@every 1m")
	t.Setenv("MCP_CHAT_LOG_LEVEL", "debug")
	t.Setenv("MCP_CHAT_DB_PATH", "/tmp/chat.db")

	cfg := DefaultConfig()
	FromEnv(cfg)

	if cfg.AI.Provider != "anthropic" {
		t.Errorf("Expected provider anthropic, got %s", cfg.AI.Provider)
	}
	if cfg.AI.AnthropicAPIKey != "sk-ant-test" {
		t.Errorf("Expected Anthropic key from env, got %s", cfg.AI.AnthropicAPIKey)
	}
	if cfg.AI.Model != "claude-sonnet-4-20250514" {
		t.Errorf("Expected model override, got %s", cfg.AI.Model)
	}
	if cfg.AI.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("Expected base URL override, got %s", cfg.AI.BaseURL)
	}
	if cfg.AI.SystemPrompt != "You are terse." {
		t.Errorf("Expected system prompt override, got %s", cfg.AI.SystemPrompt)
	}
	if cfg.AI.MaxToolIterations != 3 {
		t.Errorf("Expected 3 max iterations, got %d", cfg.AI.MaxToolIterations)
	}
	if cfg.AI.ToolTimeout != 30*time.Second {
		t.Errorf("Expected 30s tool timeout, got %v", cfg.AI.ToolTimeout)
	}
	if !cfg.Selector.Enabled {
		t.Error("Expected filtering enabled")
	}
	if cfg.Selector.TopK != 15 {
		t.Errorf("Expected top K 15, got %d", cfg.Selector.TopK)
	}
	if cfg.Selector.MinScore != 0.5 {
		t.Errorf("Expected min score 0.5, got %v", cfg.Selector.MinScore)
	}
	if !cfg.Selector.StrictArgs {
		t.Error("Expected strict args enabled")
	}
	if cfg.Catalog.MCPConfigFilePath != "/tmp/mcp.json" {
		t.Errorf("Expected MCP config path override, got %s", cfg.Catalog.MCPConfigFilePath)
	}
	if cfg.Catalog.RefreshSchedule != "@every 1m" {
		t.Errorf("Expected refresh schedule override, got %s", cfg.Catalog.RefreshSchedule)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Store.DBPath != "/tmp/chat.db" {
		t.Errorf("Expected DB path override, got %s", cfg.Store.DBPath)
	}
}

func TestFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("MCP_CHAT_MAX_ITERATIONS", "zero")
	t.Setenv("MCP_CHAT_TOOL_TIMEOUT", "-5s")
	t.Setenv("MCP_CHAT_FILTER_ENABLED", "not-a-bool")

	cfg := DefaultConfig()
	FromEnv(cfg)

	if cfg.AI.MaxToolIterations != DefaultMaxToolIterations {
		t.Errorf("Expected unparseable iterations ignored, got %d", cfg.AI.MaxToolIterations)
	}
	if cfg.AI.ToolTimeout != DefaultToolTimeout {
		t.Errorf("Expected negative timeout ignored, got %v", cfg.AI.ToolTimeout)
	}
	if cfg.Selector.Enabled {
		t.Error("Expected unparseable bool ignored")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"anthropic provider", func(c *Config) { c.AI.Provider = "anthropic" }, false},
		{"empty provider", func(c *Config) { c.AI.Provider = "" }, false},
		{"unknown provider", func(c *Config) { c.AI.Provider = "bard" }, true},
		{"zero iterations", func(c *Config) { c.AI.MaxToolIterations = 0 }, true},
		{"zero fallback cap", func(c *Config) { c.Selector.MaxFallbackTools = 0 }, true},
		{"filter without top K", func(c *Config) { c.Selector.Enabled = true; c.Selector.TopK = 0 }, true},
		{"filter score out of range", func(c *Config) { c.Selector.Enabled = true; c.Selector.MinScore = 1.5 }, true},
		{"score ignored when disabled", func(c *Config) { c.Selector.MinScore = 1.5 }, false},
		{"zero timeout", func(c *Config) { c.AI.ToolTimeout = 0 }, true},
		{"empty db path", func(c *Config) { c.Store.DBPath = "" }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Expected config to validate, got %v", err)
			}
		})
	}
}
