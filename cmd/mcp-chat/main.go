// SPDX-License-Identifier: AGPL-3.0-only
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/renzz/mcp-chat/internal/agent"
	"github.com/renzz/mcp-chat/internal/builtin"
	"github.com/renzz/mcp-chat/internal/catalog"
	"github.com/renzz/mcp-chat/internal/config"
	"github.com/renzz/mcp-chat/internal/dispatch"
	"github.com/renzz/mcp-chat/internal/logging"
	"github.com/renzz/mcp-chat/internal/model"
	"github.com/renzz/mcp-chat/internal/orchestrator"
	"github.com/renzz/mcp-chat/internal/selector"
	"github.com/renzz/mcp-chat/internal/singleton"
	"github.com/renzz/mcp-chat/internal/store"
)

const appVersion = "1.0.0"

var (
	logLevel        = flag.String("log-level", "", "Logging level: debug, info, warn, error, fatal")
	logFile         = flag.String("log-file", "", "Log file path (default: stderr)")
	version         = flag.Bool("version", false, "Show version information and exit")
	aiProvider      = flag.String("ai-provider", "", "AI provider: openai or anthropic (default: openai)")
	aiBaseURL       = flag.String("ai-base-url", "", "Custom base URL for OpenAI-compatible endpoints (e.g. Ollama, vLLM, Groq, LiteLLM)")
	aiModel         = flag.String("ai-model", "", "AI model to use (default: gpt-4o)")
	aiMaxIterations = flag.Int("ai-max-iterations", 0, "Maximum tool-use iterations per user turn (default: 10)")
	mcpConfigPath   = flag.String("mcp-config-path", "", "Path to MCP configuration file (default: ~/.cursor/mcp.json)")
	dbPath          = flag.String("db-path", "", "Path to SQLite database for conversation history (default: ~/.mcp-chat/chat.db)")
	conversation    = flag.String("conversation", "", "Conversation ID to resume (default: a new conversation)")
	strictArgs      = flag.Bool("strict-args", false, "Validate tool-call arguments against their JSON schema before dispatch")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg := loadConfig()

	// Show version and exit if requested
	if *version {
		log.Printf("mcp-chat version %s", appVersion)
		os.Exit(0)
	}

	// Create a context that will be cancelled on interrupt signal
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		cancel()
	}()

	// Initialize the application
	app, err := createApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	defer app.Close()

	app.repl(ctx)
}

// loadConfig loads configuration from environment and command line flags
func loadConfig() *config.Config {
	// Start with defaults
	cfg := config.DefaultConfig()

	// Override with environment variables
	config.FromEnv(cfg)

	// Override with command-line flags
	applyCommandLineFlagsToConfig(cfg)

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// applyCommandLineFlagsToConfig applies command line flags to the configuration
func applyCommandLineFlagsToConfig(cfg *config.Config) {
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFile != "" {
		cfg.Logging.FilePath = *logFile
	}
	if *aiProvider != "" {
		cfg.AI.Provider = *aiProvider
	}
	if *aiBaseURL != "" {
		cfg.AI.BaseURL = *aiBaseURL
	}
	if *aiModel != "" {
		cfg.AI.Model = *aiModel
	}
	if *aiMaxIterations > 0 {
		cfg.AI.MaxToolIterations = *aiMaxIterations
	}
	if *mcpConfigPath != "" {
		cfg.Catalog.MCPConfigFilePath = *mcpConfigPath
	}
	if *dbPath != "" {
		cfg.Store.DBPath = *dbPath
	}
	if *strictArgs {
		cfg.Selector.StrictArgs = true
	}
}

// Application represents the running application
type Application struct {
	cfg          *config.Config
	logger       *logging.Logger
	lock         *singleton.Lock
	messageStore *store.SQLiteStore
	manager      *catalog.Manager
	refresher    *catalog.Refresher
	orch         *orchestrator.Orchestrator
}

// createApp creates a new application instance
func createApp(ctx context.Context, cfg *config.Config) (*Application, error) {
	logger, err := buildLogger(cfg)
	if err != nil {
		return nil, err
	}
	logging.SetDefaultLogger(logger)

	// Only one instance may write a given conversation database.
	lock, acquired, err := singleton.TryAcquire(cfg.Store.DBPath)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("another mcp-chat instance is already using %s", cfg.Store.DBPath)
	}

	messageStore, err := store.NewSQLiteStore(cfg.Store.DBPath)
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("create message store: %w", err)
	}

	conversationID := *conversation
	if conversationID == "" {
		conversationID = uuid.NewString()
		logger.Infof("Starting new conversation %s", conversationID)
	} else {
		logger.Infof("Resuming conversation %s", conversationID)
	}

	manager := catalog.NewManager(cfg, logger)
	builtin.Register(manager, messageStore, conversationID)
	if err := manager.Connect(ctx); err != nil {
		logger.Errorf("Failed to connect MCP servers: %v", err)
	}

	refresher := catalog.NewRefresher(manager, logger)
	if err := refresher.Start(ctx, cfg.Catalog.RefreshSchedule); err != nil {
		logger.Warnf("Failed to schedule catalog refresh: %v", err)
	}

	provider, err := agent.NewProvider(cfg)
	if err != nil {
		_ = messageStore.Close()
		_ = lock.Release()
		return nil, err
	}

	sel := selector.New(nil, logger)
	dispatcher := dispatch.New(manager, logger, cfg.AI.ToolTimeout, cfg.Selector.StrictArgs)

	orch := orchestrator.New(
		cfg, provider, sel, dispatcher, manager,
		messageStore, messageStore, logger, printEvent, conversationID,
	)
	if err := orch.LoadHistory(); err != nil {
		logger.Warnf("Failed to load conversation history: %v", err)
	}

	return &Application{
		cfg:          cfg,
		logger:       logger,
		lock:         lock,
		messageStore: messageStore,
		manager:      manager,
		refresher:    refresher,
		orch:         orch,
	}, nil
}

// buildLogger initializes the logger from configuration.
func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	level := logging.ParseLevel(cfg.Logging.Level)
	if cfg.Logging.FilePath != "" {
		logger, err := logging.FileLogger(cfg.Logging.FilePath, level)
		if err != nil {
			return nil, fmt.Errorf("failed to create file logger: %w", err)
		}
		return logger, nil
	}
	return logging.New(logging.Options{Level: level}), nil
}

// printEvent renders orchestrator events to stdout.
func printEvent(e orchestrator.Event) {
	switch e.Type {
	case orchestrator.EventContentDelta:
		fmt.Print(e.Content)
	case orchestrator.EventFilterMetrics:
		fmt.Printf("(exposing %d of %d tools)\n", e.Metrics.ToolsUsed, e.Metrics.ToolsTotal)
	case orchestrator.EventToolCallStarted:
		fmt.Printf("\n[tool] calling %s...\n", e.ToolCall.Name)
	case orchestrator.EventToolCallFinished:
		if e.Result.Failed() {
			fmt.Printf("[tool] %s failed: %s\n", e.Result.ToolName, e.Result.Error)
		} else {
			fmt.Printf("[tool] %s finished in %dms\n", e.Result.ToolName, e.Result.ExecutionMs)
		}
	case orchestrator.EventRunError:
		fmt.Printf("\nError: %s\n", e.Err)
	case orchestrator.EventRunFinished:
		fmt.Println()
	}
}

// repl reads user input line by line and runs one orchestrator turn per
// message. Lines starting with "/" are client commands.
func (a *Application) repl(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Printf("mcp-chat %s - %d tools available. Type /help for commands.\n", appVersion, a.manager.Snapshot().TotalTools())
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if a.command(line) {
				return
			}
			continue
		}

		if _, err := a.orch.Run(ctx, line); err != nil {
			a.logger.Errorf("Run failed: %v", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// command handles a client command line. It returns true when the REPL
// should exit.
func (a *Application) command(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Println("/tools - list available tools")
		fmt.Println("/pins - list pinned servers and tools")
		fmt.Println("/pin <server> [tool] - pin a server or a single tool")
		fmt.Println("/unpin <server> [tool] - remove a pin")
		fmt.Println("/quit - exit")
	case "/tools":
		snap := a.manager.Snapshot()
		for _, serverID := range snap.AllServers() {
			for _, tool := range snap.ListTools(serverID) {
				fmt.Printf("%s/%s - %s\n", serverID, tool.Name, tool.Description)
			}
		}
	case "/pins":
		pins, err := a.messageStore.LoadMentions()
		if err != nil {
			fmt.Printf("Failed to load pins: %v\n", err)
			break
		}
		if len(pins) == 0 {
			fmt.Println("No pins.")
		}
		for _, p := range pins {
			if p.Kind == model.MentionServer {
				fmt.Printf("server %s\n", p.ServerID)
			} else {
				fmt.Printf("tool %s/%s\n", p.ServerID, p.ToolName)
			}
		}
	case "/pin", "/unpin":
		if len(fields) < 2 {
			fmt.Printf("Usage: %s <server> [tool]\n", fields[0])
			break
		}
		mention := model.Mention{Kind: model.MentionServer, ServerID: fields[1]}
		if len(fields) > 2 {
			mention = model.Mention{Kind: model.MentionTool, ServerID: fields[1], ToolName: fields[2]}
		}
		var err error
		if fields[0] == "/pin" {
			err = a.messageStore.SaveMention(mention)
		} else {
			err = a.messageStore.DeleteMention(mention)
		}
		if err != nil {
			fmt.Printf("Failed to update pins: %v\n", err)
		}
	default:
		fmt.Printf("Unknown command: %s\n", fields[0])
	}
	return false
}

// Close shuts down the application.
func (a *Application) Close() {
	a.refresher.Stop()
	a.manager.Close()
	if err := a.messageStore.Close(); err != nil {
		a.logger.Errorf("Error closing message store: %v", err)
	}
	if err := a.lock.Release(); err != nil {
		a.logger.Errorf("Error releasing singleton lock: %v", err)
	}
	a.logger.Infof("Shutdown complete")
}
