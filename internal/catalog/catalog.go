// SPDX-License-Identifier: AGPL-3.0-only
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/renzz/mcp-chat/internal/config"
	"github.com/renzz/mcp-chat/internal/logging"
	"github.com/renzz/mcp-chat/internal/model"
)

// LocalInvoker executes a locally registered tool.
type LocalInvoker func(ctx context.Context, toolName string, argsJSON string) (string, error)

// Invoker routes a tool invocation to the server that owns it. The
// catalog Manager implements it over MCP sessions and local providers.
type Invoker interface {
	Invoke(ctx context.Context, serverID, toolName, argsJSON string) (string, error)
}

// localServer is a process-local pseudo-server merged into snapshots.
type localServer struct {
	tools  []model.ToolSchema
	invoke LocalInvoker
}

// Manager owns the MCP client sessions and publishes immutable catalog
// snapshots. The orchestrator reads one snapshot per selection phase
// and never observes catalog mutations mid-run.
type Manager struct {
	cfg    *config.Config
	logger *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*mcp.ClientSession
	locals   map[string]localServer
	localIDs []string
	snapshot *Snapshot
}

// NewManager creates a catalog manager. Call Connect before use.
func NewManager(cfg *config.Config, logger *logging.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*mcp.ClientSession),
		locals:   make(map[string]localServer),
		snapshot: emptySnapshot(),
	}
}

// RegisterLocal adds a process-local pseudo-server whose tools appear
// in every snapshot after the next Connect or Refresh.
func (m *Manager) RegisterLocal(serverID string, tools []model.ToolSchema, fn LocalInvoker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.locals[serverID]; !exists {
		m.localIDs = append(m.localIDs, serverID)
	}
	m.locals[serverID] = localServer{tools: tools, invoke: fn}
}

// serverSpec mirrors one entry of a Cursor-style mcpServers config file.
type serverSpec struct {
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
	URL     string   `json:"url,omitempty"`
}

// parseServersFile reads the mcpServers config and returns the specs
// with server names in sorted order for deterministic iteration.
func parseServersFile(path string) (map[string]serverSpec, []string, error) {
	var cfg struct {
		MCP map[string]serverSpec `json:"mcpServers"`
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if err = json.Unmarshal(raw, &cfg); err != nil {
		return nil, nil, err
	}
	names := make([]string, 0, len(cfg.MCP))
	for name := range cfg.MCP {
		names = append(names, name)
	}
	sort.Strings(names)
	return cfg.MCP, names, nil
}

// Connect parses the MCP config file, connects a client session per
// server, and builds the initial snapshot. Failures to reach individual
// servers are logged and skipped; a missing config file leaves the
// catalog with local servers only.
func (m *Manager) Connect(ctx context.Context) error {
	specs, names, err := parseServersFile(m.cfg.Catalog.MCPConfigFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Warnf("MCP config file not found at %s, continuing without remote servers", m.cfg.Catalog.MCPConfigFilePath)
			m.rebuildSnapshot()
			return nil
		}
		return fmt.Errorf("parse MCP config: %w", err)
	}

	for _, name := range names {
		spec := specs[name]
		var tp mcp.Transport
		switch {
		case spec.Command != "":
			tp = &mcp.CommandTransport{Command: exec.Command(spec.Command, spec.Args...)}
		case spec.URL != "":
			tp = &mcp.SSEClientTransport{Endpoint: spec.URL}
		default:
			continue
		}

		cli := mcp.NewClient(&mcp.Implementation{Name: "mcp-chat", Version: "1.0.0"}, nil)
		session, err := cli.Connect(ctx, tp, nil)
		if err != nil {
			m.logger.Warnf("Failed to connect to server %s: %v", name, err)
			continue
		}
		m.mu.Lock()
		m.sessions[name] = session
		m.mu.Unlock()
	}

	m.Refresh(ctx)
	return nil
}

// Refresh re-lists tools on every live session and atomically swaps in
// a new snapshot. Servers that fail to list keep an empty tool list
// until the next refresh.
func (m *Manager) Refresh(ctx context.Context) {
	m.mu.RLock()
	sessions := make(map[string]*mcp.ClientSession, len(m.sessions))
	for name, s := range m.sessions {
		sessions[name] = s
	}
	m.mu.RUnlock()

	tools := make(map[string][]model.ToolSchema, len(sessions))
	for name, session := range sessions {
		resp, err := session.ListTools(ctx, nil)
		if err != nil {
			m.logger.Warnf("Failed to list tools for server %s: %v", name, err)
			continue
		}
		schemas := make([]model.ToolSchema, 0, len(resp.Tools))
		for _, tl := range resp.Tools {
			params, err := schemaToMap(tl.InputSchema)
			if err != nil {
				m.logger.Warnf("Failed to decode input schema for tool %s: %v", tl.Name, err)
				continue
			}
			fixEmptySchema(params, tl.Name, m.logger)
			schemas = append(schemas, model.ToolSchema{
				Name:        tl.Name,
				Description: tl.Description,
				Parameters:  params,
			})
		}
		tools[name] = schemas
	}

	m.mu.Lock()
	m.swapSnapshotLocked(tools)
	m.mu.Unlock()
	m.logger.Debugf("Catalog refreshed: %d servers, %d tools", len(m.Snapshot().AllServers()), m.Snapshot().TotalTools())
}

// rebuildSnapshot publishes a snapshot containing only local servers.
func (m *Manager) rebuildSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swapSnapshotLocked(nil)
}

// swapSnapshotLocked rebuilds the published snapshot from remote tool
// lists plus registered local servers. Caller holds m.mu.
func (m *Manager) swapSnapshotLocked(remote map[string][]model.ToolSchema) {
	names := make([]string, 0, len(remote))
	for name := range remote {
		names = append(names, name)
	}
	sort.Strings(names)

	snap := &Snapshot{
		order: make([]string, 0, len(names)+len(m.localIDs)),
		tools: make(map[string][]model.ToolSchema, len(names)+len(m.localIDs)),
	}
	for _, name := range names {
		snap.order = append(snap.order, name)
		snap.tools[name] = remote[name]
	}
	for _, id := range m.localIDs {
		snap.order = append(snap.order, id)
		snap.tools[id] = m.locals[id].tools
	}
	m.snapshot = snap
}

// Snapshot returns the current immutable catalog snapshot.
func (m *Manager) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Invoke routes a tool invocation to the owning server: a registered
// local provider or a live MCP session.
func (m *Manager) Invoke(ctx context.Context, serverID, toolName, argsJSON string) (string, error) {
	m.mu.RLock()
	local, isLocal := m.locals[serverID]
	session, hasSession := m.sessions[serverID]
	m.mu.RUnlock()

	if isLocal {
		return local.invoke(ctx, toolName, argsJSON)
	}
	if !hasSession {
		return "", fmt.Errorf("server not found for tool: %s", toolName)
	}

	var args map[string]interface{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("failed to unmarshal arguments: %w", err)
		}
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		return "", err
	}
	// Flatten the tool response into a single string.
	out, _ := json.Marshal(res.Content)
	if res.IsError {
		return "", fmt.Errorf("tool %s reported an error: %s", toolName, string(out))
	}
	return string(out), nil
}

// Close shuts down all MCP sessions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, session := range m.sessions {
		if err := session.Close(); err != nil {
			m.logger.Warnf("Failed to close session for server %s: %v", name, err)
		}
		delete(m.sessions, name)
	}
}

// schemaToMap converts an MCP input schema into the JSON-schema map the
// providers consume.
func schemaToMap(schema interface{}) (map[string]interface{}, error) {
	if schema == nil {
		return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var params map[string]interface{}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return params, nil
}

// fixEmptySchema adds a dummy property to parameter-less tools; the
// OpenAI API rejects object schemas without properties.
func fixEmptySchema(params map[string]interface{}, toolName string, logger *logging.Logger) {
	props, _ := params["properties"].(map[string]interface{})
	if params["type"] == "object" && len(props) == 0 {
		params["properties"] = map[string]interface{}{
			"random_string": map[string]interface{}{
				"type":        "string",
				"description": "Dummy parameter for no-parameter tools",
			},
		}
		params["required"] = []string{"random_string"}
		logger.Debugf("Added dummy parameter to empty schema for tool %s", toolName)
	}
}
