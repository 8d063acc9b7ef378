// Package mcp implements the MCP lifecycle manager: connect, call_tool,
// check_server_health, disconnect, and catalog introspection, over
// github.com/mark3labs/mcp-go's stdio/SSE/streamable-HTTP transports.
//
// The three-map-plus-list representation (configs/clients/tools/
// connected) some lifecycle managers use is consolidated here into a
// single map[string]*ServerHandle, keeping the invariant that connected
// servers, clients, and tool catalogs never drift apart as a structural
// guarantee rather than a maintained one.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"

	"github.com/jgarzik/brainpro-go/internal/config"
	"github.com/jgarzik/brainpro-go/internal/tools"
)

const (
	healthCheckInterval  = 30 * time.Second
	initialBackoff       = 2 * time.Second
	maxBackoff           = 60 * time.Second
	maxReconnectAttempts = 10
)

// ToolDescriptor is the catalog entry for one discovered MCP tool.
type ToolDescriptor struct {
	Name             string
	OriginalName     string
	Description      string
	InputSchema      map[string]any
	RequiresApproval bool
}

// ServerHandle is the live state of a connected server — the
// configs/clients/tools/connected-list consolidated into one value.
type ServerHandle struct {
	mu             sync.Mutex
	Name           string
	Transport      string
	Client         mcpclient.MCPClient
	Tools          []ToolDescriptor
	connected      bool
	reconnAttempts int
	lastErr        string
	cancelHealth   context.CancelFunc
}

func (h *ServerHandle) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

func (h *ServerHandle) setConnected(v bool) {
	h.mu.Lock()
	h.connected = v
	h.mu.Unlock()
}

// Manager owns the full configured server table and the subset that is
// connected (a ServerHandle exists only for a server that connected and
// has not been disconnected since; Disconnect removes it).
type Manager struct {
	mu       sync.RWMutex
	cfg      *config.Config
	handles  map[string]*ServerHandle
	rootDir  string
	registry *tools.Registry
}

func NewManager(cfg *config.Config, rootDir string, registry *tools.Registry) *Manager {
	return &Manager{cfg: cfg, handles: make(map[string]*ServerHandle), rootDir: rootDir, registry: registry}
}

// ListServers returns every configured server name, connected or not.
func (m *Manager) ListServers() []string {
	servers := m.cfg.Servers()
	out := make([]string, 0, len(servers))
	for name := range servers {
		out = append(out, name)
	}
	return out
}

func (m *Manager) IsConnected(name string) bool {
	m.mu.RLock()
	h, ok := m.handles[name]
	m.mu.RUnlock()
	return ok && h.Connected()
}

func (m *Manager) HasConnectedServers() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.handles {
		if h.Connected() {
			return true
		}
	}
	return false
}

func (m *Manager) GetServerTools(name string) ([]ToolDescriptor, bool) {
	m.mu.RLock()
	h, ok := m.handles[name]
	m.mu.RUnlock()
	if !ok || !h.Connected() {
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ToolDescriptor, len(h.Tools))
	copy(out, h.Tools)
	return out, true
}

func (m *Manager) GetAllTools() map[string][]ToolDescriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]ToolDescriptor, len(m.handles))
	for name, h := range m.handles {
		if !h.Connected() {
			continue
		}
		h.mu.Lock()
		tools := make([]ToolDescriptor, len(h.Tools))
		copy(tools, h.Tools)
		h.mu.Unlock()
		out[name] = tools
	}
	return out
}

// Disconnect issues shutdown to the client and removes it from the handle
// map. Safe to call on an already-disconnected or never-connected server.
func (m *Manager) Disconnect(name string) {
	m.mu.Lock()
	h, ok := m.handles[name]
	if ok {
		delete(m.handles, name)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	if h.cancelHealth != nil {
		h.cancelHealth()
	}
	h.mu.Lock()
	for _, td := range h.Tools {
		m.registry.Unregister(td.Name)
	}
	h.mu.Unlock()
	if err := h.Client.Close(); err != nil {
		slog.Debug("mcp.server.shutdown_error", "server", name, "error", err)
	}
	slog.Info("mcp.server.disconnected", "server", name)
}

// Stop disconnects every connected server, used on manager shutdown.
func (m *Manager) Stop() {
	for _, name := range m.connectedNames() {
		m.Disconnect(name)
	}
}

func (m *Manager) connectedNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.handles))
	for name := range m.handles {
		out = append(out, name)
	}
	return out
}

// checkServerHealth probes liveness via Ping; on failure it removes the
// server from the handle map and returns the error observed (a stand-in
// for an exit status on stdio transports whose exec.Cmd the mcp-go client
// does not directly expose).
func (m *Manager) checkServerHealth(ctx context.Context, name string) error {
	m.mu.RLock()
	h, ok := m.handles[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("not connected")
	}
	if err := h.Client.Ping(ctx); err != nil {
		m.Disconnect(name)
		return err
	}
	return nil
}
