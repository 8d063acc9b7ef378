package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/jgarzik/brainpro-go/internal/config"
	"github.com/jgarzik/brainpro-go/internal/tools"
)

// Connect spawns/dials the named server, performs the MCP handshake, and
// discovers its tool catalog. Fails if already connected, unknown, or
// disabled.
func (m *Manager) Connect(ctx context.Context, name string) (int, error) {
	if m.IsConnected(name) {
		return 0, fmt.Errorf("already connected")
	}
	servers := m.cfg.Servers()
	sc, ok := servers[name]
	if !ok {
		return 0, fmt.Errorf("unknown server: %s", name)
	}
	if !sc.Enabled {
		return 0, fmt.Errorf("disabled")
	}

	client, err := createClient(sc)
	if err != nil {
		return 0, fmt.Errorf("create client: %w", err)
	}

	if sc.Transport != "stdio" {
		if err := client.Start(ctx); err != nil {
			_ = client.Close()
			return 0, fmt.Errorf("start transport: %w", err)
		}
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: "brainpro-agent", Version: "1.0.0"}

	if _, err := client.Initialize(ctx, initReq); err != nil {
		_ = client.Close()
		return 0, fmt.Errorf("initialize: %w", err)
	}

	toolsResult, err := client.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		_ = client.Close()
		return 0, fmt.Errorf("list tools: %w", err)
	}

	handle := &ServerHandle{Name: name, Transport: sc.Transport, Client: client}
	handle.setConnected(true)

	requiresApproval := sc.RequiresApproval

	var descriptors []ToolDescriptor
	for _, mt := range toolsResult.Tools {
		full := "mcp." + name + "." + mt.Name
		schema := map[string]any{}
		if mt.InputSchema.Type != "" {
			schema["type"] = mt.InputSchema.Type
		}
		if len(mt.InputSchema.Properties) > 0 {
			schema["properties"] = mt.InputSchema.Properties
		}
		td := ToolDescriptor{
			Name: full, OriginalName: mt.Name, Description: mt.Description,
			InputSchema: schema, RequiresApproval: requiresApproval,
		}
		descriptors = append(descriptors, td)
		tools.RegisterMCPTool(full, requiresApproval)
		m.registry.Register(NewBridgeTool(m, name, td))
	}
	handle.Tools = descriptors

	hctx, hcancel := context.WithCancel(context.Background())
	handle.cancelHealth = hcancel

	m.mu.Lock()
	m.handles[name] = handle
	m.mu.Unlock()

	go m.healthLoop(hctx, handle)

	slog.Info("mcp.server.connected", "server", name, "transport", sc.Transport, "tools", len(descriptors))
	return len(descriptors), nil
}

func createClient(sc config.MCPServerConfig) (mcpclient.MCPClient, error) {
	switch sc.Transport {
	case "stdio":
		envSlice := mapToEnvSlice(sc.Env)
		return mcpclient.NewStdioMCPClient(sc.Command, envSlice, sc.Args...)
	case "sse":
		var opts []transport.ClientOption
		if len(sc.Headers) > 0 {
			opts = append(opts, mcpclient.WithHeaders(sc.Headers))
		}
		return mcpclient.NewSSEMCPClient(sc.URL, opts...)
	case "http", "streamable-http":
		var opts []transport.StreamableHTTPCOption
		if len(sc.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(sc.Headers))
		}
		return mcpclient.NewStreamableHttpClient(sc.URL, opts...)
	default:
		return nil, fmt.Errorf("unsupported transport: %q", sc.Transport)
	}
}

func mapToEnvSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// healthLoop pings periodically and attempts reconnection on failure.
func (m *Manager) healthLoop(ctx context.Context, h *ServerHandle) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.Client.Ping(ctx); err != nil {
				if strings.Contains(strings.ToLower(err.Error()), "method not found") {
					h.setConnected(true)
					h.mu.Lock()
					h.reconnAttempts = 0
					h.lastErr = ""
					h.mu.Unlock()
					continue
				}
				h.setConnected(false)
				h.mu.Lock()
				h.lastErr = err.Error()
				h.mu.Unlock()
				slog.Warn("mcp.server.health_failed", "server", h.Name, "error", err)
				m.tryReconnect(ctx, h)
			} else {
				h.setConnected(true)
				h.mu.Lock()
				h.reconnAttempts = 0
				h.lastErr = ""
				h.mu.Unlock()
			}
		}
	}
}

func (m *Manager) tryReconnect(ctx context.Context, h *ServerHandle) {
	h.mu.Lock()
	if h.reconnAttempts >= maxReconnectAttempts {
		h.lastErr = fmt.Sprintf("max reconnect attempts (%d) reached", maxReconnectAttempts)
		h.mu.Unlock()
		slog.Error("mcp.server.reconnect_exhausted", "server", h.Name)
		m.Disconnect(h.Name)
		return
	}
	h.reconnAttempts++
	attempt := h.reconnAttempts
	h.mu.Unlock()

	backoff := initialBackoff * time.Duration(1<<(attempt-1))
	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	slog.Info("mcp.server.reconnecting", "server", h.Name, "attempt", attempt, "backoff", backoff)

	select {
	case <-ctx.Done():
		return
	case <-time.After(backoff):
	}

	if err := h.Client.Ping(ctx); err == nil {
		h.setConnected(true)
		h.mu.Lock()
		h.reconnAttempts = 0
		h.lastErr = ""
		h.mu.Unlock()
		slog.Info("mcp.server.reconnected", "server", h.Name)
	}
}
