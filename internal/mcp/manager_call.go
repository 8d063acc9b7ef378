package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/jgarzik/brainpro-go/internal/tools"
)

// maxMCPResultBytes is the MCP-specific truncation guard, applied to the
// raw remote response before tools.SanitizeOutput ever sees it — kept
// separate from tools.MaxOutputBytes so the two budgets apply
// independently (a response can be truncated once here and again by the
// general sanitizer). See DESIGN.md for why they aren't unified.
const maxMCPResultBytes = 200_000

// McpToolResult is the return value of Manager.CallTool. OK=false means
// the remote tool itself reported failure — a normal, successful
// dispatch, not a Go error. Go errors are reserved for protocol and
// connectivity failures (unknown_method, mcp_not_connected, mcp_died).
type McpToolResult struct {
	Server     string
	Tool       string
	OK         bool
	DurationMS int64
	Truncated  bool
	Data       map[string]any
}

// AsData renders the result as the JSON object returned to the turn
// loop / client protocol.
func (r *McpToolResult) AsData() map[string]any {
	out := map[string]any{
		"server":      r.Server,
		"tool":        r.Tool,
		"ok":          r.OK,
		"duration_ms": r.DurationMS,
	}
	if r.Truncated {
		out["truncated"] = true
	}
	for k, v := range r.Data {
		out[k] = v
	}
	return out
}

// CallTool dispatches "mcp.<server>.<tool>" to its connected handle.
// Protocol/connectivity failures (bad name shape, unknown server, dead
// connection) are returned as Go errors. A failure reported BY the
// remote tool is returned as a successful *McpToolResult with OK=false
// and a data.error object — never as a Go error. The remote call is
// bounded by the server's timeout_ms; an overrun is returned as an
// mcp_error Go error.
func (m *Manager) CallTool(ctx context.Context, fullName string, args map[string]any) (*McpToolResult, error) {
	parts := strings.SplitN(fullName, ".", 3)
	if len(parts) != 3 || parts[0] != "mcp" {
		return nil, fmt.Errorf("%s: malformed mcp tool name %q", errUnknownMethod, fullName)
	}
	server, toolName := parts[1], parts[2]

	m.mu.RLock()
	h, ok := m.handles[server]
	m.mu.RUnlock()
	if !ok || !h.Connected() {
		return nil, fmt.Errorf("%s: server %q not connected", errMCPNotConnected, server)
	}

	if err := h.Client.Ping(ctx); err != nil {
		m.Disconnect(server)
		return nil, fmt.Errorf("%s: server %q died: %w", errMCPDied, server, err)
	}

	if sc, ok := m.cfg.Servers()[server]; ok && sc.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(sc.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	start := time.Now()
	req := mcpgo.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	res, err := h.Client.CallTool(ctx, req)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("%s: call %q on %q: %w", errMCPError, toolName, server, err)
	}

	data := contentToData(res)
	if res.IsError {
		return &McpToolResult{
			Server: server, Tool: toolName, OK: false, DurationMS: duration,
			Data: map[string]any{"error": map[string]any{"code": "mcp_error", "message": dataSummary(data)}},
		}, nil
	}

	sanitized, truncated := truncateMCPResult(toolName, data, m.rootDir)

	return &McpToolResult{
		Server: server, Tool: toolName, OK: true, DurationMS: duration,
		Truncated: truncated, Data: sanitized,
	}, nil
}

const (
	errUnknownMethod   = "unknown_method"
	errMCPNotConnected = "mcp_not_connected"
	errMCPDied         = "mcp_died"
	errMCPError        = "mcp_error"
)

// contentToData flattens an mcp-go CallToolResult's content blocks into a
// single JSON-friendly map, since every tool here returns a JSON object.
func contentToData(res *mcpgo.CallToolResult) map[string]any {
	var texts []string
	for _, c := range res.Content {
		if tc, ok := mcpgo.AsTextContent(c); ok {
			texts = append(texts, tc.Text)
		}
	}
	return map[string]any{"content": strings.Join(texts, "\n")}
}

// truncateMCPResult applies the MCP-specific 200KB guard to the raw
// remote response, then runs the result through the general output
// sanitizer. The two guards are independent: a response over 200KB is
// clamped here first, and the clamped (or original) form still passes
// through tools.SanitizeOutput's own 50KB/2000-line bound, so it can be
// truncated twice.
func truncateMCPResult(toolName string, data map[string]any, root string) (map[string]any, bool) {
	truncated := false
	if serializedSize(data) > maxMCPResultBytes {
		data = map[string]any{
			"result":    previewOf(data, maxMCPResultBytes) + "... [truncated]",
			"truncated": true,
		}
		truncated = true
	}

	sanitized := tools.SanitizeOutput(toolName, data, root)
	if sanitized["output_truncated"] == true {
		truncated = true
	}
	return sanitized, truncated
}

func dataSummary(data map[string]any) string {
	if s, ok := data["content"].(string); ok && s != "" {
		return s
	}
	return "tool reported failure"
}

func serializedSize(v map[string]any) int {
	n := 0
	for k, val := range v {
		n += len(k)
		if s, ok := val.(string); ok {
			n += len(s)
		} else {
			n += 64
		}
	}
	return n
}

func previewOf(v map[string]any, limit int) string {
	s, _ := v["content"].(string)
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
