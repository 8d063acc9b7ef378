package mcp

import (
	"context"

	"github.com/jgarzik/brainpro-go/internal/tools"
)

// BridgeTool adapts a single MCP-discovered tool onto the tools.Tool
// interface so the agent turn loop can dispatch it exactly like a
// built-in. mcp-go's client.MCPClient exposes tool calls at the
// connection level, not as individually addressable values, so this
// adapter wraps one (server, tool) pair into its own callable value.
type BridgeTool struct {
	server           string
	originalName     string
	fullName         string
	description      string
	schema           map[string]any
	requiresApproval bool
	manager          *Manager
}

func NewBridgeTool(manager *Manager, server string, d ToolDescriptor) *BridgeTool {
	return &BridgeTool{
		server:           server,
		originalName:     d.OriginalName,
		fullName:         d.Name,
		description:      d.Description,
		schema:           d.InputSchema,
		requiresApproval: d.RequiresApproval,
		manager:          manager,
	}
}

func (t *BridgeTool) Name() string        { return t.fullName }
func (t *BridgeTool) OriginalName() string { return t.originalName }
func (t *BridgeTool) Server() string      { return t.server }
func (t *BridgeTool) Description() string { return t.description }

func (t *BridgeTool) Parameters() map[string]any {
	if t.schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return t.schema
}

func (t *BridgeTool) RequiresApproval() bool { return t.requiresApproval }

func (t *BridgeTool) Execute(ctx context.Context, args map[string]any) *tools.Result {
	result, err := t.manager.CallTool(ctx, t.fullName, args)
	if err != nil {
		return tools.ErrorResult("mcp_error", err.Error())
	}
	return tools.OK(result.AsData())
}
