// Package tools implements the built-in tool registry: Read, Write, Edit,
// Grep, TodoWrite, EnterPlanMode, ExitPlanMode, AskUserQuestion, and Bash, plus
// the output sanitizer every tool result passes through before being
// handed back to the model.
package tools

import "context"

// Result is the JSON object a tool returns. Every tool returns a plain
// JSON object; validation failures are distinguished by the presence of
// an "error" key, not by a separate transport-level failure — ok=true
// at the transport layer always.
type Result struct {
	Data map[string]any
}

// OK wraps a successful tool result.
func OK(data map[string]any) *Result {
	return &Result{Data: data}
}

// ErrorResult builds the {error:{code,message}} shape shared by every
// built-in tool's failure path.
func ErrorResult(code, message string) *Result {
	return &Result{Data: map[string]any{
		"error": map[string]any{"code": code, "message": message},
	}}
}

// IsError reports whether this result carries the error discriminator.
func (r *Result) IsError() bool {
	if r == nil {
		return false
	}
	_, ok := r.Data["error"]
	return ok
}

// Tool is a built-in or MCP-bridged callable the agent turn loop can
// invoke by name.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) *Result
}

// Gated reports whether a tool requires explicit user approval before
// execution. Implemented as an optional interface so ordinary tools
// default to auto-approved without boilerplate. This is the turn loop's
// sole gating check for any tool present in the registry; policy.go's
// name-list classification only covers names the registry has no value
// for.
type Gated interface {
	RequiresApproval() bool
}
