package tools

import (
	"strings"
	"sync"
)

// toolGroupsMu guards toolGroups: RegisterMCPTool can be called at any
// time an MCP server (re)connects, concurrently with turn-loop reads via
// RequiresApproval/FilterForPlanMode.
var toolGroupsMu sync.RWMutex

// toolGroups holds the two tool groups the turn loop needs: which
// tools require approval, and which survive Plan Mode filtering.
var toolGroups = map[string][]string{
	"gated":    {"Write", "Edit", "Bash"},
	"readonly": {"Read", "Grep", "TodoWrite", "ExitPlanMode", "AskUserQuestion"},
}

// RegisterMCPTool marks an MCP-bridged tool as gated or read-only per its
// server config's requires_approval flag, expanding the relevant group.
func RegisterMCPTool(name string, requiresApproval bool) {
	toolGroupsMu.Lock()
	defer toolGroupsMu.Unlock()
	if requiresApproval {
		toolGroups["gated"] = append(toolGroups["gated"], name)
	} else {
		toolGroups["readonly"] = append(toolGroups["readonly"], name)
	}
}

func inGroup(group, name string) bool {
	toolGroupsMu.RLock()
	defer toolGroupsMu.RUnlock()
	for _, n := range toolGroups[group] {
		if n == name {
			return true
		}
	}
	return false
}

// RequiresApproval classifies a tool call by name: Write, Edit, Bash, and
// any MCP tool flagged requires_approval are gated; everything else
// auto-approves. The turn loop only falls back to this when a name isn't
// in the registry at all — for a registered tool, its own Gated answer
// (see result.go) is authoritative.
func RequiresApproval(name string) bool {
	return inGroup("gated", name)
}

// FilterForPlanMode returns the subset of names that remain advertised
// while PlanModeState.Phase == Planning: read-only tools only.
func FilterForPlanMode(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if inGroup("readonly", n) || !inGroup("gated", n) && isBuiltinReadonlyDefault(n) {
			out = append(out, n)
		}
	}
	return out
}

// isBuiltinReadonlyDefault lets MCP tools that were never explicitly
// classified default to denied during Plan Mode (fail closed) unless
// they look like a namespaced read — "list"/"get"/"search" suffixed
// tools are a common MCP naming convention for safe operations.
func isBuiltinReadonlyDefault(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, "list") || strings.HasSuffix(lower, "get") || strings.HasSuffix(lower, "search")
}
