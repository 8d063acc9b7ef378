// Package config loads the JSON5 configuration file read by the Agent
// daemon: the MCP server table only (network settings come from flags
// and env vars). Secrets (the gateway bearer token) are never read from
// this file — they are env-var only.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/titanous/json5"
)

// MCPServerConfig is one entry of the MCP server table.
type MCPServerConfig struct {
	Name      string            `json:"-"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	Cwd       string            `json:"cwd,omitempty"`
	Transport string            `json:"transport"` // stdio | http | sse
	URL       string            `json:"url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	TimeoutMS        int  `json:"timeout_ms,omitempty"`
	Enabled          bool `json:"enabled"`
	RequiresApproval bool `json:"requires_approval,omitempty"`
}

// Config is the root configuration document.
type Config struct {
	mu         sync.RWMutex
	MCPServers map[string]MCPServerConfig `json:"mcp_servers"`
}

// Load reads and parses a JSON5 config file. A missing file is not an
// error — the daemon then runs with an empty MCP server table.
func Load(path string) (*Config, error) {
	cfg := &Config{MCPServers: map[string]MCPServerConfig{}}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var raw struct {
		MCPServers map[string]MCPServerConfig `json:"mcp_servers"`
	}
	if err := json5.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	for name, sc := range raw.MCPServers {
		sc.Name = name
		if sc.TimeoutMS <= 0 {
			sc.TimeoutMS = 60_000
		}
		cfg.MCPServers[name] = sc
	}
	return cfg, nil
}

// Servers returns a snapshot of the configured MCP server table.
func (c *Config) Servers() map[string]MCPServerConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]MCPServerConfig, len(c.MCPServers))
	for k, v := range c.MCPServers {
		out[k] = v
	}
	return out
}

// Replace swaps in a freshly-loaded server table, used by the fsnotify
// watcher on config file changes.
func (c *Config) Replace(servers map[string]MCPServerConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MCPServers = servers
}
