// Command brainpro-agent is the Agent daemon: it listens on a local Unix
// socket, drives one Turn loop per connection, and owns the built-in
// tool registry plus the MCP Manager. cobra handles flag/env parsing even
// though this binary has a single run mode, not a subcommand tree.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jgarzik/brainpro-go/internal/agent"
	"github.com/jgarzik/brainpro-go/internal/authfile"
	"github.com/jgarzik/brainpro-go/internal/config"
	"github.com/jgarzik/brainpro-go/internal/mcp"
	"github.com/jgarzik/brainpro-go/internal/tools"
)

var (
	socketPath  string
	gatewayMode bool
	personality string
	root        string
	mcpConfig   string
	maxTurns    int
	verbose     bool
)

func main() {
	cmd := &cobra.Command{
		Use:   "brainpro-agent",
		Short: "Agent daemon: turn loop + tool execution over a local socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	cmd.Flags().StringVar(&socketPath, "socket", envOr("BRAINPRO_AGENT_SOCKET", "/run/brainpro.sock"), "internal protocol socket path")
	cmd.Flags().BoolVar(&gatewayMode, "gateway-mode", envBoolOr("BRAINPRO_GATEWAY_MODE", true), "suspend gated tool calls for an explicit approval round-trip")
	cmd.Flags().StringVar(&personality, "personality", envOr("BRAINPRO_PERSONALITY", "mrbot"), "personality/soul name (mrcode|mrbot); content is not interpreted by this binary")
	cmd.Flags().StringVar(&root, "root", envOr("BRAINPRO_ROOT", mustGetwd()), "workspace root for file tools and spill/soul storage")
	cmd.Flags().StringVar(&mcpConfig, "mcp-config", envOr("BRAINPRO_MCP_CONFIG", ""), "JSON5 MCP server table (default: <root>/.brainpro/mcp.json5)")
	cmd.Flags().IntVar(&maxTurns, "max-turns", 0, "max model<->tool iterations per turn (default 50)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	root = absRoot

	if personality != "mrcode" && personality != "mrbot" {
		slog.Warn("agent.personality.unknown", "personality", personality)
	}
	soulPath := filepath.Join(root, ".brainpro", "souls", personalityFile(personality))
	if _, err := os.Stat(soulPath); err != nil {
		slog.Debug("agent.personality.soul_missing", "path", soulPath)
	}

	cfgPath := mcpConfig
	if cfgPath == "" {
		cfgPath = filepath.Join(root, ".brainpro", "mcp.json5")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	registry := tools.NewRegistry()
	planModeState := tools.NewPlanModeState()
	todoState := tools.NewTodoState()

	registry.Register(tools.NewReadTool(root))
	registry.Register(tools.NewWriteTool(root))
	registry.Register(tools.NewEditTool(root))
	registry.Register(tools.NewGrepTool(root))
	registry.Register(tools.NewBashTool(root))
	registry.Register(tools.NewTodoWriteTool(todoState))
	registry.Register(tools.NewEnterPlanModeTool(planModeState))
	registry.Register(tools.NewExitPlanModeTool(planModeState))
	registry.Register(tools.NewAskUserQuestionTool())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mcpMgr := mcp.NewManager(cfg, root, registry)
	for name, sc := range cfg.Servers() {
		if !sc.Enabled {
			continue
		}
		n, err := mcpMgr.Connect(ctx, name)
		if err != nil {
			slog.Warn("mcp.server.connect_failed", "server", name, "error", err)
			continue
		}
		slog.Info("mcp.server.ready", "server", name, "tools", n)
	}
	defer mcpMgr.Stop()

	if err := config.Watch(ctx, cfgPath, func(fresh *config.Config) {
		previouslyConnected := mcpMgr.GetAllTools()
		cfg.Replace(fresh.Servers())
		reconcileMCPServers(ctx, mcpMgr, cfg, previouslyConnected)
	}); err != nil {
		slog.Warn("agent.config_watch_unavailable", "path", cfgPath, "error", err)
	}

	if tok := authfile.LoadAnthropicToken(); tok != nil {
		slog.Debug("agent.authfile.fallback_token_present", "expired", tok.IsExpired())
	}

	loop := agent.NewLoop(agent.UnconfiguredBackend{}, registry, planModeState, root, maxTurns)
	daemon := agent.NewDaemon(loop, gatewayMode)

	ln, err := listenUnix(socketPath)
	if err != nil {
		return fmt.Errorf("listen %s: %w", socketPath, err)
	}
	defer ln.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("agent.shutdown", "signal", sig)
		cancel()
	}()

	slog.Info("agent.start",
		"socket", socketPath, "gateway_mode", gatewayMode, "personality", personality, "root", root,
	)
	if err := daemon.Serve(ctx, ln); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// reconcileMCPServers brings live connections in line with a freshly
// reloaded server table: connects newly-enabled servers, disconnects
// ones that were turned off or removed, and leaves unaffected servers'
// live connections alone. previouslyConnected is a pre-reload snapshot
// (Manager.GetAllTools' keys) used to find servers dropped from the new
// table entirely, since a name missing from the new config no longer
// shows up in cfg.Servers() at all.
func reconcileMCPServers(ctx context.Context, mgr *mcp.Manager, cfg *config.Config, previouslyConnected map[string][]mcp.ToolDescriptor) {
	servers := cfg.Servers()
	for name, sc := range servers {
		switch {
		case sc.Enabled && !mgr.IsConnected(name):
			n, err := mgr.Connect(ctx, name)
			if err != nil {
				slog.Warn("mcp.server.connect_failed", "server", name, "error", err)
				continue
			}
			slog.Info("mcp.server.ready", "server", name, "tools", n)
		case !sc.Enabled && mgr.IsConnected(name):
			mgr.Disconnect(name)
		}
	}
	for name := range previouslyConnected {
		if _, ok := servers[name]; !ok {
			mgr.Disconnect(name)
		}
	}
}

func personalityFile(name string) string {
	switch name {
	case "mrcode":
		return "MRCODE.md"
	default:
		return "MRBOT.md"
	}
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "1" || v == "true" || v == "TRUE"
}
