// Command brainpro-gateway dials the Agent daemon's local socket and
// serves the client-facing WebSocket protocol. BRAINPRO_GATEWAY_TOKEN is
// env-only, never a CLI flag, so it can't leak into `ps`/shell history.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jgarzik/brainpro-go/internal/gateway"
)

var (
	port        int
	agentSocket string
	rateRPS     float64
	verbose     bool
)

func main() {
	cmd := &cobra.Command{
		Use:   "brainpro-gateway",
		Short: "WebSocket gateway: client sessions, rate limiting, Agent routing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	cmd.Flags().IntVar(&port, "port", envIntOr("BRAINPRO_GATEWAY_PORT", 18789), "client-facing WebSocket port")
	cmd.Flags().StringVar(&agentSocket, "agent-socket", envOr("BRAINPRO_AGENT_SOCKET", "/run/brainpro.sock"), "Agent daemon's internal protocol socket")
	cmd.Flags().Float64Var(&rateRPS, "rate-limit-rps", 0, "per-client request rate limit in requests per second (0 disables)")
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

	token := os.Getenv("BRAINPRO_GATEWAY_TOKEN")
	if token == "" {
		slog.Warn("gateway.auth.disabled", "reason", "BRAINPRO_GATEWAY_TOKEN not set")
	}

	agentClient, err := gateway.DialAgent(agentSocket)
	if err != nil {
		return fmt.Errorf("dial agent: %w", err)
	}
	defer agentClient.Close()

	server := gateway.NewServer(token, agentClient, rateRPS)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("gateway.shutdown", "signal", sig)
		cancel()
	}()

	addr := fmt.Sprintf(":%d", port)
	slog.Info("gateway.start", "port", port, "agent_socket", agentSocket, "auth_enabled", token != "")
	if err := server.Start(ctx, addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fallback
	}
	return n
}
