package agent

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/jgarzik/brainpro-go/pkg/protocol"
)

// Daemon listens on the internal protocol's local stream socket
// (--socket, default /run/brainpro.sock) and drives one Loop per
// accepted connection, over pkg/protocol's NDJSON codec, following a
// plain net.Listener accept-loop.
type Daemon struct {
	loop        *Loop
	gatewayMode bool
}

// NewDaemon wires a Loop to the internal socket. gatewayMode mirrors
// --gateway-mode: true means gated tools suspend for an explicit
// approval round-trip instead of auto-approving.
func NewDaemon(loop *Loop, gatewayMode bool) *Daemon {
	return &Daemon{loop: loop, gatewayMode: gatewayMode}
}

// Serve accepts connections on ln until ctx is cancelled or Accept fails.
func (d *Daemon) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go d.handleConn(ctx, conn)
	}
}

// HandleConn serves one already-accepted connection. Exported so tests
// (including other packages', e.g. the Gateway's end-to-end tests) can
// pair a Daemon directly with a net.Pipe peer without a real listener.
func (d *Daemon) HandleConn(ctx context.Context, conn net.Conn) {
	d.handleConn(ctx, conn)
}

// handleConn is single-request-per-connection capable but also accepts a
// long-lived multiplexed stream of requests on one connection, provided
// every event carries its correlating id. cancel requests for turns
// started on this connection are routed directly; run_turn requests
// spawn a goroutine so a blocked turn never stalls reading the next
// request.
func (d *Daemon) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := protocol.NDJSONScanner(conn)
	var writeMu sync.Mutex
	write := func(ev protocol.AgentEvent) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := protocol.WriteNDJSON(conn, ev); err != nil {
			slog.Debug("agent.daemon.write_error", "error", err)
		}
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	for scanner.Scan() {
		var req protocol.AgentRequest
		if err := protocol.Unmarshal(scanner.Bytes(), &req); err != nil {
			write(protocol.NewErrorEvent("", "protocol_error", err.Error()))
			continue
		}

		switch req.Method {
		case protocol.AgentMethodPing:
			write(protocol.NewPongEvent(req.ID))

		case protocol.AgentMethodCancel:
			if t, ok := d.loop.Turn(req.ID); ok {
				t.Cancel()
			}

		case protocol.AgentMethodResume:
			t, ok := d.loop.Turn(req.ID)
			if !ok {
				write(protocol.NewErrorEvent(req.ID, "unknown_session", "no suspended turn with this id"))
				continue
			}
			if req.Allow != nil {
				t.Resume(&ApprovalDecision{ToolCallID: req.ToolCallID, Allow: *req.Allow}, nil)
			} else {
				t.Resume(nil, &InputAnswer{ToolCallID: req.ToolCallID, Answer: req.Answer})
			}

		case protocol.AgentMethodRunTurn:
			wg.Add(1)
			go func(req protocol.AgentRequest) {
				defer wg.Done()
				d.runTurn(ctx, req, write)
			}(req)

		default:
			write(protocol.NewErrorEvent(req.ID, "unknown_method", string(req.Method)))
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Debug("agent.daemon.read_error", "error", err)
	}
}

func (d *Daemon) runTurn(ctx context.Context, req protocol.AgentRequest, write EmitFunc) {
	messages := make([]ModelMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		content, _ := m.Content.(string)
		messages = append(messages, ModelMessage{Role: m.Role, Content: content})
	}
	turn := d.loop.NewTurn(ctx, req.ID, req.SessionID, messages)
	d.loop.Run(turn, write)
}
