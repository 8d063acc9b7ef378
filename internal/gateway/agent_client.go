package gateway

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/jgarzik/brainpro-go/pkg/protocol"
)

// AgentClient speaks the internal NDJSON protocol to one Agent daemon
// over its local stream socket, demultiplexing events back to the
// caller that issued each request by its `id`. One AgentClient is
// shared across all Gateway sessions that target the same Agent, as a
// long-lived multiplexed connection where every event carries its
// correlating id.
//
// The read-loop/dispatch-table shape here is a mutex-guarded writer
// plus a background read loop.
type AgentClient struct {
	conn net.Conn

	writeMu sync.Mutex

	subMu sync.Mutex
	subs  map[string]chan protocol.AgentEvent
}

// DialAgent connects to the Agent's local socket at path.
func DialAgent(path string) (*AgentClient, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("dial agent socket %s: %w", path, err)
	}
	c := &AgentClient{conn: conn, subs: make(map[string]chan protocol.AgentEvent)}
	go c.readLoop()
	return c, nil
}

// NewAgentClient wraps an already-established connection — used by
// tests to pair the Gateway side with a net.Pipe peer without a real
// filesystem socket.
func NewAgentClient(conn net.Conn) *AgentClient {
	c := &AgentClient{conn: conn, subs: make(map[string]chan protocol.AgentEvent)}
	go c.readLoop()
	return c
}

func (c *AgentClient) readLoop() {
	scanner := protocol.NDJSONScanner(c.conn)
	for scanner.Scan() {
		var ev protocol.AgentEvent
		if err := protocol.Unmarshal(scanner.Bytes(), &ev); err != nil {
			slog.Warn("gateway.agent_client.decode_error", "error", err)
			continue
		}
		c.dispatch(ev)
	}
	// Connection closed or errored: wake every outstanding subscriber
	// with a synthetic terminal error so no caller blocks forever.
	c.subMu.Lock()
	for id, ch := range c.subs {
		ch <- protocol.NewErrorEvent(id, "internal", "agent connection closed")
		close(ch)
	}
	c.subs = make(map[string]chan protocol.AgentEvent)
	c.subMu.Unlock()
}

func (c *AgentClient) dispatch(ev protocol.AgentEvent) {
	c.subMu.Lock()
	ch, ok := c.subs[ev.ID]
	// pong is a one-shot reply to Ping, not part of a run_turn stream, so
	// it also closes out its subscription like a terminal event would.
	terminal := ev.IsTerminal() || ev.Type == protocol.AgentEventPong
	if terminal {
		delete(c.subs, ev.ID)
	}
	c.subMu.Unlock()
	if !ok {
		slog.Debug("gateway.agent_client.unmatched_event", "id", ev.ID, "type", ev.Type)
		return
	}
	ch <- ev
	if terminal {
		close(ch)
	}
}

func (c *AgentClient) subscribe(id string) chan protocol.AgentEvent {
	ch := make(chan protocol.AgentEvent, 16)
	c.subMu.Lock()
	c.subs[id] = ch
	c.subMu.Unlock()
	return ch
}

func (c *AgentClient) write(req protocol.AgentRequest) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteNDJSON(c.conn, req)
}

// RunTurn issues run_turn and returns a channel of events for this
// request id, closed after the terminal event.
func (c *AgentClient) RunTurn(req protocol.AgentRequest) (<-chan protocol.AgentEvent, error) {
	ch := c.subscribe(req.ID)
	if err := c.write(req); err != nil {
		c.subMu.Lock()
		delete(c.subs, req.ID)
		c.subMu.Unlock()
		close(ch)
		return nil, err
	}
	return ch, nil
}

// Cancel issues a best-effort cancel for an in-flight request id.
func (c *AgentClient) Cancel(id, sessionID string) error {
	return c.write(protocol.NewCancel(id, sessionID))
}

// ResumeApproval delivers a tool.approve decision for a suspended turn.
func (c *AgentClient) ResumeApproval(id, sessionID, toolCallID string, allow bool) error {
	return c.write(protocol.NewResumeApproval(id, sessionID, toolCallID, allow))
}

// ResumeAnswer delivers an AskUserQuestion answer for a suspended turn.
func (c *AgentClient) ResumeAnswer(id, sessionID, toolCallID, answer string) error {
	return c.write(protocol.NewResumeAnswer(id, sessionID, toolCallID, answer))
}

// Ping checks Agent liveness.
func (c *AgentClient) Ping(id string) (<-chan protocol.AgentEvent, error) {
	ch := c.subscribe(id)
	if err := c.write(protocol.NewPing(id)); err != nil {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
		close(ch)
		return nil, err
	}
	return ch, nil
}

func (c *AgentClient) Close() error {
	return c.conn.Close()
}
