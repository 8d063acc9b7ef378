package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/jgarzik/brainpro-go/pkg/protocol"
)

// outboxCapacity bounds the per-client event queue of per-session
// outbound Agent events before send() itself starts blocking. A slow
// client stalls whichever goroutine is producing its events rather than
// losing frames, keeping the contract producer-paced.
const outboxCapacity = 256

type pendingApproval struct {
	turnID    string
	sessionID string
}

// Client is one accepted WebSocket connection: one device, any number of
// sessions. Uses a registerClient/unregisterClient + per-client event
// delivery idiom, built on github.com/coder/websocket (see DESIGN.md
// for why this replaces a second WebSocket stack).
type Client struct {
	id       string
	deviceID string
	role     protocol.ClientRole
	conn     *websocket.Conn
	server   *Server

	outbox   chan []byte
	stopped  chan struct{}
	stopOnce sync.Once

	mu              sync.Mutex
	activeTurns     map[string]string // turnID -> sessionID, for disconnect cleanup
	pendingApproval map[string]pendingApproval
}

func newClient(conn *websocket.Conn, server *Server) *Client {
	return &Client{
		id:              "client_" + uuid.NewString(),
		conn:            conn,
		server:          server,
		outbox:          make(chan []byte, outboxCapacity),
		stopped:         make(chan struct{}),
		activeTurns:     make(map[string]string),
		pendingApproval: make(map[string]pendingApproval),
	}
}

// stop signals every blocked or future send() call to give up instead of
// enqueuing, once the connection is going away. Safe to call more than
// once or from multiple goroutines.
func (c *Client) stop() {
	c.stopOnce.Do(func() { close(c.stopped) })
}

// Run drives the handshake then the request/event loop until the
// connection closes. Blocks for the connection's lifetime.
func (c *Client) Run(ctx context.Context) {
	if !c.handshake(ctx) {
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(ctx)
	}()

	c.readLoop(ctx)

	c.stop()
	<-writerDone
	c.cancelActiveTurns()
	c.server.rateLimiter.Forget(c.id)
}

func (c *Client) writeLoop(ctx context.Context) {
	defer c.stop()
	for {
		var data []byte
		select {
		case data = <-c.outbox:
		case <-c.stopped:
			return
		}
		if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("gateway.client.write_error", "client", c.id, "error", err)
			return
		}
	}
}

// handshake performs hello/challenge/auth/welcome. Returns false if the
// handshake failed and the connection should close.
func (c *Client) handshake(ctx context.Context) bool {
	hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, data, err := c.conn.Read(hctx)
	if err != nil {
		slog.Debug("gateway.client.handshake_read_error", "error", err)
		return false
	}
	var hello protocol.Hello
	if err := protocol.Unmarshal(data, &hello); err != nil || hello.Type != protocol.FrameTypeHello {
		c.conn.Close(websocket.StatusPolicyViolation, protocol.ErrProtocolError)
		return false
	}
	c.deviceID = hello.DeviceID
	c.role = hello.Role

	nonce, err := NewNonce()
	if err != nil {
		c.conn.Close(websocket.StatusInternalError, "nonce generation failed")
		return false
	}
	challenge := protocol.NewChallenge(nonce)
	if !c.writeFrameDirect(hctx, challenge) {
		return false
	}

	_, data, err = c.conn.Read(hctx)
	if err != nil {
		slog.Debug("gateway.client.handshake_auth_read_error", "error", err)
		return false
	}
	var auth protocol.Auth
	if err := protocol.Unmarshal(data, &auth); err != nil || auth.Type != protocol.FrameTypeAuth {
		c.conn.Close(websocket.StatusPolicyViolation, protocol.ErrProtocolError)
		return false
	}
	if !VerifySignature(c.server.token, nonce, auth.Signature) {
		c.conn.Close(websocket.StatusPolicyViolation, protocol.ErrAuthFailed)
		return false
	}

	sess := c.server.sessions.Create(c.deviceID, "default", defaultSessionMaxTurns)
	welcome := protocol.NewWelcome(sess.ID, protocol.PolicyInfo{Mode: sess.Mode, MaxTurns: sess.MaxTurns})
	if !c.writeFrameDirect(hctx, welcome) {
		return false
	}
	slog.Info("gateway.client.connected", "client", c.id, "device_id", c.deviceID, "session_id", sess.ID)
	return true
}

const defaultSessionMaxTurns = 50

func (c *Client) writeFrameDirect(ctx context.Context, v any) bool {
	data, err := protocol.Marshal(v)
	if err != nil {
		return false
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("gateway.client.write_error", "client", c.id, "error", err)
		return false
	}
	return true
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		c.handleFrame(ctx, data)
	}
}

func (c *Client) handleFrame(ctx context.Context, data []byte) {
	var req protocol.RequestFrame
	if err := protocol.Unmarshal(data, &req); err != nil || req.Type != protocol.FrameTypeReq {
		slog.Debug("gateway.client.bad_frame", "client", c.id, "error", err)
		return
	}

	if !c.server.rateLimiter.Allow(c.id) {
		c.sendErr(req.ID, protocol.ErrInternal, "rate limit exceeded")
		return
	}

	handler, ok := c.server.router.Lookup(req.Method)
	if !ok {
		c.sendErr(req.ID, protocol.ErrUnknownMethod, req.Method)
		return
	}

	params, _ := json.Marshal(req.Params)
	go handler(c, req.ID, params)
}

func (c *Client) sendOK(id string, payload any) {
	c.send(protocol.NewOKResponse(id, payload))
}

func (c *Client) sendErr(id, code, message string) {
	c.send(protocol.NewErrorResponse(id, code, message))
}

func (c *Client) sendEvent(event string, data any, sessionID string) {
	c.send(protocol.NewEvent(event, data, sessionID))
}

// send enqueues a frame for the writer goroutine, blocking while the
// outbox is full so a slow client applies real backpressure instead of
// silently losing frames — every req still gets exactly one res this
// way. It gives up only once the connection itself is going away.
func (c *Client) send(v any) {
	data, err := protocol.Marshal(v)
	if err != nil {
		slog.Error("gateway.client.encode_error", "error", err)
		return
	}
	select {
	case c.outbox <- data:
	case <-c.stopped:
		slog.Debug("gateway.client.send_after_close", "client", c.id)
	}
}

func (c *Client) trackTurn(turnID, sessionID string) {
	c.mu.Lock()
	c.activeTurns[turnID] = sessionID
	c.mu.Unlock()
}

func (c *Client) untrackTurn(turnID string) {
	c.mu.Lock()
	delete(c.activeTurns, turnID)
	c.mu.Unlock()
}

func (c *Client) trackApproval(toolCallID, turnID, sessionID string) {
	c.mu.Lock()
	c.pendingApproval[toolCallID] = pendingApproval{turnID: turnID, sessionID: sessionID}
	c.mu.Unlock()
}

func (c *Client) turnForToolCall(toolCallID string) (turnID, sessionID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pendingApproval[toolCallID]
	if ok {
		delete(c.pendingApproval, toolCallID)
	}
	return p.turnID, p.sessionID, ok
}

// cancelActiveTurns best-effort cancels any turn still running when the
// client disconnects, so a dropped connection doesn't leave the Agent
// running a turn with no one to deliver its events to.
func (c *Client) cancelActiveTurns() {
	c.mu.Lock()
	turns := make(map[string]string, len(c.activeTurns))
	for k, v := range c.activeTurns {
		turns[k] = v
	}
	c.mu.Unlock()
	for turnID, sessionID := range turns {
		if err := c.server.agent.Cancel(turnID, sessionID); err != nil {
			slog.Debug("gateway.client.cancel_on_disconnect_failed", "turn_id", turnID, "error", err)
		}
	}
}
