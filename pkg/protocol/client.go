// Package protocol defines the wire schemas used on both sides of this
// runtime: the client-facing frame protocol (Gateway boundary) and the
// internal NDJSON protocol (Gateway <-> Agent). Types are kept close to
// plain JSON so opaque fields (tool args, MCP payloads) round-trip without
// lossy struct coercion.
package protocol

// ClientRole distinguishes an interactive operator client from an
// unattended automation node.
type ClientRole string

const (
	RoleOperator ClientRole = "operator"
	RoleNode     ClientRole = "node"
)

// ClientCapabilities is advertised by the client during hello.
type ClientCapabilities struct {
	Tools           []string `json:"tools,omitempty"`
	ProtocolVersion int      `json:"protocol_version"`
}

// ProtocolVersion is the version this package implements.
const ProtocolVersion = 1

// Hello is the first frame a client sends.
type Hello struct {
	Type     string             `json:"type"`
	Role     ClientRole         `json:"role"`
	DeviceID string             `json:"device_id"`
	Caps     ClientCapabilities `json:"caps"`
}

func NewHello(role ClientRole, deviceID string, caps ClientCapabilities) Hello {
	if caps.ProtocolVersion == 0 {
		caps.ProtocolVersion = ProtocolVersion
	}
	return Hello{Type: FrameTypeHello, Role: role, DeviceID: deviceID, Caps: caps}
}

// Challenge is the Gateway's reply to hello.
type Challenge struct {
	Type  string `json:"type"`
	Nonce string `json:"nonce"`
}

func NewChallenge(nonce string) Challenge {
	return Challenge{Type: FrameTypeChallenge, Nonce: nonce}
}

// Auth is the client's handshake completion frame.
type Auth struct {
	Type      string `json:"type"`
	Signature string `json:"signature"`
}

// PolicyInfo describes session limits granted on welcome.
type PolicyInfo struct {
	Mode     string `json:"mode"`
	MaxTurns int    `json:"max_turns"`
}

// Welcome completes a successful handshake.
type Welcome struct {
	Type      string     `json:"type"`
	SessionID string     `json:"session_id"`
	Policy    PolicyInfo `json:"policy"`
}

func NewWelcome(sessionID string, policy PolicyInfo) Welcome {
	return Welcome{Type: FrameTypeWelcome, SessionID: sessionID, Policy: policy}
}

// Frame type discriminators.
const (
	FrameTypeHello     = "hello"
	FrameTypeChallenge = "challenge"
	FrameTypeAuth      = "auth"
	FrameTypeWelcome   = "welcome"
	FrameTypeReq       = "req"
	FrameTypeRes       = "res"
	FrameTypeEvent     = "event"
)

// RequestFrame is a client -> gateway RPC call.
type RequestFrame struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// ErrorInfo is the error payload on a failed response.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseFrame is a gateway -> client reply, exactly one per RequestFrame.
type ResponseFrame struct {
	Type    string     `json:"type"`
	ID      string     `json:"id"`
	OK      bool       `json:"ok"`
	Payload any        `json:"payload,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

func NewOKResponse(id string, payload any) ResponseFrame {
	return ResponseFrame{Type: FrameTypeRes, ID: id, OK: true, Payload: payload}
}

func NewErrorResponse(id, code, message string) ResponseFrame {
	return ResponseFrame{Type: FrameTypeRes, ID: id, OK: false, Error: &ErrorInfo{Code: code, Message: message}}
}

// EventFrame is an unsolicited gateway -> client push.
type EventFrame struct {
	Type      string `json:"type"`
	Event     string `json:"event"`
	Data      any    `json:"data,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

func NewEvent(event string, data any, sessionID string) EventFrame {
	return EventFrame{Type: FrameTypeEvent, Event: event, Data: data, SessionID: sessionID}
}

// Method names recognized by the client protocol.
const (
	MethodChatSend      = "chat.send"
	MethodSessionCreate = "session.create"
	MethodSessionList   = "session.list"
	MethodSessionGet    = "session.get"
	MethodToolApprove   = "tool.approve"
	MethodTurnResume    = "turn.resume"
	MethodCronAdd       = "cron.add"
	MethodCronRemove    = "cron.remove"
	MethodCronList      = "cron.list"
	MethodDevicePair    = "device.pair"
	MethodHealthStatus  = "health.status"
)

// Event names emitted by the gateway.
const (
	EventAgentThinking          = "agent.thinking"
	EventAgentToolCall          = "agent.tool_call"
	EventAgentToolResult        = "agent.tool_result"
	EventAgentMessage           = "agent.message"
	EventAgentDone              = "agent.done"
	EventAgentError             = "agent.error"
	EventAgentAwaitingApproval  = "agent.awaiting_approval"
	EventAgentAwaitingInput     = "agent.awaiting_input"
	EventPresenceUpdate         = "presence.update"
	EventHealthTick             = "health.tick"
	EventCronFired              = "cron.fired"
)

// Error codes used on the client protocol boundary.
const (
	ErrProtocolError    = "protocol_error"
	ErrUnknownMethod    = "unknown_method"
	ErrAuthFailed       = "auth_failed"
	ErrForbidden        = "forbidden"
	ErrUnknownSession   = "unknown_session"
	ErrSessionBusy      = "session_busy"
	ErrMaxTurns         = "max_turns"
	ErrInternal         = "internal"
	ErrCancelled        = "cancelled"
)
