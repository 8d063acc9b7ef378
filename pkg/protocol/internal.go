package protocol

// AgentMethod enumerates the methods accepted on the internal socket.
type AgentMethod string

const (
	AgentMethodRunTurn AgentMethod = "run_turn"
	AgentMethodCancel  AgentMethod = "cancel"
	AgentMethodPing    AgentMethod = "ping"
	// AgentMethodResume delivers the answer to a suspended tool_call —
	// either an approval decision (awaiting_approval) or a question answer
	// (awaiting_input) — keyed by the same turn id and the tool_call_id
	// the suspension named. Not part of the original method set; added to
	// give the Gateway's tool.approve/turn.resume client methods a
	// concrete wire shape on the internal socket.
	AgentMethodResume AgentMethod = "resume"
)

// ChatMessage is one entry of the conversation passed to run_turn.
// Content is left as a generic value: plain assistant/user text is a
// string, but tool-call/tool-result messages carry structured payloads
// that must round-trip untouched.
type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// AgentRequest is one JSON object, newline-terminated, written by the
// Gateway to the Agent over the internal socket.
type AgentRequest struct {
	ID         string        `json:"id"`
	Method     AgentMethod   `json:"method"`
	SessionID  string        `json:"session_id"`
	Messages   []ChatMessage `json:"messages,omitempty"`
	Target     string        `json:"target,omitempty"`
	Tools      []string      `json:"tools,omitempty"`
	WorkingDir string        `json:"working_dir,omitempty"`

	// resume only: ToolCallID names the suspended tool_call being
	// answered. Exactly one of Allow or Answer applies, discriminated by
	// which kind of suspension is outstanding for that tool_call_id.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Allow      *bool  `json:"allow,omitempty"`
	Answer     string `json:"answer,omitempty"`
}

func NewRunTurn(id, sessionID string, messages []ChatMessage, target, workingDir string, tools []string) AgentRequest {
	return AgentRequest{
		ID: id, Method: AgentMethodRunTurn, SessionID: sessionID,
		Messages: messages, Target: target, WorkingDir: workingDir, Tools: tools,
	}
}

func NewCancel(id, sessionID string) AgentRequest {
	return AgentRequest{ID: id, Method: AgentMethodCancel, SessionID: sessionID}
}

func NewPing(id string) AgentRequest {
	return AgentRequest{ID: id, Method: AgentMethodPing}
}

func NewResumeApproval(id, sessionID, toolCallID string, allow bool) AgentRequest {
	return AgentRequest{ID: id, Method: AgentMethodResume, SessionID: sessionID, ToolCallID: toolCallID, Allow: &allow}
}

func NewResumeAnswer(id, sessionID, toolCallID, answer string) AgentRequest {
	return AgentRequest{ID: id, Method: AgentMethodResume, SessionID: sessionID, ToolCallID: toolCallID, Answer: answer}
}

// UsageStats accompanies the terminal done event.
type UsageStats struct {
	InputTokens  uint64 `json:"input_tokens"`
	OutputTokens uint64 `json:"output_tokens"`
	ToolUses     uint64 `json:"tool_uses"`
}

// AgentEventType discriminates the kind of event on the internal
// stream. Internally tagged on "type".
type AgentEventType string

const (
	AgentEventThinking         AgentEventType = "thinking"
	AgentEventToolCall         AgentEventType = "tool_call"
	AgentEventToolResult       AgentEventType = "tool_result"
	AgentEventContent          AgentEventType = "content"
	AgentEventDone             AgentEventType = "done"
	AgentEventAwaitingApproval AgentEventType = "awaiting_approval"
	AgentEventAwaitingInput    AgentEventType = "awaiting_input"
	AgentEventError            AgentEventType = "error"
	AgentEventPong             AgentEventType = "pong"
)

// AgentEvent is one NDJSON line written by the Agent to the Gateway.
// Only the fields relevant to Type are populated; this mirrors the
// internally-tagged Rust enum it is ported from rather than a Go
// interface-per-variant design, since the wire shape must stay flat.
type AgentEvent struct {
	ID   string         `json:"id"`
	Type AgentEventType `json:"type"`

	// thinking / content
	Text string `json:"text,omitempty"`

	// tool_call
	Name       string `json:"name,omitempty"`
	Args       any    `json:"args,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`

	// tool_result. OK has no omitempty: false is a meaningful, distinct
	// value from "absent" on this event type (a denied/failed tool call).
	Result     any  `json:"result,omitempty"`
	OK         bool `json:"ok"`
	DurationMS int64 `json:"duration_ms,omitempty"`

	// done
	Usage *UsageStats `json:"usage,omitempty"`

	// awaiting_input
	Questions []string `json:"questions,omitempty"`

	// error
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewThinkingEvent(id, text string) AgentEvent {
	return AgentEvent{ID: id, Type: AgentEventThinking, Text: text}
}

func NewToolCallEvent(id, name, toolCallID string, args any) AgentEvent {
	return AgentEvent{ID: id, Type: AgentEventToolCall, Name: name, ToolCallID: toolCallID, Args: args}
}

func NewToolResultEvent(id, name, toolCallID string, result any, ok bool, durationMS int64) AgentEvent {
	return AgentEvent{ID: id, Type: AgentEventToolResult, Name: name, ToolCallID: toolCallID, Result: result, OK: ok, DurationMS: durationMS}
}

func NewContentEvent(id, text string) AgentEvent {
	return AgentEvent{ID: id, Type: AgentEventContent, Text: text}
}

func NewDoneEvent(id string, usage UsageStats) AgentEvent {
	return AgentEvent{ID: id, Type: AgentEventDone, Usage: &usage}
}

func NewAwaitingInputEvent(id, toolCallID string, questions []string) AgentEvent {
	return AgentEvent{ID: id, Type: AgentEventAwaitingInput, ToolCallID: toolCallID, Questions: questions}
}

func NewAwaitingApprovalEvent(id, toolCallID, name string, args any) AgentEvent {
	return AgentEvent{ID: id, Type: AgentEventAwaitingApproval, ToolCallID: toolCallID, Name: name, Args: args}
}

func NewErrorEvent(id, code, message string) AgentEvent {
	return AgentEvent{ID: id, Type: AgentEventError, Code: code, Message: message}
}

func NewPongEvent(id string) AgentEvent {
	return AgentEvent{ID: id, Type: AgentEventPong}
}

// IsTerminal reports whether this event ends the stream for its ID.
func (e AgentEvent) IsTerminal() bool {
	return e.Type == AgentEventDone || e.Type == AgentEventError
}

// Internal/runtime error codes used by the Agent and MCP Manager.
const (
	ErrPathEscape       = "path_escape"
	ErrFileExists       = "file_exists"
	ErrReadError        = "read_error"
	ErrWriteError       = "write_error"
	ErrPermissionDenied = "permission_denied"
	ErrInvalidRegex     = "invalid_regex"
	ErrInvalidTodos     = "invalid_todos"
	ErrMissingTodos     = "missing_todos"
	ErrMCPError         = "mcp_error"
	ErrMCPNotConnected  = "mcp_not_connected"
	ErrMCPTimeout       = "mcp_timeout"
	ErrMCPDied          = "mcp_died"
)
