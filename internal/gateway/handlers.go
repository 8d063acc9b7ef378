package gateway

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jgarzik/brainpro-go/pkg/protocol"
)

type chatSendParams struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// handleChatSend implements chat.send: starts a turn, streams agent.*
// events as they arrive, and defers its own res frame until the turn
// reaches a terminal state (res.ok=true once the turn finishes).
func handleChatSend(c *Client, id string, raw json.RawMessage) {
	var params chatSendParams
	if err := json.Unmarshal(raw, &params); err != nil {
		c.sendErr(id, protocol.ErrProtocolError, err.Error())
		return
	}

	sess, ok := c.server.sessions.Get(params.SessionID)
	if !ok {
		c.sendErr(id, protocol.ErrUnknownSession, "no such session")
		return
	}
	if sess.DeviceID != c.deviceID {
		c.sendErr(id, protocol.ErrForbidden, "session not owned by this client")
		return
	}

	turnID := "turn_" + uuid.NewString()
	if !sess.StartTurn(turnID) {
		c.sendErr(id, protocol.ErrSessionBusy, "a turn is already in flight for this session")
		return
	}

	messages := []protocol.ChatMessage{{Role: "user", Content: params.Text}}
	req := protocol.NewRunTurn(turnID, sess.ID, messages, "", "", nil)
	events, err := c.server.agent.RunTurn(req)
	if err != nil {
		sess.SetPhase(turnID, TurnFailed, "")
		c.sendErr(id, protocol.ErrInternal, err.Error())
		return
	}

	c.trackTurn(turnID, sess.ID)
	defer c.untrackTurn(turnID)

	for ev := range events {
		c.forwardAgentEvent(sess, ev)
		if ev.IsTerminal() {
			if ev.Type == protocol.AgentEventError {
				sess.SetPhase(turnID, TurnFailed, "")
				c.sendErr(id, ev.Code, ev.Message)
			} else {
				sess.SetPhase(turnID, TurnDone, "")
				c.sendOK(id, nil)
			}
			return
		}
	}
	// events channel closed without a terminal event: the agent
	// connection dropped mid-turn.
	sess.SetPhase(turnID, TurnFailed, "")
	c.sendErr(id, protocol.ErrInternal, "agent connection closed mid-turn")
}

// forwardAgentEvent translates one internal AgentEvent into the
// matching client-facing event frame and updates session turn-phase
// bookkeeping for suspension events.
func (c *Client) forwardAgentEvent(sess *Session, ev protocol.AgentEvent) {
	switch ev.Type {
	case protocol.AgentEventThinking:
		c.sendEvent(protocol.EventAgentThinking, map[string]any{"text": ev.Text}, sess.ID)
	case protocol.AgentEventToolCall:
		c.sendEvent(protocol.EventAgentToolCall, map[string]any{"name": ev.Name, "tool_call_id": ev.ToolCallID, "args": ev.Args}, sess.ID)
	case protocol.AgentEventToolResult:
		c.sendEvent(protocol.EventAgentToolResult, map[string]any{"name": ev.Name, "tool_call_id": ev.ToolCallID, "result": ev.Result, "ok": ev.OK, "duration_ms": ev.DurationMS}, sess.ID)
	case protocol.AgentEventContent:
		c.sendEvent(protocol.EventAgentMessage, map[string]any{"text": ev.Text}, sess.ID)
	case protocol.AgentEventAwaitingApproval:
		sess.SetPhase(ev.ID, TurnAwaitingApproval, ev.ToolCallID)
		c.trackApproval(ev.ToolCallID, ev.ID, sess.ID)
		c.sendEvent(protocol.EventAgentAwaitingApproval, map[string]any{"tool_call_id": ev.ToolCallID, "name": ev.Name, "args": ev.Args}, sess.ID)
	case protocol.AgentEventAwaitingInput:
		sess.SetPhase(ev.ID, TurnAwaitingInput, ev.ToolCallID)
		c.sendEvent(protocol.EventAgentAwaitingInput, map[string]any{"tool_call_id": ev.ToolCallID, "questions": ev.Questions}, sess.ID)
	case protocol.AgentEventDone:
		var usage protocol.UsageStats
		if ev.Usage != nil {
			usage = *ev.Usage
		}
		c.sendEvent(protocol.EventAgentDone, map[string]any{"usage": usage}, sess.ID)
	case protocol.AgentEventError:
		c.sendEvent(protocol.EventAgentError, map[string]any{"code": ev.Code, "message": ev.Message}, sess.ID)
	default:
		slog.Debug("gateway.client.unhandled_agent_event", "type", ev.Type)
	}
}

type sessionCreateParams struct {
	Mode     string `json:"mode"`
	MaxTurns int    `json:"max_turns"`
}

func handleSessionCreate(c *Client, id string, raw json.RawMessage) {
	var params sessionCreateParams
	_ = json.Unmarshal(raw, &params)
	if params.MaxTurns <= 0 {
		params.MaxTurns = 50
	}
	if params.Mode == "" {
		params.Mode = "default"
	}
	sess := c.server.sessions.Create(c.deviceID, params.Mode, params.MaxTurns)
	c.sendOK(id, map[string]any{"session_id": sess.ID, "policy": map[string]any{"mode": sess.Mode, "max_turns": sess.MaxTurns}})
}

func handleSessionList(c *Client, id string, _ json.RawMessage) {
	sessions := c.server.sessions.List(c.deviceID)
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	c.sendOK(id, map[string]any{"sessions": ids})
}

type sessionGetParams struct {
	SessionID string `json:"session_id"`
}

func handleSessionGet(c *Client, id string, raw json.RawMessage) {
	var params sessionGetParams
	if err := json.Unmarshal(raw, &params); err != nil {
		c.sendErr(id, protocol.ErrProtocolError, err.Error())
		return
	}
	sess, ok := c.server.sessions.Get(params.SessionID)
	if !ok {
		c.sendErr(id, protocol.ErrUnknownSession, "no such session")
		return
	}
	if sess.DeviceID != c.deviceID {
		c.sendErr(id, protocol.ErrForbidden, "session not owned by this client")
		return
	}
	payload := map[string]any{"session_id": sess.ID, "mode": sess.Mode, "max_turns": sess.MaxTurns}
	if turn, ok := sess.CurrentTurn(); ok {
		payload["turn"] = map[string]any{"id": turn.ID, "phase": turn.Phase}
	}
	c.sendOK(id, payload)
}

type toolApproveParams struct {
	ToolCallID string `json:"tool_call_id"`
	Allow      bool   `json:"allow"`
}

// handleToolApprove: allow=false causes the Agent to surface a tool
// error and either continue or terminate per policy — delivered via
// AgentClient.ResumeApproval on the turn the approving client's session
// currently has suspended.
func handleToolApprove(c *Client, id string, raw json.RawMessage) {
	var params toolApproveParams
	if err := json.Unmarshal(raw, &params); err != nil {
		c.sendErr(id, protocol.ErrProtocolError, err.Error())
		return
	}
	turnID, sessionID, ok := c.turnForToolCall(params.ToolCallID)
	if !ok {
		c.sendErr(id, protocol.ErrUnknownSession, "no turn awaiting that tool_call_id")
		return
	}
	if err := c.server.agent.ResumeApproval(turnID, sessionID, params.ToolCallID, params.Allow); err != nil {
		c.sendErr(id, protocol.ErrInternal, err.Error())
		return
	}
	c.sendOK(id, nil)
}

type turnResumeParams struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

func handleTurnResume(c *Client, id string, raw json.RawMessage) {
	var params turnResumeParams
	if err := json.Unmarshal(raw, &params); err != nil {
		c.sendErr(id, protocol.ErrProtocolError, err.Error())
		return
	}
	sess, ok := c.server.sessions.Get(params.SessionID)
	if !ok {
		c.sendErr(id, protocol.ErrUnknownSession, "no such session")
		return
	}
	if sess.DeviceID != c.deviceID {
		c.sendErr(id, protocol.ErrForbidden, "session not owned by this client")
		return
	}
	turn, ok := sess.CurrentTurn()
	if !ok || turn.Phase != TurnAwaitingInput {
		c.sendErr(id, protocol.ErrProtocolError, "session has no turn awaiting input")
		return
	}
	if err := c.server.agent.ResumeAnswer(turn.ID, sess.ID, turn.PendingToolCallID, params.Answer); err != nil {
		c.sendErr(id, protocol.ErrInternal, err.Error())
		return
	}
	c.sendOK(id, nil)
}

// cron.{add,remove,list} and device.pair are part of the method catalog
// without a detailed contract — scheduling and pairing collaborators
// live outside this module. These keep the method names resolvable with
// a minimal in-memory implementation rather than surfacing
// unknown_method for a method the catalog explicitly lists.

type cronAddParams struct {
	Schedule string `json:"schedule"`
	SessionID string `json:"session_id"`
	Text     string `json:"text"`
}

func handleCronAdd(c *Client, id string, raw json.RawMessage) {
	var params cronAddParams
	if err := json.Unmarshal(raw, &params); err != nil {
		c.sendErr(id, protocol.ErrProtocolError, err.Error())
		return
	}
	jobID := c.server.cron.add(c.deviceID, params.Schedule, params.SessionID, params.Text)
	c.sendOK(id, map[string]any{"job_id": jobID})
}

type cronRemoveParams struct {
	JobID string `json:"job_id"`
}

func handleCronRemove(c *Client, id string, raw json.RawMessage) {
	var params cronRemoveParams
	if err := json.Unmarshal(raw, &params); err != nil {
		c.sendErr(id, protocol.ErrProtocolError, err.Error())
		return
	}
	c.server.cron.remove(c.deviceID, params.JobID)
	c.sendOK(id, nil)
}

func handleCronList(c *Client, id string, _ json.RawMessage) {
	c.sendOK(id, map[string]any{"jobs": c.server.cron.list(c.deviceID)})
}

func handleDevicePair(c *Client, id string, _ json.RawMessage) {
	c.sendOK(id, map[string]any{"device_id": c.deviceID, "paired": true})
}

func handleHealthStatus(c *Client, id string, _ json.RawMessage) {
	c.sendOK(id, map[string]any{
		"status":           "ok",
		"protocol_version": protocol.ProtocolVersion,
		"agent_connected":  c.server.agent != nil,
	})
}
