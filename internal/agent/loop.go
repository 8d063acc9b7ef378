// Package agent implements the Agent turn loop: the model-call <-> tool-
// dispatch cycle, built on a Think->Act->Observe cycle trimmed of
// managed-mode/multi-channel/subagent/delegate features and generalized
// to a single-tier approval/plan-mode/todo model.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jgarzik/brainpro-go/internal/tools"
	"github.com/jgarzik/brainpro-go/pkg/protocol"
)

// ToolCall is one model-requested tool invocation, provider-agnostic.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ModelMessage is one entry of the conversation sent to the model
// backend. Content mirrors protocol.ChatMessage but also carries
// structured tool-call/tool-result payloads the (out-of-scope) LLM HTTP
// client needs to serialize per its own wire format.
type ModelMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ModelResponse is what one model call returns: either final text or a
// set of tool calls to execute next iteration.
type ModelResponse struct {
	Thinking  string
	Content   string
	ToolCalls []ToolCall
	Usage     protocol.UsageStats
}

// ModelBackend is the external collaborator for the LLM HTTP client,
// kept out of scope here and consumed only through this interface. The
// turn loop depends only on this interface.
type ModelBackend interface {
	Complete(ctx context.Context, messages []ModelMessage, toolSchemas []map[string]any) (*ModelResponse, error)
}

// ApprovalDecision is delivered by the Gateway via Resume after a gated
// tool call emitted AwaitingApproval.
type ApprovalDecision struct {
	ToolCallID string
	Allow      bool
}

// InputAnswer is delivered by the Gateway via Resume after AskUserQuestion
// emitted AwaitingInput.
type InputAnswer struct {
	ToolCallID string
	Answer     string
}

// EmitFunc streams one internal-protocol event for this turn. The Agent
// daemon socket handler supplies this to write NDJSON lines; tests
// supply a slice-collecting stub.
type EmitFunc func(protocol.AgentEvent)

// Turn holds the mutable state of one in-flight run_turn request: the
// conversation buffer, per-turn tool registry view, and the channel used
// to deliver a resume decision to a suspended iteration.
type Turn struct {
	ID        string
	SessionID string
	messages  []ModelMessage
	resumeCh  chan resumeMsg
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled bool
	mu        sync.Mutex
}

type resumeMsg struct {
	approval *ApprovalDecision
	input    *InputAnswer
}

// Resume delivers a client's tool.approve/turn.resume decision to the
// suspended iteration waiting on it. Safe to call once per suspension.
func (t *Turn) Resume(approval *ApprovalDecision, input *InputAnswer) {
	select {
	case t.resumeCh <- resumeMsg{approval: approval, input: input}:
	default:
	}
}

// Cancel marks the turn cancelled and wakes any iteration suspended at an
// approval/input boundary. Cancellation is checked at every iteration
// boundary and before/after each approval-gated call or each batch of
// concurrently run calls.
func (t *Turn) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
	t.cancel()
}

func (t *Turn) isCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Loop drives one Agent's model<->tool cycle. One Loop instance is
// shared across turns on a connection; per-turn state lives in Turn.
// planMode is shared with whoever assembled registry's EnterPlanMode/
// ExitPlanMode tools, so filtering observes the same phase those tools
// mutate.
type Loop struct {
	backend  ModelBackend
	registry *tools.Registry
	root     string
	maxTurns int
	tracer   trace.Tracer
	planMode *tools.PlanModeState

	mu    sync.Mutex
	turns map[string]*Turn
}

const defaultMaxTurns = 50

// NewLoop constructs a Loop. maxTurns <= 0 uses the default of 50.
func NewLoop(backend ModelBackend, registry *tools.Registry, planMode *tools.PlanModeState, root string, maxTurns int) *Loop {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	if planMode == nil {
		planMode = tools.NewPlanModeState()
	}
	return &Loop{
		backend:  backend,
		registry: registry,
		root:     root,
		maxTurns: maxTurns,
		tracer:   otel.Tracer("brainpro-go/agent"),
		planMode: planMode,
		turns:    make(map[string]*Turn),
	}
}

// NewTurn starts tracking a fresh turn and returns the handle used to
// route cancel/resume.
func (l *Loop) NewTurn(ctx context.Context, id, sessionID string, messages []ModelMessage) *Turn {
	tctx, cancel := context.WithCancel(ctx)
	t := &Turn{ID: id, SessionID: sessionID, messages: messages, resumeCh: make(chan resumeMsg, 1), ctx: tctx, cancel: cancel}
	l.mu.Lock()
	l.turns[id] = t
	l.mu.Unlock()
	return t
}

// Turn looks up a tracked turn by ID, used to route cancel/resume
// requests arriving on a separate connection/goroutine.
func (l *Loop) Turn(id string) (*Turn, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.turns[id]
	return t, ok
}

func (l *Loop) forgetTurn(id string) {
	l.mu.Lock()
	delete(l.turns, id)
	l.mu.Unlock()
}

// Run executes run_turn, streaming events through
// emit and terminating with exactly one of {done, error}. It blocks for
// the lifetime of the turn, including any approval/input suspension —
// Resume and Cancel are called from a separate goroutine reading further
// frames off the same connection.
func (l *Loop) Run(t *Turn, emit EmitFunc) {
	defer l.forgetTurn(t.ID)
	defer t.cancel()

	ctx, span := l.tracer.Start(t.ctx, "agent.turn", trace.WithAttributes(
		attribute.String("turn.id", t.ID), attribute.String("session.id", t.SessionID),
	))
	defer span.End()

	slog.Info("agent.turn.start", "turn_id", t.ID, "session_id", t.SessionID)
	// A new turn carries the user's response to a plan left in review.
	if phase, _ := l.planMode.Snapshot(); phase == tools.PlanReview {
		l.planMode.ResetToInactive()
	}
	var usage protocol.UsageStats

	for iteration := 1; iteration <= l.maxTurns; iteration++ {
		if t.isCancelled() {
			slog.Info("agent.turn.cancelled", "turn_id", t.ID, "iteration", iteration)
			emit(protocol.NewErrorEvent(t.ID, "cancelled", "turn cancelled"))
			return
		}

		toolNames := l.advertisedToolNames()
		schemas := l.registry.Schemas(toolNames)

		resp, err := l.backend.Complete(ctx, t.messages, schemas)
		if err != nil {
			slog.Error("agent.turn.backend_error", "turn_id", t.ID, "iteration", iteration, "error", err)
			emit(protocol.NewErrorEvent(t.ID, "internal", err.Error()))
			return
		}

		if resp.Thinking != "" {
			emit(protocol.NewThinkingEvent(t.ID, resp.Thinking))
		}

		if len(resp.ToolCalls) == 0 {
			usage.InputTokens += resp.Usage.InputTokens
			usage.OutputTokens += resp.Usage.OutputTokens
			if resp.Content != "" {
				emit(protocol.NewContentEvent(t.ID, CleanAssistantText(resp.Content)))
			}
			slog.Info("agent.turn.done", "turn_id", t.ID, "iterations", iteration, "tool_uses", usage.ToolUses)
			emit(protocol.NewDoneEvent(t.ID, usage))
			return
		}

		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		usage.ToolUses += uint64(len(resp.ToolCalls))

		t.messages = append(t.messages, ModelMessage{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})

		if t.isCancelled() {
			emit(protocol.NewErrorEvent(t.ID, "cancelled", "turn cancelled"))
			return
		}

		if !l.executeToolCalls(ctx, t, resp.ToolCalls, emit) {
			// false only follows a cancellation, whose terminal error
			// event executeToolCalls has already emitted; suspensions
			// block inside it until resumed and never end up here.
			return
		}
	}

	slog.Warn("agent.turn.max_turns", "turn_id", t.ID, "max_turns", l.maxTurns)
	emit(protocol.NewErrorEvent(t.ID, "max_turns", fmt.Sprintf("exceeded max_turns=%d", l.maxTurns)))
}

// executeToolCalls runs one model iteration's tool calls, preserving call
// order for message appension and event emission while fanning
// consecutive non-suspending calls out
// concurrently via errgroup — the common case of several independent
// Read/Grep calls in one turn no longer serializes behind each other's
// I/O latency. A call that can suspend the turn (AskUserQuestion, or any
// tool requiring approval) always runs alone and blocks the loop until
// resumed, since only one suspension can be outstanding per turn.
// Returns false if a suspension or cancellation stopped execution before
// all calls completed.
func (l *Loop) executeToolCalls(ctx context.Context, t *Turn, calls []ToolCall, emit EmitFunc) bool {
	for i := 0; i < len(calls); {
		if t.isCancelled() {
			emit(protocol.NewErrorEvent(t.ID, "cancelled", "turn cancelled"))
			return false
		}
		tc := calls[i]
		if tc.Name == "AskUserQuestion" || l.requiresApproval(tc.Name) {
			if !l.executeSuspendingCall(ctx, t, tc, emit) {
				return false
			}
			i++
			continue
		}

		j := i + 1
		for j < len(calls) && calls[j].Name != "AskUserQuestion" && !l.requiresApproval(calls[j].Name) {
			j++
		}
		l.executePlainBatch(ctx, t, calls[i:j], emit)
		i = j
	}
	return true
}

// requiresApproval is the single gating decision the turn loop consults:
// a registered tool's own tools.Gated answer is authoritative, so adding
// a new gated tool only means implementing the interface. The static
// policy list (tools.RequiresApproval) is consulted only as a fallback,
// for names the registry doesn't carry a value for.
func (l *Loop) requiresApproval(name string) bool {
	if tool, ok := l.registry.Get(name); ok {
		if g, ok := tool.(tools.Gated); ok {
			return g.RequiresApproval()
		}
		return false
	}
	return tools.RequiresApproval(name)
}

// executeSuspendingCall handles one AskUserQuestion or approval-gated
// call, blocking until Resume or cancellation.
func (l *Loop) executeSuspendingCall(ctx context.Context, t *Turn, tc ToolCall, emit EmitFunc) bool {
	emit(protocol.NewToolCallEvent(t.ID, tc.Name, tc.ID, tc.Args()))

	if tc.Name == "AskUserQuestion" {
		questions := questionsOf(tc.Arguments)
		emit(protocol.NewAwaitingInputEvent(t.ID, tc.ID, questions))
		answer, ok := l.waitForInput(ctx, t, tc.ID)
		if !ok {
			emit(protocol.NewErrorEvent(t.ID, "cancelled", "turn cancelled awaiting input"))
			return false
		}
		t.messages = append(t.messages, ModelMessage{Role: "tool", Content: answer, ToolCallID: tc.ID})
		return true
	}

	emit(protocol.NewAwaitingApprovalEvent(t.ID, tc.ID, tc.Name, tc.Args()))
	allowed, ok := l.waitForApproval(ctx, t, tc.ID)
	if !ok {
		emit(protocol.NewErrorEvent(t.ID, "cancelled", "turn cancelled awaiting approval"))
		return false
	}
	if !allowed {
		result := tools.ErrorResult("permission_denied", "user denied tool execution")
		l.appendToolResult(t, emit, tc, result, 0)
		return true
	}

	start := time.Now()
	result := l.dispatch(ctx, tc.Name, tc.Arguments)
	l.appendToolResult(t, emit, tc, result, time.Since(start).Milliseconds())
	return true
}

// executePlainBatch runs a run of consecutive non-suspending tool calls
// concurrently, then emits tool_call/tool_result events and appends
// messages in the original call order so the transcript stays
// deterministic regardless of completion order.
func (l *Loop) executePlainBatch(ctx context.Context, t *Turn, calls []ToolCall, emit EmitFunc) {
	for _, tc := range calls {
		emit(protocol.NewToolCallEvent(t.ID, tc.Name, tc.ID, tc.Args()))
	}

	results := make([]*tools.Result, len(calls))
	durations := make([]int64, len(calls))

	var g errgroup.Group
	for idx, tc := range calls {
		idx, tc := idx, tc
		g.Go(func() error {
			start := time.Now()
			results[idx] = l.dispatch(ctx, tc.Name, tc.Arguments)
			durations[idx] = time.Since(start).Milliseconds()
			return nil
		})
	}
	_ = g.Wait()

	for idx, tc := range calls {
		l.appendToolResult(t, emit, tc, results[idx], durations[idx])
	}
}

func (l *Loop) appendToolResult(t *Turn, emit EmitFunc, tc ToolCall, result *tools.Result, durationMS int64) {
	sanitized := tools.SanitizeOutput(tc.Name, result.Data, l.root)
	ok := !result.IsError()
	emit(protocol.NewToolResultEvent(t.ID, tc.Name, tc.ID, sanitized, ok, durationMS))

	data, _ := json.Marshal(sanitized)
	t.messages = append(t.messages, ModelMessage{Role: "tool", Content: string(data), ToolCallID: tc.ID})
}

func (l *Loop) dispatch(ctx context.Context, name string, args map[string]any) *tools.Result {
	tool, ok := l.registry.Get(name)
	if !ok {
		slog.Error("agent.tool_call.unknown", "tool", name)
		return tools.ErrorResult("internal", "unknown tool: "+name)
	}
	ctx, span := l.tracer.Start(ctx, "agent.tool_call", trace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()
	result := tool.Execute(ctx, args)
	if result.IsError() {
		slog.Warn("agent.tool_call.error", "tool", name, "data", result.Data)
	}
	return result
}

// waitForApproval blocks the iteration at the approval suspension point
// until Resume delivers a decision or the turn is cancelled.
func (l *Loop) waitForApproval(ctx context.Context, t *Turn, toolCallID string) (allowed bool, ok bool) {
	select {
	case msg := <-t.resumeCh:
		if msg.approval != nil && msg.approval.ToolCallID == toolCallID {
			return msg.approval.Allow, true
		}
		return false, true
	case <-ctx.Done():
		return false, false
	}
}

func (l *Loop) waitForInput(ctx context.Context, t *Turn, toolCallID string) (answer string, ok bool) {
	select {
	case msg := <-t.resumeCh:
		if msg.input != nil && msg.input.ToolCallID == toolCallID {
			return msg.input.Answer, true
		}
		return "", true
	case <-ctx.Done():
		return "", false
	}
}

// advertisedToolNames applies Plan Mode filtering: while
// PlanModeState.Phase == Planning, only read-only tools are advertised
// to the model on the next iteration.
func (l *Loop) advertisedToolNames() []string {
	names := l.registry.Names()
	sort.Strings(names) // deterministic schema ordering for snapshot tests
	phase, _ := l.planMode.Snapshot()
	if phase == tools.PlanPlanning {
		return tools.FilterForPlanMode(names)
	}
	return names
}

func questionsOf(args map[string]any) []string {
	q, _ := args["question"].(string)
	if q == "" {
		return nil
	}
	return []string{q}
}

// Args renders a ToolCall's arguments for the tool_call event payload.
func (tc ToolCall) Args() map[string]any {
	return tc.Arguments
}

// NewToolCallID generates an opaque per-call correlation ID.
func NewToolCallID() string {
	return "tc_" + uuid.NewString()
}
