package tools

import (
	"context"
	"sync"
)

// PlanPhase is the session's plan-mode phase.
type PlanPhase string

const (
	PlanInactive PlanPhase = "inactive"
	PlanPlanning PlanPhase = "planning"
	PlanReview   PlanPhase = "review"
)

// PlanModeState tracks the Inactive -> Planning -> Review -> Inactive
// cycle. Lives for the session.
type PlanModeState struct {
	mu    sync.Mutex
	Phase PlanPhase
	Goal  string
}

func NewPlanModeState() *PlanModeState {
	return &PlanModeState{Phase: PlanInactive}
}

func (s *PlanModeState) Snapshot() (PlanPhase, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Phase, s.Goal
}

// EnterPlanModeTool moves the session into Planning, restricting the next
// iteration's advertised tools to read-only ones (policy.FilterForPlanMode).
type EnterPlanModeTool struct {
	state *PlanModeState
}

func NewEnterPlanModeTool(state *PlanModeState) *EnterPlanModeTool {
	return &EnterPlanModeTool{state: state}
}

func (t *EnterPlanModeTool) Name() string { return "EnterPlanMode" }
func (t *EnterPlanModeTool) Description() string {
	return "Enter planning mode to design an implementation approach before writing code."
}
func (t *EnterPlanModeTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{
		"goal": map[string]any{"type": "string", "description": "What you are planning"},
	}}
}

func (t *EnterPlanModeTool) Execute(ctx context.Context, args map[string]any) *Result {
	goal, _ := args["goal"].(string)
	if goal == "" {
		goal = "Implementation planning"
	}

	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	if t.state.Phase != PlanInactive {
		return ErrorResult("already_in_plan_mode", "Already in plan mode")
	}
	t.state.Phase = PlanPlanning
	t.state.Goal = goal

	return OK(map[string]any{
		"ok":      true,
		"message": "Entered planning mode. You now have access to read-only tools. Call ExitPlanMode when ready.",
	})
}

// ExitPlanModeTool signals the plan is ready for user review.
type ExitPlanModeTool struct {
	state *PlanModeState
}

func NewExitPlanModeTool(state *PlanModeState) *ExitPlanModeTool {
	return &ExitPlanModeTool{state: state}
}

func (t *ExitPlanModeTool) Name() string { return "ExitPlanMode" }
func (t *ExitPlanModeTool) Description() string {
	return "Signal that planning is complete and you're ready for the user to approve the plan."
}
func (t *ExitPlanModeTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (t *ExitPlanModeTool) Execute(ctx context.Context, args map[string]any) *Result {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	if t.state.Phase == PlanInactive {
		return ErrorResult("not_in_plan_mode", "Not in plan mode")
	}
	t.state.Phase = PlanReview

	return OK(map[string]any{
		"ok":      true,
		"message": "Exited planning mode. Plan is ready for user review.",
	})
}

// ResetToInactive is called by the turn loop at the start of the next
// turn after a plan reached Review (that turn carries the user's
// response), completing the Inactive->Planning->Review->Inactive cycle.
func (s *PlanModeState) ResetToInactive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Phase = PlanInactive
	s.Goal = ""
}
