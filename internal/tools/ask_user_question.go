package tools

import "context"

// AskUserQuestionTool maps to an awaiting_input suspension rather than
// completing on its own. Its execution is intercepted by the turn loop
// before normal tool dispatch — Execute here only validates shape, since
// the actual suspend/resume behavior is a loop-level concern, not a
// tool-level one.
type AskUserQuestionTool struct{}

func NewAskUserQuestionTool() *AskUserQuestionTool {
	return &AskUserQuestionTool{}
}

func (t *AskUserQuestionTool) Name() string { return "AskUserQuestion" }
func (t *AskUserQuestionTool) Description() string {
	return "Ask the user a clarifying question and suspend the turn until they answer."
}

func (t *AskUserQuestionTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{"type": "string"},
			"options":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"question"},
	}
}

// Execute is never reached in normal operation — the turn loop detects
// this tool name before dispatch and emits awaiting_input instead. It
// exists so the registry has a schema to advertise and so a direct call
// (e.g. from a test) fails predictably rather than panicking on a nil
// lookup.
func (t *AskUserQuestionTool) Execute(ctx context.Context, args map[string]any) *Result {
	return ErrorResult("internal", "AskUserQuestion must be intercepted by the turn loop")
}
