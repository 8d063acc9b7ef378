package tools

import (
	"context"
	"sync"
)

// TodoStatus is the status of one todo item.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// Todo is one entry of the todo list.
type Todo struct {
	Content    string     `json:"content"`
	ActiveForm string     `json:"activeForm"`
	Status     TodoStatus `json:"status"`
}

// TodoState holds the session's todo list. Lives for the session,
// accessed only from the owning Agent task (no locking needed in
// principle, but a mutex keeps it safe if a future caller spans
// goroutines rather than relying on single-goroutine discipline alone).
type TodoState struct {
	mu    sync.Mutex
	Todos []Todo
}

func NewTodoState() *TodoState {
	return &TodoState{}
}

func (s *TodoState) Snapshot() []Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Todo, len(s.Todos))
	copy(out, s.Todos)
	return out
}

func (s *TodoState) counts() (pending, inProgress, completed int) {
	for _, t := range s.Todos {
		switch t.Status {
		case TodoPending:
			pending++
		case TodoInProgress:
			inProgress++
		case TodoCompleted:
			completed++
		}
	}
	return
}

// TodoWriteTool updates the entire todo list in one call.
type TodoWriteTool struct {
	state *TodoState
}

func NewTodoWriteTool(state *TodoState) *TodoWriteTool {
	return &TodoWriteTool{state: state}
}

func (t *TodoWriteTool) Name() string { return "TodoWrite" }
func (t *TodoWriteTool) Description() string {
	return "Create and manage a structured task list. Mark tasks in_progress before starting, completed when done."
}

func (t *TodoWriteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"todos": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"content":    map[string]any{"type": "string"},
						"activeForm": map[string]any{"type": "string"},
						"status":     map[string]any{"type": "string", "enum": []string{"pending", "in_progress", "completed"}},
					},
					"required": []string{"content", "activeForm", "status"},
				},
			},
		},
		"required": []string{"todos"},
	}
}

func (t *TodoWriteTool) Execute(ctx context.Context, args map[string]any) *Result {
	raw, ok := args["todos"]
	if !ok {
		return ErrorResult("missing_todos", "Missing required 'todos' parameter")
	}
	items, ok := raw.([]any)
	if !ok {
		return ErrorResult("invalid_todos", "todos must be an array")
	}

	todos := make([]Todo, 0, len(items))
	inProgressCount := 0
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return ErrorResult("invalid_todos", "each todo must be an object")
		}
		content, _ := m["content"].(string)
		activeForm, _ := m["activeForm"].(string)
		statusStr, _ := m["status"].(string)
		status := TodoStatus(statusStr)
		switch status {
		case TodoPending, TodoInProgress, TodoCompleted:
		default:
			return ErrorResult("invalid_todos", "invalid status: "+statusStr)
		}
		if status == TodoInProgress {
			inProgressCount++
		}
		todos = append(todos, Todo{Content: content, ActiveForm: activeForm, Status: status})
	}

	if inProgressCount > 1 {
		return ErrorResult("multiple_in_progress", "Only one task can be in_progress at a time")
	}

	t.state.mu.Lock()
	t.state.Todos = todos
	pending, inProgress, completed := t.state.counts()
	t.state.mu.Unlock()

	return OK(map[string]any{
		"ok":          true,
		"pending":     pending,
		"in_progress": inProgress,
		"completed":   completed,
	})
}
