package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

// WriteTool creates or overwrites a file rooted at workspace. Gated: its
// RequiresApproval implements tools.Gated, which the turn loop consults
// directly.
type WriteTool struct {
	root string
}

func NewWriteTool(root string) *WriteTool {
	return &WriteTool{root: root}
}

func (t *WriteTool) Name() string        { return "Write" }
func (t *WriteTool) Description() string { return "Create or overwrite a file. Requires permission." }
func (t *WriteTool) RequiresApproval() bool { return true }

func (t *WriteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":      map[string]any{"type": "string", "description": "File path relative to root"},
			"content":   map[string]any{"type": "string", "description": "Content to write"},
			"overwrite": map[string]any{"type": "boolean", "description": "Allow overwrite (default true)"},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteTool) Execute(ctx context.Context, args map[string]any) *Result {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	overwrite := true
	if v, ok := args["overwrite"].(bool); ok {
		overwrite = v
	}

	fullPath, errResult := validatePath(path, t.root)
	if errResult != nil {
		return errResult
	}

	if _, err := os.Stat(fullPath); err == nil && !overwrite {
		return ErrorResult("file_exists", "File exists and overwrite=false")
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return ErrorResult("write_error", err.Error())
	}

	bytes := []byte(content)
	if err := os.WriteFile(fullPath, bytes, 0o644); err != nil {
		return ErrorResult("write_error", err.Error())
	}

	linesWritten := strings.Count(content, "\n") + boolToInt(len(content) > 0 && !strings.HasSuffix(content, "\n"))
	sum := sha256.Sum256(bytes)

	return OK(map[string]any{
		"path":          path,
		"bytes_written": len(bytes),
		"lines":         linesWritten,
		"sha256":        hex.EncodeToString(sum[:]),
	})
}
