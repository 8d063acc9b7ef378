package tools

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"os"
	"strings"
)

// ReadTool reads file content rooted at workspace.
type ReadTool struct {
	root string
}

func NewReadTool(root string) *ReadTool {
	return &ReadTool{root: root}
}

func (t *ReadTool) Name() string        { return "Read" }
func (t *ReadTool) Description() string { return "Read file content. Paths relative to project root." }

func (t *ReadTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":      map[string]any{"type": "string", "description": "File path relative to root"},
			"max_bytes": map[string]any{"type": "integer", "description": "Max bytes to read (default 65536)"},
			"offset":    map[string]any{"type": "integer", "description": "Byte offset to start from (default 0)"},
		},
		"required": []string{"path"},
	}
}

func (t *ReadTool) Execute(ctx context.Context, args map[string]any) *Result {
	path, _ := args["path"].(string)
	maxBytes := intArg(args, "max_bytes", 65536)
	offset := intArg(args, "offset", 0)

	fullPath, errResult := validatePath(path, t.root)
	if errResult != nil {
		return errResult
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return ErrorResult("read_error", err.Error())
	}

	if offset > len(data) {
		offset = len(data)
	}
	end := offset + maxBytes
	if end > len(data) {
		end = len(data)
	}
	slice := data[offset:end]
	truncated := end < len(data)

	sum := sha256.Sum256(data)

	result := map[string]any{
		"path":      path,
		"offset":    offset,
		"truncated": truncated,
		"sha256":    hex.EncodeToString(sum[:]),
	}

	if strings.ToValidUTF8(string(slice), "�") == string(slice) {
		content := string(slice)
		result["content"] = content
		result["lines"] = strings.Count(content, "\n") + boolToInt(len(content) > 0 && !strings.HasSuffix(content, "\n"))
	} else {
		result["content"] = base64.StdEncoding.EncodeToString(slice)
		result["encoding"] = "base64"
		result["lines"] = 0
	}

	return OK(result)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return def
	}
}
