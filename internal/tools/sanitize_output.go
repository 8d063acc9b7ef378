package tools

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Sanitizer bounds: max serialized size, max line count, max array
// length, and the suffix appended to anything truncated.
const (
	MaxOutputBytes     = 50_000
	MaxOutputLines     = 2_000
	MaxOutputArrayItem = 2_000
	truncationSuffix   = "\n... [truncated]"
)

// SanitizeOutput applies the six-step truncation algorithm to a
// tool result value, spilling the full form to disk under
// <root>/.brainpro/tool_output/ when it exceeds bounds. Deterministic
// except for the spill file's UUID.
func SanitizeOutput(toolName string, value map[string]any, root string) map[string]any {
	fullJSON, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return value
	}

	fullBytes := len(fullJSON)
	fullLines := countLines(fullJSON)
	if fullBytes <= MaxOutputBytes && fullLines <= MaxOutputLines {
		return value
	}

	filePath := writeFullOutput(toolName, root, fullJSON)

	truncatedValue := cloneMap(value)
	truncatedAny := truncateValue(truncatedValue)

	info := buildTruncationInfo(filePath, fullBytes, fullLines, truncatedValue)
	truncatedValue["output_truncated"] = true
	truncatedValue["output_truncation"] = info

	truncatedJSON, err := json.MarshalIndent(truncatedValue, "", "  ")
	if err != nil {
		return truncatedFallback(toolName, filePath, fullJSON)
	}
	if len(truncatedJSON) > MaxOutputBytes || countLines(truncatedJSON) > MaxOutputLines {
		return truncatedFallback(toolName, filePath, fullJSON)
	}

	if truncatedAny {
		return truncatedValue
	}
	return value
}

func writeFullOutput(toolName, root string, content []byte) string {
	dir := filepath.Join(root, ".brainpro", "tool_output")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	fileName := strings.ToLower(toolName) + "_" + uuid.NewString() + ".json"
	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return ""
	}
	return path
}

func buildTruncationInfo(filePath string, fullBytes, fullLines int, preview map[string]any) map[string]any {
	previewJSON, _ := json.Marshal(preview)
	return map[string]any{
		"file":          filePath,
		"bytes":         fullBytes,
		"lines":         fullLines,
		"preview_bytes": len(previewJSON),
		"preview_lines": countLines(previewJSON),
	}
}

func truncatedFallback(toolName, filePath string, fullJSON []byte) map[string]any {
	preview, _ := truncateText(string(fullJSON), MaxOutputBytes, MaxOutputLines)
	return map[string]any{
		"output_truncated": true,
		"output_truncation": map[string]any{
			"file":          filePath,
			"bytes":         len(fullJSON),
			"lines":         countLines(fullJSON),
			"preview_bytes": len(preview),
			"preview_lines": countLines([]byte(preview)),
		},
		"preview": preview,
	}
}

// truncateValue mutates value in place, recursing into nested
// maps/slices, and reports whether anything was actually truncated.
func truncateValue(value map[string]any) bool {
	truncatedAny := false
	for k, v := range value {
		value[k] = truncateAny(v, &truncatedAny)
	}
	return truncatedAny
}

func truncateAny(v any, truncatedAny *bool) any {
	switch val := v.(type) {
	case string:
		out, did := truncateText(val, MaxOutputBytes, MaxOutputLines)
		if did {
			*truncatedAny = true
		}
		return out
	case []any:
		items := val
		if len(items) > MaxOutputArrayItem {
			items = items[:MaxOutputArrayItem]
			*truncatedAny = true
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = truncateAny(item, truncatedAny)
		}
		return out
	case map[string]any:
		for k, inner := range val {
			val[k] = truncateAny(inner, truncatedAny)
		}
		return val
	default:
		return v
	}
}

func truncateText(text string, maxBytes, maxLines int) (string, bool) {
	truncated := false
	lineCount := 1
	endIdx := len(text)

	runes := []rune(text)
	byteIdx := 0
	for _, ch := range runes {
		chLen := len(string(ch))
		bytesSoFar := byteIdx + chLen
		if ch == '\n' {
			lineCount++
		}
		if bytesSoFar > maxBytes || lineCount > maxLines {
			truncated = true
			endIdx = byteIdx
			break
		}
		byteIdx = bytesSoFar
	}

	if !truncated {
		return text, false
	}

	out := text[:endIdx]
	if len(out)+len(truncationSuffix) > maxBytes {
		allowed := maxBytes - len(truncationSuffix)
		if allowed < 0 {
			allowed = 0
		}
		if allowed < len(out) {
			out = out[:allowed]
		}
	}
	out += truncationSuffix
	return out, true
}

func countLines(text []byte) int {
	if len(text) == 0 {
		return 0
	}
	n := 1
	for _, b := range text {
		if b == '\n' {
			n++
		}
	}
	return n
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
