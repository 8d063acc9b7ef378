package tools

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// excludedDirs are skipped entirely during a Grep walk.
var excludedDirs = map[string]bool{
	".git": true, "target": true, ".yo": true, "node_modules": true,
}

// GrepTool regex-scans file contents rooted at workspace.
type GrepTool struct {
	root string
}

func NewGrepTool(root string) *GrepTool {
	return &GrepTool{root: root}
}

func (t *GrepTool) Name() string { return "Grep" }
func (t *GrepTool) Description() string {
	return "Search file contents for pattern. Skips .git, target, node_modules, .yo dirs."
}

func (t *GrepTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern":     map[string]any{"type": "string", "description": "Regex pattern to search"},
			"paths":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Paths to search (default: all)"},
			"max_results": map[string]any{"type": "integer", "description": "Max matches (default 100)"},
		},
		"required": []string{"pattern"},
	}
}

func (t *GrepTool) Execute(ctx context.Context, args map[string]any) *Result {
	pattern, _ := args["pattern"].(string)
	maxResults := intArg(args, "max_results", 100)

	re, err := regexp.Compile(pattern)
	if err != nil {
		return ErrorResult("invalid_regex", err.Error())
	}

	var searchPaths []string
	if raw, ok := args["paths"].([]any); ok {
		for _, p := range raw {
			if s, ok := p.(string); ok {
				searchPaths = append(searchPaths, s)
			}
		}
	}

	var matches []map[string]any
	truncated := false

	walkErr := filepath.WalkDir(t.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if truncated {
			return nil
		}

		rel, relErr := filepath.Rel(t.root, path)
		if relErr != nil {
			rel = path
		}

		if len(searchPaths) > 0 {
			matched := false
			for _, p := range searchPaths {
				if strings.HasPrefix(rel, p) {
					matched = true
					break
				}
			}
			if !matched {
				return nil
			}
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		for lineNum, line := range strings.Split(string(content), "\n") {
			if truncated {
				break
			}
			loc := re.FindStringIndex(line)
			if loc == nil {
				continue
			}
			if len(matches) >= maxResults {
				truncated = true
				break
			}
			snippet := line
			if r := []rune(snippet); len(r) > 200 {
				snippet = string(r[:200])
			}
			matches = append(matches, map[string]any{
				"path":    rel,
				"line":    lineNum + 1,
				"col":     loc[0] + 1,
				"snippet": snippet,
			})
		}
		return nil
	})
	_ = walkErr

	return OK(map[string]any{
		"matches":       matches,
		"matches_found": len(matches),
		"truncated":     truncated,
	})
}
