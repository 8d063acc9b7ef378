package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestGrepTool_FindsMatchesAndSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	mustWrite := func(rel, content string) {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("a.go", "package main\nfunc needle() {}\n")
	mustWrite("b.go", "package main\n// no match here\n")
	mustWrite(".git/hidden.go", "func needle() {}\n")
	mustWrite("node_modules/pkg/x.go", "func needle() {}\n")

	tool := NewGrepTool(root)
	res := tool.Execute(context.Background(), map[string]any{"pattern": "needle"})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Data)
	}
	matches, _ := res.Data["matches"].([]map[string]any)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match outside excluded dirs, got %d: %+v", len(matches), matches)
	}
	if matches[0]["path"] != "a.go" {
		t.Errorf("match path = %v", matches[0]["path"])
	}
	if res.Data["truncated"] != false {
		t.Errorf("truncated = %v", res.Data["truncated"])
	}
}

func TestGrepTool_InvalidRegex(t *testing.T) {
	tool := NewGrepTool(t.TempDir())
	res := tool.Execute(context.Background(), map[string]any{"pattern": "("})
	if !res.IsError() {
		t.Fatal("expected invalid_regex error")
	}
	errMap, _ := res.Data["error"].(map[string]any)
	if errMap["code"] != "invalid_regex" {
		t.Errorf("error code = %v", errMap["code"])
	}
}

func TestGrepTool_MaxResultsTruncates(t *testing.T) {
	root := t.TempDir()
	content := ""
	for i := 0; i < 10; i++ {
		content += "needle\n"
	}
	if err := os.WriteFile(filepath.Join(root, "many.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewGrepTool(root)
	res := tool.Execute(context.Background(), map[string]any{"pattern": "needle", "max_results": float64(3)})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Data)
	}
	if res.Data["matches_found"] != 3 {
		t.Errorf("matches_found = %v", res.Data["matches_found"])
	}
	if res.Data["truncated"] != true {
		t.Errorf("truncated = %v", res.Data["truncated"])
	}
}
