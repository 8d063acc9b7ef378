package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteTool_CreatesFileAndParents(t *testing.T) {
	root := t.TempDir()
	tool := NewWriteTool(root)

	res := tool.Execute(context.Background(), map[string]any{
		"path": "nested/dir/file.txt", "content": "hello\n",
	})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Data)
	}
	data, err := os.ReadFile(filepath.Join(root, "nested/dir/file.txt"))
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(data) != "hello\n" {
		t.Errorf("content = %q", data)
	}
	if res.Data["bytes_written"] != 6 {
		t.Errorf("bytes_written = %v", res.Data["bytes_written"])
	}
}

func TestWriteTool_RefusesOverwriteFalse(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "exists.txt")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewWriteTool(root)
	res := tool.Execute(context.Background(), map[string]any{
		"path": "exists.txt", "content": "new", "overwrite": false,
	})
	if !res.IsError() {
		t.Fatal("expected file_exists error")
	}
	errMap, _ := res.Data["error"].(map[string]any)
	if errMap["code"] != "file_exists" {
		t.Errorf("error code = %v", errMap["code"])
	}

	data, _ := os.ReadFile(path)
	if string(data) != "old" {
		t.Errorf("file should be unchanged, got %q", data)
	}
}

func TestWriteTool_PathEscape(t *testing.T) {
	root := t.TempDir()
	tool := NewWriteTool(root)
	res := tool.Execute(context.Background(), map[string]any{
		"path": "../outside.txt", "content": "x",
	})
	if !res.IsError() {
		t.Fatal("expected path_escape error")
	}
}
