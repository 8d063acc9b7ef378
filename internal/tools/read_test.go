package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestReadTool_Basic(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "hello.txt"), []byte("line one\nline two\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewReadTool(root)
	res := tool.Execute(context.Background(), map[string]any{"path": "hello.txt"})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Data)
	}
	if res.Data["content"] != "line one\nline two\n" {
		t.Errorf("content = %q", res.Data["content"])
	}
	if res.Data["lines"] != 2 {
		t.Errorf("lines = %v", res.Data["lines"])
	}
	if res.Data["truncated"] != false {
		t.Errorf("truncated = %v", res.Data["truncated"])
	}
}

func TestReadTool_NonUTF8IsBase64(t *testing.T) {
	root := t.TempDir()
	binary := []byte{0xff, 0xfe, 0x00, 0x01, 0x02}
	if err := os.WriteFile(filepath.Join(root, "bin.dat"), binary, 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewReadTool(root)
	res := tool.Execute(context.Background(), map[string]any{"path": "bin.dat"})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Data)
	}
	if res.Data["encoding"] != "base64" {
		t.Errorf("encoding = %v", res.Data["encoding"])
	}
	if res.Data["lines"] != 0 {
		t.Errorf("lines = %v", res.Data["lines"])
	}
}

func TestReadTool_PathEscape(t *testing.T) {
	root := t.TempDir()
	tool := NewReadTool(root)
	res := tool.Execute(context.Background(), map[string]any{"path": "../../etc/passwd"})
	if !res.IsError() {
		t.Fatal("expected path_escape error")
	}
	errMap, _ := res.Data["error"].(map[string]any)
	if errMap["code"] != "path_escape" {
		t.Errorf("error code = %v", errMap["code"])
	}
}

func TestReadTool_OffsetAndMaxBytes(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewReadTool(root)
	res := tool.Execute(context.Background(), map[string]any{"path": "f.txt", "offset": float64(2), "max_bytes": float64(3)})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Data)
	}
	if res.Data["content"] != "234" {
		t.Errorf("content = %q", res.Data["content"])
	}
	if res.Data["truncated"] != true {
		t.Errorf("truncated = %v", res.Data["truncated"])
	}
}
