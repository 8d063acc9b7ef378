package tools

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestResolvePath_AllowsPathWithinRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	resolved, err := resolvePath("a.txt", root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	realRoot, _ := filepath.EvalSymlinks(root)
	if filepath.Dir(resolved) != realRoot {
		t.Errorf("expected resolved path under %q, got %q", realRoot, resolved)
	}
}

func TestResolvePath_RejectsDotDotEscape(t *testing.T) {
	root := t.TempDir()
	if _, err := resolvePath("../../etc/passwd", root); err == nil {
		t.Fatal("expected an error escaping root via ..")
	}
}

func TestResolvePath_RejectsAbsolutePathOutsideRoot(t *testing.T) {
	root := t.TempDir()
	if _, err := resolvePath("/etc/passwd", root); err == nil {
		t.Fatal("expected an error for an absolute path outside root")
	}
}

func TestResolvePath_AllowsNonExistentFileWithinRoot(t *testing.T) {
	root := t.TempDir()
	resolved, err := resolvePath("new-file.txt", root)
	if err != nil {
		t.Fatalf("unexpected error for a not-yet-created file: %v", err)
	}
	if filepath.Base(resolved) != "new-file.txt" {
		t.Errorf("expected resolved basename to match, got %q", resolved)
	}
}

func TestResolvePath_RejectsSymlinkEscapingRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(target, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "escape")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}
	if _, err := resolvePath("escape", root); err == nil {
		t.Fatal("expected a symlink pointing outside root to be rejected")
	}
}

func TestResolvePath_AllowsSymlinkWithinRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
	root := t.TempDir()
	target := filepath.Join(root, "real.txt")
	if err := os.WriteFile(target, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "alias")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}
	if _, err := resolvePath("alias", root); err != nil {
		t.Errorf("expected a symlink staying within root to be allowed, got %v", err)
	}
}

func TestValidatePath_WrapsEscapeAsToolError(t *testing.T) {
	root := t.TempDir()
	_, res := validatePath("../outside", root)
	if res == nil || !res.IsError() {
		t.Fatal("expected validatePath to return a path_escape tool error")
	}
}

func TestValidatePath_NilResultOnSuccess(t *testing.T) {
	root := t.TempDir()
	_, res := validatePath("file.txt", root)
	if res != nil {
		t.Errorf("expected a nil error result for a valid path, got %+v", res.Data)
	}
}
