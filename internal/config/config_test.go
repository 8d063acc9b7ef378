package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileYieldsEmptyTable(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json5"))
	if err != nil {
		t.Fatalf("unexpected error for a missing file: %v", err)
	}
	if len(cfg.Servers()) != 0 {
		t.Errorf("expected an empty server table, got %+v", cfg.Servers())
	}
}

func TestLoad_EmptyPathYieldsEmptyTable(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error for an empty path: %v", err)
	}
	if len(cfg.Servers()) != 0 {
		t.Errorf("expected an empty server table, got %+v", cfg.Servers())
	}
}

func TestLoad_ParsesJSON5AndAppliesNameAndTimeoutDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.json5")
	// JSON5 permits trailing commas and unquoted keys, unlike strict JSON.
	content := `{
		mcp_servers: {
			search: {
				command: "mcp-search",
				args: ["--stdio"],
				transport: "stdio",
				enabled: true,
			},
			remote: {
				transport: "http",
				url: "https://example.test/mcp",
				timeout_ms: 5000,
				enabled: false,
			},
		},
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	servers := cfg.Servers()
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %d: %+v", len(servers), servers)
	}

	search, ok := servers["search"]
	if !ok {
		t.Fatal("expected a \"search\" server entry")
	}
	if search.Name != "search" {
		t.Errorf("expected Name to be populated from the map key, got %q", search.Name)
	}
	if search.TimeoutMS != 60_000 {
		t.Errorf("expected default timeout_ms of 60000, got %d", search.TimeoutMS)
	}

	remote, ok := servers["remote"]
	if !ok {
		t.Fatal("expected a \"remote\" server entry")
	}
	if remote.TimeoutMS != 5000 {
		t.Errorf("expected explicit timeout_ms of 5000 to be preserved, got %d", remote.TimeoutMS)
	}
}

func TestLoad_RejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json5")
	if err := os.WriteFile(path, []byte("{ not valid json5 at all !!!"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error parsing malformed config content")
	}
}

func TestConfig_ReplaceSwapsServerTable(t *testing.T) {
	cfg := &Config{MCPServers: map[string]MCPServerConfig{"a": {Name: "a"}}}
	cfg.Replace(map[string]MCPServerConfig{"b": {Name: "b"}})

	servers := cfg.Servers()
	if _, ok := servers["a"]; ok {
		t.Error("expected the old entry to be replaced")
	}
	if _, ok := servers["b"]; !ok {
		t.Error("expected the new entry to be present")
	}
}

func TestConfig_ServersReturnsASnapshotNotALiveView(t *testing.T) {
	cfg := &Config{MCPServers: map[string]MCPServerConfig{"a": {Name: "a"}}}
	snapshot := cfg.Servers()
	snapshot["a"] = MCPServerConfig{Name: "mutated"}

	if cfg.MCPServers["a"].Name != "a" {
		t.Error("mutating the snapshot should not affect the Config's internal table")
	}
}
