// Package authfile reads opencode's OAuth credential cache as a
// read-only fallback credential source: same file path, same field
// shapes, same is-expired semantics. Nothing in this module uses the
// loaded token to call an LLM backend — that collaborator lives outside
// this module — this package exists only so the fallback contract is
// present and testable.
package authfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// OAuthEntry is one provider's cached OAuth credential.
type OAuthEntry struct {
	Type    string `json:"type,omitempty"`
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
	// Expires is milliseconds since epoch, matching opencode's format.
	Expires int64 `json:"expires,omitempty"`
}

// IsExpired reports whether Expires is set and in the past. An entry
// with no Expires is treated as never expiring.
func (e OAuthEntry) IsExpired() bool {
	if e.Expires == 0 {
		return false
	}
	return time.Now().UnixMilli() >= e.Expires
}

// AuthFile is the top-level opencode auth.json document. Only the
// anthropic entry is consumed here.
type AuthFile struct {
	Anthropic *OAuthEntry `json:"anthropic,omitempty"`
}

// DefaultPath returns ~/.local/share/opencode/auth.json, or "" if the
// home directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "opencode", "auth.json")
}

// Load reads and parses the auth file at path. A missing file is not an
// error — callers treat a nil result as "no fallback credential
// available" and continue down their own lookup chain.
func Load(path string) (*AuthFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var af AuthFile
	if err := json.Unmarshal(data, &af); err != nil {
		return nil, err
	}
	return &af, nil
}

// LoadAnthropicToken loads DefaultPath() and returns the anthropic entry,
// or nil if the file is absent, unparseable, or carries no anthropic
// entry — every failure mode collapses to nil rather than surfacing an
// error.
func LoadAnthropicToken() *OAuthEntry {
	path := DefaultPath()
	if path == "" {
		return nil
	}
	af, err := Load(path)
	if err != nil || af == nil {
		return nil
	}
	return af.Anthropic
}
