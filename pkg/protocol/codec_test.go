package protocol

import (
	"bytes"
	"strings"
	"testing"
)

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	req := NewRunTurn("turn_1", "sess_1", []ChatMessage{{Role: "user", Content: "hi"}}, "", "/work", nil)
	data, err := Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got AgentRequest
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != req.ID || got.Method != req.Method || got.SessionID != req.SessionID {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, req)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hi" {
		t.Errorf("expected message content to survive the round trip, got %+v", got.Messages)
	}
}

func TestWriteNDJSON_WritesOneTerminatedLine(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteNDJSON(&buf, NewPing("req_1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("expected a trailing newline, got %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", out)
	}
}

func TestWriteNDJSON_MultipleFramesAreNewlineDelimited(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteNDJSON(&buf, NewPing("req_1")); err != nil {
		t.Fatal(err)
	}
	if err := WriteNDJSON(&buf, NewCancel("req_2", "sess_1")); err != nil {
		t.Fatal(err)
	}

	scanner := NDJSONScanner(&buf)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 NDJSON lines, got %d: %v", len(lines), lines)
	}

	var first AgentRequest
	if err := Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first line: %v", err)
	}
	if first.Method != AgentMethodPing {
		t.Errorf("expected first line to be a ping, got %+v", first)
	}

	var second AgentRequest
	if err := Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal second line: %v", err)
	}
	if second.Method != AgentMethodCancel || second.SessionID != "sess_1" {
		t.Errorf("expected second line to be a cancel for sess_1, got %+v", second)
	}
}

func TestNewRunTurn_ResumeHelpersSetExactlyOneDiscriminant(t *testing.T) {
	approval := NewResumeApproval("req_1", "sess_1", "tc_1", true)
	if approval.Allow == nil || !*approval.Allow {
		t.Fatalf("expected Allow=true, got %+v", approval)
	}
	if approval.Answer != "" {
		t.Errorf("expected Answer to be empty for an approval resume, got %q", approval.Answer)
	}

	answer := NewResumeAnswer("req_2", "sess_1", "tc_2", "blue")
	if answer.Allow != nil {
		t.Errorf("expected Allow to be nil for an answer resume, got %+v", answer.Allow)
	}
	if answer.Answer != "blue" {
		t.Errorf("expected Answer to be preserved, got %q", answer.Answer)
	}
}

func TestAgentEvent_IsTerminal(t *testing.T) {
	cases := []struct {
		event AgentEvent
		want  bool
	}{
		{NewDoneEvent("id", UsageStats{}), true},
		{NewErrorEvent("id", "mcp_error", "boom"), true},
		{NewThinkingEvent("id", "..."), false},
		{NewContentEvent("id", "hello"), false},
		{NewPongEvent("id"), false},
	}
	for _, tc := range cases {
		if got := tc.event.IsTerminal(); got != tc.want {
			t.Errorf("event type %q: IsTerminal() = %v, want %v", tc.event.Type, got, tc.want)
		}
	}
}

func TestNewHello_DefaultsProtocolVersion(t *testing.T) {
	hello := NewHello(RoleOperator, "device-1", ClientCapabilities{})
	if hello.Caps.ProtocolVersion != ProtocolVersion {
		t.Errorf("expected default protocol version %d, got %d", ProtocolVersion, hello.Caps.ProtocolVersion)
	}
}

func TestNewHello_PreservesExplicitProtocolVersion(t *testing.T) {
	hello := NewHello(RoleNode, "device-1", ClientCapabilities{ProtocolVersion: 7})
	if hello.Caps.ProtocolVersion != 7 {
		t.Errorf("expected explicit protocol version to be preserved, got %d", hello.Caps.ProtocolVersion)
	}
}
