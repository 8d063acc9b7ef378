package gateway

import (
	"encoding/json"
	"testing"

	"github.com/jgarzik/brainpro-go/pkg/protocol"
)

// newTestClient builds a Client with no live websocket connection,
// suitable for handlers that only ever touch c.send (which enqueues to
// c.outbox) rather than c.conn directly.
func newTestClient(server *Server, deviceID string) *Client {
	c := newClient(nil, server)
	c.deviceID = deviceID
	return c
}

func drainResponse(t *testing.T, c *Client) protocol.ResponseFrame {
	t.Helper()
	select {
	case data := <-c.outbox:
		var res protocol.ResponseFrame
		if err := protocol.Unmarshal(data, &res); err != nil {
			t.Fatalf("failed to decode response frame: %v", err)
		}
		return res
	default:
		t.Fatal("expected a queued response, outbox was empty")
		return protocol.ResponseFrame{}
	}
}

func TestHandleSessionCreate_DefaultsModeAndMaxTurns(t *testing.T) {
	server := NewServer("", nil, 0)
	c := newTestClient(server, "device-1")

	handleSessionCreate(c, "req-1", json.RawMessage(`{}`))

	res := drainResponse(t, c)
	if !res.OK {
		t.Fatalf("expected ok response, got %+v", res)
	}
	payload, ok := res.Payload.(map[string]any)
	if !ok {
		t.Fatalf("unexpected payload shape: %+v", res.Payload)
	}
	policy, _ := payload["policy"].(map[string]any)
	if policy["mode"] != "default" {
		t.Errorf("expected default mode %q, got %+v", "default", policy["mode"])
	}
	// Numbers decode as float64 after the JSON round trip in drainResponse.
	if policy["max_turns"] != float64(50) {
		t.Errorf("expected default max_turns 50, got %+v", policy["max_turns"])
	}
}

func TestHandleSessionGet_UnknownSessionErrors(t *testing.T) {
	server := NewServer("", nil, 0)
	c := newTestClient(server, "device-1")

	handleSessionGet(c, "req-1", json.RawMessage(`{"session_id":"sess_nope"}`))

	res := drainResponse(t, c)
	if res.OK || res.Error == nil || res.Error.Code != protocol.ErrUnknownSession {
		t.Errorf("expected unknown_session error, got %+v", res)
	}
}

func TestHandleSessionGet_RejectsSessionOwnedByAnotherDevice(t *testing.T) {
	server := NewServer("", nil, 0)
	sess := server.sessions.Create("device-owner", "default", 50)
	c := newTestClient(server, "device-other")

	handleSessionGet(c, "req-1", json.RawMessage(`{"session_id":"`+sess.ID+`"}`))

	res := drainResponse(t, c)
	if res.OK {
		t.Error("expected a foreign device to be rejected reading another device's session")
	}
}

func TestHandleSessionList_ScopedToDevice(t *testing.T) {
	server := NewServer("", nil, 0)
	c := newTestClient(server, "device-1")

	handleSessionCreate(c, "req-1", json.RawMessage(`{}`))
	drainResponse(t, c)

	handleSessionList(c, "req-2", nil)
	res := drainResponse(t, c)
	payload, ok := res.Payload.(map[string]any)
	if !ok {
		t.Fatalf("unexpected payload shape: %+v", res.Payload)
	}
	// Payload round-trips through JSON in drainResponse, so arrays decode
	// as []interface{} rather than the handler's original []string.
	sessions, _ := payload["sessions"].([]any)
	if len(sessions) != 1 {
		t.Errorf("expected 1 session listed, got %+v", payload["sessions"])
	}
}

func TestHandleToolApprove_UnknownToolCallIDErrors(t *testing.T) {
	server := NewServer("", nil, 0)
	c := newTestClient(server, "device-1")

	handleToolApprove(c, "req-1", json.RawMessage(`{"tool_call_id":"tc_nope","allow":true}`))

	res := drainResponse(t, c)
	if res.OK {
		t.Error("expected an error for an unknown tool_call_id")
	}
}

func TestHandleTurnResume_RejectsWhenNoTurnAwaitingInput(t *testing.T) {
	server := NewServer("", nil, 0)
	sess := server.sessions.Create("device-1", "default", 50)
	c := newTestClient(server, "device-1")

	handleTurnResume(c, "req-1", json.RawMessage(`{"session_id":"`+sess.ID+`","answer":"yes"}`))

	res := drainResponse(t, c)
	if res.OK {
		t.Error("expected an error when no turn is awaiting input")
	}
}

func TestHandleCronAddListRemove_RoundTrip(t *testing.T) {
	server := NewServer("", nil, 0)
	c := newTestClient(server, "device-1")

	handleCronAdd(c, "req-1", json.RawMessage(`{"schedule":"* * * * *","session_id":"sess_1","text":"ping"}`))
	addRes := drainResponse(t, c)
	payload, ok := addRes.Payload.(map[string]any)
	if !ok {
		t.Fatalf("unexpected payload shape: %+v", addRes.Payload)
	}
	jobID, _ := payload["job_id"].(string)
	if jobID == "" {
		t.Fatal("expected a non-empty job_id")
	}

	handleCronList(c, "req-2", nil)
	listRes := drainResponse(t, c)
	listPayload := listRes.Payload.(map[string]any)
	// Payload round-trips through JSON in drainResponse, so the handler's
	// []cronJob decodes as []interface{} of map[string]interface{}.
	jobs, _ := listPayload["jobs"].([]any)
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job listed, got %+v", listPayload["jobs"])
	}
	job := jobs[0].(map[string]any)
	if job["id"] != jobID {
		t.Errorf("expected listed job id %q, got %+v", jobID, job)
	}

	handleCronRemove(c, "req-3", json.RawMessage(`{"job_id":"`+jobID+`"}`))
	drainResponse(t, c)

	handleCronList(c, "req-4", nil)
	finalRes := drainResponse(t, c)
	finalPayload := finalRes.Payload.(map[string]any)
	if jobs, _ := finalPayload["jobs"].([]any); len(jobs) != 0 {
		t.Errorf("expected no jobs after remove, got %+v", jobs)
	}
}

func TestHandleDevicePair_EchoesDeviceID(t *testing.T) {
	server := NewServer("", nil, 0)
	c := newTestClient(server, "device-1")

	handleDevicePair(c, "req-1", nil)

	res := drainResponse(t, c)
	payload := res.Payload.(map[string]any)
	if payload["device_id"] != "device-1" || payload["paired"] != true {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestHandleHealthStatus_ReportsAgentConnectivity(t *testing.T) {
	server := NewServer("", nil, 0)
	c := newTestClient(server, "device-1")

	handleHealthStatus(c, "req-1", nil)

	res := drainResponse(t, c)
	payload := res.Payload.(map[string]any)
	if payload["agent_connected"] != false {
		t.Errorf("expected agent_connected=false with a nil AgentClient, got %+v", payload)
	}
}
