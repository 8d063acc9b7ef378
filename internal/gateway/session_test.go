package gateway

import "testing"

func TestSessionStore_CreateGetRemove(t *testing.T) {
	store := NewSessionStore()
	sess := store.Create("device-1", "default", 50)

	got, ok := store.Get(sess.ID)
	if !ok || got != sess {
		t.Fatalf("expected to find the created session, ok=%v got=%v", ok, got)
	}
	if !store.Owns(sess.ID, "device-1") {
		t.Error("expected device-1 to own its own session")
	}
	if store.Owns(sess.ID, "device-2") {
		t.Error("expected device-2 not to own device-1's session")
	}

	store.Remove(sess.ID)
	if _, ok := store.Get(sess.ID); ok {
		t.Error("expected session to be gone after Remove")
	}
}

func TestSessionStore_ListFiltersByDevice(t *testing.T) {
	store := NewSessionStore()
	a1 := store.Create("device-a", "default", 50)
	a2 := store.Create("device-a", "default", 50)
	store.Create("device-b", "default", 50)

	listed := store.List("device-a")
	if len(listed) != 2 {
		t.Fatalf("expected 2 sessions for device-a, got %d", len(listed))
	}
	ids := map[string]bool{listed[0].ID: true, listed[1].ID: true}
	if !ids[a1.ID] || !ids[a2.ID] {
		t.Errorf("expected both device-a sessions listed, got %+v", ids)
	}
}

// At most one live turn per session.
func TestSession_StartTurn_RejectsSecondConcurrentTurn(t *testing.T) {
	sess := &Session{ID: "s1"}
	if !sess.StartTurn("turn-1") {
		t.Fatal("first StartTurn should succeed")
	}
	if sess.StartTurn("turn-2") {
		t.Error("expected a second concurrent turn to be rejected")
	}
}

func TestSession_StartTurn_AllowsNewTurnAfterPreviousDone(t *testing.T) {
	sess := &Session{ID: "s1"}
	if !sess.StartTurn("turn-1") {
		t.Fatal("first StartTurn should succeed")
	}
	sess.SetPhase("turn-1", TurnDone, "")
	if !sess.StartTurn("turn-2") {
		t.Error("expected a new turn to start once the previous one is done")
	}
}

func TestSession_SetPhase_IgnoresMismatchedTurnID(t *testing.T) {
	sess := &Session{ID: "s1"}
	sess.StartTurn("turn-1")
	sess.SetPhase("turn-2", TurnDone, "")

	turn, ok := sess.CurrentTurn()
	if !ok || turn.Phase != TurnRunning {
		t.Errorf("expected turn-1 to remain running, got %+v", turn)
	}
}

func TestSession_SetPhase_TracksPendingToolCallID(t *testing.T) {
	sess := &Session{ID: "s1"}
	sess.StartTurn("turn-1")
	sess.SetPhase("turn-1", TurnAwaitingApproval, "tc_1")

	turn, ok := sess.CurrentTurn()
	if !ok || turn.Phase != TurnAwaitingApproval || turn.PendingToolCallID != "tc_1" {
		t.Errorf("unexpected turn state: %+v", turn)
	}
}
