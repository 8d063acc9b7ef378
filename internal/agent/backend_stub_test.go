package agent

import (
	"context"
	"testing"
)

func TestUnconfiguredBackend_AlwaysErrors(t *testing.T) {
	var backend UnconfiguredBackend
	resp, err := backend.Complete(context.Background(), []ModelMessage{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected an error from an unconfigured backend")
	}
	if resp != nil {
		t.Errorf("expected a nil response alongside the error, got %+v", resp)
	}
}
