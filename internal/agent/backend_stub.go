package agent

import (
	"context"
	"fmt"
)

// UnconfiguredBackend is the zero-value ModelBackend the daemon wires in
// when no LLM HTTP client has been configured. The turn loop is built,
// and tested, only against the ModelBackend contract — the concrete LLM
// HTTP client lives outside this module — so this stands in as the
// default, documenting the seam rather than leaving main() unable to
// construct a Loop at all.
type UnconfiguredBackend struct{}

func (UnconfiguredBackend) Complete(ctx context.Context, messages []ModelMessage, toolSchemas []map[string]any) (*ModelResponse, error) {
	return nil, fmt.Errorf("no model backend configured")
}
