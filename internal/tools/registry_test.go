package tools

import "testing"

func TestRegistry_RegisterGetUnregister(t *testing.T) {
	r := NewRegistry()
	ask := NewAskUserQuestionTool()
	r.Register(ask)

	got, ok := r.Get("AskUserQuestion")
	if !ok || got != ask {
		t.Fatalf("expected to find the registered tool, ok=%v got=%v", ok, got)
	}

	r.Unregister("AskUserQuestion")
	if _, ok := r.Get("AskUserQuestion"); ok {
		t.Error("expected tool to be gone after Unregister")
	}
}

func TestRegistry_NamesListsEverythingRegistered(t *testing.T) {
	r := NewRegistry()
	r.Register(NewAskUserQuestionTool())
	r.Register(NewBashTool(t.TempDir()))

	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 registered tools, got %+v", names)
	}
}

func TestRegistry_SchemasPreservesOrderAndSkipsUnknown(t *testing.T) {
	r := NewRegistry()
	r.Register(NewAskUserQuestionTool())
	r.Register(NewBashTool(t.TempDir()))

	schemas := r.Schemas([]string{"Bash", "does-not-exist", "AskUserQuestion"})
	if len(schemas) != 2 {
		t.Fatalf("expected unknown names to be skipped, got %+v", schemas)
	}
	if schemas[0]["name"] != "Bash" || schemas[1]["name"] != "AskUserQuestion" {
		t.Errorf("expected schemas in requested order, got %+v", schemas)
	}
}
