package mcp

import "testing"

func TestFactInputsFrom(t *testing.T) {
	args := map[string]interface{}{
		"facts": []interface{}{
			map[string]interface{}{"subject": "alice", "predicate": "works_at", "object": "acme", "confidence": 0.9},
			map[string]interface{}{"subject": "bob", "predicate": "likes", "object": "hiking"},
		},
	}

	facts := factInputsFrom(args)
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(facts))
	}
	if facts[0].Subject != "alice" || facts[0].Predicate != "works_at" || facts[0].Object != "acme" {
		t.Errorf("unexpected first fact: %+v", facts[0])
	}
	if facts[0].Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", facts[0].Confidence)
	}
	if facts[1].Confidence != 0 {
		t.Errorf("expected zero-value confidence when omitted, got %v", facts[1].Confidence)
	}
}

func TestFactInputsFrom_MissingOrMalformed(t *testing.T) {
	if got := factInputsFrom(map[string]interface{}{}); got != nil {
		t.Errorf("expected nil for missing facts key, got %v", got)
	}
	if got := factInputsFrom(map[string]interface{}{"facts": "not-an-array"}); got != nil {
		t.Errorf("expected nil for malformed facts value, got %v", got)
	}
}

func TestStringField(t *testing.T) {
	m := map[string]interface{}{"subject": "alice", "count": 5}
	if got := stringField(m, "subject"); got != "alice" {
		t.Errorf("stringField(subject) = %q, want alice", got)
	}
	if got := stringField(m, "count"); got != "" {
		t.Errorf("stringField(count) = %q, want empty string for non-string value", got)
	}
	if got := stringField(m, "missing"); got != "" {
		t.Errorf("stringField(missing) = %q, want empty string", got)
	}
}

func TestStringSliceField(t *testing.T) {
	args := map[string]interface{}{
		"tags": []interface{}{"meeting", "project-x", 5},
	}
	got := stringSliceField(args, "tags")
	want := []string{"meeting", "project-x"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStringSliceField_Missing(t *testing.T) {
	if got := stringSliceField(map[string]interface{}{}, "tags"); got != nil {
		t.Errorf("expected nil for missing key, got %v", got)
	}
}
