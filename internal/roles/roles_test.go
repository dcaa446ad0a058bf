package roles

import (
	"strings"
	"testing"
)

func TestGet_AllBuiltins(t *testing.T) {
	ids := IDs()
	if len(ids) != 8 {
		t.Fatalf("expected 8 roles, got %d", len(ids))
	}
	for _, id := range ids {
		r, err := Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if r.Name == "" {
			t.Errorf("%s: empty name", id)
		}
		if r.Instructions == "" {
			t.Errorf("%s: empty instructions", id)
		}
		if r.Instructions != strings.TrimSpace(r.Instructions) {
			t.Errorf("%s: instructions not trimmed", id)
		}
	}
}

func TestGet_Unknown(t *testing.T) {
	if _, err := Get("poet"); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if Known("poet") {
		t.Fatal("poet should not be known")
	}
}

func TestQualityEvaluator_MandatesScoreFormat(t *testing.T) {
	r := MustGet(QualityEvaluator)
	for _, want := range []string{"Requirements score:", "Code score:"} {
		if !strings.Contains(r.Instructions, want) {
			t.Errorf("quality evaluator instructions missing %q", want)
		}
	}
}

func TestOverride(t *testing.T) {
	base := MustGet(Summarizer)

	same := base.Override("  ", "")
	if same != base {
		t.Errorf("blank override changed role: %+v", same)
	}

	custom := base.Override("Digest", "Be brief.")
	if custom.Name != "Digest" || custom.Instructions != "Be brief." {
		t.Errorf("unexpected override %+v", custom)
	}
	if custom.ID != Summarizer {
		t.Errorf("override must keep ID, got %s", custom.ID)
	}
}
