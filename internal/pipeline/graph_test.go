package pipeline

import (
	"testing"

	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
)

func names(stages []Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.Name
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGraph_DependenciesFromKeys(t *testing.T) {
	g, err := NewGraph([]Stage{
		{Name: "a", Role: "r", Write: "k1"},
		{Name: "b", Role: "r", Read: "k1", Write: "k2"},
		{Name: "c", Role: "r", Read: "raw", Uses: []string{"a", "b"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if deps := g.Dependencies("b"); !equal(deps, []string{"a"}) {
		t.Errorf("deps(b) = %v", deps)
	}
	if deps := g.Dependencies("c"); !equal(deps, []string{"a", "b"}) {
		t.Errorf("deps(c) = %v", deps)
	}
	if children := g.Children("a"); !equal(children, []string{"b", "c"}) {
		t.Errorf("children(a) = %v", children)
	}
}

func TestGraph_SelfReadIsNotADependency(t *testing.T) {
	g, err := NewGraph([]Stage{{Name: "a", Role: "r", Read: "k", Write: "k"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Dependencies("a")) != 0 {
		t.Errorf("expected no deps, got %v", g.Dependencies("a"))
	}
	if _, err := g.Order(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGraph_OrderIsStable(t *testing.T) {
	g, err := NewGraph([]Stage{
		{Name: "late", Role: "r", Uses: []string{"early"}},
		{Name: "independent", Role: "r"},
		{Name: "early", Role: "r"},
	})
	if err != nil {
		t.Fatal(err)
	}

	order, err := g.Order()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"independent", "early", "late"}
	if got := names(order); !equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestGraph_DuplicateName(t *testing.T) {
	_, err := NewGraph([]Stage{{Name: "a", Role: "r"}, {Name: "a", Role: "r"}})
	if rcErrors.AsCode(err) != rcErrors.CodeConfigInvalid {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}

func TestGraph_Cycle(t *testing.T) {
	g, err := NewGraph([]Stage{
		{Name: "a", Role: "r", Read: "kb", Write: "ka"},
		{Name: "b", Role: "r", Read: "ka", Write: "kb"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := g.Validate(nil); rcErrors.AsCode(err) != rcErrors.CodeCyclicDependency {
		t.Errorf("Validate: expected CYCLIC_DEPENDENCY, got %v", err)
	}
	if _, err := g.Order(); rcErrors.AsCode(err) != rcErrors.CodeCyclicDependency {
		t.Errorf("Order: expected CYCLIC_DEPENDENCY, got %v", err)
	}
}

func TestGraph_UnknownRoleAndStage(t *testing.T) {
	g, _ := NewGraph([]Stage{{Name: "a", Role: "ghost"}})
	err := g.Validate(func(role string) bool { return role == "known" })
	if rcErrors.AsCode(err) != rcErrors.CodeRoleNotFound {
		t.Errorf("expected ROLE_NOT_FOUND, got %v", err)
	}

	g, _ = NewGraph([]Stage{{Name: "a", Role: "r", Uses: []string{"missing"}}})
	if err := g.Validate(nil); rcErrors.AsCode(err) != rcErrors.CodeConfigInvalid {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}

func TestReviewStages_Order(t *testing.T) {
	tests := []struct {
		name string
		opts ReviewOptions
		want []string
	}{
		{
			name: "default",
			want: []string{
				StageRequirementAnalysis, StageAlignment, StageReferenceCode,
				StageComparison, StageReport, StageQuality, StageSummary,
			},
		},
		{
			name: "with code analysis",
			opts: ReviewOptions{CodeAnalysis: true},
			want: []string{
				StageRequirementAnalysis, StageCodeAnalysis, StageAlignment, StageReferenceCode,
				StageComparison, StageReport, StageQuality, StageSummary,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGraph(ReviewStages(tt.opts))
			if err != nil {
				t.Fatal(err)
			}
			order, err := g.Order()
			if err != nil {
				t.Fatal(err)
			}
			if got := names(order); !equal(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}
