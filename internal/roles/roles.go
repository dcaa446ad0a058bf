// Package roles holds the built-in agent roles of the review pipeline.
package roles

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed template/*.txt
var templates embed.FS

// Role identifiers.
const (
	RequirementAnalyzer = "requirement_analyzer"
	CodeAnalyzer        = "code_analyzer"
	AlignmentChecker    = "alignment_checker"
	ReferenceCoder      = "reference_coder"
	ComparativeAnalyzer = "comparative_analyzer"
	ReportGenerator     = "report_generator"
	QualityEvaluator    = "quality_evaluator"
	Summarizer          = "summarizer"
)

// Role is an agent persona: a display name and fixed instructions.
type Role struct {
	ID           string
	Name         string
	Instructions string
}

var displayNames = map[string]string{
	RequirementAnalyzer: "Requirements Analyzer",
	CodeAnalyzer:        "Code Analyzer",
	AlignmentChecker:    "Alignment Checker",
	ReferenceCoder:      "Reference Coder",
	ComparativeAnalyzer: "Math Logic Analyzer",
	ReportGenerator:     "Report Generator",
	QualityEvaluator:    "Quality Evaluator",
	Summarizer:          "Summarizer",
}

// IDs returns every built-in role ID, sorted.
func IDs() []string {
	ids := make([]string, 0, len(displayNames))
	for id := range displayNames {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Known reports whether id names a built-in role.
func Known(id string) bool {
	_, ok := displayNames[id]
	return ok
}

// Get loads a built-in role.
func Get(id string) (Role, error) {
	name, ok := displayNames[id]
	if !ok {
		return Role{}, fmt.Errorf("unknown role %q", id)
	}
	data, err := templates.ReadFile("template/" + id + ".txt")
	if err != nil {
		return Role{}, fmt.Errorf("read role %s: %w", id, err)
	}
	return Role{
		ID:           id,
		Name:         name,
		Instructions: strings.TrimSpace(string(data)),
	}, nil
}

// MustGet is Get for built-in IDs known at compile time.
func MustGet(id string) Role {
	r, err := Get(id)
	if err != nil {
		panic(err)
	}
	return r
}

// Override returns a copy of r with non-empty name and instructions applied.
func (r Role) Override(name, instructions string) Role {
	if s := strings.TrimSpace(name); s != "" {
		r.Name = s
	}
	if s := strings.TrimSpace(instructions); s != "" {
		r.Instructions = s
	}
	return r
}
