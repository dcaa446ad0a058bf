package pipeline

import (
	"fmt"

	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
)

// Graph is the dependency graph of a pipeline's stages. Stage B depends
// on stage A when B reads the key A writes, or when B's seed uses A.
type Graph struct {
	stages   map[string]Stage
	declared []string            // declaration order
	deps     map[string][]string // stage -> dependencies
	children map[string][]string // stage -> stages that depend on it
}

// NewGraph builds the graph for stages. Duplicate names are rejected.
func NewGraph(stages []Stage) (*Graph, error) {
	g := &Graph{
		stages:   make(map[string]Stage, len(stages)),
		deps:     make(map[string][]string),
		children: make(map[string][]string),
	}

	writers := make(map[string][]string) // key -> stages writing it
	for _, s := range stages {
		if s.Name == "" {
			return nil, rcErrors.New(rcErrors.CodeConfigInvalid, "stage name is required")
		}
		if _, exists := g.stages[s.Name]; exists {
			return nil, rcErrors.New(rcErrors.CodeConfigInvalid, fmt.Sprintf("duplicate stage: %s", s.Name))
		}
		g.stages[s.Name] = s
		g.declared = append(g.declared, s.Name)
		if s.Write != "" {
			writers[s.Write] = append(writers[s.Write], s.Name)
		}
	}

	for _, name := range g.declared {
		s := g.stages[name]
		seen := make(map[string]bool)
		add := func(dep string) {
			if dep == name || seen[dep] {
				return
			}
			seen[dep] = true
			g.deps[name] = append(g.deps[name], dep)
			g.children[dep] = append(g.children[dep], name)
		}
		if s.Read != "" {
			for _, w := range writers[s.Read] {
				add(w)
			}
		}
		for _, u := range s.Uses {
			add(u)
		}
	}

	return g, nil
}

// Stage returns a stage by name
func (g *Graph) Stage(name string) (Stage, bool) {
	s, ok := g.stages[name]
	return s, ok
}

// Dependencies returns the stages name depends on
func (g *Graph) Dependencies(name string) []string {
	return g.deps[name]
}

// Children returns the stages that depend on name
func (g *Graph) Children(name string) []string {
	return g.children[name]
}

// Validate checks roles, dependency references and cycles.
func (g *Graph) Validate(knownRole func(string) bool) error {
	for _, name := range g.declared {
		s := g.stages[name]
		if knownRole != nil && !knownRole(s.Role) {
			return rcErrors.New(rcErrors.CodeRoleNotFound,
				fmt.Sprintf("stage %s uses unknown role %q", name, s.Role))
		}
		for _, dep := range g.deps[name] {
			if _, exists := g.stages[dep]; !exists {
				return rcErrors.New(rcErrors.CodeConfigInvalid,
					fmt.Sprintf("stage %s depends on unknown stage %s", name, dep))
			}
		}
	}

	// Check for cycles using DFS
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var hasCycle func(name string) (bool, string)
	hasCycle = func(name string) (bool, string) {
		visited[name] = true
		recStack[name] = true

		for _, dep := range g.deps[name] {
			if !visited[dep] {
				if found, cycle := hasCycle(dep); found {
					return true, cycle
				}
			} else if recStack[dep] {
				return true, fmt.Sprintf("%s -> %s", name, dep)
			}
		}

		recStack[name] = false
		return false, ""
	}

	for _, name := range g.declared {
		if !visited[name] {
			if found, cycle := hasCycle(name); found {
				return rcErrors.New(rcErrors.CodeCyclicDependency,
					fmt.Sprintf("cycle detected involving stage %s (%s)", name, cycle)).
					WithSuggestion("Make sure no two stages read each other's output keys")
			}
		}
	}

	return nil
}

// Order returns stages in execution order. Among stages whose
// dependencies are satisfied, declaration order wins.
func (g *Graph) Order() ([]Stage, error) {
	if err := g.Validate(nil); err != nil {
		return nil, err
	}

	// Kahn's algorithm
	inDegree := make(map[string]int, len(g.stages))
	for name := range g.stages {
		inDegree[name] = len(g.deps[name])
	}

	done := make(map[string]bool, len(g.stages))
	result := make([]Stage, 0, len(g.stages))
	for len(result) < len(g.stages) {
		progressed := false
		for _, name := range g.declared {
			if done[name] || inDegree[name] > 0 {
				continue
			}
			done[name] = true
			result = append(result, g.stages[name])
			for _, child := range g.children[name] {
				inDegree[child]--
			}
			progressed = true
			break
		}
		if !progressed {
			return nil, rcErrors.New(rcErrors.CodeCyclicDependency, "could not order all stages - check for cycles")
		}
	}

	return result, nil
}
