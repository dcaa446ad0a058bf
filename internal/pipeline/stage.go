package pipeline

import "fmt"

// Inputs are the raw strings a run starts from.
type Inputs struct {
	Requirements string
	Code         string
}

// Outputs maps stage name to reply text. Failed and skipped stages carry
// a bracketed placeholder, never an empty string.
type Outputs map[string]string

// Get returns the output of stage, or its placeholder if it never ran.
func (o Outputs) Get(stage string) string {
	if v, ok := o[stage]; ok {
		return v
	}
	return Placeholder(stage)
}

// Placeholder stands in for the output of a stage that failed.
func Placeholder(stage string) string {
	return fmt.Sprintf("[%s produced no result]", stage)
}

// SkippedPlaceholder stands in for the output of a disabled stage.
func SkippedPlaceholder(stage string) string {
	return fmt.Sprintf("[%s skipped]", stage)
}

// SeedFunc builds text appended to a stage's read key right before the
// stage runs.
type SeedFunc func(in Inputs, out Outputs) string

// Stage is one agent invocation in a pipeline.
type Stage struct {
	Name  string // unique within a pipeline
	Role  string // agent role ID
	Input string // request text placed after the memory context
	Read  string // memory key used as context, "" for none
	Write string // memory key the labeled result is appended to, "" for none

	// Seed, when set, appends its text to Read before the stage runs.
	Seed SeedFunc
	// Uses names stages whose outputs Seed reads.
	Uses []string

	// Required stages abort the run on failure under every error strategy.
	Required bool
	// Skip marks a disabled stage. It is recorded but never invoked.
	Skip bool
}
