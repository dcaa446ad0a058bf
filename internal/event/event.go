package event

import "time"

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	// Pipeline lifecycle
	PipelineStarted   EventType = "pipeline.started"
	PipelineCompleted EventType = "pipeline.completed"
	PipelineFailed    EventType = "pipeline.failed"

	// Stage lifecycle
	StageStarted   EventType = "stage.started"
	StageCompleted EventType = "stage.completed"
	StageFailed    EventType = "stage.failed"
	StageSkipped   EventType = "stage.skipped"

	// Agent lifecycle
	AgentRetrying EventType = "agent.retrying"
)

// AllTypes lists every event type, in lifecycle order.
var AllTypes = []EventType{
	PipelineStarted, PipelineCompleted, PipelineFailed,
	StageStarted, StageCompleted, StageFailed, StageSkipped,
	AgentRetrying,
}

// IsKnown reports whether t is one of AllTypes.
func IsKnown(t EventType) bool {
	for _, known := range AllTypes {
		if known == t {
			return true
		}
	}
	return false
}

// Event carries data about a lifecycle occurrence.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]interface{}) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		Data:      data,
	}
}
