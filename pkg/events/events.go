// Package events defines the messages exchanged over the event bus.
package events

import (
	"errors"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every autoflow event.
const Topic = "autoflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// InboundEventReceivedEvent is published when a platform event arrives
	// through a webhook or the generic events endpoint.
	InboundEventReceivedEvent EventType = "inbound.event.received"

	// RunRequestedEvent hands a created run to a worker for execution.
	RunRequestedEvent EventType = "run.requested"
)

var (
	ErrEventRequired = errors.New("inbound event is required")
	ErrRunRequired   = errors.New("run is required")
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

// InboundEventReceived fans an inbound event out to every matching workflow.
type InboundEventReceived struct {
	BaseEvent

	Event *models.InboundEvent `json:"event"`
}

func NewInboundEventReceived(event *models.InboundEvent) *InboundEventReceived {
	return &InboundEventReceived{
		BaseEvent: NewBaseEvent(InboundEventReceivedEvent, ""),
		Event:     event,
	}
}

func (e InboundEventReceived) GetType() EventType {
	return InboundEventReceivedEvent
}

func (e InboundEventReceived) Validate() error {
	if e.Event == nil || e.Event.EventType == "" {
		return ErrEventRequired
	}

	return nil
}

// RunRequested asks a worker to execute a run already recorded as RUNNING.
// Nodes and Edges hold the graph loaded when the run was created.
type RunRequested struct {
	BaseEvent

	Run   *models.WorkflowRun `json:"run"`
	Nodes []*models.Node      `json:"nodes,omitempty"`
	Edges []*models.Edge      `json:"edges,omitempty"`
}

func NewRunRequested(run *models.WorkflowRun) *RunRequested {
	return &RunRequested{
		BaseEvent: NewBaseEvent(RunRequestedEvent, run.WorkflowID),
		Run:       run,
	}
}

// WithSnapshot attaches the graph the run must execute.
func (e *RunRequested) WithSnapshot(nodes []*models.Node, edges []*models.Edge) *RunRequested {
	e.Nodes = nodes
	e.Edges = edges

	return e
}

// HasSnapshot reports whether the request carries a graph.
func (e RunRequested) HasSnapshot() bool {
	return len(e.Nodes) > 0
}

func (e RunRequested) GetType() EventType {
	return RunRequestedEvent
}

func (e RunRequested) Validate() error {
	if e.Run == nil || e.Run.ID == "" || e.Run.WorkflowID == "" {
		return ErrRunRequired
	}

	return nil
}
