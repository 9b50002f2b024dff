package domain

import "time"

type AuditEventType string

const (
	EventStateTransition AuditEventType = "state_transition"
	EventDecisionGate    AuditEventType = "decision_gate"
	EventSchedulerJob    AuditEventType = "scheduler_job"
)

func ValidAuditEventType(t string) bool {
	switch AuditEventType(t) {
	case EventStateTransition, EventDecisionGate, EventSchedulerJob:
		return true
	}
	return false
}

type ActorType string

const (
	ActorSystem ActorType = "system"
	ActorWorker ActorType = "worker"
	ActorUser   ActorType = "user"
)

type Actor struct {
	Type ActorType `json:"type"`
	ID   string    `json:"id"`
}

// SystemActor is the actor recorded for pipeline and scheduler writes not
// attributed to a worker or user.
func SystemActor(id string) Actor {
	return Actor{Type: ActorSystem, ID: id}
}

type ObjectType string

const (
	ObjectMemory       ObjectType = "memory"
	ObjectExperience   ObjectType = "experience"
	ObjectPersona      ObjectType = "persona"
	ObjectCognition    ObjectType = "cognition"
	ObjectDecision     ObjectType = "decision"
	ObjectSchedulerJob ObjectType = "scheduler_job"
)

func ValidObjectType(t string) bool {
	switch ObjectType(t) {
	case ObjectMemory, ObjectExperience, ObjectPersona, ObjectCognition, ObjectDecision, ObjectSchedulerJob:
		return true
	}
	return false
}

// AuditEvent is an append-only record of a transition or gate evaluation.
// Before and After hold only the fields the transition touched.
type AuditEvent struct {
	ID              string         `json:"id"`
	EventType       AuditEventType `json:"event_type"`
	Actor           Actor          `json:"actor"`
	ObjectType      ObjectType     `json:"object_type"`
	ObjectID        string         `json:"object_id"`
	Before          map[string]any `json:"before"`
	After           map[string]any `json:"after"`
	Reason          string         `json:"reason"`
	EvidenceRefs    []string       `json:"evidence_refs"`
	RiskTier        Tier           `json:"risk_tier,omitempty"`
	DecisionTraceID string         `json:"decision_trace_id,omitempty"`
	JobID           string         `json:"job_id,omitempty"`
	CorrelationID   string         `json:"correlation_id,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	Hash            string         `json:"hash,omitempty"`
}

type AuditFilter struct {
	ObjectType ObjectType
	ObjectID   string
	EventType  AuditEventType
	Limit      int
	// Ascending returns the oldest events first.
	Ascending bool
}
