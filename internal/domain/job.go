package domain

import "time"

type JobAction string

const (
	JobActionVerify         JobAction = "verify"
	JobActionRevalidate     JobAction = "revalidate"
	JobActionDecay          JobAction = "decay"
	JobActionArchive        JobAction = "archive"
	JobActionReinstateCheck JobAction = "reinstate-check"
)

func ValidJobAction(a string) bool {
	switch JobAction(a) {
	case JobActionVerify, JobActionRevalidate, JobActionDecay, JobActionArchive, JobActionReinstateCheck:
		return true
	}
	return false
}

// ValidJobObjectType reports whether jobs may target objects of type t.
func ValidJobObjectType(t string) bool {
	switch ObjectType(t) {
	case ObjectMemory, ObjectExperience, ObjectCognition:
		return true
	}
	return false
}

type JobPriority string

const (
	PriorityLow    JobPriority = "low"
	PriorityMedium JobPriority = "medium"
	PriorityHigh   JobPriority = "high"
)

func ValidJobPriority(p string) bool {
	switch JobPriority(p) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities for due-job selection; higher runs first.
func (p JobPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobRunning    JobStatus = "running"
	JobSucceeded  JobStatus = "succeeded"
	JobFailed     JobStatus = "failed"
	JobDeadLetter JobStatus = "dead_letter"
)

func AllJobStatuses() []JobStatus {
	return []JobStatus{JobQueued, JobRunning, JobSucceeded, JobFailed, JobDeadLetter}
}

func ValidJobStatus(s string) bool {
	switch JobStatus(s) {
	case JobQueued, JobRunning, JobSucceeded, JobFailed, JobDeadLetter:
		return true
	}
	return false
}

type SchedulerJob struct {
	JobID          string      `json:"job_id"`
	ObjectType     ObjectType  `json:"object_type"`
	ObjectID       string      `json:"object_id"`
	Action         JobAction   `json:"action"`
	RunAt          time.Time   `json:"run_at"`
	Priority       JobPriority `json:"priority"`
	Attempt        int         `json:"attempt"`
	MaxAttempts    int         `json:"max_attempts"`
	IdempotencyKey string      `json:"idempotency_key"`
	Status         JobStatus   `json:"status"`
	WorkerID       string      `json:"worker_id,omitempty"`
	LastError      string      `json:"last_error,omitempty"`
	CorrelationID  string      `json:"correlation_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// DefaultIdempotencyKey is used when an enqueue names no key.
func DefaultIdempotencyKey(objectID string, action JobAction, runAt time.Time) string {
	return objectID + ":" + string(action) + ":" + FormatTime(runAt)
}

type SchedulerStats struct {
	Counts            map[JobStatus]int `json:"counts"`
	OldestQueuedRunAt *time.Time        `json:"oldest_queued_run_at"`
	AuditEventCount   int               `json:"audit_event_count"`
}
