package domain

import "time"

type MemoryKind string

const (
	MemoryKindEvent MemoryKind = "event"
	MemoryKindFact  MemoryKind = "fact"
)

func ValidMemoryKind(k string) bool {
	switch MemoryKind(k) {
	case MemoryKindEvent, MemoryKindFact:
		return true
	}
	return false
}

type MemoryStatus string

const (
	MemoryStatusCandidate        MemoryStatus = "candidate"
	MemoryStatusActive           MemoryStatus = "active"
	MemoryStatusStale            MemoryStatus = "stale"
	MemoryStatusRejectedPoisoned MemoryStatus = "rejected_poisoned"
	MemoryStatusArchived         MemoryStatus = "archived"
)

func ValidMemoryStatus(s string) bool {
	switch MemoryStatus(s) {
	case MemoryStatusCandidate, MemoryStatusActive, MemoryStatusStale,
		MemoryStatusRejectedPoisoned, MemoryStatusArchived:
		return true
	}
	return false
}

// Terminal reports whether no further lifecycle transition is allowed.
func (s MemoryStatus) Terminal() bool {
	return s == MemoryStatusRejectedPoisoned || s == MemoryStatusArchived
}

// Source describes where an observation came from.
type Source struct {
	SourceType string `json:"source_type"`
	SourceRef  string `json:"source_ref"`
}

type Memory struct {
	ID           string       `json:"id"`
	Kind         MemoryKind   `json:"kind"`
	Content      string       `json:"content"`
	Source       Source       `json:"source"`
	EvidenceRefs []string     `json:"evidence_refs"`
	Confidence   float64      `json:"confidence"`
	RiskTier     Tier         `json:"risk_tier"`
	ImpactTier   Tier         `json:"impact_tier"`
	Status       MemoryStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	ReviewDueAt  time.Time    `json:"review_due_at"`
	NextActionAt time.Time    `json:"next_action_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Version      int          `json:"version"`
}

// WithStatus returns a new version of the memory in status s.
func (m Memory) WithStatus(s MemoryStatus, at time.Time) Memory {
	next := m
	next.EvidenceRefs = append([]string(nil), m.EvidenceRefs...)
	next.Status = s
	next.UpdatedAt = at
	return next
}
