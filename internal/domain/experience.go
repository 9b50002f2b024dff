package domain

import "time"

type ExperienceStatus string

const (
	ExperienceStatusCandidate   ExperienceStatus = "candidate"
	ExperienceStatusActive      ExperienceStatus = "active"
	ExperienceStatusStale       ExperienceStatus = "stale"
	ExperienceStatusInvalidated ExperienceStatus = "invalidated"
	ExperienceStatusArchived    ExperienceStatus = "archived"
)

func ValidExperienceStatus(s string) bool {
	switch ExperienceStatus(s) {
	case ExperienceStatusCandidate, ExperienceStatusActive, ExperienceStatusStale,
		ExperienceStatusInvalidated, ExperienceStatusArchived:
		return true
	}
	return false
}

func (s ExperienceStatus) Terminal() bool {
	return s == ExperienceStatusInvalidated || s == ExperienceStatusArchived
}

// ActionDeriveFromMemory is recorded as the action taken by experiences the
// pipeline derives from a single memory.
const ActionDeriveFromMemory = "derive_from_memory"

type Experience struct {
	ID             string           `json:"id"`
	MemoryRefs     []string         `json:"memory_refs"`
	EpisodeSummary string           `json:"episode_summary"`
	ActionTaken    string           `json:"action_taken"`
	Outcome        string           `json:"outcome"`
	Confidence     float64          `json:"confidence"`
	Status         ExperienceStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	ReviewDueAt    time.Time        `json:"review_due_at"`
	NextActionAt   time.Time        `json:"next_action_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Version        int              `json:"version"`
}

func (e Experience) WithStatus(s ExperienceStatus, at time.Time) Experience {
	next := e
	next.MemoryRefs = append([]string(nil), e.MemoryRefs...)
	next.Status = s
	next.UpdatedAt = at
	return next
}

// Narrative is the text a persona's boundaries are matched against.
func (e Experience) Narrative() string {
	return e.EpisodeSummary + " " + e.Outcome + " " + e.ActionTaken
}
