package domain

import "time"

type PersonaStatus string

const (
	PersonaStatusActive   PersonaStatus = "active"
	PersonaStatusInactive PersonaStatus = "inactive"
)

func ValidPersonaStatus(s string) bool {
	switch PersonaStatus(s) {
	case PersonaStatusActive, PersonaStatusInactive:
		return true
	}
	return false
}

// Persona is a policy subject whose boundary phrases veto promotions.
type Persona struct {
	ID         string        `json:"id"`
	Name       string        `json:"name,omitempty"`
	Status     PersonaStatus `json:"status"`
	Boundaries []string      `json:"boundaries"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	Version    int           `json:"version"`
}
