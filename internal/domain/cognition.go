package domain

import "time"

type EpistemicState string

const (
	EpistemicSupported EpistemicState = "supported"
	EpistemicUncertain EpistemicState = "uncertain"
	EpistemicRefuted   EpistemicState = "refuted"
)

func ValidEpistemicState(s string) bool {
	switch EpistemicState(s) {
	case EpistemicSupported, EpistemicUncertain, EpistemicRefuted:
		return true
	}
	return false
}

type UnknownType string

const (
	UnknownMultipath            UnknownType = "multipath"
	UnknownOutOfScope           UnknownType = "out_of_scope"
	UnknownInsufficientEvidence UnknownType = "insufficient_evidence"
	UnknownConflictingEvidence  UnknownType = "conflicting_evidence"
)

func ValidUnknownType(u string) bool {
	switch UnknownType(u) {
	case UnknownMultipath, UnknownOutOfScope, UnknownInsufficientEvidence, UnknownConflictingEvidence:
		return true
	}
	return false
}

type DecisionMode string

const (
	ModeNormal       DecisionMode = "normal"
	ModeConservative DecisionMode = "conservative"
	ModeExplore      DecisionMode = "explore"
	ModeAbstain      DecisionMode = "abstain"
	ModeEscalate     DecisionMode = "escalate"
)

func ValidDecisionMode(m string) bool {
	switch DecisionMode(m) {
	case ModeNormal, ModeConservative, ModeExplore, ModeAbstain, ModeEscalate:
		return true
	}
	return false
}

type CognitionStatus string

const (
	CognitionStatusCandidate CognitionStatus = "candidate"
	CognitionStatusActive    CognitionStatus = "active"
	CognitionStatusStale     CognitionStatus = "stale"
	CognitionStatusArchived  CognitionStatus = "archived"
)

func ValidCognitionStatus(s string) bool {
	switch CognitionStatus(s) {
	case CognitionStatusCandidate, CognitionStatusActive, CognitionStatusStale, CognitionStatusArchived:
		return true
	}
	return false
}

// DefaultAutoVerifyBudget is the number of failed automatic re-verifications
// a derived cognition tolerates.
const DefaultAutoVerifyBudget = 2

// CognitionScope narrows where a claim applies.
type CognitionScope struct {
	Domains     []string `json:"domains,omitempty"`
	Channels    []string `json:"channels,omitempty"`
	RiskTierMax Tier     `json:"risk_tier_max,omitempty"`
}

type Cognition struct {
	ID                      string          `json:"id"`
	Rule                    string          `json:"rule,omitempty"`
	Scope                   *CognitionScope `json:"scope,omitempty"`
	EpistemicState          EpistemicState  `json:"epistemic_state"`
	UnknownType             UnknownType     `json:"unknown_type,omitempty"`
	Confidence              float64         `json:"confidence"`
	FalsifyIf               string          `json:"falsify_if,omitempty"`
	ReviewInterval          string          `json:"review_interval,omitempty"`
	UncertaintyTTL          string          `json:"uncertainty_ttl,omitempty"`
	DecisionModeIfUncertain DecisionMode    `json:"decision_mode_if_uncertain,omitempty"`
	RiskTier                Tier            `json:"risk_tier"`
	ImpactTier              Tier            `json:"impact_tier"`
	AutoVerifyBudget        int             `json:"auto_verify_budget"`
	Status                  CognitionStatus `json:"status"`
	EvidenceRefs            []string        `json:"evidence_refs"`
	SourceExperienceID      string          `json:"source_experience_id,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	ReviewDueAt             time.Time       `json:"review_due_at"`
	NextActionAt            time.Time       `json:"next_action_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
	Version                 int             `json:"version"`
}

func (c Cognition) WithStatus(s CognitionStatus, at time.Time) Cognition {
	next := c
	next.EvidenceRefs = append([]string(nil), c.EvidenceRefs...)
	next.Status = s
	next.UpdatedAt = at
	return next
}
