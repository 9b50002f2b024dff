package domain

import "time"

type GateOutcome string

const (
	GatePass    GateOutcome = "pass"
	GateLimit   GateOutcome = "limit"
	GateDegrade GateOutcome = "degrade"
	GateDefer   GateOutcome = "defer"
	GateBlock   GateOutcome = "block"
)

func ValidGateOutcome(g string) bool {
	switch GateOutcome(g) {
	case GatePass, GateLimit, GateDegrade, GateDefer, GateBlock:
		return true
	}
	return false
}

// Gates holds the outcome of each named policy checkpoint.
type Gates struct {
	PersonaConflict GateOutcome `json:"persona_conflict_gate"`
	Social          GateOutcome `json:"social_gate"`
	Risk            GateOutcome `json:"risk_gate"`
	Cognition       GateOutcome `json:"cognition_gate"`
}

// AllPass returns gates with every checkpoint passing.
func AllPass() Gates {
	return Gates{PersonaConflict: GatePass, Social: GatePass, Risk: GatePass, Cognition: GatePass}
}

type FinalOutcome string

const (
	OutcomeExecuted  FinalOutcome = "executed"
	OutcomeLimited   FinalOutcome = "limited"
	OutcomeEscalated FinalOutcome = "escalated"
	OutcomeAbstained FinalOutcome = "abstained"
	OutcomeBlocked   FinalOutcome = "blocked"
)

func ValidFinalOutcome(o string) bool {
	switch FinalOutcome(o) {
	case OutcomeExecuted, OutcomeLimited, OutcomeEscalated, OutcomeAbstained, OutcomeBlocked:
		return true
	}
	return false
}

type DecisionInputs struct {
	CognitionRefs  []string `json:"cognition_refs,omitempty"`
	ExperienceRefs []string `json:"experience_refs,omitempty"`
	PersonaRefs    []string `json:"persona_refs,omitempty"`
}

// DecisionTrace is the immutable record of one decision request.
type DecisionTrace struct {
	ID             string         `json:"id"`
	DecisionID     string         `json:"decision_id"`
	RequestRef     string         `json:"request_ref"`
	RiskTier       Tier           `json:"risk_tier"`
	ImpactTier     Tier           `json:"impact_tier"`
	DecisionMode   DecisionMode   `json:"decision_mode"`
	EpistemicState EpistemicState `json:"epistemic_state"`
	UnknownType    UnknownType    `json:"unknown_type,omitempty"`
	Inputs         DecisionInputs `json:"inputs"`
	Gates          Gates          `json:"gates"`
	Reason         string         `json:"reason"`
	EvidenceRefs   []string       `json:"evidence_refs"`
	FinalOutcome   FinalOutcome   `json:"final_outcome"`
	ReviewDueAt    time.Time      `json:"review_due_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Version        int            `json:"version"`
}
