// Package policy maps claims and personas to gate outcomes. Everything here
// is pure: no I/O and no clock.
package policy

import (
	"fmt"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

// Decision is the policy verdict for one cognition and request.
type Decision struct {
	RiskTier       domain.Tier           `json:"risk_tier"`
	ImpactTier     domain.Tier           `json:"impact_tier"`
	DecisionMode   domain.DecisionMode   `json:"decision_mode"`
	EpistemicState domain.EpistemicState `json:"epistemic_state"`
	UnknownType    domain.UnknownType    `json:"unknown_type,omitempty"`
	Gates          domain.Gates          `json:"gates"`
	FinalOutcome   domain.FinalOutcome   `json:"final_outcome"`
	Reason         string                `json:"reason"`
}

const (
	ReasonRefuted            = "Refuted cognition cannot drive decisions."
	ReasonUncertainHighRisk  = "High-risk request with uncertain cognition requires escalation."
	ReasonUncertainMedRisk   = "Medium-risk request with uncertain cognition is limited to conservative mode."
	ReasonUncertainLowRisk   = "Low-risk uncertain cognition allows bounded execution."
	ReasonSupportedHighRisk  = "High-risk execution remains bounded even with supported cognition."
	ReasonSupportedExecution = "Supported cognition allows normal execution."
)

// Decide evaluates a cognition under an optional risk tier override. The
// effective risk tier is the override, else the cognition's own, else medium.
func Decide(c domain.Cognition, riskOverride domain.Tier) (Decision, error) {
	if riskOverride != "" && !domain.ValidTier(string(riskOverride)) {
		return Decision{}, fmt.Errorf("%w: risk tier %q", domain.ErrValidationFailed, riskOverride)
	}
	risk := riskOverride.OrDefault(c.RiskTier).OrDefault(domain.TierMedium)
	if !domain.ValidTier(string(risk)) {
		return Decision{}, fmt.Errorf("%w: cognition %s risk tier %q", domain.ErrValidationFailed, c.ID, risk)
	}

	d := Decision{
		RiskTier:       risk,
		ImpactTier:     c.ImpactTier.OrDefault(domain.TierMedium),
		EpistemicState: c.EpistemicState,
		Gates:          domain.AllPass(),
	}

	switch c.EpistemicState {
	case domain.EpistemicRefuted:
		d.DecisionMode = domain.ModeAbstain
		d.FinalOutcome = domain.OutcomeAbstained
		d.Gates.Risk = domain.GateBlock
		d.Gates.Cognition = domain.GateBlock
		d.Gates.Social = domain.GateDefer
		d.Reason = ReasonRefuted

	case domain.EpistemicUncertain:
		d.UnknownType = c.UnknownType
		d.Gates.Cognition = domain.GateDegrade
		switch risk {
		case domain.TierHigh:
			d.DecisionMode = domain.ModeEscalate
			d.FinalOutcome = domain.OutcomeEscalated
			d.Gates.Risk = domain.GateBlock
			d.Gates.Social = domain.GateDefer
			d.Reason = ReasonUncertainHighRisk
		case domain.TierMedium:
			d.DecisionMode = domain.ModeConservative
			d.FinalOutcome = domain.OutcomeLimited
			d.Gates.Risk = domain.GateLimit
			d.Gates.Social = domain.GateDefer
			d.Reason = ReasonUncertainMedRisk
		default:
			d.DecisionMode = uncertainFallback(c.DecisionModeIfUncertain)
			d.FinalOutcome = domain.OutcomeLimited
			d.Reason = ReasonUncertainLowRisk
		}

	case domain.EpistemicSupported:
		if risk == domain.TierHigh {
			d.DecisionMode = domain.ModeConservative
			d.FinalOutcome = domain.OutcomeLimited
			d.Gates.Risk = domain.GateLimit
			d.Gates.Social = domain.GateDefer
			d.Reason = ReasonSupportedHighRisk
		} else {
			d.DecisionMode = domain.ModeNormal
			d.FinalOutcome = domain.OutcomeExecuted
			d.Reason = ReasonSupportedExecution
		}

	default:
		return Decision{}, fmt.Errorf("%w: cognition %s has %q", domain.ErrInvalidEpistemicState, c.ID, c.EpistemicState)
	}

	return d, nil
}

// uncertainFallback picks the low-risk mode for an uncertain claim.
func uncertainFallback(m domain.DecisionMode) domain.DecisionMode {
	switch m {
	case domain.ModeExplore, domain.ModeConservative, domain.ModeAbstain, domain.ModeEscalate:
		return m
	}
	return domain.ModeExplore
}
