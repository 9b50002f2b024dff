package policy

import (
	"errors"
	"testing"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

func cognition(state domain.EpistemicState, risk domain.Tier) domain.Cognition {
	return domain.Cognition{
		ID:             "cg_test",
		EpistemicState: state,
		RiskTier:       risk,
		ImpactTier:     domain.TierMedium,
		UnknownType:    domain.UnknownMultipath,
	}
}

func TestDecideRefutedAlwaysAbstains(t *testing.T) {
	for _, risk := range domain.AllTiers() {
		for _, impact := range domain.AllTiers() {
			c := cognition(domain.EpistemicRefuted, risk)
			c.ImpactTier = impact
			d, err := Decide(c, "")
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if d.FinalOutcome != domain.OutcomeAbstained {
				t.Errorf("risk=%s impact=%s: outcome %s, want abstained", risk, impact, d.FinalOutcome)
			}
			if d.Gates.Risk != domain.GateBlock || d.Gates.Cognition != domain.GateBlock {
				t.Errorf("risk=%s: gates %+v", risk, d.Gates)
			}
			if d.Gates.Social != domain.GateDefer {
				t.Errorf("social gate %s, want defer", d.Gates.Social)
			}
			if d.DecisionMode != domain.ModeAbstain {
				t.Errorf("mode %s, want abstain", d.DecisionMode)
			}
		}
	}
}

func TestDecideSupported(t *testing.T) {
	tests := []struct {
		risk    domain.Tier
		outcome domain.FinalOutcome
		mode    domain.DecisionMode
		gates   domain.Gates
	}{
		{domain.TierLow, domain.OutcomeExecuted, domain.ModeNormal, domain.AllPass()},
		{domain.TierMedium, domain.OutcomeExecuted, domain.ModeNormal, domain.AllPass()},
		{domain.TierHigh, domain.OutcomeLimited, domain.ModeConservative, domain.Gates{
			PersonaConflict: domain.GatePass,
			Social:          domain.GateDefer,
			Risk:            domain.GateLimit,
			Cognition:       domain.GatePass,
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.risk), func(t *testing.T) {
			d, err := Decide(cognition(domain.EpistemicSupported, tt.risk), "")
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if d.FinalOutcome != tt.outcome || d.DecisionMode != tt.mode {
				t.Errorf("got %s/%s, want %s/%s", d.FinalOutcome, d.DecisionMode, tt.outcome, tt.mode)
			}
			if d.Gates != tt.gates {
				t.Errorf("gates %+v, want %+v", d.Gates, tt.gates)
			}
			if d.UnknownType != "" {
				t.Errorf("supported decision should not carry unknown_type, got %s", d.UnknownType)
			}
		})
	}
}

func TestDecideUncertain(t *testing.T) {
	tests := []struct {
		name     string
		risk     domain.Tier
		fallback domain.DecisionMode
		outcome  domain.FinalOutcome
		mode     domain.DecisionMode
		riskGate domain.GateOutcome
		social   domain.GateOutcome
		reason   string
	}{
		{"high escalates", domain.TierHigh, "", domain.OutcomeEscalated, domain.ModeEscalate, domain.GateBlock, domain.GateDefer, ReasonUncertainHighRisk},
		{"medium conservative", domain.TierMedium, "", domain.OutcomeLimited, domain.ModeConservative, domain.GateLimit, domain.GateDefer, ReasonUncertainMedRisk},
		{"low default explore", domain.TierLow, "", domain.OutcomeLimited, domain.ModeExplore, domain.GatePass, domain.GatePass, ReasonUncertainLowRisk},
		{"low configured abstain", domain.TierLow, domain.ModeAbstain, domain.OutcomeLimited, domain.ModeAbstain, domain.GatePass, domain.GatePass, ReasonUncertainLowRisk},
		{"low unrecognized normal", domain.TierLow, domain.ModeNormal, domain.OutcomeLimited, domain.ModeExplore, domain.GatePass, domain.GatePass, ReasonUncertainLowRisk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cognition(domain.EpistemicUncertain, tt.risk)
			c.DecisionModeIfUncertain = tt.fallback
			d, err := Decide(c, "")
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if d.Gates.Cognition != domain.GateDegrade {
				t.Errorf("cognition gate %s, want degrade", d.Gates.Cognition)
			}
			if d.FinalOutcome != tt.outcome || d.DecisionMode != tt.mode {
				t.Errorf("got %s/%s, want %s/%s", d.FinalOutcome, d.DecisionMode, tt.outcome, tt.mode)
			}
			if d.Gates.Risk != tt.riskGate || d.Gates.Social != tt.social {
				t.Errorf("gates %+v", d.Gates)
			}
			if d.Reason != tt.reason {
				t.Errorf("reason %q", d.Reason)
			}
			if d.UnknownType != domain.UnknownMultipath {
				t.Errorf("unknown_type %q", d.UnknownType)
			}
		})
	}
}

func TestDecideRiskOverride(t *testing.T) {
	c := cognition(domain.EpistemicUncertain, domain.TierLow)
	d, err := Decide(c, domain.TierHigh)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.RiskTier != domain.TierHigh || d.FinalOutcome != domain.OutcomeEscalated {
		t.Errorf("override ignored: %+v", d)
	}
}

func TestDecideDefaultsTiers(t *testing.T) {
	c := domain.Cognition{ID: "cg_x", EpistemicState: domain.EpistemicUncertain}
	d, err := Decide(c, "")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.RiskTier != domain.TierMedium || d.ImpactTier != domain.TierMedium {
		t.Errorf("tiers %s/%s, want medium/medium", d.RiskTier, d.ImpactTier)
	}
	if d.FinalOutcome != domain.OutcomeLimited {
		t.Errorf("outcome %s", d.FinalOutcome)
	}
}

func TestDecideRejectsUnknownState(t *testing.T) {
	_, err := Decide(cognition("plausible", domain.TierLow), "")
	if !errors.Is(err, domain.ErrInvalidEpistemicState) {
		t.Fatalf("expected ErrInvalidEpistemicState, got %v", err)
	}
}

func TestDecideRejectsBadOverride(t *testing.T) {
	_, err := Decide(cognition(domain.EpistemicSupported, domain.TierLow), "extreme")
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestDecideAlwaysExplains(t *testing.T) {
	for _, state := range []domain.EpistemicState{domain.EpistemicSupported, domain.EpistemicUncertain, domain.EpistemicRefuted} {
		for _, risk := range domain.AllTiers() {
			d, err := Decide(cognition(state, risk), "")
			if err != nil {
				t.Fatalf("Decide(%s,%s): %v", state, risk, err)
			}
			if d.Reason == "" {
				t.Errorf("%s/%s: empty reason", state, risk)
			}
			if d.Gates.PersonaConflict != domain.GatePass {
				t.Errorf("%s/%s: persona gate %s", state, risk, d.Gates.PersonaConflict)
			}
		}
	}
}
