package policy

import (
	"testing"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

func TestEvaluatePersona(t *testing.T) {
	exp := domain.Experience{
		EpisodeSummary: "User asked for a report",
		Outcome:        "Agent refused a Forbidden Request",
		ActionTaken:    domain.ActionDeriveFromMemory,
	}

	tests := []struct {
		name       string
		boundaries []string
		want       domain.GateOutcome
		hits       []string
	}{
		{"no boundaries", nil, domain.GatePass, []string{}},
		{"case insensitive", []string{"forbidden"}, domain.GateBlock, []string{"forbidden"}},
		{"whitespace tolerant", []string{"  FORBIDDEN request  "}, domain.GateBlock, []string{"FORBIDDEN request"}},
		{"blank boundaries skipped", []string{"", "   "}, domain.GatePass, []string{}},
		{"no match", []string{"delete production"}, domain.GatePass, []string{}},
		{"matches action field", []string{"derive_from"}, domain.GateBlock, []string{"derive_from"}},
		{"reports in boundary order", []string{"report", "nothing", "agent"}, domain.GateBlock, []string{"report", "agent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hits := EvaluatePersona(domain.Persona{ID: "persona_a", Boundaries: tt.boundaries}, exp)
			if got != tt.want {
				t.Errorf("outcome %s, want %s", got, tt.want)
			}
			if len(hits) != len(tt.hits) {
				t.Fatalf("hits %v, want %v", hits, tt.hits)
			}
			for i := range hits {
				if hits[i] != tt.hits[i] {
					t.Errorf("hit[%d] = %q, want %q", i, hits[i], tt.hits[i])
				}
			}
		})
	}
}

func TestEvaluatePersonaOrderDoesNotChangeOutcome(t *testing.T) {
	exp := domain.Experience{EpisodeSummary: "alpha beta"}
	a, _ := EvaluatePersona(domain.Persona{Boundaries: []string{"alpha", "gamma"}}, exp)
	b, _ := EvaluatePersona(domain.Persona{Boundaries: []string{"gamma", "alpha"}}, exp)
	if a != b {
		t.Errorf("outcome depends on boundary order: %s vs %s", a, b)
	}
}
