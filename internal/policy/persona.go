package policy

import (
	"strings"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

// EvaluatePersona matches each of the persona's boundary phrases against the
// experience narrative, case-insensitively. Any hit blocks; hits are reported
// in boundary order.
func EvaluatePersona(p domain.Persona, e domain.Experience) (domain.GateOutcome, []string) {
	text := strings.ToLower(e.Narrative())
	hits := []string{}
	for _, b := range p.Boundaries {
		phrase := strings.TrimSpace(b)
		if phrase == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(phrase)) {
			hits = append(hits, phrase)
		}
	}
	if len(hits) > 0 {
		return domain.GateBlock, hits
	}
	return domain.GatePass, hits
}
