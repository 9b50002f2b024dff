package domain

import (
	"strings"

	"github.com/google/uuid"
)

const (
	PrefixMemory     = "mem"
	PrefixExperience = "exp"
	PrefixCognition  = "cg"
	PrefixTrace      = "dt"
	PrefixDecision   = "dec"
	PrefixJob        = "job"
	PrefixAudit      = "aud"
	PrefixPersona    = "persona"
)

// NewID returns prefix_ followed by twelve random hex characters.
func NewID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + hex[:12]
}

// HasPrefix reports whether id was minted with the given component prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"_")
}
