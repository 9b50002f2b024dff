package domain

import "math"

// Tier grades both risk and impact. The two share a scale so a decision can
// report them side by side.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

func ValidTier(t string) bool {
	switch Tier(t) {
	case TierLow, TierMedium, TierHigh:
		return true
	}
	return false
}

// OrDefault returns t, or def when t is empty.
func (t Tier) OrDefault(def Tier) Tier {
	if t == "" {
		return def
	}
	return t
}

func AllTiers() []Tier {
	return []Tier{TierLow, TierMedium, TierHigh}
}

const (
	MinDerivedConfidence = 0.05
	MaxDerivedConfidence = 0.95
	DerivationFactor     = 0.9
)

// DeriveConfidence discounts a parent's confidence for a derived object,
// clamped to [0.05, 0.95] and rounded to two decimals.
func DeriveConfidence(parent float64) float64 {
	c := parent * DerivationFactor
	if c < MinDerivedConfidence {
		c = MinDerivedConfidence
	}
	if c > MaxDerivedConfidence {
		c = MaxDerivedConfidence
	}
	return math.Round(c*100) / 100
}

func ValidConfidence(c float64) bool {
	return c >= 0 && c <= 1 && !math.IsNaN(c)
}
