package domain

import "testing"

func TestValidTier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"low", true},
		{"medium", true},
		{"high", true},
		{"", false},
		{"HIGH", false},
		{"critical", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ValidTier(tt.in); got != tt.want {
				t.Errorf("ValidTier(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTierOrDefault(t *testing.T) {
	if got := Tier("").OrDefault(TierMedium); got != TierMedium {
		t.Errorf("empty tier should default to medium, got %v", got)
	}
	if got := TierHigh.OrDefault(TierMedium); got != TierHigh {
		t.Errorf("explicit tier should be kept, got %v", got)
	}
}

func TestDeriveConfidence(t *testing.T) {
	tests := []struct {
		name   string
		parent float64
		want   float64
	}{
		{"typical - 0.8", 0.8, 0.72},
		{"rounds - 0.77", 0.77, 0.69},
		{"full confidence - 1.0", 1.0, 0.9},
		{"upper clamp - 1.2", 1.2, 0.95},
		{"lower clamp - 0.0", 0.0, 0.05},
		{"lower clamp - 0.05", 0.05, 0.05},
		{"chained - 0.72", 0.72, 0.65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveConfidence(tt.parent)
			if got != tt.want {
				t.Errorf("DeriveConfidence(%v) = %v, want %v", tt.parent, got, tt.want)
			}
		})
	}
}

func TestValidConfidence(t *testing.T) {
	for _, c := range []float64{0, 0.5, 1} {
		if !ValidConfidence(c) {
			t.Errorf("%v should be valid", c)
		}
	}
	for _, c := range []float64{-0.01, 1.01} {
		if ValidConfidence(c) {
			t.Errorf("%v should be invalid", c)
		}
	}
}
