package service

import "math"

// Per-strategy discounts applied to raw confidence scores before they are
// trusted. Memory hits are treated as ground truth; rules are deterministic
// but may straddle category boundaries; generative output may be
// overconfident.
const (
	memoryFactor = 1.00
	ruleFactor   = 0.97
	aiFactor     = 0.90

	// ConfidenceCeiling caps every cascade-produced confidence. 1.00 is
	// reserved for explicit manual confirmation.
	ConfidenceCeiling = 0.99
)

// NormalizeMemory calibrates a memory-match similarity score.
func NormalizeMemory(similarity float64) float64 {
	return clampConfidence(similarity * memoryFactor)
}

// NormalizeRule calibrates a rule-engine confidence.
func NormalizeRule(confidence float64) float64 {
	return clampConfidence(confidence * ruleFactor)
}

// NormalizeAI calibrates a generative-model confidence.
func NormalizeAI(confidence float64) float64 {
	return clampConfidence(confidence * aiFactor)
}

func clampConfidence(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > ConfidenceCeiling {
		return ConfidenceCeiling
	}
	return v
}
