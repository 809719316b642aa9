package service

import (
	"math"
	"testing"
)

func TestNormalizeMemory(t *testing.T) {
	tests := []struct {
		name       string
		similarity float64
		want       float64
	}{
		{"exact match capped at ceiling", 1.0, 0.99},
		{"partial match passes through", 0.85, 0.85},
		{"threshold boundary", 0.80, 0.80},
		{"zero similarity", 0, 0},
		{"negative clamped to zero", -0.3, 0},
		{"above one capped at ceiling", 1.4, 0.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeMemory(tt.similarity)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NormalizeMemory(%v) = %v, want %v", tt.similarity, got, tt.want)
			}
		})
	}
}

func TestNormalizeRule(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       float64
	}{
		{"full rule confidence discounted", 1.0, 0.97},
		{"mid confidence discounted", 0.90, 0.873},
		{"zero stays zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeRule(tt.confidence)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NormalizeRule(%v) = %v, want %v", tt.confidence, got, tt.want)
			}
		})
	}
}

func TestNormalizeAI(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       float64
	}{
		{"full AI confidence discounted", 1.0, 0.90},
		{"mid confidence discounted", 0.80, 0.72},
		{"NaN clamped to zero", math.NaN(), 0},
		{"negative clamped to zero", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAI(tt.confidence)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NormalizeAI(%v) = %v, want %v", tt.confidence, got, tt.want)
			}
		})
	}
}

func TestConfidenceNeverReachesOne(t *testing.T) {
	inputs := []float64{0.99, 0.995, 1.0, 1.01, 2.0, math.Inf(1)}
	for _, in := range inputs {
		for name, fn := range map[string]func(float64) float64{
			"memory": NormalizeMemory,
			"rule":   NormalizeRule,
			"ai":     NormalizeAI,
		} {
			if got := fn(in); got >= 1.0 {
				t.Errorf("%s normalizer produced %v for input %v, want < 1.0", name, got, in)
			}
		}
	}
}
