package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pettycash/internal/models"
)

func TestRuleEngineKeywordMatch(t *testing.T) {
	engine := NewRuleEngine(&fakeRuleStore{rules: DefaultRules()}, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name        string
		description string
		wantCode    string
	}{
		{"stationery", "Box of A4 paper", "5010"},
		{"transport", "Taxi to the airport", "5020"},
		{"meals", "Lunch for visiting auditors", "5030"},
		{"postage", "Courier to head office", "5040"},
		{"repairs", "Plumber call-out", "5060"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok, err := engine.Attempt(ctx, &models.ClassificationRequest{Description: tt.description})
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, result.AccountCode)
			assert.Equal(t, models.MethodRule, result.Method)
		})
	}
}

func TestRuleEnginePriorityOrder(t *testing.T) {
	store := &fakeRuleStore{rules: []*models.ClassificationRule{
		{ID: "r-high", Keywords: []string{"fuel"}, AccountCode: "5020", Confidence: 0.90, Priority: 10},
		{ID: "r-low", Keywords: []string{"fuel", "generator"}, AccountCode: "5070", Confidence: 0.95, Priority: 20},
	}}
	engine := NewRuleEngine(store, zap.NewNop())

	result, ok, err := engine.Attempt(context.Background(), &models.ClassificationRequest{Description: "fuel for generator"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "5020", result.AccountCode, "earlier rule wins even when a later rule also matches")
}

func TestRuleEngineConfidenceDiscounted(t *testing.T) {
	store := &fakeRuleStore{rules: []*models.ClassificationRule{
		{ID: "r-1", Keywords: []string{"stationery"}, AccountCode: "5010", Confidence: 1.0, Priority: 10},
	}}
	engine := NewRuleEngine(store, zap.NewNop())

	result, ok, err := engine.Attempt(context.Background(), &models.ClassificationRequest{Description: "stationery order"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.97, result.Confidence, 1e-9)
}

func TestRuleEngineNoMatchDeclines(t *testing.T) {
	engine := NewRuleEngine(&fakeRuleStore{rules: DefaultRules()}, zap.NewNop())

	result, ok, err := engine.Attempt(context.Background(), &models.ClassificationRequest{Description: "quarterly actuarial valuation"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, result)
}

func TestRuleEngineFallsBackToDefaults(t *testing.T) {
	engine := NewRuleEngine(&fakeRuleStore{}, zap.NewNop())

	_, ok, err := engine.Attempt(context.Background(), &models.ClassificationRequest{Description: "printer toner"})
	require.NoError(t, err)
	assert.True(t, ok, "empty rules table falls back to the built-in set")
}

func TestRuleEngineMatchIsCaseInsensitive(t *testing.T) {
	engine := NewRuleEngine(&fakeRuleStore{rules: DefaultRules()}, zap.NewNop())

	result, ok, err := engine.Attempt(context.Background(), &models.ClassificationRequest{Description: "TAXI FARE"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "5020", result.AccountCode)
}
