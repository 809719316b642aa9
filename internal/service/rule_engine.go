package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"pettycash/internal/models"
)

// RuleStore loads the ordered deterministic keyword rules.
type RuleStore interface {
	ListRules(ctx context.Context) ([]*models.ClassificationRule, error)
}

// RuleEngine evaluates keyword rules against the normalized description in
// priority order. First matching rule wins.
type RuleEngine struct {
	store  RuleStore
	logger *zap.Logger

	mu       sync.RWMutex
	rules    []*models.ClassificationRule
	loadedAt time.Time
	maxAge   time.Duration
}

func NewRuleEngine(store RuleStore, logger *zap.Logger) *RuleEngine {
	return &RuleEngine{
		store:  store,
		logger: logger,
		maxAge: 10 * time.Minute,
	}
}

// Attempt implements Classifier.
func (e *RuleEngine) Attempt(ctx context.Context, req *models.ClassificationRequest) (*models.ClassificationResult, bool, error) {
	description := NormalizeDescription(req.Description)
	if description == "" {
		return nil, false, nil
	}

	rules := e.loadRules(ctx)
	for _, rule := range rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(description, strings.ToLower(keyword)) {
				return &models.ClassificationResult{
					AccountCode: rule.AccountCode,
					Confidence:  NormalizeRule(rule.Confidence),
					Method:      models.MethodRule,
				}, true, nil
			}
		}
	}

	return nil, false, nil
}

func (e *RuleEngine) loadRules(ctx context.Context) []*models.ClassificationRule {
	e.mu.RLock()
	if e.rules != nil && time.Since(e.loadedAt) < e.maxAge {
		rules := e.rules
		e.mu.RUnlock()
		return rules
	}
	e.mu.RUnlock()

	rules, err := e.store.ListRules(ctx)
	if err != nil {
		e.logger.Warn("rule load failed, using last known rules", zap.Error(err))
		e.mu.RLock()
		defer e.mu.RUnlock()
		if e.rules != nil {
			return e.rules
		}
		return DefaultRules()
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	e.mu.Lock()
	e.rules = rules
	e.loadedAt = time.Now()
	e.mu.Unlock()
	return rules
}

// DefaultRules is the built-in rule set used until the rules table is
// populated.
func DefaultRules() []*models.ClassificationRule {
	return []*models.ClassificationRule{
		{ID: "default-stationery", Keywords: []string{"pen", "paper", "stationery", "printer ink", "toner", "notebook"}, AccountCode: "5010", Confidence: 0.90, Priority: 10},
		{ID: "default-transport", Keywords: []string{"taxi", "fuel", "bus fare", "parking", "transport", "mileage"}, AccountCode: "5020", Confidence: 0.90, Priority: 20},
		{ID: "default-meals", Keywords: []string{"lunch", "refreshment", "catering", "tea", "coffee", "water"}, AccountCode: "5030", Confidence: 0.85, Priority: 30},
		{ID: "default-postage", Keywords: []string{"courier", "postage", "stamp", "shipping"}, AccountCode: "5040", Confidence: 0.90, Priority: 40},
		{ID: "default-cleaning", Keywords: []string{"cleaning", "detergent", "soap", "sanitizer"}, AccountCode: "5050", Confidence: 0.85, Priority: 50},
		{ID: "default-repairs", Keywords: []string{"repair", "maintenance", "spare part", "plumber", "electrician"}, AccountCode: "5060", Confidence: 0.80, Priority: 60},
		{ID: "default-utilities", Keywords: []string{"airtime", "data bundle", "internet", "electricity token"}, AccountCode: "5070", Confidence: 0.85, Priority: 70},
	}
}
