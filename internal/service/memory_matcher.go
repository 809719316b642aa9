package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"pettycash/internal/models"
	"pettycash/pkg/redis"
)

// MemoryStore is the persistent index of prior confirmed classifications.
type MemoryStore interface {
	GetMemory(ctx context.Context, key string) (*models.MemoryRecord, error)
	ListMemory(ctx context.Context, limit int) ([]*models.MemoryRecord, error)
	UpsertMemory(ctx context.Context, rec *models.MemoryRecord) error
}

// MemoryMatcher resolves descriptions against prior human-confirmed
// classifications. Exact normalized matches score 1.0; otherwise the best
// token-overlap candidate is scored and accepted above the threshold.
type MemoryMatcher struct {
	store           MemoryStore
	redisClient     *redis.Client
	logger          *zap.Logger
	acceptThreshold float64
	candidateLimit  int

	mu       sync.RWMutex
	memCache map[string]*memoryCacheEntry
	maxAge   time.Duration
}

type memoryCacheEntry struct {
	record   *models.MemoryRecord
	cachedAt time.Time
}

func NewMemoryMatcher(store MemoryStore, redisClient *redis.Client, acceptThreshold float64, logger *zap.Logger) *MemoryMatcher {
	return &MemoryMatcher{
		store:           store,
		redisClient:     redisClient,
		logger:          logger,
		acceptThreshold: acceptThreshold,
		candidateLimit:  500,
		memCache:        make(map[string]*memoryCacheEntry),
		maxAge:          5 * time.Minute,
	}
}

// Attempt implements Classifier.
func (m *MemoryMatcher) Attempt(ctx context.Context, req *models.ClassificationRequest) (*models.ClassificationResult, bool, error) {
	key := NormalizeDescription(req.Description)
	if key == "" {
		return nil, false, nil
	}

	// Exact match: cache layers first, then the store.
	if rec := m.cachedRecord(ctx, key); rec != nil {
		return m.result(rec, 1.0), true, nil
	}

	rec, err := m.store.GetMemory(ctx, key)
	if err == nil {
		m.cacheRecord(ctx, key, rec)
		return m.result(rec, 1.0), true, nil
	}
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		// A flaky memory store must not kill the cascade; fall through.
		m.logger.Warn("memory store lookup failed", zap.Error(err))
		return nil, false, nil
	}

	// Near match: score recent records by token overlap.
	candidates, err := m.store.ListMemory(ctx, m.candidateLimit)
	if err != nil {
		m.logger.Warn("memory store scan failed", zap.Error(err))
		return nil, false, nil
	}

	var best *models.MemoryRecord
	var bestScore float64
	for _, cand := range candidates {
		score := TokenSimilarity(key, cand.DescriptionKey)
		if score > bestScore {
			best = cand
			bestScore = score
		}
	}

	if best == nil || bestScore < m.acceptThreshold {
		return nil, false, nil
	}
	return m.result(best, bestScore), true, nil
}

// Confirm writes a human-confirmed classification back into the memory store,
// closing the learning loop. Last-writer-wins per description key.
func (m *MemoryMatcher) Confirm(ctx context.Context, description, accountCode string) error {
	key := NormalizeDescription(description)
	if key == "" {
		return fmt.Errorf("empty description")
	}
	rec := &models.MemoryRecord{
		DescriptionKey: key,
		Description:    description,
		AccountCode:    accountCode,
		Confidence:     1.0,
		HitCount:       1,
	}
	if err := m.store.UpsertMemory(ctx, rec); err != nil {
		return err
	}
	m.cacheRecord(ctx, key, rec)
	return nil
}

func (m *MemoryMatcher) result(rec *models.MemoryRecord, similarity float64) *models.ClassificationResult {
	return &models.ClassificationResult{
		AccountCode: rec.AccountCode,
		Confidence:  NormalizeMemory(similarity * rec.Confidence),
		Method:      models.MethodMemory,
	}
}

// cachedRecord checks the in-process cache, then redis.
func (m *MemoryMatcher) cachedRecord(ctx context.Context, key string) *models.MemoryRecord {
	m.mu.RLock()
	entry, ok := m.memCache[key]
	m.mu.RUnlock()
	if ok && time.Since(entry.cachedAt) < m.maxAge {
		return entry.record
	}

	if m.redisClient == nil {
		return nil
	}
	data, err := m.redisClient.Get(ctx, memoryCacheKey(key))
	if err != nil {
		return nil
	}
	var rec models.MemoryRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil
	}
	m.mu.Lock()
	m.memCache[key] = &memoryCacheEntry{record: &rec, cachedAt: time.Now()}
	m.mu.Unlock()
	return &rec
}

func (m *MemoryMatcher) cacheRecord(ctx context.Context, key string, rec *models.MemoryRecord) {
	m.mu.Lock()
	m.memCache[key] = &memoryCacheEntry{record: rec, cachedAt: time.Now()}
	m.mu.Unlock()

	if m.redisClient == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := m.redisClient.Set(ctx, memoryCacheKey(key), data, 30*time.Minute); err != nil {
		m.logger.Debug("memory cache write failed", zap.Error(err))
	}
}

func memoryCacheKey(key string) string {
	return "classify:memory:" + key
}

// NormalizeDescription lowercases, strips punctuation and collapses
// whitespace so near-identical descriptions share one key.
func NormalizeDescription(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// TokenSimilarity is the Jaccard index over whitespace tokens of two
// normalized descriptions.
func TokenSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}
	union := make(map[string]bool, len(ta)+len(tb))
	for _, t := range ta {
		union[t] = true
	}
	intersection := 0
	for _, t := range tb {
		if set[t] {
			set[t] = false
			intersection++
		}
		union[t] = true
	}
	return float64(intersection) / float64(len(union))
}
