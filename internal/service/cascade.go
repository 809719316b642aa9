package service

import (
	"context"

	"go.uber.org/zap"

	"pettycash/internal/models"
)

// Classifier is one strategy in the cascade. Attempt returns (result, true)
// on an acceptable match, (nil, false) when the strategy has nothing to say,
// and a non-nil error only for hard failures that should abort the cascade.
type Classifier interface {
	Attempt(ctx context.Context, req *models.ClassificationRequest) (*models.ClassificationResult, bool, error)
}

// CascadeService evaluates classifiers strictly in order and returns the
// first acceptable match. A later stage can never override an earlier one.
type CascadeService struct {
	classifiers     []Classifier
	reviewThreshold float64
	logger          *zap.Logger
}

func NewCascadeService(reviewThreshold float64, logger *zap.Logger, classifiers ...Classifier) *CascadeService {
	return &CascadeService{
		classifiers:     classifiers,
		reviewThreshold: reviewThreshold,
		logger:          logger,
	}
}

// Classify runs the cascade for one expense description.
func (s *CascadeService) Classify(ctx context.Context, req *models.ClassificationRequest) (*models.ClassificationResult, error) {
	for _, c := range s.classifiers {
		result, ok, err := c.Attempt(ctx, req)
		if err != nil {
			classificationFailures.Inc()
			return nil, err
		}
		if !ok {
			continue
		}

		if result.Confidence < s.reviewThreshold {
			result.RequiresReview = true
		}
		classificationsTotal.WithLabelValues(string(result.Method)).Inc()

		s.logger.Info("expense classified",
			zap.String("method", string(result.Method)),
			zap.String("account_code", result.AccountCode),
			zap.Float64("confidence", result.Confidence),
			zap.Bool("requires_review", result.RequiresReview))

		return result, nil
	}

	classificationFailures.Inc()
	return nil, &models.ClassificationUnavailable{Reason: "no classifier produced a result"}
}
