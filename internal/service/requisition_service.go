package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pettycash/internal/models"
	"pettycash/pkg/redis"
)

// RequisitionService drives a cash request from creation through expense
// reporting. Status changes go through the transition table; estimated totals
// are fixed at creation and actual totals recomputed from line items.
type RequisitionService struct {
	store       RequisitionStore
	cascade     *CascadeService
	redisClient *redis.Client
	logger      *zap.Logger
}

func NewRequisitionService(store RequisitionStore, cascade *CascadeService, redisClient *redis.Client, logger *zap.Logger) *RequisitionService {
	return &RequisitionService{
		store:       store,
		cascade:     cascade,
		redisClient: redisClient,
		logger:      logger,
	}
}

// Create builds a DRAFT requisition with its line items. The estimated total
// is the sum of item estimates and is immutable afterwards. An idempotency
// key makes retried creates return the original requisition.
func (s *RequisitionService) Create(ctx context.Context, req *models.CreateRequisitionRequest, idempotencyKey string) (*models.Requisition, error) {
	if idempotencyKey != "" {
		if cached := s.getIdempotent(ctx, idempotencyKey); cached != nil {
			return cached, nil
		}
	}

	now := time.Now()
	requisition := &models.Requisition{
		ID:          uuid.New().String(),
		RequesterID: req.RequesterID,
		Description: req.Description,
		Status:      models.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	estimatedTotal := decimal.Zero
	for _, item := range req.Items {
		if item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("unit_price must be non-negative")
		}
		estimated := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		requisition.Items = append(requisition.Items, &models.LineItem{
			ID:              uuid.New().String(),
			RequisitionID:   requisition.ID,
			Description:     item.Description,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			EstimatedAmount: estimated,
			CreatedAt:       now,
		})
		estimatedTotal = estimatedTotal.Add(estimated)
	}
	requisition.EstimatedTotal = estimatedTotal

	if err := s.store.Create(ctx, requisition); err != nil {
		return nil, fmt.Errorf("failed to create requisition: %w", err)
	}

	s.classifyItems(ctx, requisition)

	if idempotencyKey != "" {
		s.cacheIdempotent(ctx, idempotencyKey, requisition)
	}

	s.logger.Info("requisition created",
		zap.String("requisition_id", requisition.ID),
		zap.String("estimated_total", estimatedTotal.String()),
		zap.Int("items", len(requisition.Items)))

	return requisition, nil
}

func (s *RequisitionService) Get(ctx context.Context, id string) (*models.Requisition, error) {
	return s.store.GetByID(ctx, id)
}

func (s *RequisitionService) ListByStatus(ctx context.Context, statuses ...models.RequisitionStatus) ([]*models.Requisition, error) {
	return s.store.ListByStatus(ctx, statuses...)
}

// ApplyStatus performs the named transition for a requested target status
// (the PATCH /status surface). Cash-event transitions (disburse, acknowledge,
// change handling) have their own endpoints and are rejected here.
func (s *RequisitionService) ApplyStatus(ctx context.Context, id string, target models.RequisitionStatus) (*models.Requisition, error) {
	operation := OperationFor(target)
	switch operation {
	case "submit", "authorise", "reject":
	case "":
		return nil, fmt.Errorf("unknown target status %q", target)
	default:
		return nil, fmt.Errorf("status %s is driven by its own operation, not a direct status change", target)
	}

	requisition, err := s.store.Transition(ctx, id, OperationSources(operation), TargetOf(operation), operation)
	if err != nil {
		return nil, err
	}
	transitionsTotal.WithLabelValues(operation).Inc()

	if operation == "submit" && requisition.Reference == "" {
		if ref, err := s.store.AssignReference(ctx, requisition.ID, time.Now().Year()); err != nil {
			s.logger.Error("failed to assign reference", zap.Error(err),
				zap.String("requisition_id", requisition.ID))
		} else {
			requisition.Reference = ref
		}
	}

	return requisition, nil
}

// UpdateExpenses writes actual amounts and receipts onto line items while the
// requisition is still in an editable-expenses state, recomputing
// actual_total.
func (s *RequisitionService) UpdateExpenses(ctx context.Context, id string, req *models.UpdateExpensesRequest) (*models.Requisition, error) {
	for _, item := range req.Items {
		if item.ActualAmount.IsNegative() {
			return nil, fmt.Errorf("actual_amount must be non-negative")
		}
	}

	requisition, err := s.store.UpdateExpenses(ctx, id, OperationSources("updateExpenses"), req.Items)
	if err != nil {
		return nil, err
	}

	s.logger.Info("expenses updated",
		zap.String("requisition_id", id),
		zap.String("actual_total", requisition.ActualTotal.String()))

	return requisition, nil
}

// classifyItems runs the cascade per line item. Classification is advisory at
// this stage; an unavailable oracle leaves items unclassified for manual
// selection rather than failing the create.
func (s *RequisitionService) classifyItems(ctx context.Context, requisition *models.Requisition) {
	if s.cascade == nil {
		return
	}
	for _, item := range requisition.Items {
		result, err := s.cascade.Classify(ctx, &models.ClassificationRequest{
			Description: item.Description,
			Amount:      item.EstimatedAmount.String(),
		})
		if err != nil {
			s.logger.Warn("line item left unclassified",
				zap.String("item_id", item.ID),
				zap.Error(err))
			continue
		}
		if err := s.store.UpdateItemClassification(ctx, item.ID, result); err != nil {
			s.logger.Error("failed to persist classification",
				zap.String("item_id", item.ID),
				zap.Error(err))
			continue
		}
		item.AccountCode = result.AccountCode
		item.Confidence = &result.Confidence
		item.ClassifiedBy = result.Method
		item.RequiresReview = result.RequiresReview
	}
}

func (s *RequisitionService) getIdempotent(ctx context.Context, key string) *models.Requisition {
	if s.redisClient == nil {
		return nil
	}
	data, err := s.redisClient.Get(ctx, idempotencyKey(key))
	if err != nil {
		return nil
	}
	var requisition models.Requisition
	if err := json.Unmarshal([]byte(data), &requisition); err != nil {
		return nil
	}
	return &requisition
}

func (s *RequisitionService) cacheIdempotent(ctx context.Context, key string, requisition *models.Requisition) {
	if s.redisClient == nil {
		return
	}
	data, err := json.Marshal(requisition)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, idempotencyKey(key), data, 24*time.Hour); err != nil {
		s.logger.Debug("idempotency cache write failed", zap.Error(err))
	}
}

func idempotencyKey(key string) string {
	return "idempotency:requisition:" + key
}
