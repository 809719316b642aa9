package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pettycash/internal/models"
)

// RequisitionStore is the persistence surface shared by the requisition and
// disbursement services. Transition applies a status change under a
// per-requisition row lock, rejecting it with InvalidStateTransition when the
// current status is not in from.
type RequisitionStore interface {
	Create(ctx context.Context, req *models.Requisition) error
	GetByID(ctx context.Context, id string) (*models.Requisition, error)
	ListByStatus(ctx context.Context, statuses ...models.RequisitionStatus) ([]*models.Requisition, error)
	Transition(ctx context.Context, id string, from []models.RequisitionStatus, to models.RequisitionStatus, operation string) (*models.Requisition, error)
	AssignReference(ctx context.Context, id string, year int) (string, error)
	UpdateExpenses(ctx context.Context, id string, editable []models.RequisitionStatus, updates []models.ExpenseItemRequest) (*models.Requisition, error)
	UpdateItemClassification(ctx context.Context, itemID string, result *models.ClassificationResult) error
}

// DisbursementStore persists the physical cash handoff record.
type DisbursementStore interface {
	Create(ctx context.Context, d *models.Disbursement) error
	GetByRequisition(ctx context.Context, requisitionID string) (*models.Disbursement, error)
	RecordAcknowledgement(ctx context.Context, requisitionID, signature string) error
	RecordReturn(ctx context.Context, requisitionID string, denominations models.Denominations, actualChange decimal.Decimal) error
	RecordConfirmation(ctx context.Context, requisitionID string, denominations models.Denominations, confirmedChange, discrepancy decimal.Decimal, confirmedBy string) error
}

// DisbursementService computes prepared/returned/confirmed amounts and the
// discrepancy, and owns the single authoritative path that posts a
// requisition's DISBURSEMENT ledger entry.
type DisbursementService struct {
	requisitions  RequisitionStore
	disbursements DisbursementStore
	cashbook      *CashbookService
	logger        *zap.Logger
}

func NewDisbursementService(requisitions RequisitionStore, disbursements DisbursementStore, cashbook *CashbookService, logger *zap.Logger) *DisbursementService {
	return &DisbursementService{
		requisitions:  requisitions,
		disbursements: disbursements,
		cashbook:      cashbook,
		logger:        logger,
	}
}

// Disburse records the prepared cash and moves AUTHORISED -> DISBURSED. The
// denomination multiset must sum exactly to the declared total.
func (s *DisbursementService) Disburse(ctx context.Context, requisitionID string, req *models.DisburseRequest) (*models.Disbursement, error) {
	if req.TotalPrepared.IsNegative() {
		return nil, fmt.Errorf("total_prepared must be non-negative")
	}
	if err := checkDenominations(req.Denominations, req.TotalPrepared); err != nil {
		return nil, err
	}

	requisition, err := s.requisitions.Transition(ctx, requisitionID,
		OperationSources("disburse"), TargetOf("disburse"), "disburse")
	if err != nil {
		return nil, err
	}
	transitionsTotal.WithLabelValues("disburse").Inc()

	d := &models.Disbursement{
		ID:                    uuid.New().String(),
		RequisitionID:         requisitionID,
		CashierID:             req.CashierID,
		TotalPrepared:         req.TotalPrepared,
		PreparedDenominations: req.Denominations,
		DisbursedAt:           requisition.UpdatedAt,
		UpdatedAt:             requisition.UpdatedAt,
	}
	if err := s.disbursements.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to record disbursement: %w", err)
	}

	s.logger.Info("cash disbursed",
		zap.String("requisition_id", requisitionID),
		zap.String("total_prepared", req.TotalPrepared.String()),
		zap.String("cashier_id", req.CashierID))

	return d, nil
}

// Acknowledge records the requestor's receipt signature, moves DISBURSED ->
// RECEIVED, and posts the requisition's DISBURSEMENT ledger entry.
func (s *DisbursementService) Acknowledge(ctx context.Context, requisitionID, signature string) (*models.Requisition, error) {
	requisition, err := s.requisitions.Transition(ctx, requisitionID,
		OperationSources("acknowledge"), TargetOf("acknowledge"), "acknowledge")
	if err != nil {
		return nil, err
	}
	transitionsTotal.WithLabelValues("acknowledge").Inc()

	if err := s.disbursements.RecordAcknowledgement(ctx, requisitionID, signature); err != nil {
		return nil, err
	}

	d, err := s.disbursements.GetByRequisition(ctx, requisitionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.FinalizeDisbursement(ctx, requisitionID, d.TotalPrepared, decimal.Zero, requisition.Reference); err != nil {
		return nil, err
	}

	return requisition, nil
}

// ReturnChange records the requestor-declared change and moves RECEIVED ->
// CHANGE_SUBMITTED.
func (s *DisbursementService) ReturnChange(ctx context.Context, requisitionID string, req *models.ReturnChangeRequest) (*models.Disbursement, error) {
	if req.ActualChangeAmount.IsNegative() {
		return nil, fmt.Errorf("actual_change_amount must be non-negative")
	}
	if err := checkDenominations(req.Denominations, req.ActualChangeAmount); err != nil {
		return nil, err
	}

	if _, err := s.requisitions.Transition(ctx, requisitionID,
		OperationSources("submitChange"), TargetOf("submitChange"), "submitChange"); err != nil {
		return nil, err
	}
	transitionsTotal.WithLabelValues("submitChange").Inc()

	if err := s.disbursements.RecordReturn(ctx, requisitionID, req.Denominations, req.ActualChangeAmount); err != nil {
		return nil, err
	}

	return s.disbursements.GetByRequisition(ctx, requisitionID)
}

// ConfirmChange records the cashier-verified change, derives the signed
// discrepancy (confirmed - actual), moves CHANGE_SUBMITTED -> COMPLETED and
// posts the RETURN credit.
func (s *DisbursementService) ConfirmChange(ctx context.Context, requisitionID string, req *models.ConfirmChangeRequest) (*models.Disbursement, error) {
	if req.ConfirmedChangeAmount.IsNegative() {
		return nil, fmt.Errorf("confirmed_change_amount must be non-negative")
	}
	if err := checkDenominations(req.Denominations, req.ConfirmedChangeAmount); err != nil {
		return nil, err
	}

	d, err := s.disbursements.GetByRequisition(ctx, requisitionID)
	if err != nil {
		return nil, err
	}
	if d.ActualChangeAmount == nil {
		return nil, fmt.Errorf("requisition %s has no declared change to confirm", requisitionID)
	}

	// Positive: cashier received more than the requestor declared.
	discrepancy := Discrepancy(req.ConfirmedChangeAmount, *d.ActualChangeAmount)

	requisition, err := s.requisitions.Transition(ctx, requisitionID,
		OperationSources("confirmChange"), TargetOf("confirmChange"), "confirmChange")
	if err != nil {
		return nil, err
	}
	transitionsTotal.WithLabelValues("confirmChange").Inc()

	if err := s.disbursements.RecordConfirmation(ctx, requisitionID, req.Denominations, req.ConfirmedChangeAmount, discrepancy, req.ConfirmedBy); err != nil {
		return nil, err
	}

	if req.ConfirmedChangeAmount.IsPositive() {
		_, err = s.cashbook.Post(ctx, &models.PostEntryRequest{
			Description:   fmt.Sprintf("Change returned for %s", refOrID(requisition)),
			Credit:        req.ConfirmedChangeAmount,
			EntryType:     models.EntryTypeReturn,
			RequisitionID: requisitionID,
			Reference:     requisition.Reference,
			CreatedBy:     req.ConfirmedBy,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to post change return: %w", err)
		}
	}

	if !discrepancy.IsZero() {
		s.logger.Warn("change discrepancy recorded",
			zap.String("requisition_id", requisitionID),
			zap.String("discrepancy", discrepancy.String()))
	}

	return s.disbursements.GetByRequisition(ctx, requisitionID)
}

// FinalizeDisbursement posts the one DISBURSEMENT cashbook entry for a
// requisition. Idempotent: a second call finds the existing entry and returns
// it without posting again.
func (s *DisbursementService) FinalizeDisbursement(ctx context.Context, requisitionID string, actualExpenditure, discrepancy decimal.Decimal, voucherReference string) (*models.CashbookEntry, error) {
	if actualExpenditure.IsNegative() {
		return nil, fmt.Errorf("actual expenditure must be non-negative")
	}

	if existing, err := s.cashbook.store.FindDisbursementEntry(ctx, requisitionID); err == nil {
		duplicatePostingsTotal.Inc()
		return existing, nil
	} else {
		var nf *models.NotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	description := fmt.Sprintf("Petty cash disbursement %s", voucherReference)
	if voucherReference == "" {
		description = fmt.Sprintf("Petty cash disbursement for requisition %s", requisitionID)
	}
	if !discrepancy.IsZero() {
		description = fmt.Sprintf("%s (discrepancy %s)", description, discrepancy.String())
	}

	entry, err := s.cashbook.Post(ctx, &models.PostEntryRequest{
		Description:   description,
		Debit:         actualExpenditure,
		EntryType:     models.EntryTypeDisbursement,
		RequisitionID: requisitionID,
		Reference:     voucherReference,
	})
	if err != nil {
		// Lost the race to a concurrent finalize: absorb it.
		if dup, ok := IsDuplicatePosting(err); ok {
			duplicatePostingsTotal.Inc()
			s.logger.Info("disbursement already posted",
				zap.String("requisition_id", requisitionID),
				zap.String("entry_id", dup.EntryID))
			return s.cashbook.store.FindDisbursementEntry(ctx, requisitionID)
		}
		return nil, err
	}

	return entry, nil
}

// Discrepancy is the authoritative sign convention: confirmed minus actual.
func Discrepancy(confirmed, actual decimal.Decimal) decimal.Decimal {
	return confirmed.Sub(actual)
}

func checkDenominations(denominations models.Denominations, declared decimal.Decimal) error {
	sum, err := denominations.Sum()
	if err != nil {
		return fmt.Errorf("invalid denomination value: %w", err)
	}
	if !sum.Equal(declared) {
		return &models.DenominationMismatch{
			Declared: declared.String(),
			Summed:   sum.String(),
		}
	}
	return nil
}

func refOrID(req *models.Requisition) string {
	if req.Reference != "" {
		return req.Reference
	}
	return req.ID
}
