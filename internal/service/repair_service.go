package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pettycash/internal/models"
)

// RepairReportStore persists repair run summaries.
type RepairReportStore interface {
	SaveReport(ctx context.Context, report *models.RepairReport) error
}

// RepairService backfills DISBURSEMENT ledger entries for requisitions whose
// cash left the box without a corresponding posting. Safe to run repeatedly:
// finalizeDisbursement is idempotent and requisitions with an existing entry
// are skipped untouched.
type RepairService struct {
	requisitions  RequisitionStore
	disbursements DisbursementStore
	engine        *DisbursementService
	cashbook      *CashbookService
	reports       RepairReportStore
	logger        *zap.Logger
}

func NewRepairService(requisitions RequisitionStore, disbursements DisbursementStore, engine *DisbursementService, cashbook *CashbookService, reports RepairReportStore, logger *zap.Logger) *RepairService {
	return &RepairService{
		requisitions:  requisitions,
		disbursements: disbursements,
		engine:        engine,
		cashbook:      cashbook,
		reports:       reports,
		logger:        logger,
	}
}

// Run scans every requisition past physical disbursement and backfills
// missing ledger entries.
func (s *RepairService) Run(ctx context.Context) (*models.RepairReport, error) {
	report := &models.RepairReport{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
	}

	requisitions, err := s.requisitions.ListByStatus(ctx,
		models.StatusReceived, models.StatusChangeSubmitted, models.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list requisitions: %w", err)
	}
	report.Scanned = len(requisitions)

	for _, requisition := range requisitions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := s.cashbook.store.FindDisbursementEntry(ctx, requisition.ID); err == nil {
			report.Skipped++
			continue
		} else {
			var nf *models.NotFoundError
			if !errors.As(err, &nf) {
				report.Failed++
				report.Details = append(report.Details,
					fmt.Sprintf("requisition %s: ledger lookup failed: %v", requisition.ID, err))
				continue
			}
		}

		expenditure, discrepancy, err := s.recompute(ctx, requisition)
		if err != nil {
			report.Failed++
			report.Details = append(report.Details,
				fmt.Sprintf("requisition %s: %v", requisition.ID, err))
			continue
		}

		entry, err := s.engine.FinalizeDisbursement(ctx, requisition.ID, expenditure, discrepancy, requisition.Reference)
		if err != nil {
			report.Failed++
			report.Details = append(report.Details,
				fmt.Sprintf("requisition %s: backfill failed: %v", requisition.ID, err))
			continue
		}

		report.Backfilled++
		report.Details = append(report.Details,
			fmt.Sprintf("requisition %s: backfilled entry %s (debit %s)",
				requisition.ID, entry.ID, entry.Debit.String()))
		s.logger.Info("ledger entry backfilled",
			zap.String("requisition_id", requisition.ID),
			zap.String("entry_id", entry.ID))
	}

	report.FinishedAt = time.Now()

	if s.reports != nil {
		if err := s.reports.SaveReport(ctx, report); err != nil {
			s.logger.Error("failed to save repair report", zap.Error(err))
		}
	}

	s.logger.Info("repair run finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("backfilled", report.Backfilled),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))

	return report, nil
}

// recompute derives the authoritative expenditure and discrepancy from the
// disbursement record: the debit is the cash that physically left the box.
func (s *RepairService) recompute(ctx context.Context, requisition *models.Requisition) (decimal.Decimal, decimal.Decimal, error) {
	d, err := s.disbursements.GetByRequisition(ctx, requisition.ID)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("no disbursement record: %w", err)
	}

	discrepancy := decimal.Zero
	if d.ConfirmedChangeAmount != nil && d.ActualChangeAmount != nil {
		discrepancy = Discrepancy(*d.ConfirmedChangeAmount, *d.ActualChangeAmount)
	}

	return d.TotalPrepared, discrepancy, nil
}
