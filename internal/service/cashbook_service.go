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

// CashbookStore is the append-only persistence surface of the ledger.
// Append is the only write path and owns the running balance.
type CashbookStore interface {
	Append(ctx context.Context, entry *models.CashbookEntry) (*models.CashbookEntry, error)
	CurrentBalance(ctx context.Context) (decimal.Decimal, error)
	FindDisbursementEntry(ctx context.Context, requisitionID string) (*models.CashbookEntry, error)
	List(ctx context.Context, afterSeq int64, limit int) ([]*models.CashbookEntry, error)
	All(ctx context.Context) ([]*models.CashbookEntry, error)
}

// CashbookService maintains the append-only cash journal. Posted rows are
// never updated or deleted; corrections are new ADJUSTMENT entries
// referencing the original.
type CashbookService struct {
	store  CashbookStore
	logger *zap.Logger
}

func NewCashbookService(store CashbookStore, logger *zap.Logger) *CashbookService {
	return &CashbookService{store: store, logger: logger}
}

// Post validates the entry against its type's debit/credit convention and
// appends it. The running balance is computed inside the store's serialized
// append, never here.
func (s *CashbookService) Post(ctx context.Context, req *models.PostEntryRequest) (*models.CashbookEntry, error) {
	if err := validateEntry(req); err != nil {
		return nil, err
	}

	entryDate := req.EntryDate
	if entryDate.IsZero() {
		entryDate = time.Now()
	}

	entry := &models.CashbookEntry{
		ID:            uuid.New().String(),
		EntryDate:     entryDate,
		Description:   req.Description,
		Debit:         req.Debit,
		Credit:        req.Credit,
		EntryType:     req.EntryType,
		Status:        models.EntryStatusActive,
		RequisitionID: req.RequisitionID,
		AccountCode:   req.AccountCode,
		Reference:     req.Reference,
		AdjustsEntry:  req.AdjustsEntry,
		CreatedBy:     req.CreatedBy,
		CreatedAt:     time.Now(),
	}

	posted, err := s.store.Append(ctx, entry)
	if err != nil {
		return nil, err
	}

	ledgerPostsTotal.WithLabelValues(string(entry.EntryType)).Inc()
	s.logger.Info("cashbook entry posted",
		zap.String("entry_id", posted.ID),
		zap.String("entry_type", string(posted.EntryType)),
		zap.String("debit", posted.Debit.String()),
		zap.String("credit", posted.Credit.String()),
		zap.String("balance_after", posted.BalanceAfter.String()))

	return posted, nil
}

// Balance returns the current running balance.
func (s *CashbookService) Balance(ctx context.Context) (decimal.Decimal, error) {
	return s.store.CurrentBalance(ctx)
}

// List returns a page of entries in insertion order.
func (s *CashbookService) List(ctx context.Context, afterSeq int64, limit int) ([]*models.CashbookEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.List(ctx, afterSeq, limit)
}

// Verify recomputes the running balance over the full ledger and reports
// every entry whose stored balance_after disagrees. Inconsistencies are
// surfaced, never corrected.
func (s *CashbookService) Verify(ctx context.Context) (*models.VerifyReport, error) {
	entries, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.VerifyReport{Entries: len(entries), Consistent: true}
	running := decimal.Zero
	for _, e := range entries {
		running = models.NextBalance(running, e.Debit, e.Credit)
		if !running.Equal(e.BalanceAfter) {
			report.Consistent = false
			inc := &models.LedgerInconsistency{
				EntryID:  e.ID,
				Stored:   e.BalanceAfter.String(),
				Computed: running.String(),
			}
			report.Discrepancies = append(report.Discrepancies, inc.Error())
			s.logger.Error("ledger inconsistency detected",
				zap.String("entry_id", e.ID),
				zap.Int64("seq", e.Seq),
				zap.String("stored", e.BalanceAfter.String()),
				zap.String("computed", running.String()))
			// Continue from the stored balance so one bad row does not
			// cascade into reports for every later entry.
			running = e.BalanceAfter
		}
	}

	return report, nil
}

// PostAdjustment posts a correction referencing an existing entry.
func (s *CashbookService) PostAdjustment(ctx context.Context, req *models.PostEntryRequest) (*models.CashbookEntry, error) {
	if req.AdjustsEntry == "" {
		return nil, fmt.Errorf("adjustment must reference the entry it corrects")
	}
	req.EntryType = models.EntryTypeAdjustment
	return s.Post(ctx, req)
}

func validateEntry(req *models.PostEntryRequest) error {
	if req.Debit.IsNegative() || req.Credit.IsNegative() {
		return fmt.Errorf("debit and credit must be non-negative")
	}
	hasDebit := req.Debit.IsPositive()
	hasCredit := req.Credit.IsPositive()
	if hasDebit == hasCredit {
		return fmt.Errorf("entry must carry exactly one of debit or credit")
	}

	switch req.EntryType {
	case models.EntryTypeOpeningBalance, models.EntryTypeReturn:
		if !hasCredit {
			return fmt.Errorf("%s entries are credits", req.EntryType)
		}
	case models.EntryTypeDisbursement:
		if !hasDebit {
			return fmt.Errorf("DISBURSEMENT entries are debits")
		}
		if req.RequisitionID == "" {
			return fmt.Errorf("DISBURSEMENT entries must reference a requisition")
		}
	case models.EntryTypeAdjustment, models.EntryTypeClosingBalance:
		// Either side, per use case.
	default:
		return fmt.Errorf("unknown entry type %q", req.EntryType)
	}
	return nil
}

// IsDuplicatePosting reports whether an append failed because a DISBURSEMENT
// entry already exists for the requisition.
func IsDuplicatePosting(err error) (*models.DuplicateLedgerPosting, bool) {
	var dup *models.DuplicateLedgerPosting
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}
