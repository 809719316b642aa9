package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pettycash/internal/models"
)

// VoucherStore persists double-entry voucher groupings.
type VoucherStore interface {
	Create(ctx context.Context, v *models.Voucher) error
	GetByID(ctx context.Context, id string) (*models.Voucher, error)
	MarkPosted(ctx context.Context, id string) error
	CountForYear(ctx context.Context, year int) (int, error)
}

// VoucherService creates and posts balanced double-entry vouchers. Totals are
// recomputed from lines; a voucher whose debits and credits disagree never
// reaches POSTED.
type VoucherService struct {
	store    VoucherStore
	accounts AccountStore
	logger   *zap.Logger
}

func NewVoucherService(store VoucherStore, accounts AccountStore, logger *zap.Logger) *VoucherService {
	return &VoucherService{store: store, accounts: accounts, logger: logger}
}

// Create builds a DRAFT voucher. Lines are validated against the chart of
// accounts and must balance.
func (s *VoucherService) Create(ctx context.Context, req *models.CreateVoucherRequest) (*models.Voucher, error) {
	voucher := &models.Voucher{
		ID:            uuid.New().String(),
		RequisitionID: req.RequisitionID,
		Description:   req.Description,
		Status:        models.VoucherStatusDraft,
		CreatedAt:     time.Now(),
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, lineReq := range req.Lines {
		if lineReq.Debit.IsNegative() || lineReq.Credit.IsNegative() {
			return nil, fmt.Errorf("debit and credit must be non-negative")
		}
		hasDebit := lineReq.Debit.IsPositive()
		hasCredit := lineReq.Credit.IsPositive()
		if hasDebit == hasCredit {
			return nil, fmt.Errorf("each line must carry exactly one of debit or credit")
		}
		if _, err := s.accounts.GetByCode(ctx, lineReq.AccountCode); err != nil {
			return nil, err
		}

		voucher.Lines = append(voucher.Lines, &models.VoucherLine{
			ID:          uuid.New().String(),
			VoucherID:   voucher.ID,
			AccountCode: lineReq.AccountCode,
			Debit:       lineReq.Debit,
			Credit:      lineReq.Credit,
			Description: lineReq.Description,
		})
		totalDebit = totalDebit.Add(lineReq.Debit)
		totalCredit = totalCredit.Add(lineReq.Credit)
	}
	voucher.TotalDebit = totalDebit
	voucher.TotalCredit = totalCredit

	if !totalDebit.Equal(totalCredit) {
		return nil, &models.VoucherUnbalanced{
			VoucherID:   voucher.ID,
			TotalDebit:  totalDebit.StringFixed(2),
			TotalCredit: totalCredit.StringFixed(2),
		}
	}

	number, err := s.nextNumber(ctx)
	if err != nil {
		return nil, err
	}
	voucher.Number = number

	if err := s.store.Create(ctx, voucher); err != nil {
		return nil, fmt.Errorf("failed to create voucher: %w", err)
	}

	s.logger.Info("voucher created",
		zap.String("voucher_id", voucher.ID),
		zap.String("number", voucher.Number),
		zap.String("total", totalDebit.String()))

	return voucher, nil
}

// Post moves a draft voucher to POSTED after re-verifying balance from its
// stored lines.
func (s *VoucherService) Post(ctx context.Context, id string) (*models.Voucher, error) {
	voucher, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range voucher.Lines {
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if !totalDebit.Equal(totalCredit) {
		return nil, &models.VoucherUnbalanced{
			VoucherID:   id,
			TotalDebit:  totalDebit.StringFixed(2),
			TotalCredit: totalCredit.StringFixed(2),
		}
	}

	if err := s.store.MarkPosted(ctx, id); err != nil {
		return nil, err
	}

	return s.store.GetByID(ctx, id)
}

func (s *VoucherService) Get(ctx context.Context, id string) (*models.Voucher, error) {
	return s.store.GetByID(ctx, id)
}

func (s *VoucherService) nextNumber(ctx context.Context) (string, error) {
	year := time.Now().Year()
	count, err := s.store.CountForYear(ctx, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PCV-%d-%04d", year, count+1), nil
}
