package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pettycash/internal/models"
)

func TestPostRunningBalance(t *testing.T) {
	store := newFakeCashbookStore()
	svc := NewCashbookService(store, zap.NewNop())
	ctx := context.Background()

	opening, err := svc.Post(ctx, &models.PostEntryRequest{
		Description: "opening float",
		Credit:      dec("5000.00"),
		EntryType:   models.EntryTypeOpeningBalance,
		CreatedBy:   "custodian",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), opening.Seq)
	assert.True(t, opening.BalanceAfter.Equal(dec("5000.00")))

	disbursement, err := svc.Post(ctx, &models.PostEntryRequest{
		Description:   "cash to requestor",
		Debit:         dec("100.00"),
		EntryType:     models.EntryTypeDisbursement,
		RequisitionID: "req-1",
		CreatedBy:     "custodian",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), disbursement.Seq)
	assert.True(t, disbursement.BalanceAfter.Equal(dec("4900.00")))

	ret, err := svc.Post(ctx, &models.PostEntryRequest{
		Description:   "change returned",
		Credit:        dec("12.50"),
		EntryType:     models.EntryTypeReturn,
		RequisitionID: "req-1",
		CreatedBy:     "custodian",
	})
	require.NoError(t, err)
	assert.True(t, ret.BalanceAfter.Equal(dec("4912.50")))

	balance, err := svc.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("4912.50")))
}

func TestPostValidation(t *testing.T) {
	svc := NewCashbookService(newFakeCashbookStore(), zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name string
		req  *models.PostEntryRequest
	}{
		{"both sides set", &models.PostEntryRequest{
			Debit: dec("10"), Credit: dec("10"), EntryType: models.EntryTypeAdjustment, AdjustsEntry: "e-1",
		}},
		{"neither side set", &models.PostEntryRequest{
			EntryType: models.EntryTypeAdjustment, AdjustsEntry: "e-1",
		}},
		{"negative debit", &models.PostEntryRequest{
			Debit: dec("-5"), EntryType: models.EntryTypeDisbursement, RequisitionID: "req-1",
		}},
		{"opening balance as debit", &models.PostEntryRequest{
			Debit: dec("5000"), EntryType: models.EntryTypeOpeningBalance,
		}},
		{"disbursement as credit", &models.PostEntryRequest{
			Credit: dec("100"), EntryType: models.EntryTypeDisbursement, RequisitionID: "req-1",
		}},
		{"disbursement without requisition", &models.PostEntryRequest{
			Debit: dec("100"), EntryType: models.EntryTypeDisbursement,
		}},
		{"unknown entry type", &models.PostEntryRequest{
			Debit: dec("1"), EntryType: "TRANSFER",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Post(ctx, tt.req)
			assert.Error(t, err)
		})
	}
}

func TestPostDuplicateDisbursementRejected(t *testing.T) {
	store := newFakeCashbookStore()
	svc := NewCashbookService(store, zap.NewNop())
	ctx := context.Background()

	first := &models.PostEntryRequest{
		Description:   "disbursement",
		Debit:         dec("75.00"),
		EntryType:     models.EntryTypeDisbursement,
		RequisitionID: "req-9",
		CreatedBy:     "custodian",
	}
	_, err := svc.Post(ctx, first)
	require.NoError(t, err)

	_, err = svc.Post(ctx, first)
	require.Error(t, err)
	dup, ok := IsDuplicatePosting(err)
	require.True(t, ok)
	assert.Equal(t, "req-9", dup.RequisitionID)

	entries, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "duplicate must not produce a second entry")
}

func TestPostAdjustmentRequiresReference(t *testing.T) {
	store := newFakeCashbookStore()
	svc := NewCashbookService(store, zap.NewNop())
	ctx := context.Background()

	_, err := svc.PostAdjustment(ctx, &models.PostEntryRequest{
		Description: "correction",
		Credit:      dec("3.00"),
	})
	assert.Error(t, err)

	_, err = svc.Post(ctx, &models.PostEntryRequest{
		Description: "opening float",
		Credit:      dec("100.00"),
		EntryType:   models.EntryTypeOpeningBalance,
	})
	require.NoError(t, err)

	adj, err := svc.PostAdjustment(ctx, &models.PostEntryRequest{
		Description:  "overcounted return",
		Debit:        dec("3.00"),
		AdjustsEntry: "e-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.EntryTypeAdjustment, adj.EntryType)
	assert.True(t, adj.BalanceAfter.Equal(dec("97.00")))
}

func TestVerifyConsistentLedger(t *testing.T) {
	store := newFakeCashbookStore()
	svc := NewCashbookService(store, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Post(ctx, &models.PostEntryRequest{
		Credit: dec("1000.00"), EntryType: models.EntryTypeOpeningBalance, Description: "opening",
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, &models.PostEntryRequest{
		Debit: dec("250.00"), EntryType: models.EntryTypeDisbursement, RequisitionID: "req-1", Description: "cash out",
	})
	require.NoError(t, err)

	report, err := svc.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 2, report.Entries)
	assert.Empty(t, report.Discrepancies)
}

func TestVerifyDetectsCorruptedBalance(t *testing.T) {
	store := newFakeCashbookStore()
	svc := NewCashbookService(store, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Post(ctx, &models.PostEntryRequest{
		Credit: dec("500.00"), EntryType: models.EntryTypeOpeningBalance, Description: "opening",
	})
	require.NoError(t, err)
	corrupted, err := svc.Post(ctx, &models.PostEntryRequest{
		Debit: dec("40.00"), EntryType: models.EntryTypeDisbursement, RequisitionID: "req-1", Description: "cash out",
	})
	require.NoError(t, err)
	_, err = svc.Post(ctx, &models.PostEntryRequest{
		Credit: dec("5.00"), EntryType: models.EntryTypeReturn, RequisitionID: "req-1", Description: "change",
	})
	require.NoError(t, err)

	// Simulate a stored balance drifting out of line with the recurrence.
	store.entries[1].BalanceAfter = dec("999.99")

	report, err := svc.Verify(ctx)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	require.Len(t, report.Discrepancies, 2, "the corrupted row and its successor both disagree")
	assert.Contains(t, report.Discrepancies[0], corrupted.ID)
}

func TestListClampsLimit(t *testing.T) {
	store := newFakeCashbookStore()
	svc := NewCashbookService(store, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Post(ctx, &models.PostEntryRequest{
		Credit: dec("100.00"), EntryType: models.EntryTypeOpeningBalance, Description: "opening",
	})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = svc.Post(ctx, &models.PostEntryRequest{
			Debit: dec("1.00"), EntryType: models.EntryTypeDisbursement,
			RequisitionID: fmt.Sprintf("req-%d", i), Description: "cash out",
		})
		require.NoError(t, err)
	}

	entries, err := svc.List(ctx, 0, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = svc.List(ctx, 3, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, int64(4), entries[0].Seq)
}
