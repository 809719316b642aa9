package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pettycash/internal/models"
)

type fakeReportStore struct {
	mu      sync.Mutex
	reports []*models.RepairReport
}

func (f *fakeReportStore) SaveReport(ctx context.Context, report *models.RepairReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
	return nil
}

func newRepairFixture() (*RepairService, *fakeRequisitionStore, *fakeDisbursementStore, *fakeCashbookStore, *fakeReportStore) {
	requisitions := newFakeRequisitionStore()
	disbursements := newFakeDisbursementStore()
	ledger := newFakeCashbookStore()
	cashbook := NewCashbookService(ledger, zap.NewNop())
	engine := NewDisbursementService(requisitions, disbursements, cashbook, zap.NewNop())
	reports := &fakeReportStore{}
	repair := NewRepairService(requisitions, disbursements, engine, cashbook, reports, zap.NewNop())
	return repair, requisitions, disbursements, ledger, reports
}

func seedSettled(requisitions *fakeRequisitionStore, disbursements *fakeDisbursementStore, id string, status models.RequisitionStatus, prepared string) {
	requisitions.requisitions[id] = &models.Requisition{
		ID:             id,
		Reference:      "PC-2026-" + id,
		RequesterID:    "user-1",
		Status:         status,
		EstimatedTotal: dec(prepared),
	}
	disbursements.disbursements[id] = &models.Disbursement{
		ID:            "d-" + id,
		RequisitionID: id,
		CashierID:     "cashier-1",
		TotalPrepared: dec(prepared),
	}
}

func TestRepairBackfillsMissingEntries(t *testing.T) {
	repair, requisitions, disbursements, ledger, reports := newRepairFixture()
	ctx := context.Background()

	seedSettled(requisitions, disbursements, "0001", models.StatusReceived, "80.00")
	seedSettled(requisitions, disbursements, "0002", models.StatusCompleted, "45.00")

	report, err := repair.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Backfilled)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	for _, id := range []string{"0001", "0002"} {
		entry, err := ledger.FindDisbursementEntry(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.EntryTypeDisbursement, entry.EntryType)
	}

	require.Len(t, reports.reports, 1)
	assert.Equal(t, 2, reports.reports[0].Backfilled)
}

func TestRepairRunTwiceIsIdempotent(t *testing.T) {
	repair, requisitions, disbursements, ledger, _ := newRepairFixture()
	ctx := context.Background()

	seedSettled(requisitions, disbursements, "0001", models.StatusCompleted, "60.00")

	first, err := repair.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Backfilled)

	second, err := repair.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Backfilled)
	assert.Equal(t, 1, second.Skipped)

	entries, err := ledger.All(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "repeated runs must not duplicate ledger entries")
}

func TestRepairSkipsAlreadyPosted(t *testing.T) {
	repair, requisitions, disbursements, ledger, _ := newRepairFixture()
	ctx := context.Background()

	seedSettled(requisitions, disbursements, "0001", models.StatusReceived, "30.00")
	_, err := ledger.Append(ctx, &models.CashbookEntry{
		ID:            "existing",
		EntryType:     models.EntryTypeDisbursement,
		RequisitionID: "0001",
		Debit:         dec("30.00"),
		Status:        models.EntryStatusActive,
	})
	require.NoError(t, err)

	report, err := repair.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Backfilled)
}

func TestRepairIgnoresUndisbursedRequisitions(t *testing.T) {
	repair, requisitions, _, ledger, _ := newRepairFixture()
	ctx := context.Background()

	requisitions.requisitions["0001"] = &models.Requisition{
		ID: "0001", RequesterID: "user-1", Status: models.StatusAuthorised, EstimatedTotal: dec("50.00"),
	}

	report, err := repair.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)

	entries, err := ledger.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRepairRecordsFailureForMissingDisbursement(t *testing.T) {
	repair, requisitions, _, _, _ := newRepairFixture()
	ctx := context.Background()

	requisitions.requisitions["0001"] = &models.Requisition{
		ID: "0001", RequesterID: "user-1", Status: models.StatusReceived, EstimatedTotal: dec("50.00"),
	}

	report, err := repair.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Details, 1)
	assert.Contains(t, report.Details[0], "0001")
}

func TestRepairHonoursContextCancellation(t *testing.T) {
	repair, requisitions, disbursements, _, _ := newRepairFixture()
	seedSettled(requisitions, disbursements, "0001", models.StatusCompleted, "10.00")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repair.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
