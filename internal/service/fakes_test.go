package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pettycash/internal/models"
)

// fakeRequisitionStore implements RequisitionStore in memory with the same
// lock-and-check transition semantics as the postgres repository.
type fakeRequisitionStore struct {
	mu           sync.Mutex
	requisitions map[string]*models.Requisition
	refSeq       int
}

func newFakeRequisitionStore() *fakeRequisitionStore {
	return &fakeRequisitionStore{requisitions: make(map[string]*models.Requisition)}
}

func (f *fakeRequisitionStore) Create(ctx context.Context, req *models.Requisition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requisitions[req.ID] = req
	return nil
}

func (f *fakeRequisitionStore) GetByID(ctx context.Context, id string) (*models.Requisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requisitions[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "requisition", ID: id}
	}
	return req, nil
}

func (f *fakeRequisitionStore) ListByStatus(ctx context.Context, statuses ...models.RequisitionStatus) ([]*models.Requisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Requisition
	for _, req := range f.requisitions {
		for _, s := range statuses {
			if req.Status == s {
				out = append(out, req)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRequisitionStore) Transition(ctx context.Context, id string, from []models.RequisitionStatus, to models.RequisitionStatus, operation string) (*models.Requisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requisitions[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "requisition", ID: id}
	}
	allowed := false
	for _, s := range from {
		if req.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, &models.InvalidStateTransition{RequisitionID: id, Current: req.Status, Attempted: operation}
	}
	req.Status = to
	req.UpdatedAt = time.Now()
	return req, nil
}

func (f *fakeRequisitionStore) AssignReference(ctx context.Context, id string, year int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requisitions[id]
	if !ok {
		return "", &models.NotFoundError{Entity: "requisition", ID: id}
	}
	f.refSeq++
	req.Reference = fmt.Sprintf("PC-%d-%04d", year, f.refSeq)
	return req.Reference, nil
}

func (f *fakeRequisitionStore) UpdateExpenses(ctx context.Context, id string, editable []models.RequisitionStatus, updates []models.ExpenseItemRequest) (*models.Requisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requisitions[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "requisition", ID: id}
	}
	allowed := false
	for _, s := range editable {
		if req.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, &models.InvalidStateTransition{RequisitionID: id, Current: req.Status, Attempted: "updateExpenses"}
	}

	for _, u := range updates {
		found := false
		for _, item := range req.Items {
			if item.ID == u.ItemID {
				amount := u.ActualAmount
				item.ActualAmount = &amount
				item.ReceiptReference = u.ReceiptReference
				found = true
				break
			}
		}
		if !found {
			return nil, &models.NotFoundError{Entity: "line item", ID: u.ItemID}
		}
	}

	total := decimal.Zero
	for _, item := range req.Items {
		if item.ActualAmount != nil {
			total = total.Add(*item.ActualAmount)
		}
	}
	req.ActualTotal = &total
	return req, nil
}

func (f *fakeRequisitionStore) UpdateItemClassification(ctx context.Context, itemID string, result *models.ClassificationResult) error {
	return nil
}

// fakeDisbursementStore implements DisbursementStore in memory.
type fakeDisbursementStore struct {
	mu            sync.Mutex
	disbursements map[string]*models.Disbursement
}

func newFakeDisbursementStore() *fakeDisbursementStore {
	return &fakeDisbursementStore{disbursements: make(map[string]*models.Disbursement)}
}

func (f *fakeDisbursementStore) Create(ctx context.Context, d *models.Disbursement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disbursements[d.RequisitionID] = d
	return nil
}

func (f *fakeDisbursementStore) GetByRequisition(ctx context.Context, requisitionID string) (*models.Disbursement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.disbursements[requisitionID]
	if !ok {
		return nil, &models.NotFoundError{Entity: "disbursement for requisition", ID: requisitionID}
	}
	return d, nil
}

func (f *fakeDisbursementStore) RecordAcknowledgement(ctx context.Context, requisitionID, signature string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.disbursements[requisitionID]; ok {
		d.RequestorSignature = signature
	}
	return nil
}

func (f *fakeDisbursementStore) RecordReturn(ctx context.Context, requisitionID string, denominations models.Denominations, actualChange decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.disbursements[requisitionID]; ok {
		d.ReturnedDenominations = denominations
		d.ActualChangeAmount = &actualChange
	}
	return nil
}

func (f *fakeDisbursementStore) RecordConfirmation(ctx context.Context, requisitionID string, denominations models.Denominations, confirmedChange, discrepancy decimal.Decimal, confirmedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.disbursements[requisitionID]; ok {
		d.ConfirmedDenominations = denominations
		d.ConfirmedChangeAmount = &confirmedChange
		d.DiscrepancyAmount = &discrepancy
		d.ConfirmedBy = confirmedBy
	}
	return nil
}

// fakeCashbookStore implements CashbookStore with the repository's append
// semantics: serialized appends, running balance, one DISBURSEMENT entry per
// requisition.
type fakeCashbookStore struct {
	mu      sync.Mutex
	entries []*models.CashbookEntry
}

func newFakeCashbookStore() *fakeCashbookStore {
	return &fakeCashbookStore{}
}

func (f *fakeCashbookStore) Append(ctx context.Context, entry *models.CashbookEntry) (*models.CashbookEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if entry.EntryType == models.EntryTypeDisbursement {
		for _, e := range f.entries {
			if e.EntryType == models.EntryTypeDisbursement && e.RequisitionID == entry.RequisitionID {
				return nil, &models.DuplicateLedgerPosting{RequisitionID: entry.RequisitionID, EntryID: e.ID}
			}
		}
	}

	prev := decimal.Zero
	if len(f.entries) > 0 {
		prev = f.entries[len(f.entries)-1].BalanceAfter
	}
	entry.Seq = int64(len(f.entries) + 1)
	entry.BalanceAfter = models.NextBalance(prev, entry.Debit, entry.Credit)
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeCashbookStore) CurrentBalance(ctx context.Context) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return decimal.Zero, nil
	}
	return f.entries[len(f.entries)-1].BalanceAfter, nil
}

func (f *fakeCashbookStore) FindDisbursementEntry(ctx context.Context, requisitionID string) (*models.CashbookEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.EntryType == models.EntryTypeDisbursement && e.RequisitionID == requisitionID {
			return e, nil
		}
	}
	return nil, &models.NotFoundError{Entity: "disbursement entry for requisition", ID: requisitionID}
}

func (f *fakeCashbookStore) List(ctx context.Context, afterSeq int64, limit int) ([]*models.CashbookEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CashbookEntry
	for _, e := range f.entries {
		if e.Seq > afterSeq {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCashbookStore) All(ctx context.Context) ([]*models.CashbookEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.CashbookEntry(nil), f.entries...), nil
}

// fakeMemoryStore implements MemoryStore in memory.
type fakeMemoryStore struct {
	mu      sync.Mutex
	records map[string]*models.MemoryRecord
}

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{records: make(map[string]*models.MemoryRecord)}
}

func (f *fakeMemoryStore) GetMemory(ctx context.Context, key string) (*models.MemoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[key]
	if !ok {
		return nil, &models.NotFoundError{Entity: "memory record", ID: key}
	}
	return rec, nil
}

func (f *fakeMemoryStore) ListMemory(ctx context.Context, limit int) ([]*models.MemoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.MemoryRecord
	for _, rec := range f.records {
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeMemoryStore) UpsertMemory(ctx context.Context, rec *models.MemoryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.DescriptionKey] = rec
	return nil
}

// fakeRuleStore implements RuleStore.
type fakeRuleStore struct {
	rules []*models.ClassificationRule
}

func (f *fakeRuleStore) ListRules(ctx context.Context) ([]*models.ClassificationRule, error) {
	return f.rules, nil
}

// fakeAccountStore implements AccountStore.
type fakeAccountStore struct {
	accounts map[string]*models.Account
}

func newFakeAccountStore(codes ...string) *fakeAccountStore {
	f := &fakeAccountStore{accounts: make(map[string]*models.Account)}
	for _, code := range codes {
		f.accounts[code] = &models.Account{
			ID:     uuid.New().String(),
			Code:   code,
			Name:   "Account " + code,
			Type:   models.AccountTypeExpense,
			Active: true,
		}
	}
	return f
}

func (f *fakeAccountStore) GetByCode(ctx context.Context, code string) (*models.Account, error) {
	a, ok := f.accounts[code]
	if !ok {
		return nil, &models.NotFoundError{Entity: "account", ID: code}
	}
	return a, nil
}

func (f *fakeAccountStore) ListActive(ctx context.Context) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range f.accounts {
		out = append(out, a)
	}
	return out, nil
}

// stubClassifier returns a canned result or declines.
type stubClassifier struct {
	result *models.ClassificationResult
	err    error
}

func (s *stubClassifier) Attempt(ctx context.Context, req *models.ClassificationRequest) (*models.ClassificationResult, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	if s.result == nil {
		return nil, false, nil
	}
	r := *s.result
	return &r, true, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
