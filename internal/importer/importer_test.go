package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

type storedTxn struct {
	id          string
	ownerID     string
	date        string
	description string
	amount      decimal.Decimal
	categoryID  string
	txnType     TxnType
}

// fakeStore is an in-memory Store with injectable failures, so the per-row
// state machine can be exercised without a database.
type fakeStore struct {
	txns   []storedTxn
	cats   map[string][]Category // by owner
	nextID int

	findErrFor      map[string]error // keyed by candidate description
	insertErrFor    map[string]error
	updateErr       error
	provisionErr    error
	provisionCalled bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cats:         make(map[string][]Category),
		findErrFor:   make(map[string]error),
		insertErrFor: make(map[string]error),
	}
}

func (f *fakeStore) addCategory(ownerID, id, name string) {
	f.cats[ownerID] = append(f.cats[ownerID], Category{ID: id, Name: name})
}

func (f *fakeStore) hasCategory(ownerID, id string) bool {
	for _, c := range f.cats[ownerID] {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (f *fakeStore) categoryByName(ownerID, name string) (Category, bool) {
	for _, c := range f.cats[ownerID] {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Category{}, false
}

func (f *fakeStore) FindMatches(_ context.Context, ownerID string, c Candidate) ([]Existing, error) {
	if err := f.findErrFor[c.Description]; err != nil {
		return nil, err
	}
	var out []Existing
	for _, t := range f.txns {
		if t.ownerID == ownerID && t.date == c.Date && t.description == c.Description && t.amount.Equal(c.Amount) {
			out = append(out, Existing{ID: t.id, CategoryID: t.categoryID, Type: t.txnType})
		}
	}
	return out, nil
}

func (f *fakeStore) Insert(_ context.Context, ownerID string, c Candidate) error {
	if err := f.insertErrFor[c.Description]; err != nil {
		return err
	}
	if !f.hasCategory(ownerID, c.CategoryID) {
		return ErrCategoryNotFound
	}
	f.nextID++
	f.txns = append(f.txns, storedTxn{
		id:          fmt.Sprintf("txn-%d", f.nextID),
		ownerID:     ownerID,
		date:        c.Date,
		description: c.Description,
		amount:      c.Amount,
		categoryID:  c.CategoryID,
		txnType:     c.Type,
	})
	return nil
}

func (f *fakeStore) UpdateCategoryAndType(_ context.Context, ownerID, txnID, categoryID string, t TxnType) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.txns {
		if f.txns[i].id == txnID && f.txns[i].ownerID == ownerID {
			f.txns[i].categoryID = categoryID
			f.txns[i].txnType = t
			return nil
		}
	}
	return errors.New("transaction not found")
}

func (f *fakeStore) EnsureFallbackCategories(_ context.Context, ownerID string) error {
	f.provisionCalled = true
	if f.provisionErr != nil {
		return f.provisionErr
	}
	if _, ok := f.categoryByName(ownerID, FallbackName(TypeIncome)); !ok {
		f.addCategory(ownerID, "fallback-income", FallbackName(TypeIncome))
	}
	if _, ok := f.categoryByName(ownerID, FallbackName(TypeExpense)); !ok {
		f.addCategory(ownerID, "fallback-expense", FallbackName(TypeExpense))
	}
	return nil
}

func (f *fakeStore) ListCategories(_ context.Context, ownerID string) ([]Category, error) {
	return f.cats[ownerID], nil
}

func discardLogf(string, ...interface{}) {}

func candidate(date, desc string, amount float64, categoryID string, t TxnType) Candidate {
	return Candidate{
		Date:        date,
		Description: desc,
		Amount:      decimal.NewFromFloat(amount),
		CategoryID:  categoryID,
		Type:        t,
	}
}

func TestImportInsertThenUpdate(t *testing.T) {
	store := newFakeStore()
	store.addCategory("owner1", "catA", "Dining")
	store.addCategory("owner1", "catB", "Coffee Shops")
	imp := NewWithLogger(store, discardLogf)
	ctx := context.Background()

	first := imp.Run(ctx, "owner1", []Candidate{
		candidate("2024-01-01", "Coffee", 4.50, "catA", TypeExpense),
	})
	if first.Inserted != 1 || first.Updated != 0 || first.Total != 1 {
		t.Fatalf("first call: got {inserted:%d updated:%d total:%d}, want {1 0 1}", first.Inserted, first.Updated, first.Total)
	}

	second := imp.Run(ctx, "owner1", []Candidate{
		candidate("2024-01-01", "Coffee", 4.50, "catB", TypeExpense),
	})
	if second.Inserted != 0 || second.Updated != 1 || second.Total != 1 {
		t.Fatalf("second call: got {inserted:%d updated:%d total:%d}, want {0 1 1}", second.Inserted, second.Updated, second.Total)
	}

	if len(store.txns) != 1 {
		t.Fatalf("expected 1 stored transaction, got %d", len(store.txns))
	}
	if store.txns[0].categoryID != "catB" {
		t.Errorf("stored category = %s, want catB", store.txns[0].categoryID)
	}
}

func TestRepeatImportIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addCategory("owner1", "cat1", "Groceries")
	imp := NewWithLogger(store, discardLogf)
	ctx := context.Background()

	batch := []Candidate{
		candidate("2024-02-01", "Supermarket", 52.30, "cat1", TypeExpense),
		candidate("2024-02-02", "Bakery", 7.80, "cat1", TypeExpense),
		candidate("2024-02-03", "Farmers market", 23.00, "cat1", TypeExpense),
	}

	first := imp.Run(ctx, "owner1", batch)
	if first.Inserted != 3 || first.Updated != 0 {
		t.Fatalf("first run: got {inserted:%d updated:%d}, want {3 0}", first.Inserted, first.Updated)
	}

	second := imp.Run(ctx, "owner1", batch)
	if second.Inserted != 0 || second.Updated != 3 {
		t.Fatalf("second run: got {inserted:%d updated:%d}, want {0 3}", second.Inserted, second.Updated)
	}
	if len(store.txns) != 3 {
		t.Fatalf("expected 3 stored transactions after re-import, got %d", len(store.txns))
	}
}

func TestDuplicateMatchOverwritesOnlyCategoryAndType(t *testing.T) {
	store := newFakeStore()
	store.addCategory("owner1", "catA", "Salary")
	store.addCategory("owner1", "catB", "Bonus")
	imp := NewWithLogger(store, discardLogf)
	ctx := context.Background()

	imp.Run(ctx, "owner1", []Candidate{
		candidate("2024-03-01", "Payroll", 3000, "catA", TypeIncome),
	})
	// Same identity tuple, different category and type.
	sum := imp.Run(ctx, "owner1", []Candidate{
		candidate("2024-03-01", "Payroll", 3000, "catB", TypeExpense),
	})
	if sum.Updated != 1 {
		t.Fatalf("expected duplicate to be updated, got %+v", sum)
	}

	got := store.txns[0]
	if got.categoryID != "catB" || got.txnType != TypeExpense {
		t.Errorf("category/type not overwritten: got %s/%s", got.categoryID, got.txnType)
	}
	if got.description != "Payroll" || got.date != "2024-03-01" || !got.amount.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("identity fields must not change: got %+v", got)
	}
}

func TestFallbackProvisioningOnMissingCategory(t *testing.T) {
	for _, tc := range []struct {
		txnType  TxnType
		wantName string
	}{
		{TypeExpense, "Other Expenses"},
		{TypeIncome, "Other Income"},
	} {
		t.Run(string(tc.txnType), func(t *testing.T) {
			store := newFakeStore()
			imp := NewWithLogger(store, discardLogf)

			sum := imp.Run(context.Background(), "owner1", []Candidate{
				candidate("2024-04-01", "Mystery row", 10, "no-such-category", tc.txnType),
			})
			if sum.Inserted != 1 {
				t.Fatalf("expected fallback insert, got %+v", sum)
			}

			cat, ok := store.categoryByName("owner1", tc.wantName)
			if !ok {
				t.Fatalf("fallback category %q was not provisioned", tc.wantName)
			}
			if store.txns[0].categoryID != cat.ID {
				t.Errorf("transaction references %s, want fallback %s", store.txns[0].categoryID, cat.ID)
			}
		})
	}
}

func TestExistenceCheckFailureDropsOnlyThatRow(t *testing.T) {
	store := newFakeStore()
	store.addCategory("owner1", "cat1", "Misc")
	store.findErrFor["row-5"] = errors.New("store unavailable")
	imp := NewWithLogger(store, discardLogf)

	batch := make([]Candidate, 0, 10)
	for i := 1; i <= 10; i++ {
		batch = append(batch, candidate("2024-05-01", fmt.Sprintf("row-%d", i), float64(i), "cat1", TypeExpense))
	}

	sum := imp.Run(context.Background(), "owner1", batch)
	if sum.Total != 10 {
		t.Fatalf("total = %d, want 10", sum.Total)
	}
	if sum.Inserted+sum.Updated != 9 {
		t.Fatalf("inserted+updated = %d, want 9", sum.Inserted+sum.Updated)
	}
	if got := sum.Outcomes[4]; got.Status != RowDropped || got.Reason != DropExistenceCheck {
		t.Errorf("row 5 outcome = %+v, want dropped/existence_check_failed", got)
	}
}

func TestNonCategoryInsertFailureIsNotRetried(t *testing.T) {
	store := newFakeStore()
	store.addCategory("owner1", "cat1", "Misc")
	store.insertErrFor["broken"] = errors.New("connection reset")
	imp := NewWithLogger(store, discardLogf)

	sum := imp.Run(context.Background(), "owner1", []Candidate{
		candidate("2024-06-01", "broken", 5, "cat1", TypeExpense),
	})
	if sum.Inserted != 0 || sum.Updated != 0 || sum.Total != 1 {
		t.Fatalf("got %+v, want dropped row with total 1", sum)
	}
	if sum.Outcomes[0].Reason != DropInsertFailed {
		t.Errorf("reason = %s, want insert_failed", sum.Outcomes[0].Reason)
	}
	if store.provisionCalled {
		t.Error("fallback provisioning must not run for non-category insert failures")
	}
}

func TestFallbackRetryFailureDropsRow(t *testing.T) {
	store := newFakeStore()
	store.provisionErr = errors.New("provisioning denied")
	imp := NewWithLogger(store, discardLogf)

	sum := imp.Run(context.Background(), "owner1", []Candidate{
		candidate("2024-07-01", "orphan", 12, "no-such-category", TypeExpense),
	})
	if sum.Inserted != 0 || sum.Total != 1 {
		t.Fatalf("got %+v, want dropped row", sum)
	}
	if sum.Outcomes[0].Reason != DropRetryFailed {
		t.Errorf("reason = %s, want fallback_retry_failed", sum.Outcomes[0].Reason)
	}
	if len(store.txns) != 0 {
		t.Errorf("no transaction should be written, got %d", len(store.txns))
	}
}

func TestUpdateFailureDropsRow(t *testing.T) {
	store := newFakeStore()
	store.addCategory("owner1", "cat1", "Misc")
	imp := NewWithLogger(store, discardLogf)
	ctx := context.Background()

	imp.Run(ctx, "owner1", []Candidate{
		candidate("2024-08-01", "Rent", 900, "cat1", TypeExpense),
	})
	store.updateErr = errors.New("write refused")

	sum := imp.Run(ctx, "owner1", []Candidate{
		candidate("2024-08-01", "Rent", 900, "cat1", TypeExpense),
	})
	if sum.Updated != 0 || sum.Inserted != 0 {
		t.Fatalf("got %+v, want dropped row", sum)
	}
	if sum.Outcomes[0].Reason != DropUpdateFailed {
		t.Errorf("reason = %s, want update_failed", sum.Outcomes[0].Reason)
	}
}

func TestOwnerScoping(t *testing.T) {
	store := newFakeStore()
	store.addCategory("owner1", "cat1", "Misc")
	store.addCategory("owner2", "cat2", "Misc")
	imp := NewWithLogger(store, discardLogf)
	ctx := context.Background()

	imp.Run(ctx, "owner1", []Candidate{
		candidate("2024-09-01", "Shared desc", 50, "cat1", TypeExpense),
	})
	// Same tuple under a different owner must insert, not update.
	sum := imp.Run(ctx, "owner2", []Candidate{
		candidate("2024-09-01", "Shared desc", 50, "cat2", TypeExpense),
	})
	if sum.Inserted != 1 || sum.Updated != 0 {
		t.Fatalf("cross-owner candidate treated as duplicate: %+v", sum)
	}
	if len(store.txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(store.txns))
	}
}
