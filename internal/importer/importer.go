package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"unifinance/internal/config"
)

type TxnType string

const (
	TypeIncome  TxnType = "income"
	TypeExpense TxnType = "expense"
)

// Candidate is one raw row of an import batch after JSON decoding.
type Candidate struct {
	Date        string          `json:"date"` // YYYY-MM-DD
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  string          `json:"category_id"`
	Type        TxnType         `json:"type"`
}

// Existing is the slice of a persisted transaction the matcher needs.
type Existing struct {
	ID         string
	CategoryID string
	Type       TxnType
}

type Category struct {
	ID   string
	Name string
}

// ErrCategoryNotFound must be returned by Store.Insert when the referenced
// category does not exist for the owner (FK violation in the pg store).
var ErrCategoryNotFound = errors.New("category not found")

// Store is the owner-scoped persistence surface the import workflow runs
// against. The HTTP layer injects a pgx-backed implementation; tests inject
// a fake.
type Store interface {
	// FindMatches returns persisted transactions sharing the duplicate
	// identity tuple (owner_id, date, description, amount). Order must be
	// deterministic; the first row wins the tie-break.
	FindMatches(ctx context.Context, ownerID string, c Candidate) ([]Existing, error)
	Insert(ctx context.Context, ownerID string, c Candidate) error
	UpdateCategoryAndType(ctx context.Context, ownerID, txnID, categoryID string, t TxnType) error
	EnsureFallbackCategories(ctx context.Context, ownerID string) error
	ListCategories(ctx context.Context, ownerID string) ([]Category, error)
}

type RowStatus string

const (
	RowInserted RowStatus = "inserted"
	RowUpdated  RowStatus = "updated"
	RowDropped  RowStatus = "dropped"
)

type DropReason string

const (
	DropExistenceCheck DropReason = "existence_check_failed"
	DropInsertFailed   DropReason = "insert_failed"
	DropRetryFailed    DropReason = "fallback_retry_failed"
	DropUpdateFailed   DropReason = "update_failed"
)

// RowOutcome records what happened to one candidate, so callers and tests
// can tell why a row was dropped instead of only seeing counters move.
type RowOutcome struct {
	Index  int        `json:"index"`
	Status RowStatus  `json:"status"`
	Reason DropReason `json:"reason,omitempty"`
}

type Summary struct {
	Inserted int          `json:"inserted"`
	Updated  int          `json:"updated"`
	Total    int          `json:"total"`
	Message  string       `json:"message"`
	Outcomes []RowOutcome `json:"outcomes"`
}

type Importer struct {
	store Store
	logf  func(format string, args ...interface{})
}

func New(store Store) *Importer {
	return &Importer{store: store, logf: log.Printf}
}

// NewWithLogger lets tests capture row-level log lines.
func NewWithLogger(store Store, logf func(format string, args ...interface{})) *Importer {
	return &Importer{store: store, logf: logf}
}

// Run processes a validated batch sequentially. Per-row failures are absorbed
// into the summary; Run itself never fails. Callers must run ValidateBatch
// first.
func (imp *Importer) Run(ctx context.Context, ownerID string, batch []Candidate) Summary {
	sum := Summary{
		Total:    len(batch),
		Outcomes: make([]RowOutcome, 0, len(batch)),
	}

	for i, c := range batch {
		outcome := imp.processRow(ctx, ownerID, i, c)
		switch outcome.Status {
		case RowInserted:
			sum.Inserted++
		case RowUpdated:
			sum.Updated++
		}
		sum.Outcomes = append(sum.Outcomes, outcome)
	}

	sum.Message = fmt.Sprintf("Imported %d transactions: %d inserted, %d updated", sum.Total, sum.Inserted, sum.Updated)
	return sum
}

// processRow walks one candidate through the per-row state machine:
// match check, then insert (with a single fallback-category retry on FK
// failure) or update of category/type only.
func (imp *Importer) processRow(ctx context.Context, ownerID string, idx int, c Candidate) RowOutcome {
	matches, err := imp.store.FindMatches(ctx, ownerID, c)
	if err != nil {
		imp.logf("[Import] row %d: existence check failed, skipping: %v", idx, err)
		return RowOutcome{Index: idx, Status: RowDropped, Reason: DropExistenceCheck}
	}

	if len(matches) > 0 {
		// Duplicate: only category_id and type are overwritten. Description,
		// amount and date stay as stored so a re-import cannot clobber a
		// previously edited transaction.
		first := matches[0]
		if err := imp.store.UpdateCategoryAndType(ctx, ownerID, first.ID, c.CategoryID, c.Type); err != nil {
			imp.logf("[Import] row %d: update of %s failed: %v", idx, first.ID, err)
			return RowOutcome{Index: idx, Status: RowDropped, Reason: DropUpdateFailed}
		}
		return RowOutcome{Index: idx, Status: RowUpdated}
	}

	err = imp.store.Insert(ctx, ownerID, c)
	if err == nil {
		return RowOutcome{Index: idx, Status: RowInserted}
	}
	if !errors.Is(err, ErrCategoryNotFound) {
		imp.logf("[Import] row %d: insert failed: %v", idx, err)
		return RowOutcome{Index: idx, Status: RowDropped, Reason: DropInsertFailed}
	}

	// Referenced category is missing: provision fallbacks (best effort),
	// re-look-up and retry exactly once with the matching fallback.
	if provErr := imp.store.EnsureFallbackCategories(ctx, ownerID); provErr != nil {
		imp.logf("[Import] row %d: fallback provisioning failed (continuing): %v", idx, provErr)
	}

	fallbackID, found := imp.lookupFallback(ctx, ownerID, c.Type)
	if !found {
		imp.logf("[Import] row %d: no fallback category available, dropping", idx)
		return RowOutcome{Index: idx, Status: RowDropped, Reason: DropRetryFailed}
	}

	retry := c
	retry.CategoryID = fallbackID
	if err := imp.store.Insert(ctx, ownerID, retry); err != nil {
		imp.logf("[Import] row %d: fallback retry failed: %v", idx, err)
		return RowOutcome{Index: idx, Status: RowDropped, Reason: DropRetryFailed}
	}
	return RowOutcome{Index: idx, Status: RowInserted}
}

func (imp *Importer) lookupFallback(ctx context.Context, ownerID string, t TxnType) (string, bool) {
	cats, err := imp.store.ListCategories(ctx, ownerID)
	if err != nil {
		imp.logf("[Import] category re-lookup failed: %v", err)
		return "", false
	}
	want := FallbackName(t)
	for _, cat := range cats {
		if strings.EqualFold(cat.Name, want) {
			return cat.ID, true
		}
	}
	return "", false
}

// FallbackName maps a transaction type to its fallback category name.
func FallbackName(t TxnType) string {
	if t == TypeIncome {
		return config.FallbackIncomeName
	}
	return config.FallbackExpenseName
}
