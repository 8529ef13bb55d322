package ledger

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"unifinance/internal/importer"
)

func TestCandidatesFromRows(t *testing.T) {
	records := [][]string{
		{"Date", "Description", "Amount", "Type", "Category"},
		{"2024-01-05", "Coffee", "4.50", "Expense", "Dining"},
		{"2024-01-06", "Payroll", "3,000.00", "income", "Salary"},
		{"2024-01-07", "Mystery", "12.00", "expense", "No Such Category"},
	}
	cats := map[string]string{
		"dining": "cat-dining",
		"salary": "cat-salary",
	}

	got, err := candidatesFromRows(records, cats)
	if err != nil {
		t.Fatalf("candidatesFromRows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}

	if got[0].CategoryID != "cat-dining" || got[0].Type != importer.TypeExpense {
		t.Errorf("row 1: got category=%s type=%s", got[0].CategoryID, got[0].Type)
	}
	if !got[1].Amount.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("row 2: amount with thousands separator parsed as %s", got[1].Amount)
	}
	if got[1].CategoryID != "cat-salary" || got[1].Type != importer.TypeIncome {
		t.Errorf("row 2: got category=%s type=%s", got[1].CategoryID, got[1].Type)
	}
	// Unknown category names must get a non-empty id that is not a known
	// category, so the fallback path handles them.
	if got[2].CategoryID == "" || got[2].CategoryID == "cat-dining" || got[2].CategoryID == "cat-salary" {
		t.Errorf("row 3: unknown category resolved to %q", got[2].CategoryID)
	}

	if err := importer.ValidateBatch(got); err != nil {
		t.Errorf("mapped candidates should pass validation: %v", err)
	}
}

func TestCandidatesFromRowsMissingColumn(t *testing.T) {
	records := [][]string{
		{"Date", "Description", "Type"},
		{"2024-01-05", "Coffee", "expense"},
	}
	if _, err := candidatesFromRows(records, nil); err == nil || !strings.Contains(err.Error(), "amount") {
		t.Errorf("expected missing-column error for amount, got %v", err)
	}
}

func TestCandidatesFromRowsBadAmount(t *testing.T) {
	records := [][]string{
		{"date", "description", "amount", "type"},
		{"2024-01-05", "Coffee", "four fifty", "expense"},
	}
	if _, err := candidatesFromRows(records, nil); err == nil {
		t.Error("expected error for unparseable amount")
	}
}

func TestCandidatesFromRowsHeaderOnly(t *testing.T) {
	records := [][]string{{"date", "description", "amount", "type"}}
	if _, err := candidatesFromRows(records, nil); err == nil {
		t.Error("expected error for file without data rows")
	}
}

func TestCandidatesFromRowsShortRow(t *testing.T) {
	records := [][]string{
		{"date", "description", "amount", "type", "category"},
		{"2024-01-05", "Coffee", "4.50", "expense"}, // category cell missing
	}
	got, err := candidatesFromRows(records, map[string]string{"dining": "cat-dining"})
	if err != nil {
		t.Fatalf("short rows should be tolerated: %v", err)
	}
	if got[0].CategoryID == "" {
		t.Error("missing category cell must still produce a category id")
	}
}
