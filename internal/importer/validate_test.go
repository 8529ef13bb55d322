package importer

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func validCandidate() Candidate {
	return Candidate{
		Date:        "2024-01-15",
		Description: "Coffee",
		Amount:      decimal.NewFromFloat(4.50),
		CategoryID:  "catA",
		Type:        TypeExpense,
	}
}

func TestValidateBatch(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Candidate)
		wantField string
	}{
		{
			name:   "valid candidate",
			mutate: func(c *Candidate) {},
		},
		{
			name:      "negative amount",
			mutate:    func(c *Candidate) { c.Amount = decimal.NewFromInt(-5) },
			wantField: "transactions[0].amount",
		},
		{
			name:      "zero amount",
			mutate:    func(c *Candidate) { c.Amount = decimal.Zero },
			wantField: "transactions[0].amount",
		},
		{
			name:      "empty description",
			mutate:    func(c *Candidate) { c.Description = "   " },
			wantField: "transactions[0].description",
		},
		{
			name:      "description too long",
			mutate:    func(c *Candidate) { c.Description = strings.Repeat("x", 501) },
			wantField: "transactions[0].description",
		},
		{
			name:      "malformed date",
			mutate:    func(c *Candidate) { c.Date = "15/01/2024" },
			wantField: "transactions[0].date",
		},
		{
			name:      "missing category",
			mutate:    func(c *Candidate) { c.CategoryID = "" },
			wantField: "transactions[0].category_id",
		},
		{
			name:      "unknown type",
			mutate:    func(c *Candidate) { c.Type = "transfer" },
			wantField: "transactions[0].type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandidate()
			tt.mutate(&c)
			err := ValidateBatch([]Candidate{c})

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %+v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestValidateBatchOneBadRowRejectsAll(t *testing.T) {
	bad := validCandidate()
	bad.Amount = decimal.NewFromInt(-5)
	err := ValidateBatch([]Candidate{validCandidate(), bad, validCandidate()})
	if err == nil {
		t.Fatal("batch with one invalid row must be rejected as a whole")
	}
	verr := err.(*ValidationError)
	if len(verr.Errors) != 1 || verr.Errors[0].Field != "transactions[1].amount" {
		t.Errorf("got %+v, want single error on transactions[1].amount", verr.Errors)
	}
}

func TestValidateBatchEmpty(t *testing.T) {
	if err := ValidateBatch(nil); err == nil {
		t.Fatal("empty batch must be rejected")
	}
}

func TestValidateBatchCollectsAllErrors(t *testing.T) {
	c := Candidate{Date: "bad", Description: "", Amount: decimal.Zero, CategoryID: "", Type: "nope"}
	err := ValidateBatch([]Candidate{c})
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Errors) != 5 {
		t.Errorf("expected 5 field errors, got %d: %+v", len(verr.Errors), verr.Errors)
	}
}
