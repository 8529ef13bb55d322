package importer

import (
	"fmt"
	"strings"
	"time"

	"unifinance/internal/config"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is fatal for the whole batch: partial batches are not
// accepted past the validator.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "batch validation failed: " + strings.Join(parts, "; ")
}

// ValidateBatch applies the transaction schema to every candidate and
// collects all field errors. Any error rejects the entire batch.
func ValidateBatch(batch []Candidate) error {
	var errs []FieldError

	if len(batch) == 0 {
		errs = append(errs, FieldError{Field: "transactions", Message: "at least one transaction is required"})
	}
	if len(batch) > config.MaxImportBatchSize {
		errs = append(errs, FieldError{
			Field:   "transactions",
			Message: fmt.Sprintf("batch exceeds maximum size of %d", config.MaxImportBatchSize),
		})
	}

	for i, c := range batch {
		field := func(name string) string {
			return fmt.Sprintf("transactions[%d].%s", i, name)
		}

		if _, err := time.Parse("2006-01-02", c.Date); err != nil {
			errs = append(errs, FieldError{Field: field("date"), Message: "must be a valid date in YYYY-MM-DD format"})
		}
		if l := len(strings.TrimSpace(c.Description)); l == 0 {
			errs = append(errs, FieldError{Field: field("description"), Message: "is required"})
		} else if len(c.Description) > config.MaxDescriptionLen {
			errs = append(errs, FieldError{
				Field:   field("description"),
				Message: fmt.Sprintf("must be at most %d characters", config.MaxDescriptionLen),
			})
		}
		if !c.Amount.IsPositive() {
			errs = append(errs, FieldError{Field: field("amount"), Message: "must be a positive number"})
		}
		if strings.TrimSpace(c.CategoryID) == "" {
			errs = append(errs, FieldError{Field: field("category_id"), Message: "is required"})
		}
		if c.Type != TypeIncome && c.Type != TypeExpense {
			errs = append(errs, FieldError{Field: field("type"), Message: "must be either income or expense"})
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
