package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"unifinance/internal/config"
	"unifinance/internal/importer"
)

// pgForeignKeyViolation is the Postgres error code raised when an insert
// references a category that does not exist.
const pgForeignKeyViolation = "23503"

// PgStore implements importer.Store against the transactions and categories
// tables. It is injected into the workflow per request instead of being
// constructed inside it.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// FindMatches queries the duplicate identity tuple. Ordering by created_at
// then id makes the "first match wins" tie-break deterministic.
func (s *PgStore) FindMatches(ctx context.Context, ownerID string, c importer.Candidate) ([]importer.Existing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(category_id, ''), type
		FROM transactions
		WHERE owner_id = $1 AND date = $2 AND description = $3 AND amount = $4
		ORDER BY created_at, id
	`, ownerID, c.Date, c.Description, c.Amount.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []importer.Existing
	for rows.Next() {
		var e importer.Existing
		var t string
		if err := rows.Scan(&e.ID, &e.CategoryID, &t); err != nil {
			return nil, err
		}
		e.Type = importer.TxnType(t)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PgStore) Insert(ctx context.Context, ownerID string, c importer.Candidate) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (id, owner_id, amount, description, category_id, date, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, uuid.New().String(), ownerID, c.Amount.String(), c.Description, c.CategoryID, c.Date, string(c.Type))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return importer.ErrCategoryNotFound
		}
		return err
	}
	return nil
}

func (s *PgStore) UpdateCategoryAndType(ctx context.Context, ownerID, txnID, categoryID string, t importer.TxnType) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE transactions SET category_id = $1, type = $2
		WHERE id = $3 AND owner_id = $4
	`, categoryID, string(t), txnID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("transaction not found")
	}
	return nil
}

// EnsureFallbackCategories provisions Other Income / Other Expenses for the
// owner if a category with that name is not already present. Lookup is by
// name: the data model does not force unique names, the bootstrap relies on
// these two being unique enough.
func (s *PgStore) EnsureFallbackCategories(ctx context.Context, ownerID string) error {
	fallbacks := []struct {
		name, color, icon string
	}{
		{config.FallbackIncomeName, config.FallbackIncomeColor, config.FallbackIncomeIcon},
		{config.FallbackExpenseName, config.FallbackExpenseColor, config.FallbackExpenseIcon},
	}
	for _, f := range fallbacks {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO categories (id, owner_id, name, color, icon, created_at)
			SELECT $1, $2, $3, $4, $5, now()
			WHERE NOT EXISTS (
				SELECT 1 FROM categories WHERE owner_id = $2 AND LOWER(name) = LOWER($3)
			)
		`, uuid.New().String(), ownerID, f.name, f.color, f.icon)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PgStore) ListCategories(ctx context.Context, ownerID string) ([]importer.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name FROM categories WHERE owner_id = $1 ORDER BY name
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []importer.Category
	for rows.Next() {
		var c importer.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
