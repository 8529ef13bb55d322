package ledger

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"unifinance/api"
	"unifinance/api/constants"
	"unifinance/internal/config"
)

type TransactionItem struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CategoryID  *string         `json:"category_id"`
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Handler: ListTransactions
// Optional query params: from, to (YYYY-MM-DD), type, category_id
func ListTransactions(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)

		query := `
			SELECT id, amount::text, description, category_id, to_char(date, 'YYYY-MM-DD'), type, created_at
			FROM transactions
			WHERE owner_id = $1`
		args := []interface{}{ownerID}

		q := r.URL.Query()
		if from := q.Get("from"); from != "" {
			args = append(args, from)
			query += fmt.Sprintf(" AND date >= $%d", len(args))
		}
		if to := q.Get("to"); to != "" {
			args = append(args, to)
			query += fmt.Sprintf(" AND date <= $%d", len(args))
		}
		if t := q.Get("type"); t != "" {
			args = append(args, t)
			query += fmt.Sprintf(" AND type = $%d", len(args))
		}
		if cat := q.Get("category_id"); cat != "" {
			args = append(args, cat)
			query += fmt.Sprintf(" AND category_id = $%d", len(args))
		}
		query += " ORDER BY date DESC, created_at DESC"

		rows, err := pool.Query(ctx, query, args...)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
			return
		}
		defer rows.Close()

		results := make([]TransactionItem, 0)
		for rows.Next() {
			var it TransactionItem
			var amount string
			if err := rows.Scan(&it.ID, &amount, &it.Description, &it.CategoryID, &it.Date, &it.Type, &it.CreatedAt); err != nil {
				api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
				return
			}
			it.Amount, _ = decimal.NewFromString(amount)
			results = append(results, it)
		}
		if rows.Err() != nil {
			api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+rows.Err().Error())
			return
		}

		api.WriteJSON(w, http.StatusOK, map[string]interface{}{
			constants.KeySuccess: true,
			constants.KeyData:    results,
		})
	}
}

// Handler: CreateTransaction (manual entry)
func CreateTransaction(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)

		var req struct {
			Amount      decimal.Decimal `json:"amount"`
			Description string          `json:"description"`
			CategoryID  string          `json:"category_id"`
			Date        string          `json:"date"`
			Type        string          `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if !req.Amount.IsPositive() ||
			strings.TrimSpace(req.Description) == "" || len(req.Description) > config.MaxDescriptionLen ||
			strings.TrimSpace(req.CategoryID) == "" ||
			(req.Type != "income" && req.Type != "expense") {
			api.WriteError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
			return
		}
		if _, err := time.Parse(constants.DateFormat, req.Date); err != nil {
			api.WriteError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
			return
		}

		id := uuid.New().String()
		_, err := pool.Exec(ctx, `
			INSERT INTO transactions (id, owner_id, amount, description, category_id, date, type, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		`, id, ownerID, req.Amount.String(), req.Description, req.CategoryID, req.Date, req.Type)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
			return
		}

		api.WriteJSON(w, http.StatusOK, map[string]interface{}{
			constants.KeySuccess: true,
			constants.KeyData:    map[string]interface{}{"id": id},
		})
	}
}

// Handler: UpdateTransaction
// Accepts a partial body; only provided fields are written.
func UpdateTransaction(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)
		txnID := mux.Vars(r)["id"]

		var req struct {
			Amount      *decimal.Decimal `json:"amount"`
			Description *string          `json:"description"`
			CategoryID  *string          `json:"category_id"`
			Date        *string          `json:"date"`
			Type        *string          `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}

		sets := []string{}
		args := []interface{}{}
		addSet := func(col string, val interface{}) {
			args = append(args, val)
			sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
		}

		if req.Amount != nil {
			if !req.Amount.IsPositive() {
				api.WriteError(w, http.StatusBadRequest, "amount must be positive")
				return
			}
			addSet("amount", req.Amount.String())
		}
		if req.Description != nil {
			if strings.TrimSpace(*req.Description) == "" || len(*req.Description) > config.MaxDescriptionLen {
				api.WriteError(w, http.StatusBadRequest, "description must be 1-500 characters")
				return
			}
			addSet("description", *req.Description)
		}
		if req.CategoryID != nil {
			addSet("category_id", *req.CategoryID)
		}
		if req.Date != nil {
			if _, err := time.Parse(constants.DateFormat, *req.Date); err != nil {
				api.WriteError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
				return
			}
			addSet("date", *req.Date)
		}
		if req.Type != nil {
			if *req.Type != "income" && *req.Type != "expense" {
				api.WriteError(w, http.StatusBadRequest, "type must be either income or expense")
				return
			}
			addSet("type", *req.Type)
		}
		if len(sets) == 0 {
			api.WriteError(w, http.StatusBadRequest, "no fields to update")
			return
		}

		args = append(args, txnID, ownerID)
		query := fmt.Sprintf(
			"UPDATE transactions SET %s WHERE id = $%d AND owner_id = $%d",
			strings.Join(sets, ", "), len(args)-1, len(args),
		)
		tag, err := pool.Exec(ctx, query, args...)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
			return
		}
		if tag.RowsAffected() == 0 {
			api.WriteError(w, http.StatusNotFound, constants.ErrNotFound)
			return
		}

		api.WriteJSON(w, http.StatusOK, map[string]interface{}{constants.KeySuccess: true})
	}
}

// Handler: DeleteTransaction
func DeleteTransaction(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)
		txnID := mux.Vars(r)["id"]

		tag, err := pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND owner_id = $2`, txnID, ownerID)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
			return
		}
		if tag.RowsAffected() == 0 {
			api.WriteError(w, http.StatusNotFound, constants.ErrNotFound)
			return
		}

		api.WriteJSON(w, http.StatusOK, map[string]interface{}{constants.KeySuccess: true})
	}
}

// Handler: ClearTransactions (bulk clear for the owner)
func ClearTransactions(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)

		tag, err := pool.Exec(ctx, `DELETE FROM transactions WHERE owner_id = $1`, ownerID)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
			return
		}

		api.WriteJSON(w, http.StatusOK, map[string]interface{}{
			constants.KeySuccess: true,
			"deleted":            tag.RowsAffected(),
		})
	}
}
