package ledger

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"unifinance/api"
	"unifinance/api/constants"
)

var monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

type BudgetItem struct {
	ID          string          `json:"id"`
	CategoryID  string          `json:"category_id"`
	Month       string          `json:"month"`
	LimitAmount decimal.Decimal `json:"limit_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Handler: ListBudgets
// Optional query param: month (YYYY-MM)
func ListBudgets(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)

		query := `
			SELECT id, category_id, month, limit_amount::text, created_at
			FROM budgets
			WHERE owner_id = $1`
		args := []interface{}{ownerID}
		if month := r.URL.Query().Get("month"); month != "" {
			args = append(args, month)
			query += " AND month = $2"
		}
		query += " ORDER BY month DESC, created_at"

		rows, err := pool.Query(ctx, query, args...)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
			return
		}
		defer rows.Close()

		results := make([]BudgetItem, 0)
		for rows.Next() {
			var it BudgetItem
			var limit string
			if err := rows.Scan(&it.ID, &it.CategoryID, &it.Month, &limit, &it.CreatedAt); err != nil {
				api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
				return
			}
			it.LimitAmount, _ = decimal.NewFromString(limit)
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

// Handler: CreateBudget
func CreateBudget(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)

		var req struct {
			CategoryID  string          `json:"category_id"`
			Month       string          `json:"month"`
			LimitAmount decimal.Decimal `json:"limit_amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if strings.TrimSpace(req.CategoryID) == "" || !monthRe.MatchString(req.Month) || !req.LimitAmount.IsPositive() {
			api.WriteError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
			return
		}

		id := uuid.New().String()
		_, err := pool.Exec(ctx, `
			INSERT INTO budgets (id, owner_id, category_id, month, limit_amount, created_at)
			VALUES ($1, $2, $3, $4, $5, now())
		`, id, ownerID, req.CategoryID, req.Month, req.LimitAmount.String())
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

// Handler: DeleteBudget
func DeleteBudget(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)
		budgetID := mux.Vars(r)["id"]

		tag, err := pool.Exec(ctx, `DELETE FROM budgets WHERE id = $1 AND owner_id = $2`, budgetID, ownerID)
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
