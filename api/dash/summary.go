package dash

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"unifinance/api"
	"unifinance/api/constants"
)

// dateRange reads optional from/to query params; zero values mean unbounded.
func dateRange(r *http.Request) (string, string) {
	q := r.URL.Query()
	return q.Get("from"), q.Get("to")
}

// Handler: Overview
// Income, expense and net totals for an optional date range.
func Overview(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)
		from, to := dateRange(r)

		query := `
			SELECT
				COALESCE(SUM(CASE WHEN type = 'income' THEN amount END), 0)::text,
				COALESCE(SUM(CASE WHEN type = 'expense' THEN amount END), 0)::text,
				COUNT(*)
			FROM transactions
			WHERE owner_id = $1`
		args := []interface{}{ownerID}
		if from != "" {
			args = append(args, from)
			query += fmt.Sprintf(" AND date >= $%d", len(args))
		}
		if to != "" {
			args = append(args, to)
			query += fmt.Sprintf(" AND date <= $%d", len(args))
		}

		var incomeStr, expenseStr string
		var count int64
		if err := pool.QueryRow(ctx, query, args...).Scan(&incomeStr, &expenseStr, &count); err != nil {
			api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
			return
		}

		income, _ := decimal.NewFromString(incomeStr)
		expense, _ := decimal.NewFromString(expenseStr)

		api.WriteJSON(w, http.StatusOK, map[string]interface{}{
			constants.KeySuccess: true,
			constants.KeyData: map[string]interface{}{
				"income":            income,
				"expense":           expense,
				"net":               income.Sub(expense),
				"transaction_count": count,
			},
		})
	}
}

type categorySlice struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Type       string          `json:"type"`
	Total      decimal.Decimal `json:"total"`
	Count      int64           `json:"count"`
}

// Handler: CategoryBreakdown
// Per-category sums, optionally filtered by type and date range.
func CategoryBreakdown(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)
		from, to := dateRange(r)

		query := `
			SELECT c.id, c.name, c.color, t.type, COALESCE(SUM(t.amount), 0)::text, COUNT(t.id)
			FROM transactions t
			JOIN categories c ON t.category_id = c.id
			WHERE t.owner_id = $1`
		args := []interface{}{ownerID}
		if t := r.URL.Query().Get("type"); t != "" {
			args = append(args, t)
			query += fmt.Sprintf(" AND t.type = $%d", len(args))
		}
		if from != "" {
			args = append(args, from)
			query += fmt.Sprintf(" AND t.date >= $%d", len(args))
		}
		if to != "" {
			args = append(args, to)
			query += fmt.Sprintf(" AND t.date <= $%d", len(args))
		}
		query += `
			GROUP BY c.id, c.name, c.color, t.type
			ORDER BY SUM(t.amount) DESC`

		rows, err := pool.Query(ctx, query, args...)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
			return
		}
		defer rows.Close()

		results := make([]categorySlice, 0)
		for rows.Next() {
			var cs categorySlice
			var total string
			if err := rows.Scan(&cs.CategoryID, &cs.Name, &cs.Color, &cs.Type, &total, &cs.Count); err != nil {
				api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
				return
			}
			cs.Total, _ = decimal.NewFromString(total)
			results = append(results, cs)
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

type monthBucket struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// Handler: MonthlySeries
// Month-bucketed income/expense sums for charting.
func MonthlySeries(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)
		from, to := dateRange(r)

		query := `
			SELECT
				to_char(date, 'YYYY-MM') AS month,
				COALESCE(SUM(CASE WHEN type = 'income' THEN amount END), 0)::text,
				COALESCE(SUM(CASE WHEN type = 'expense' THEN amount END), 0)::text
			FROM transactions
			WHERE owner_id = $1`
		args := []interface{}{ownerID}
		if from != "" {
			args = append(args, from)
			query += fmt.Sprintf(" AND date >= $%d", len(args))
		}
		if to != "" {
			args = append(args, to)
			query += fmt.Sprintf(" AND date <= $%d", len(args))
		}
		query += `
			GROUP BY to_char(date, 'YYYY-MM')
			ORDER BY month`

		rows, err := pool.Query(ctx, query, args...)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
			return
		}
		defer rows.Close()

		results := make([]monthBucket, 0)
		for rows.Next() {
			var mb monthBucket
			var income, expense string
			if err := rows.Scan(&mb.Month, &income, &expense); err != nil {
				api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
				return
			}
			mb.Income, _ = decimal.NewFromString(income)
			mb.Expense, _ = decimal.NewFromString(expense)
			mb.Net = mb.Income.Sub(mb.Expense)
			results = append(results, mb)
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

type budgetProgress struct {
	BudgetID     string          `json:"budget_id"`
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Month        string          `json:"month"`
	LimitAmount  decimal.Decimal `json:"limit_amount"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	PercentUsed  decimal.Decimal `json:"percent_used"`
}

// Handler: BudgetProgress
// Spent vs limit per budget for a month (defaults to the current month).
// Only expenses count against a budget.
func BudgetProgress(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)

		month := r.URL.Query().Get("month")
		if month == "" {
			month = time.Now().Format(constants.MonthFormat)
		}

		rows, err := pool.Query(ctx, `
			SELECT b.id, b.category_id, c.name, b.month, b.limit_amount::text,
			       COALESCE(SUM(t.amount), 0)::text
			FROM budgets b
			JOIN categories c ON b.category_id = c.id
			LEFT JOIN transactions t
				ON t.owner_id = b.owner_id
				AND t.category_id = b.category_id
				AND t.type = 'expense'
				AND to_char(t.date, 'YYYY-MM') = b.month
			WHERE b.owner_id = $1 AND b.month = $2
			GROUP BY b.id, b.category_id, c.name, b.month, b.limit_amount
			ORDER BY c.name
		`, ownerID, month)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
			return
		}
		defer rows.Close()

		hundred := decimal.NewFromInt(100)
		results := make([]budgetProgress, 0)
		for rows.Next() {
			var bp budgetProgress
			var limit, spent string
			if err := rows.Scan(&bp.BudgetID, &bp.CategoryID, &bp.CategoryName, &bp.Month, &limit, &spent); err != nil {
				api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
				return
			}
			bp.LimitAmount, _ = decimal.NewFromString(limit)
			bp.Spent, _ = decimal.NewFromString(spent)
			bp.Remaining = bp.LimitAmount.Sub(bp.Spent)
			if bp.LimitAmount.IsPositive() {
				bp.PercentUsed = bp.Spent.Div(bp.LimitAmount).Mul(hundred).Round(1)
			}
			results = append(results, bp)
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
