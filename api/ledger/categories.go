package ledger

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"unifinance/api"
	"unifinance/api/constants"
	"unifinance/internal/config"
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type CategoryItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Icon      *string   `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

// Handler: ListCategories
func ListCategories(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)

		rows, err := pool.Query(ctx, `
			SELECT id, name, color, icon, created_at
			FROM categories
			WHERE owner_id = $1
			ORDER BY name
		`, ownerID)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
			return
		}
		defer rows.Close()

		results := make([]CategoryItem, 0)
		for rows.Next() {
			var it CategoryItem
			if err := rows.Scan(&it.ID, &it.Name, &it.Color, &it.Icon, &it.CreatedAt); err != nil {
				api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
				return
			}
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

// Handler: CreateCategory
func CreateCategory(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)

		var req struct {
			Name  string  `json:"name"`
			Color string  `json:"color"`
			Icon  *string `json:"icon"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if strings.TrimSpace(req.Name) == "" || len(req.Name) > config.MaxCategoryNameLen {
			api.WriteError(w, http.StatusBadRequest, "name must be 1-50 characters")
			return
		}
		if !hexColorRe.MatchString(req.Color) {
			api.WriteError(w, http.StatusBadRequest, "color must be a hex string like #ff8800")
			return
		}

		id := uuid.New().String()
		_, err := pool.Exec(ctx, `
			INSERT INTO categories (id, owner_id, name, color, icon, created_at)
			VALUES ($1, $2, $3, $4, $5, now())
		`, id, ownerID, req.Name, req.Color, req.Icon)
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

// Handler: UpdateCategory
func UpdateCategory(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)
		catID := mux.Vars(r)["id"]

		var req struct {
			Name  *string `json:"name"`
			Color *string `json:"color"`
			Icon  *string `json:"icon"`
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

		if req.Name != nil {
			if strings.TrimSpace(*req.Name) == "" || len(*req.Name) > config.MaxCategoryNameLen {
				api.WriteError(w, http.StatusBadRequest, "name must be 1-50 characters")
				return
			}
			addSet("name", *req.Name)
		}
		if req.Color != nil {
			if !hexColorRe.MatchString(*req.Color) {
				api.WriteError(w, http.StatusBadRequest, "color must be a hex string like #ff8800")
				return
			}
			addSet("color", *req.Color)
		}
		if req.Icon != nil {
			addSet("icon", *req.Icon)
		}
		if len(sets) == 0 {
			api.WriteError(w, http.StatusBadRequest, "no fields to update")
			return
		}

		args = append(args, catID, ownerID)
		query := fmt.Sprintf(
			"UPDATE categories SET %s WHERE id = $%d AND owner_id = $%d",
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

// Handler: DeleteCategory
// Transactions referencing the category keep running with category_id NULL
// (FK is ON DELETE SET NULL); the nightly sweep reattaches them to the
// fallback categories.
func DeleteCategory(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)
		catID := mux.Vars(r)["id"]

		tag, err := pool.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND owner_id = $2`, catID, ownerID)
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

// Handler: EnsureDefaultCategories
// Provisions Other Income / Other Expenses on demand, e.g. right after
// signup so new owners start with somewhere to put imports.
func EnsureDefaultCategories(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)

		store := NewPgStore(pool)
		if err := store.EnsureFallbackCategories(ctx, ownerID); err != nil {
			api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
			return
		}

		api.WriteJSON(w, http.StatusOK, map[string]interface{}{constants.KeySuccess: true})
	}
}
