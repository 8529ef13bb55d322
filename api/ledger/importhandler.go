package ledger

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"unifinance/api"
	"unifinance/api/constants"
	"unifinance/internal/importer"
	"unifinance/internal/logger"
)

// Handler: ImportTransactions
// POST /ledger/import with {"transactions": [...]}. Validation failure is
// fatal for the whole batch (400 with field errors); per-row store failures
// are absorbed into the summary and the call still returns 200.
func ImportTransactions(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)

		var req struct {
			Transactions []importer.Candidate `json:"transactions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}

		if err := importer.ValidateBatch(req.Transactions); err != nil {
			verr, ok := err.(*importer.ValidationError)
			if !ok {
				api.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			api.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
				constants.KeySuccess: false,
				constants.KeyError:   "batch validation failed",
				"errors":             verr.Errors,
			})
			return
		}

		imp := importer.New(NewPgStore(pool))
		sum := imp.Run(ctx, ownerID, req.Transactions)

		if logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf(
				"Import for owner %s: %d inserted, %d updated, %d total",
				ownerID, sum.Inserted, sum.Updated, sum.Total,
			))
		}

		api.WriteJSON(w, http.StatusOK, map[string]interface{}{
			constants.KeySuccess: true,
			"inserted":           sum.Inserted,
			"updated":            sum.Updated,
			"total":              sum.Total,
			"message":            sum.Message,
			"outcomes":           sum.Outcomes,
		})
	}
}
