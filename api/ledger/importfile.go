package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"unifinance/api"
	"unifinance/api/constants"
	"unifinance/internal/importer"
)

const maxFileRows = 10000

// Helper: get file extension
func getFileExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// Helper: parse uploaded file into [][]string
func parseUploadFile(file multipart.File, ext string) ([][]string, error) {
	switch ext {
	case ".csv":
		r := csv.NewReader(file)
		r.FieldsPerRecord = -1
		return r.ReadAll()
	case ".xlsx":
		f, err := excelize.OpenReader(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		sheet := f.GetSheetName(0)
		return f.GetRows(sheet)
	case ".xls":
		wb, err := xls.OpenReader(file, "utf-8")
		if err != nil {
			return nil, err
		}
		return wb.ReadAllCells(maxFileRows), nil
	}
	return nil, errors.New("unsupported file type")
}

// candidatesFromRows maps a header row plus data rows onto import candidates.
// Expected columns (case-insensitive, any order): date, description, amount,
// type, and optionally category. Category is matched by name against the
// owner's categories; unknown or missing names get a fresh id that no
// category has, so the Writer's fallback path picks them up.
func candidatesFromRows(records [][]string, categoriesByName map[string]string) ([]importer.Candidate, error) {
	if len(records) < 2 {
		return nil, errors.New("file must contain a header row and at least one data row")
	}

	col := map[string]int{}
	for i, h := range records[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"date", "description", "amount", "type"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}
	catCol, hasCatCol := col["category"]

	cell := func(row []string, idx int) string {
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	candidates := make([]importer.Candidate, 0, len(records)-1)
	for i, row := range records[1:] {
		rawAmount := strings.ReplaceAll(cell(row, col["amount"]), ",", "")
		amount, err := decimal.NewFromString(rawAmount)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid amount %q", i+1, rawAmount)
		}

		categoryID := ""
		if hasCatCol {
			name := cell(row, catCol)
			if id, ok := categoriesByName[strings.ToLower(name)]; ok {
				categoryID = id
			}
		}
		if categoryID == "" {
			// No category column, or name not found: use an id that cannot
			// exist so the import falls back to Other Income/Expenses.
			categoryID = uuid.New().String()
		}

		candidates = append(candidates, importer.Candidate{
			Date:        cell(row, col["date"]),
			Description: cell(row, col["description"]),
			Amount:      amount,
			CategoryID:  categoryID,
			Type:        importer.TxnType(strings.ToLower(cell(row, col["type"]))),
		})
	}
	return candidates, nil
}

// Handler: ImportTransactionsFile
// POST /ledger/import/file with a multipart "file" field (CSV, XLSX or XLS).
// Rows run through the same validator and workflow as the JSON import.
func ImportTransactionsFile(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := api.GetOwnerIDFromCtx(ctx)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			api.WriteError(w, http.StatusBadRequest, "Failed to parse multipart form")
			return
		}
		files := r.MultipartForm.File["file"]
		if len(files) == 0 {
			api.WriteError(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		fileHeader := files[0]

		file, err := fileHeader.Open()
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "Failed to open file: "+fileHeader.Filename)
			return
		}
		records, err := parseUploadFile(file, getFileExt(fileHeader.Filename))
		file.Close()
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "Invalid file "+fileHeader.Filename+": "+err.Error())
			return
		}

		store := NewPgStore(pool)
		cats, err := store.ListCategories(ctx, ownerID)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, constants.ErrDB+": "+err.Error())
			return
		}
		categoriesByName := make(map[string]string, len(cats))
		for _, c := range cats {
			categoriesByName[strings.ToLower(c.Name)] = c.ID
		}

		candidates, err := candidatesFromRows(records, categoriesByName)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := importer.ValidateBatch(candidates); err != nil {
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

		imp := importer.New(store)
		sum := imp.Run(ctx, ownerID, candidates)

		api.WriteJSON(w, http.StatusOK, map[string]interface{}{
			constants.KeySuccess: true,
			"batch_id":           uuid.New().String(),
			"file_name":          fileHeader.Filename,
			"inserted":           sum.Inserted,
			"updated":            sum.Updated,
			"total":              sum.Total,
			"message":            sum.Message,
			"outcomes":           sum.Outcomes,
		})
	}
}
