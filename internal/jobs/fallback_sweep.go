package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"unifinance/internal/config"
	"unifinance/internal/importer"
	"unifinance/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/robfig/cron/v3"
)

// SweepConfig holds configuration for the fallback category sweep.
type SweepConfig struct {
	Schedule  string // Cron schedule (default: "0 2 * * *" for 2 AM daily)
	BatchSize int    // Number of transactions to reattach per bulk UPDATE
	TimeZone  string // Timezone for scheduling
}

// uncategorizedRow is a transaction left without a category, typically
// after its category was deleted (ON DELETE SET NULL).
type uncategorizedRow struct {
	id      string
	ownerID string
	txnType string
}

// sweepUpdate pairs a transaction with the fallback category it should be
// reattached to.
type sweepUpdate struct {
	txnID      string
	categoryID string
}

// NewDefaultSweepConfig creates a new SweepConfig with default values
func NewDefaultSweepConfig() *SweepConfig {
	schedule := os.Getenv("SWEEP_SCHEDULE")
	if schedule == "" {
		schedule = config.DefaultSweepSchedule
	}

	batchSize := config.SweepBatchSize
	if bs := os.Getenv("SWEEP_BATCH_SIZE"); bs != "" {
		if parsed, err := parseInt(bs); err == nil && parsed > 0 {
			batchSize = parsed
		}
	}

	return &SweepConfig{
		Schedule:  schedule,
		BatchSize: batchSize,
		TimeZone:  config.DefaultTimeZone,
	}
}

// RunFallbackSweepScheduler starts the cron job that reattaches
// uncategorized transactions to the owner's fallback categories.
func RunFallbackSweepScheduler(cfg *SweepConfig, db *pgxpool.Pool) error {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultSweepSchedule
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = config.SweepBatchSize
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = config.DefaultTimeZone
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
		logger.GlobalLogger.LogAudit(fmt.Sprintf("Invalid timezone %s, falling back to UTC: %v", cfg.TimeZone, err))
	}

	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.Schedule, func() {
		logger.GlobalLogger.LogAudit(fmt.Sprintf("Starting fallback sweep at %s", time.Now().In(loc).Format(time.RFC3339)))
		if err := SweepUncategorizedTransactions(db, cfg.BatchSize); err != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("Fallback sweep failed: %v", err))
			log.Printf("ERROR: Fallback sweep failed: %v", err)
		} else {
			logger.GlobalLogger.LogAudit("Fallback sweep completed successfully")
		}
	})
	if err != nil {
		return fmt.Errorf("unable to schedule fallback sweep: %v", err)
	}

	c.Start()
	logger.GlobalLogger.LogAudit(fmt.Sprintf("Fallback sweep scheduler started with schedule: %s (timezone: %s)", cfg.Schedule, cfg.TimeZone))
	log.Printf("[AUDIT] Fallback sweep scheduler started: %s (%s)", cfg.Schedule, cfg.TimeZone)

	return nil
}

// SweepUncategorizedTransactions reattaches transactions whose category_id is
// NULL to their owner's fallback category ("Other Income" / "Other Expenses"
// depending on the transaction type), provisioning the fallbacks first where
// an owner is missing them. batchSize controls how many transactions are
// updated in a single bulk UPDATE.
func SweepUncategorizedTransactions(db *pgxpool.Pool, batchSize int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	startTime := time.Now()

	pgDB := db.Config().ConnConfig.Database
	pgUser := db.Config().ConnConfig.User
	pgPass := db.Config().ConnConfig.Password
	pgHost := db.Config().ConnConfig.Host
	pgPort := db.Config().ConnConfig.Port

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", pgUser, pgPass, pgHost, pgPort, pgDB)
	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to open sql.DB connection: %w", err)
	}
	defer sqlDB.Close()

	var totalCount int
	countQuery := `SELECT COUNT(*) FROM transactions WHERE category_id IS NULL`
	if err := sqlDB.QueryRowContext(ctx, countQuery).Scan(&totalCount); err != nil {
		return fmt.Errorf("failed to count uncategorized transactions: %w", err)
	}

	if totalCount == 0 {
		logger.GlobalLogger.LogAudit("No uncategorized transactions found")
		return nil
	}

	log.Printf("[AUDIT] Total uncategorized transactions: %d", totalCount)
	logger.GlobalLogger.LogAudit(fmt.Sprintf("Found %d uncategorized transactions to reattach", totalCount))

	if batchSize <= 0 {
		batchSize = config.SweepBatchSize
	}

	totalReattached := 0
	ensuredOwners := make(map[string]struct{})
	fallbacks := make(map[string]map[string]string) // ownerID -> type -> category id

	for {
		// Fetch the next batch. No OFFSET: reattached rows drop out of the
		// WHERE clause, so the next query starts at the new front.
		rows, err := sqlDB.QueryContext(ctx, `
			SELECT id, owner_id, type
			FROM transactions
			WHERE category_id IS NULL
			ORDER BY owner_id, created_at, id
			LIMIT $1
		`, batchSize)
		if err != nil {
			return fmt.Errorf("failed to query uncategorized transactions: %w", err)
		}

		var txns []uncategorizedRow
		for rows.Next() {
			var tr uncategorizedRow
			if err := rows.Scan(&tr.id, &tr.ownerID, &tr.txnType); err != nil {
				logger.GlobalLogger.LogAudit(fmt.Sprintf("Failed to scan transaction row: %v", err))
				continue
			}
			txns = append(txns, tr)
		}
		rows.Close()

		if len(txns) == 0 {
			break
		}

		// Make sure every owner in this batch has its fallback categories.
		for _, tr := range txns {
			if _, done := ensuredOwners[tr.ownerID]; done {
				continue
			}
			if err := ensureFallbackCategories(ctx, sqlDB, tr.ownerID); err != nil {
				logger.GlobalLogger.LogAudit(fmt.Sprintf("Failed to ensure fallback categories for owner %s: %v", tr.ownerID, err))
				continue
			}
			fb, err := loadFallbackCategories(ctx, sqlDB, tr.ownerID)
			if err != nil {
				logger.GlobalLogger.LogAudit(fmt.Sprintf("Failed to load fallback categories for owner %s: %v", tr.ownerID, err))
				continue
			}
			fallbacks[tr.ownerID] = fb
			ensuredOwners[tr.ownerID] = struct{}{}
		}

		updates := resolveSweepUpdates(txns, fallbacks)
		if len(updates) == 0 {
			// Nothing in this batch could be resolved; stop rather than
			// re-fetch the same rows forever.
			logger.GlobalLogger.LogAudit(fmt.Sprintf("Fallback sweep stalled with %d unresolved rows", len(txns)))
			break
		}

		if err := bulkReattachCategories(ctx, sqlDB, updates); err != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("Bulk reattach failed, falling back to individual updates: %v", err))
			for _, u := range updates {
				if _, err := sqlDB.ExecContext(ctx, `UPDATE transactions SET category_id = $1 WHERE id = $2`, u.categoryID, u.txnID); err != nil {
					logger.GlobalLogger.LogAudit(fmt.Sprintf("Failed to reattach transaction %s: %v", u.txnID, err))
				}
			}
		}
		totalReattached += len(updates)

		if len(txns) < batchSize {
			break
		}
	}

	duration := time.Since(startTime)
	summary := fmt.Sprintf("Fallback sweep completed: %d/%d transactions reattached across %d owners (Duration: %v)",
		totalReattached, totalCount, len(ensuredOwners), duration)
	logger.GlobalLogger.LogAudit(summary)
	log.Println(summary)

	return nil
}

// resolveSweepUpdates pairs each uncategorized transaction with its owner's
// fallback category for the transaction's type. Rows whose owner has no
// loaded fallback of the right type are skipped.
func resolveSweepUpdates(txns []uncategorizedRow, fallbacks map[string]map[string]string) []sweepUpdate {
	updates := make([]sweepUpdate, 0, len(txns))
	for _, tr := range txns {
		fb, ok := fallbacks[tr.ownerID]
		if !ok {
			continue
		}
		catID, ok := fb[tr.txnType]
		if !ok || catID == "" {
			continue
		}
		updates = append(updates, sweepUpdate{txnID: tr.id, categoryID: catID})
	}
	return updates
}

// ensureFallbackCategories provisions the owner's fallback categories where
// missing. Same name-matched INSERT...WHERE NOT EXISTS as the import writer.
func ensureFallbackCategories(ctx context.Context, db *sql.DB, ownerID string) error {
	defaults := []struct {
		name, color, icon string
	}{
		{config.FallbackIncomeName, config.FallbackIncomeColor, config.FallbackIncomeIcon},
		{config.FallbackExpenseName, config.FallbackExpenseColor, config.FallbackExpenseIcon},
	}
	for _, d := range defaults {
		_, err := db.ExecContext(ctx, `
			INSERT INTO categories (id, owner_id, name, color, icon, created_at)
			SELECT gen_random_uuid()::text, $1, $2, $3, $4, NOW()
			WHERE NOT EXISTS (
				SELECT 1 FROM categories WHERE owner_id = $1 AND LOWER(name) = LOWER($2)
			)
		`, ownerID, d.name, d.color, d.icon)
		if err != nil {
			return err
		}
	}
	return nil
}

// loadFallbackCategories returns a transaction-type -> category id map for
// the owner's fallback categories. Categories carry no type column, so the
// mapping goes through the fallback names.
func loadFallbackCategories(ctx context.Context, db *sql.DB, ownerID string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name FROM categories
		WHERE owner_id = $1 AND LOWER(name) IN (LOWER($2), LOWER($3))
	`, ownerID, config.FallbackIncomeName, config.FallbackExpenseName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fb := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		if strings.EqualFold(name, config.FallbackIncomeName) {
			fb[string(importer.TypeIncome)] = id
		} else {
			fb[string(importer.TypeExpense)] = id
		}
	}
	return fb, rows.Err()
}

// bulkReattachCategories performs a single bulk UPDATE using PostgreSQL arrays
func bulkReattachCategories(ctx context.Context, db *sql.DB, updates []sweepUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	txnIDs := make([]string, len(updates))
	categoryIDs := make([]string, len(updates))
	for i, u := range updates {
		txnIDs[i] = u.txnID
		categoryIDs[i] = u.categoryID
	}

	query := `
		UPDATE transactions AS t
		SET category_id = u.category_id
		FROM (
			SELECT unnest($1::text[]) AS txn_id, unnest($2::text[]) AS category_id
		) AS u
		WHERE t.id = u.txn_id
	`

	_, err := db.ExecContext(ctx, query, pq.Array(txnIDs), pq.Array(categoryIDs))
	return err
}

// parseInt is a helper to parse int from string
func parseInt(s string) (int, error) {
	var result int
	_, err := fmt.Sscanf(s, "%d", &result)
	return result, err
}
