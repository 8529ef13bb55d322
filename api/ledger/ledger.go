package ledger

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"unifinance/api"
)

func StartLedgerService(pool *pgxpool.Pool) {
	router := mux.NewRouter()

	// Import workflow
	router.Handle("/ledger/import", ImportTransactions(pool)).Methods("POST")
	router.Handle("/ledger/import/file", ImportTransactionsFile(pool)).Methods("POST")

	// Transactions
	router.Handle("/ledger/transactions", ListTransactions(pool)).Methods("GET")
	router.Handle("/ledger/transactions", CreateTransaction(pool)).Methods("POST")
	router.Handle("/ledger/transactions/clear", ClearTransactions(pool)).Methods("POST")
	router.Handle("/ledger/transactions/{id}", UpdateTransaction(pool)).Methods("PUT")
	router.Handle("/ledger/transactions/{id}", DeleteTransaction(pool)).Methods("DELETE")

	// Categories
	router.Handle("/ledger/categories", ListCategories(pool)).Methods("GET")
	router.Handle("/ledger/categories", CreateCategory(pool)).Methods("POST")
	router.Handle("/ledger/categories/defaults", EnsureDefaultCategories(pool)).Methods("POST")
	router.Handle("/ledger/categories/{id}", UpdateCategory(pool)).Methods("PUT")
	router.Handle("/ledger/categories/{id}", DeleteCategory(pool)).Methods("DELETE")

	// Budgets
	router.Handle("/ledger/budgets", ListBudgets(pool)).Methods("GET")
	router.Handle("/ledger/budgets", CreateBudget(pool)).Methods("POST")
	router.Handle("/ledger/budgets/{id}", DeleteBudget(pool)).Methods("DELETE")

	router.Use(api.OwnerMiddleware)

	log.Println("Ledger Service started on :6143")
	if err := http.ListenAndServe(":6143", router); err != nil {
		log.Fatalf("Ledger Service failed: %v", err)
	}
}
