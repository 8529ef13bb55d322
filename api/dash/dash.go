package dash

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"unifinance/api"
)

func StartDashService(pool *pgxpool.Pool) {
	router := mux.NewRouter()

	router.Handle("/dash/overview", Overview(pool)).Methods("GET")
	router.Handle("/dash/categories", CategoryBreakdown(pool)).Methods("GET")
	router.Handle("/dash/monthly", MonthlySeries(pool)).Methods("GET")
	router.Handle("/dash/budgets", BudgetProgress(pool)).Methods("GET")

	router.Use(api.OwnerMiddleware)

	log.Println("Dash Service started on :4143")
	if err := http.ListenAndServe(":4143", router); err != nil {
		log.Fatalf("Dash Service failed: %v", err)
	}
}
