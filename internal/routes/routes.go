package routes

import (
	"net/http"

	"github.com/ab-1402/Bank-Buddy/internal/handlers"
	appmw "github.com/ab-1402/Bank-Buddy/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRoutes wires the HTTP surface. rdb is optional; when present the
// transfer route honors Idempotency-Key headers.
func NewRoutes(h *handlers.Handler, rdb *redis.Client) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Works Fine!"))
	})

	r.Post("/api/register", h.Register)
	r.Post("/api/login", h.Login)

	r.With(appmw.Authenticated).Get("/api/transactions/{userID}", h.Transactions)

	r.With(appmw.Authenticated).Get("/api/fraud-alerts/{userID}", h.FraudAlerts)

	r.With(appmw.Authenticated).Get("/api/accounts/upi/{upiID}", h.AccountByUpi)

	transferRoute := r.With(appmw.Authenticated)
	if rdb != nil {
		transferRoute = transferRoute.With(appmw.Idempotency(rdb))
	}
	transferRoute.Post("/api/transfer", h.Transfer)

	r.With(appmw.Authenticated, appmw.ManagerOnly).Get("/api/customers", h.Customers)

	r.With(appmw.Authenticated).Post("/api/chat", h.Chat)

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
