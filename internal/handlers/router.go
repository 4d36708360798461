package handlers

import (
	"net/http"

	"starlight/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Post("/join", h.Join)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/admin-login", h.AdminLogin)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Get("/balance", h.GetBalance)
		r.Get("/stats", h.GetStats)
		r.Get("/transactions", h.ListTransactions)
		r.Post("/transactions/deposit", h.Deposit)
		r.Post("/transactions/spend", h.Spend)
		r.Post("/transactions/transfer", h.Transfer)
		r.Post("/redeem", h.Redeem)
		r.Post("/bonus/daily", h.DailyBonus)
		r.Get("/market/packages", h.ListPackages)
		r.Get("/starplace/profile", h.StarplaceProfile)
		r.Post("/starplace/unlock", h.StarplaceUnlock)
		r.Put("/starplace/settings", h.StarplaceSettings)
	})

	router.Get("/ws/balances", h.WSBalances)

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Use(middleware.RequireAdmin(h.users))
		r.Post("/codes", h.IssueCode)
		r.Get("/codes", h.ListCodes)
		r.Post("/codes/redeem", h.AdminRedeemCode)
		r.Post("/award", h.AdminAward)
		r.Post("/reconcile", h.Reconcile)
		r.Post("/reset", h.Reset)
		r.Get("/snapshot", h.RawSnapshot)
		r.Get("/users", h.AdminListUsers)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
