package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbill/medbill/internal/billing"
	"github.com/medbill/medbill/internal/credit"
	"github.com/medbill/medbill/internal/customers"
	"github.com/medbill/medbill/internal/medicines"
	"github.com/medbill/medbill/internal/stock"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Pool             *pgxpool.Pool
	BillingHandler   *billing.Handler
	StockHandler     *stock.Handler
	CreditHandler    *credit.Handler
	CustomersHandler *customers.Handler
	MedicinesHandler *medicines.Handler
}

// NewRouter constructs the chi.Router with default middleware and all
// module routes mounted under /api/v1.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(api chi.Router) {
		if params.BillingHandler != nil {
			params.BillingHandler.MountRoutes(api)
		}
		if params.StockHandler != nil {
			params.StockHandler.MountRoutes(api)
		}
		if params.CreditHandler != nil {
			params.CreditHandler.MountRoutes(api)
		}
		if params.CustomersHandler != nil {
			params.CustomersHandler.MountRoutes(api)
		}
		if params.MedicinesHandler != nil {
			params.MedicinesHandler.MountRoutes(api)
		}
	})

	return r
}
