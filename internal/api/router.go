package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/optionfolio/backend/internal/api/handlers"
	custommiddleware "github.com/optionfolio/backend/internal/api/middleware"
	"github.com/optionfolio/backend/internal/config"
	"github.com/optionfolio/backend/internal/service"
)

// Services bundles the service dependencies the router wires into handlers.
type Services struct {
	System    *service.SystemService
	Grant     *service.GrantService
	Sale      *service.SaleService
	Price     *service.PriceService
	Overview  *service.OverviewService
	Evolution *service.EvolutionService
	Setting   *service.SettingService
}

// NewRouter creates and configures the HTTP router
func NewRouter(services Services, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(services.System)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/grant", func(r chi.Router) {
			grantHandler := handlers.NewGrantHandler(services.Grant, services.Sale)
			r.Get("/", grantHandler.Grants)
			r.Post("/", grantHandler.CreateGrant)
			r.Get("/check", grantHandler.CheckExisting)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", grantHandler.GetGrant)
				r.Delete("/", grantHandler.DeleteGrant)
				r.Post("/merge", grantHandler.MergeGrant)
				r.Get("/sales", grantHandler.GrantSales)
			})
		})

		r.Route("/sale", func(r chi.Router) {
			saleHandler := handlers.NewSaleHandler(services.Sale)
			r.Get("/", saleHandler.AllSales)
			r.Post("/", saleHandler.CreateSale)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Put("/", saleHandler.UpdateSale)
			})
		})

		r.Route("/portfolio", func(r chi.Router) {
			portfolioHandler := handlers.NewPortfolioHandler(services.Overview, services.Evolution)
			r.Get("/overview", portfolioHandler.Overview)
			r.Get("/evolution", portfolioHandler.Evolution)
			r.Post("/evolution/rebuild", portfolioHandler.RebuildEvolution)
		})

		r.Route("/price", func(r chi.Router) {
			priceHandler := handlers.NewPriceHandler(services.Price)
			r.Get("/history", priceHandler.History)
			r.Get("/resolve", priceHandler.Resolve)
			r.Post("/bulk", priceHandler.BulkIngest)
			r.Post("/refresh", priceHandler.Refresh)
			r.Post("/backfill", priceHandler.Backfill)
		})

		r.Route("/setting", func(r chi.Router) {
			settingHandler := handlers.NewSettingHandler(services.Setting)
			r.Get("/", settingHandler.Settings)
			r.Put("/{key}", settingHandler.UpdateSetting)
		})
	})

	return r
}
