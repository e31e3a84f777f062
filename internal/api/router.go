package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/titancoder666/polymarket-tax-engine/internal/api/handlers"
	custommiddleware "github.com/titancoder666/polymarket-tax-engine/internal/api/middleware"
	"github.com/titancoder666/polymarket-tax-engine/internal/config"
	"github.com/titancoder666/polymarket-tax-engine/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	taxService *service.TaxService,
	historyService *service.HistoryService,
	cfg *config.Config,
	logger *logrus.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(logger))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
		})

		r.Route("/tax", func(r chi.Router) {
			uploadHandler := handlers.NewUploadHandler(taxService)
			r.Post("/upload", uploadHandler.Calculate)
			r.Post("/upload/report/{format}", uploadHandler.Report)

			taxHandler := handlers.NewTaxHandler(taxService, historyService, logger)
			r.Route("/{wallet}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateWalletMiddleware)
				r.Get("/", taxHandler.Calculate)
				r.Get("/transactions", taxHandler.Transactions)
				r.Get("/report/{format}", taxHandler.Report)
				r.Get("/stream", taxHandler.Stream)
			})
		})
	})

	return r
}
