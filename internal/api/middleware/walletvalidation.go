// Package middleware provides HTTP middleware for request validation and processing.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/titancoder666/polymarket-tax-engine/internal/api/request"
	"github.com/titancoder666/polymarket-tax-engine/internal/api/response"
	"github.com/titancoder666/polymarket-tax-engine/internal/validation"
)

// ValidateWalletMiddleware validates the wallet URL parameter and stores the
// normalized address in the request context for request.Wallet.
// Returns 400 Bad Request if the wallet is missing or not an address.
//
// Example usage in router:
//
//	r.Route("/{wallet}", func(r chi.Router) {
//	    r.Use(middleware.ValidateWalletMiddleware)
//	    r.Get("/", handler.Calculate)
//	})
func ValidateWalletMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wallet, err := validation.ValidateWallet(chi.URLParam(r, "wallet"))
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid wallet address", err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(request.WithWallet(r.Context(), wallet)))
	})
}
