package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/titancoder666/polymarket-tax-engine/internal/api/request"
	"github.com/titancoder666/polymarket-tax-engine/internal/api/response"
	"github.com/titancoder666/polymarket-tax-engine/internal/polymarket"
	"github.com/titancoder666/polymarket-tax-engine/internal/report"
	"github.com/titancoder666/polymarket-tax-engine/internal/service"
)

// TaxHandler handles tax calculations for Polymarket wallets.
type TaxHandler struct {
	taxService     *service.TaxService
	historyService *service.HistoryService
	logger         *logrus.Logger
}

// NewTaxHandler creates a new TaxHandler with the provided services.
func NewTaxHandler(taxService *service.TaxService, historyService *service.HistoryService, logger *logrus.Logger) *TaxHandler {
	return &TaxHandler{
		taxService:     taxService,
		historyService: historyService,
		logger:         logger,
	}
}

// Calculate handles GET requests for a wallet's tax lots and summary.
//
// Endpoint: GET /api/tax/{wallet}
// Query parameters:
//   - year (optional): Tax year, or "all"
//   - refresh (optional): Ignore the stored snapshot and fetch again
//
// Response: 200 OK with CalculationResponse
// Error: 400 Bad Request for invalid parameters, 502 if the activity API fails, 504 on timeout
func (h *TaxHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	wallet := request.Wallet(r)
	query, err := request.ParseTaxQuery(r)
	if err != nil {
		respondServiceError(w, err, "invalid request")
		return
	}

	calc, err := h.taxService.ForWallet(r.Context(), wallet, query.Year, query.Refresh)
	if err != nil {
		respondServiceError(w, err, "failed to calculate taxes")
		return
	}

	response.RespondJSON(w, http.StatusOK, newCalculationResponse(wallet, calc))
}

// Transactions handles GET requests for a wallet's normalized trade history.
//
// Endpoint: GET /api/tax/{wallet}/transactions
// Query parameters:
//   - refresh (optional): Ignore the stored snapshot and fetch again
//
// Response: 200 OK with model.History
func (h *TaxHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	query, err := request.ParseTaxQuery(r)
	if err != nil {
		respondServiceError(w, err, "invalid request")
		return
	}

	history, err := h.historyService.Load(r.Context(), request.Wallet(r), query.Refresh)
	if err != nil {
		respondServiceError(w, err, "failed to load trade history")
		return
	}

	response.RespondJSON(w, http.StatusOK, history)
}

// Report handles GET requests for a CSV report of a wallet.
//
// Endpoint: GET /api/tax/{wallet}/report/{format}
// Response: 200 OK with a CSV attachment
func (h *TaxHandler) Report(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		respondServiceError(w, err, "invalid request")
		return
	}
	query, err := request.ParseTaxQuery(r)
	if err != nil {
		respondServiceError(w, err, "invalid request")
		return
	}

	calc, err := h.taxService.ForWallet(r.Context(), request.Wallet(r), query.Year, query.Refresh)
	if err != nil {
		respondServiceError(w, err, "failed to calculate taxes")
		return
	}

	content, err := h.taxService.Render(format, calc)
	if err != nil {
		respondServiceError(w, err, "failed to generate report")
		return
	}

	response.RespondCSV(w, reportFilename(format, query.Year), content)
}

// Stream fetches a wallet's history as server-sent events.
// Emits "progress" events while pages arrive, an "error" event if retrieval
// fails, and a final "result" event. A failed retrieval still sends the
// lots computed from the partial history with complete set to false.
//
// Endpoint: GET /api/tax/{wallet}/stream
func (h *TaxHandler) Stream(w http.ResponseWriter, r *http.Request) {
	query, err := request.ParseTaxQuery(r)
	if err != nil {
		respondServiceError(w, err, "invalid request")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.RespondError(w, http.StatusInternalServerError, "streaming is not supported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(event string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	wallet := request.Wallet(r)
	history, err := h.historyService.Stream(r.Context(), wallet, func(p polymarket.Progress) error {
		return send("progress", p)
	})
	if err != nil {
		h.logger.WithError(err).WithField("wallet", wallet).Warn("streamed history fetch failed")
		if sendErr := send("error", response.ErrorResponse{Error: "failed to fetch trade history", Details: err.Error()}); sendErr != nil {
			return
		}
	}

	calc := h.taxService.ForHistory(history, query.Year)
	if err := send("result", newCalculationResponse(wallet, calc)); err != nil {
		h.logger.WithError(err).WithField("wallet", wallet).Debug("client went away before result")
	}
}

func reportFilename(format report.Format, year int) string {
	if year == 0 {
		return format.Filename()
	}
	return fmt.Sprintf("%d_%s", year, format.Filename())
}
