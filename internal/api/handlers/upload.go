package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/titancoder666/polymarket-tax-engine/internal/api/request"
	"github.com/titancoder666/polymarket-tax-engine/internal/api/response"
	"github.com/titancoder666/polymarket-tax-engine/internal/report"
	"github.com/titancoder666/polymarket-tax-engine/internal/service"
)

// MaxUploadBytes is the largest accepted CSV upload.
const MaxUploadBytes = 10 << 20

// UploadHandler handles tax calculations for uploaded transaction CSVs.
type UploadHandler struct {
	taxService *service.TaxService
	maxBytes   int64
}

// NewUploadHandler creates a new UploadHandler accepting uploads up to MaxUploadBytes.
func NewUploadHandler(taxService *service.TaxService) *UploadHandler {
	return &UploadHandler{
		taxService: taxService,
		maxBytes:   MaxUploadBytes,
	}
}

// Calculate handles POST requests with a transaction CSV.
// The CSV is read from the multipart field "file" or from the raw body.
//
// Endpoint: POST /api/tax/upload
// Response: 200 OK with CalculationResponse
// Error: 400 for an empty upload, 413 when too large, 422 for an unusable CSV
func (h *UploadHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	query, err := request.ParseTaxQuery(r)
	if err != nil {
		respondServiceError(w, err, "invalid request")
		return
	}

	data, err := request.ReadUpload(w, r, h.maxBytes)
	if err != nil {
		respondServiceError(w, err, "failed to read upload")
		return
	}

	calc, err := h.taxService.ForUpload(data, query.Year)
	if err != nil {
		respondServiceError(w, err, "failed to calculate taxes")
		return
	}

	response.RespondJSON(w, http.StatusOK, newCalculationResponse("", calc))
}

// Report handles POST requests with a transaction CSV and returns a CSV report.
//
// Endpoint: POST /api/tax/upload/report/{format}
// Response: 200 OK with a CSV attachment
func (h *UploadHandler) Report(w http.ResponseWriter, r *http.Request) {
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

	data, err := request.ReadUpload(w, r, h.maxBytes)
	if err != nil {
		respondServiceError(w, err, "failed to read upload")
		return
	}

	calc, err := h.taxService.ForUpload(data, query.Year)
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
