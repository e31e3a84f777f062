package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/titancoder666/polymarket-tax-engine/internal/api/response"
	"github.com/titancoder666/polymarket-tax-engine/internal/apperrors"
	"github.com/titancoder666/polymarket-tax-engine/internal/model"
	"github.com/titancoder666/polymarket-tax-engine/internal/service"
	"github.com/titancoder666/polymarket-tax-engine/internal/validation"
)

// CalculationResponse is the JSON body of a tax calculation.
type CalculationResponse struct {
	Wallet           string                 `json:"wallet,omitempty"`
	Year             int                    `json:"year,omitempty"`
	AvailableYears   []int                  `json:"availableYears"`
	TransactionCount int                    `json:"transactionCount"`
	Complete         bool                   `json:"complete"`
	FetchedAt        *time.Time             `json:"fetchedAt,omitempty"`
	Lots             []model.TaxLotResponse `json:"lots"`
	OpenPositions    []model.OpenLot        `json:"openPositions"`
	Summary          model.TaxSummary       `json:"summary"`
}

func newCalculationResponse(wallet string, calc service.Calculation) CalculationResponse {
	resp := CalculationResponse{
		Wallet:           wallet,
		Year:             calc.Year,
		AvailableYears:   calc.Years,
		TransactionCount: calc.TransactionCount,
		Complete:         calc.Complete,
		Lots:             make([]model.TaxLotResponse, 0, len(calc.Lots)),
		OpenPositions:    calc.Open,
		Summary:          calc.Summary,
	}
	if resp.AvailableYears == nil {
		resp.AvailableYears = []int{}
	}
	if resp.OpenPositions == nil {
		resp.OpenPositions = []model.OpenLot{}
	}
	if calc.Run != nil && !calc.Run.FetchedAt.IsZero() {
		fetchedAt := calc.Run.FetchedAt
		resp.FetchedAt = &fetchedAt
	}
	for _, lot := range calc.Lots {
		resp.Lots = append(resp.Lots, lot.Response())
	}
	return resp
}

// respondServiceError maps a service error to its HTTP status.
// message is used for failures without a more specific mapping.
func respondServiceError(w http.ResponseWriter, err error, message string) {
	var (
		resolutionErr *apperrors.ResolutionError
		formatErr     *apperrors.FormatError
		fetchErr      *apperrors.FetchError
		validationErr *validation.Error
	)

	switch {
	case errors.As(err, &resolutionErr):
		response.RespondError(w, http.StatusBadRequest, "invalid wallet address", err.Error())
	case errors.As(err, &validationErr):
		response.RespondError(w, http.StatusBadRequest, "invalid request", validationErr.Fields)
	case errors.Is(err, apperrors.ErrInvalidYear),
		errors.Is(err, apperrors.ErrInvalidFormat),
		errors.Is(err, apperrors.ErrEmptyUpload):
		response.RespondError(w, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, apperrors.ErrUploadTooBig):
		response.RespondError(w, http.StatusRequestEntityTooLarge, "upload too large", err.Error())
	case errors.As(err, &formatErr), errors.Is(err, apperrors.ErrNoTransactions):
		response.RespondError(w, http.StatusUnprocessableEntity, "invalid CSV", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		response.RespondError(w, http.StatusGatewayTimeout, "trade history retrieval timed out", err.Error())
	case errors.As(err, &fetchErr):
		response.RespondError(w, http.StatusBadGateway, apperrors.ErrFailedToFetchHistory.Error(), err.Error())
	case errors.Is(err, apperrors.ErrFetchRunNotFound):
		response.RespondError(w, http.StatusNotFound, "no stored history for wallet", err.Error())
	default:
		response.RespondError(w, http.StatusInternalServerError, message, err.Error())
	}
}
