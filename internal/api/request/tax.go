// Package request parses and validates incoming HTTP request data.
package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/titancoder666/polymarket-tax-engine/internal/apperrors"
	"github.com/titancoder666/polymarket-tax-engine/internal/validation"
)

type walletKey struct{}

// WithWallet stores a validated wallet address in ctx.
func WithWallet(ctx context.Context, wallet string) context.Context {
	return context.WithValue(ctx, walletKey{}, wallet)
}

// Wallet returns the wallet stored by the wallet validation middleware, or "".
func Wallet(r *http.Request) string {
	wallet, _ := r.Context().Value(walletKey{}).(string)
	return wallet
}

// TaxQuery holds the optional query parameters of tax endpoints.
// Year is 0 when every year is requested.
type TaxQuery struct {
	Year    int
	Refresh bool
}

// ParseTaxQuery reads ?year= and ?refresh=.
func ParseTaxQuery(r *http.Request) (TaxQuery, error) {
	q := r.URL.Query()

	year, err := validation.ParseYear(q.Get("year"))
	if err != nil {
		return TaxQuery{}, err
	}
	refresh, err := validation.ParseFlag("refresh", q.Get("refresh"))
	if err != nil {
		return TaxQuery{}, err
	}

	return TaxQuery{Year: year, Refresh: refresh}, nil
}

// ReadUpload reads an uploaded CSV from the multipart field "file" or, for
// any other content type, from the raw body. Bodies above maxBytes are rejected.
func ReadUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, uploadError(err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: missing multipart field \"file\"", apperrors.ErrEmptyUpload)
		}
		defer file.Close()
		src = file
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, uploadError(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, apperrors.ErrEmptyUpload
	}
	return data, nil
}

func uploadError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return fmt.Errorf("%w: limit is %d bytes", apperrors.ErrUploadTooBig, tooBig.Limit)
	}
	return fmt.Errorf("failed to read upload: %w", err)
}
