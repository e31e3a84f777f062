package apperrors

import (
	"errors"
	"fmt"
)

// Domain entity errors represent missing or invalid entities in the system.
var (
	// ErrFetchRunNotFound indicates that no stored history exists for a wallet.
	ErrFetchRunNotFound = errors.New("fetch run not found")

	// ErrNoTransactions indicates that an upload contained no buy, sell or settlement rows.
	ErrNoTransactions = errors.New("no transactions found")
)

// Validation errors for request input.
var (
	ErrInvalidWallet = errors.New("invalid wallet address")
	ErrInvalidYear   = errors.New("invalid tax year")
	ErrInvalidFormat = errors.New("unknown report format")
	ErrEmptyUpload   = errors.New("uploaded file is empty")
	ErrUploadTooBig  = errors.New("uploaded file is too large")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
var (
	ErrFailedToFetchHistory    = errors.New("failed to fetch trade history")
	ErrFailedToLoadHistory     = errors.New("failed to load stored trade history")
	ErrFailedToStoreHistory    = errors.New("failed to store trade history")
	ErrFailedToParseCSV        = errors.New("failed to parse CSV")
	ErrFailedToGenerateReport  = errors.New("failed to generate report")
	ErrFailedToCheckHealth     = errors.New("failed to check health")
	ErrFailedToRefreshWallets  = errors.New("failed to refresh wallets")
	ErrUnexpectedResponseShape = errors.New("unexpected response shape")
)

// ResolutionError reports that a user-supplied identity could not be turned into a wallet address.
type ResolutionError struct {
	Input  string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %q to a wallet: %s", e.Input, e.Reason)
}

func (e *ResolutionError) Unwrap() error {
	return ErrInvalidWallet
}

// FetchError reports a failed history retrieval. Fetched is the number of
// transactions collected before the failure.
type FetchError struct {
	Wallet  string
	Fetched int
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch history for %s failed after %d transactions: %v", e.Wallet, e.Fetched, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FormatError reports a CSV that cannot be normalized. Column names the
// missing required column; it is empty when the file itself is unusable.
type FormatError struct {
	Column string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("could not find a %q column in the CSV", e.Column)
	}
	return e.Reason
}
