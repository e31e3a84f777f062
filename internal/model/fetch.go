package model

import "time"

// FetchRun records one complete retrieval of a wallet's trade history.
type FetchRun struct {
	ID               string    `json:"id"`
	Wallet           string    `json:"wallet"`
	FetchedAt        time.Time `json:"fetchedAt"`
	TransactionCount int       `json:"transactionCount"`
	WindowCount      int       `json:"windowCount"`
}

// History is a wallet's normalized, chronologically ordered transactions.
// Complete is false when retrieval stopped early; such a history is not
// valid for tax purposes and is never persisted.
type History struct {
	Run          FetchRun      `json:"run"`
	Transactions []Transaction `json:"transactions"`
	Complete     bool          `json:"complete"`
}
