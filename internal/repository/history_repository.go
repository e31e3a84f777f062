package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/titancoder666/polymarket-tax-engine/internal/apperrors"
	"github.com/titancoder666/polymarket-tax-engine/internal/model"
)

// storedTimeLayout keeps fetched_at lexically sortable.
const storedTimeLayout = "2006-01-02T15:04:05.000000Z"

// HistoryRepository provides data access methods for the fetch_run and
// wallet_transaction tables. Each wallet keeps only its latest complete run.
type HistoryRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewHistoryRepository creates a new HistoryRepository with the provided database connection.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// WithTx returns a new HistoryRepository scoped to the provided transaction.
func (r *HistoryRepository) WithTx(tx *sql.Tx) *HistoryRepository {
	return &HistoryRepository{
		db: r.db,
		tx: tx,
	}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *HistoryRepository) getQuerier() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// SaveSnapshot stores a complete history as the wallet's current run and
// removes the wallet's older runs. The run ID is assigned here and returned.
func (r *HistoryRepository) SaveSnapshot(ctx context.Context, history model.History) (model.FetchRun, error) {
	if !history.Complete {
		return model.FetchRun{}, fmt.Errorf("%w: refusing to store an incomplete history", apperrors.ErrFailedToStoreHistory)
	}

	if r.tx != nil {
		return r.saveSnapshot(ctx, history)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.FetchRun{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	run, err := r.WithTx(tx).saveSnapshot(ctx, history)
	if err != nil {
		return model.FetchRun{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.FetchRun{}, fmt.Errorf("failed to commit history: %w", err)
	}
	return run, nil
}

func (r *HistoryRepository) saveSnapshot(ctx context.Context, history model.History) (model.FetchRun, error) {
	run := history.Run
	run.ID = uuid.New().String()
	run.TransactionCount = len(history.Transactions)
	if run.FetchedAt.IsZero() {
		run.FetchedAt = time.Now().UTC()
	}

	q := r.getQuerier()

	// Pooled connections may not have foreign keys enabled, so children go first.
	_, err := q.ExecContext(ctx, `
        DELETE FROM wallet_transaction
        WHERE fetch_run_id IN (SELECT id FROM fetch_run WHERE wallet = ?)
    `, run.Wallet)
	if err != nil {
		return model.FetchRun{}, fmt.Errorf("failed to delete previous transactions: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM fetch_run WHERE wallet = ?`, run.Wallet); err != nil {
		return model.FetchRun{}, fmt.Errorf("failed to delete previous runs: %w", err)
	}

	_, err = q.ExecContext(ctx, `
        INSERT INTO fetch_run (id, wallet, fetched_at, transaction_count, window_count)
        VALUES (?, ?, ?, ?, ?)
    `,
		run.ID,
		run.Wallet,
		run.FetchedAt.UTC().Format(storedTimeLayout),
		run.TransactionCount,
		run.WindowCount,
	)
	if err != nil {
		return model.FetchRun{}, fmt.Errorf("failed to insert fetch_run: %w", err)
	}

	stmt, err := q.PrepareContext(ctx, `
        INSERT INTO wallet_transaction (
            id, fetch_run_id, seq, source_id, timestamp, market, title, outcome,
            side, price, quantity, notional, fees, settlement
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return model.FetchRun{}, fmt.Errorf("failed to prepare wallet_transaction insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range history.Transactions {
		var ts sql.NullInt64
		if !t.Timestamp.IsZero() {
			ts = sql.NullInt64{Int64: t.Timestamp.Unix(), Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			uuid.New().String(),
			run.ID,
			i,
			t.SourceID,
			ts,
			t.Market,
			t.Title,
			t.Outcome,
			string(t.Side),
			t.Price,
			t.Quantity,
			t.Notional,
			t.Fees,
			t.Settlement,
		)
		if err != nil {
			return model.FetchRun{}, fmt.Errorf("failed to insert wallet_transaction %d: %w", i, err)
		}
	}

	return run, nil
}

// LatestRun retrieves the stored run for a wallet.
// Returns ErrFetchRunNotFound if the wallet has never been stored.
func (r *HistoryRepository) LatestRun(ctx context.Context, wallet string) (model.FetchRun, error) {
	query := `
        SELECT id, wallet, fetched_at, transaction_count, window_count
        FROM fetch_run
        WHERE wallet = ?
        ORDER BY fetched_at DESC
        LIMIT 1
    `

	var run model.FetchRun
	var fetchedAt string
	err := r.getQuerier().QueryRowContext(ctx, query, wallet).Scan(
		&run.ID,
		&run.Wallet,
		&fetchedAt,
		&run.TransactionCount,
		&run.WindowCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FetchRun{}, apperrors.ErrFetchRunNotFound
	}
	if err != nil {
		return model.FetchRun{}, fmt.Errorf("failed to query fetch_run: %w", err)
	}

	run.FetchedAt, err = time.Parse(storedTimeLayout, fetchedAt)
	if err != nil {
		return model.FetchRun{}, fmt.Errorf("failed to parse date: %w", err)
	}
	return run, nil
}

// GetTransactions retrieves a run's transactions in their stored order.
func (r *HistoryRepository) GetTransactions(ctx context.Context, runID string) ([]model.Transaction, error) {
	query := `
        SELECT source_id, timestamp, market, title, outcome, side, price, quantity, notional, fees, settlement
        FROM wallet_transaction
        WHERE fetch_run_id = ?
        ORDER BY seq ASC
    `

	rows, err := r.getQuerier().QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet_transaction: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		var t model.Transaction
		var ts sql.NullInt64
		var side string

		err := rows.Scan(
			&t.SourceID,
			&ts,
			&t.Market,
			&t.Title,
			&t.Outcome,
			&side,
			&t.Price,
			&t.Quantity,
			&t.Notional,
			&t.Fees,
			&t.Settlement,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet_transaction: %w", err)
		}
		if ts.Valid {
			t.Timestamp = time.Unix(ts.Int64, 0).UTC()
		}
		t.Side = model.Side(side)
		transactions = append(transactions, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet_transaction rows: %w", err)
	}

	return transactions, nil
}

// TrackedWallets lists every wallet with a stored run, alphabetically.
func (r *HistoryRepository) TrackedWallets(ctx context.Context) ([]string, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `SELECT DISTINCT wallet FROM fetch_run ORDER BY wallet`)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallets: %w", err)
	}
	defer rows.Close()

	var wallets []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallets: %w", err)
	}

	return wallets, nil
}
