package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/titancoder666/polymarket-tax-engine/internal/polymarket"
)

// MockActivityClient is an in-memory implementation of polymarket.Client.
// It serves each wallet's activity the way the data API does: newest first,
// filtered by End (inclusive), and refusing offsets above MaxOffset.
type MockActivityClient struct {
	mu sync.Mutex

	// Activities holds the history served per wallet.
	Activities map[string][]polymarket.Activity
	// MaxOffset is the highest accepted offset.
	MaxOffset int
	// MockError is returned from every call when set.
	MockError error
	// FailAfter lets the first FailAfter calls succeed and fails later ones with FailError. Zero disables it.
	FailAfter int
	FailError error
	// Queries records every request received.
	Queries []polymarket.ActivityQuery
}

// NewMockActivityClient creates a mock with no activity and a 3000 offset ceiling.
func NewMockActivityClient() *MockActivityClient {
	return &MockActivityClient{
		Activities: make(map[string][]polymarket.Activity),
		MaxOffset:  3000,
	}
}

// WithActivities adds activity to a wallet's history.
func (m *MockActivityClient) WithActivities(wallet string, activities ...polymarket.Activity) *MockActivityClient {
	m.Activities[wallet] = append(m.Activities[wallet], activities...)
	return m
}

// WithMaxOffset sets the offset ceiling.
func (m *MockActivityClient) WithMaxOffset(maxOffset int) *MockActivityClient {
	m.MaxOffset = maxOffset
	return m
}

// WithError configures the mock to fail every call with err.
func (m *MockActivityClient) WithError(err error) *MockActivityClient {
	m.MockError = err
	return m
}

// WithFailureAfter lets the first n calls succeed and fails the rest with err.
func (m *MockActivityClient) WithFailureAfter(n int, err error) *MockActivityClient {
	m.FailAfter = n
	m.FailError = err
	return m
}

// QueryCount is the number of requests received.
func (m *MockActivityClient) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// Activity serves one page.
func (m *MockActivityClient) Activity(_ context.Context, q polymarket.ActivityQuery) ([]polymarket.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Queries = append(m.Queries, q)
	if m.MockError != nil {
		return nil, m.MockError
	}
	if m.FailAfter > 0 && len(m.Queries) > m.FailAfter {
		return nil, m.FailError
	}
	if q.Offset > m.MaxOffset {
		return nil, polymarket.ErrOffsetCeiling
	}

	var window []polymarket.Activity
	for _, a := range m.Activities[q.User] {
		if q.End == nil || a.Timestamp <= *q.End {
			window = append(window, a)
		}
	}
	sort.SliceStable(window, func(i, j int) bool {
		return window[i].Timestamp > window[j].Timestamp
	})

	if q.Offset >= len(window) {
		return []polymarket.Activity{}, nil
	}
	last := min(q.Offset+q.Limit, len(window))
	page := make([]polymarket.Activity, last-q.Offset)
	copy(page, window[q.Offset:last])
	return page, nil
}

// NewActivityServer serves the mock over HTTP at /activity, translating
// polymarket.ErrOffsetCeiling into a 400 and other errors into a 500.
// The server is closed when the test ends.
func NewActivityServer(t *testing.T, mock *MockActivityClient) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/activity" {
			http.NotFound(w, r)
			return
		}

		query := r.URL.Query()
		q := polymarket.ActivityQuery{User: query.Get("user")}
		q.Limit, _ = strconv.Atoi(query.Get("limit"))
		q.Offset, _ = strconv.Atoi(query.Get("offset"))
		if end := query.Get("end"); end != "" {
			v, err := strconv.ParseInt(end, 10, 64)
			if err != nil {
				http.Error(w, "bad end", http.StatusUnprocessableEntity)
				return
			}
			q.End = &v
		}

		page, err := mock.Activity(r.Context(), q)
		switch {
		case errors.Is(err, polymarket.ErrOffsetCeiling):
			http.Error(w, `{"error":"max historical activity offset of 3000 exceeded"}`, http.StatusBadRequest)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	}))
	t.Cleanup(server.Close)

	return server
}

// MakeTrade builds a TRADE activity entry.
func MakeTrade(hash, market, outcome, side string, size, price float64, timestamp int64) polymarket.Activity {
	return polymarket.Activity{
		Timestamp:       timestamp,
		ConditionID:     market,
		Type:            polymarket.TypeTrade,
		Size:            size,
		UsdcSize:        size * price,
		TransactionHash: hash,
		Price:           price,
		Asset:           market + ":" + outcome,
		Side:            side,
		Title:           "Market " + market,
		Outcome:         outcome,
	}
}

// MakeRedeem builds a REDEEM activity entry without an outcome.
func MakeRedeem(hash, market string, payout float64, timestamp int64) polymarket.Activity {
	return polymarket.Activity{
		Timestamp:       timestamp,
		ConditionID:     market,
		Type:            polymarket.TypeRedeem,
		UsdcSize:        payout,
		Size:            payout,
		TransactionHash: hash,
		Title:           "Market " + market,
	}
}

// MakeTradeSeries builds n buys of one share in market "m", two per timestamp
// starting at start, so that page boundaries regularly fall inside a second.
func MakeTradeSeries(n int, start int64) []polymarket.Activity {
	activities := make([]polymarket.Activity, n)
	for i := range activities {
		activities[i] = MakeTrade(fmt.Sprintf("0x%04d", i), "m", "Yes", "BUY", 1, 0.5, start+int64(i/2))
	}
	return activities
}
