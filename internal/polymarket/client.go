package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/titancoder666/polymarket-tax-engine/internal/apperrors"
)

// ErrOffsetCeiling is returned when the API refuses an offset beyond its maximum.
// The pager treats it as the end of the current window.
var ErrOffsetCeiling = errors.New("activity offset ceiling reached")

// Client defines the interface for reading wallet activity.
// This interface enables dependency injection and testing with mock implementations.
type Client interface {
	Activity(ctx context.Context, q ActivityQuery) ([]Activity, error)
}

// DataClient reads activity from the public data API over HTTP.
type DataClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewDataClient creates a client for the data API at baseURL.
// timeout bounds each individual page request.
func NewDataClient(baseURL string, timeout time.Duration) *DataClient {
	return &DataClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// Activity requests one page of activity.
//
// Returns:
//   - []Activity: The page, newest first as served by the API
//   - error: ErrOffsetCeiling for an HTTP 400 past the first page, otherwise
//     any transport, status or decoding failure
func (c *DataClient) Activity(ctx context.Context, q ActivityQuery) ([]Activity, error) {
	params := url.Values{}
	params.Set("user", q.User)
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	if q.End != nil {
		params.Set("end", strconv.FormatInt(*q.End, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/activity?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// A rejected first page is a bad request, not the ceiling.
	if resp.StatusCode == http.StatusBadRequest && q.Offset > 0 {
		return nil, ErrOffsetCeiling
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("activity api returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var activities []Activity
	if err := json.Unmarshal(data, &activities); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnexpectedResponseShape, err)
	}
	return activities, nil
}
