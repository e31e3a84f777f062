package polymarket

// Activity types returned by the activity endpoint that carry taxable events.
const (
	TypeTrade  = "TRADE"
	TypeRedeem = "REDEEM"
)

// Activity is one raw entry from the data API activity endpoint.
// Trades carry Side, Price and Size; redemptions carry the payout in UsdcSize
// and frequently omit the outcome.
type Activity struct {
	ProxyWallet     string  `json:"proxyWallet"`
	Timestamp       int64   `json:"timestamp"`
	ConditionID     string  `json:"conditionId"`
	Type            string  `json:"type"`
	Size            float64 `json:"size"`
	UsdcSize        float64 `json:"usdcSize"`
	TransactionHash string  `json:"transactionHash"`
	Price           float64 `json:"price"`
	Asset           string  `json:"asset"`
	Side            string  `json:"side"`
	OutcomeIndex    int     `json:"outcomeIndex"`
	Title           string  `json:"title"`
	Slug            string  `json:"slug"`
	EventSlug       string  `json:"eventSlug"`
	Outcome         string  `json:"outcome"`
	Name            string  `json:"name"`
}

// ActivityQuery is one page request. End, when set, restricts results to
// entries at or before that unix timestamp.
type ActivityQuery struct {
	User   string
	Limit  int
	Offset int
	End    *int64
}
