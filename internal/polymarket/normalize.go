package polymarket

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/titancoder666/polymarket-tax-engine/internal/model"
	"github.com/titancoder666/polymarket-tax-engine/internal/taxengine"
)

// RedeemPrice is the per-share value of a winning outcome at settlement.
const RedeemPrice = 1.0

// identity distinguishes activity entries. Overlapping windows return some
// entries twice; those share every field of the tuple.
type identity struct {
	hash      string
	asset     string
	kind      string
	side      string
	timestamp int64
	size      float64
	usdcSize  float64
	price     float64
}

func identityOf(a Activity) identity {
	return identity{
		hash:      a.TransactionHash,
		asset:     a.Asset,
		kind:      a.Type,
		side:      a.Side,
		timestamp: a.Timestamp,
		size:      a.Size,
		usdcSize:  a.UsdcSize,
		price:     a.Price,
	}
}

// Taxable reports whether an activity entry is a trade or a redemption with a payout.
func Taxable(a Activity) bool {
	switch a.Type {
	case TypeTrade:
		return true
	case TypeRedeem:
		return a.UsdcSize > 0
	}
	return false
}

// ToTransaction converts a taxable entry. Redemptions become sells of
// UsdcSize shares at RedeemPrice; their outcome is left empty when the API
// omits it and is filled in by InferSettlementOutcomes.
func ToTransaction(a Activity) model.Transaction {
	tx := model.Transaction{
		SourceID:  sourceID(a),
		Timestamp: time.Unix(a.Timestamp, 0).UTC(),
		Market:    marketKey(a),
		Title:     a.Title,
		Outcome:   a.Outcome,
		Side:      model.Side(strings.ToUpper(a.Side)),
		Price:     a.Price,
		Quantity:  a.Size,
		Notional:  a.UsdcSize,
	}

	if a.Type == TypeRedeem {
		tx.Side = model.SideSell
		tx.Price = RedeemPrice
		tx.Quantity = a.UsdcSize
		tx.Settlement = true
	}
	if tx.Side != model.SideBuy {
		tx.Side = model.SideSell
	}
	if tx.Notional == 0 {
		tx.Notional = tx.Price * tx.Quantity
	}
	return tx
}

func marketKey(a Activity) string {
	switch {
	case a.ConditionID != "":
		return a.ConditionID
	case a.Slug != "":
		return a.Slug
	}
	return a.Title
}

func sourceID(a Activity) string {
	if a.TransactionHash != "" {
		return a.TransactionHash + ":" + a.Asset
	}
	return a.Type + ":" + strconv.FormatInt(a.Timestamp, 10) + ":" + a.Asset
}

// Collector accumulates pages into a deduplicated transaction list.
type Collector struct {
	seen map[identity]struct{}
	txns []model.Transaction
	raw  int
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{seen: make(map[identity]struct{})}
}

// Add filters, dedupes and converts one page. It returns the number of new
// transactions kept.
func (c *Collector) Add(activities []Activity) int {
	added := 0
	for _, a := range activities {
		c.raw++
		id := identityOf(a)
		if _, dup := c.seen[id]; dup {
			continue
		}
		c.seen[id] = struct{}{}

		if !Taxable(a) {
			continue
		}
		c.txns = append(c.txns, ToTransaction(a))
		added++
	}
	return added
}

// Len is the number of transactions kept so far.
func (c *Collector) Len() int {
	return len(c.txns)
}

// Raw is the number of activity entries seen, duplicates included.
func (c *Collector) Raw() int {
	return c.raw
}

// Transactions returns the collected transactions oldest first with
// settlement outcomes resolved.
func (c *Collector) Transactions() []model.Transaction {
	out := make([]model.Transaction, len(c.txns))
	copy(out, c.txns)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	InferSettlementOutcomes(out)
	return out
}

// InferSettlementOutcomes assigns an outcome to settlements that lack one:
// the outcome of the same market with the largest net quantity bought so far,
// or model.DefaultSettlementOutcome when the wallet holds nothing there.
// txns must be in chronological order; it is modified in place.
//
// This is a best-effort guess. Shares received through transfers are not
// visible as buys and can lead to a wrong attribution.
func InferSettlementOutcomes(txns []model.Transaction) {
	held := make(map[string]map[string]float64)
	order := make(map[string][]string)

	for i := range txns {
		tx := &txns[i]

		if tx.Settlement && tx.Outcome == "" {
			tx.Outcome = model.DefaultSettlementOutcome
			best := taxengine.Epsilon
			for _, outcome := range order[tx.Market] {
				if q := held[tx.Market][outcome]; q > best {
					best = q
					tx.Outcome = outcome
				}
			}
		}

		byOutcome, ok := held[tx.Market]
		if !ok {
			byOutcome = make(map[string]float64)
			held[tx.Market] = byOutcome
		}
		if _, known := byOutcome[tx.Outcome]; !known {
			order[tx.Market] = append(order[tx.Market], tx.Outcome)
		}

		switch tx.Side {
		case model.SideBuy:
			byOutcome[tx.Outcome] += tx.Quantity
		case model.SideSell:
			byOutcome[tx.Outcome] -= tx.Quantity
		}
	}
}
