package csvimport

import (
	"strings"
	"unicode"
)

// Canonical column names.
const (
	colTimestamp = "timestamp"
	colMarket    = "market"
	colOutcome   = "outcome"
	colType      = "type"
	colPrice     = "price"
	colQuantity  = "quantity"
	colTotal     = "total"
	colFees      = "fees"
)

// columnSynonyms maps a normalized header cell to its canonical column.
var columnSynonyms = map[string]string{
	"timestamp": colTimestamp, "time": colTimestamp, "date": colTimestamp, "datetime": colTimestamp,
	"date_time": colTimestamp, "created": colTimestamp, "created_at": colTimestamp,

	"market": colMarket, "market_id": colMarket, "marketid": colMarket, "market id": colMarket,
	"question": colMarket, "event": colMarket, "title": colMarket, "description": colMarket,

	"outcome": colOutcome, "side": colOutcome, "position": colOutcome,

	"type": colType, "order_type": colType, "ordertype": colType, "order type": colType,
	"action": colType, "trade_type": colType,

	"price": colPrice, "unit_price": colPrice, "unitprice": colPrice, "unit price": colPrice, "avg_price": colPrice,

	"quantity": colQuantity, "qty": colQuantity, "amount": colQuantity, "size": colQuantity, "shares": colQuantity,

	"total": colTotal, "total_amount": colTotal, "totalamount": colTotal, "total amount": colTotal,
	"value": colTotal, "cost": colTotal,

	"fees": colFees, "fee": colFees, "commission": colFees, "trading_fee": colFees,
}

// rowType is the kind of a CSV row after synonym mapping.
type rowType int

const (
	rowUnknown rowType = iota
	rowBuy
	rowSell
	rowSettle
)

var typeSynonyms = map[string]rowType{
	"buy": rowBuy, "purchase": rowBuy, "open": rowBuy,
	"sell": rowSell, "close": rowSell,
	"settle": rowSettle, "settlement": rowSettle, "redeem": rowSettle, "claim": rowSettle,
}

// normalizeColumn lowercases a header cell, drops everything except letters,
// digits, underscores and spaces, and maps known synonyms. Unknown headers are
// returned normalized but otherwise unchanged.
func normalizeColumn(header string) string {
	key := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == ' ':
			return r
		}
		return -1
	}, strings.ToLower(strings.TrimSpace(header)))

	if canonical, ok := columnSynonyms[key]; ok {
		return canonical
	}
	return key
}

func parseRowType(cell string) rowType {
	return typeSynonyms[strings.ToLower(strings.TrimFunc(cell, unicode.IsSpace))]
}
