package cryptotax

import (
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/js1499/cryptotax/date"
	"github.com/shopspring/decimal"
)

// dec is a helper for test to create a decimal from a const.
func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// day is a helper for test to create the instant of a day at noon UTC.
func day(s string) time.Time { return date.MustParse(s).Time().Add(12 * time.Hour) }

// tx is a helper for test to create a transaction.
func tx(id, typ, asset, amount, value, on string) Transaction {
	return Transaction{
		ID:          id,
		Type:        typ,
		AssetSymbol: asset,
		AmountValue: dec(amount),
		ValueUSD:    dec(value),
		Timestamp:   day(on),
		SourceType:  SourceCSVImport,
	}
}

// swap is a helper for test to create a swap of amount asset into incomingAmount incomingAsset.
func swap(id, asset, amount, value, incomingAsset, incomingAmount, on string) Transaction {
	t := tx(id, "Swap", asset, amount, value, on)
	t.IncomingAssetSymbol = incomingAsset
	t.IncomingAmountValue = decimal.NewNullDecimal(dec(incomingAmount))
	t.IncomingValueUSD = decimal.NewNullDecimal(dec(value))
	return t
}

// decimalEqual compares decimals by value, 1.0 equals 1.
var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
