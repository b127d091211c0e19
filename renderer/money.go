package renderer

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// usdCurrency is never nil: the money constructor resolves the currency.
var usdCurrency = *money.New(0, money.USD).Currency()

// USD formats a USD amount rounded to the cent, e.g. "$1,234.56".
func USD(d decimal.Decimal) string {
	cents := d.Round(int32(usdCurrency.Fraction)).Shift(int32(usdCurrency.Fraction))
	return usdCurrency.Formatter().Format(cents.IntPart())
}

// SignedUSD is like USD with an explicit sign. 0 is represented as "-".
func SignedUSD(d decimal.Decimal) string {
	d = d.Round(int32(usdCurrency.Fraction))
	switch {
	case d.IsZero():
		return "-"
	case d.IsPositive():
		return "+" + USD(d)
	}
	return USD(d)
}

// Amount formats a quantity without trailing zeros.
func Amount(d decimal.Decimal) string { return d.String() }
