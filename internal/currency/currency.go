// Package currency converts INR prices for display. Charging always uses INR.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

type Currency struct {
	Code   string
	Symbol string
	Rate   decimal.Decimal
	Name   string
}

const Base = "INR"

var table = []Currency{
	{Code: "INR", Symbol: "₹", Rate: decimal.RequireFromString("1"), Name: "Indian Rupee"},
	{Code: "USD", Symbol: "$", Rate: decimal.RequireFromString("0.012"), Name: "US Dollar"},
	{Code: "EUR", Symbol: "€", Rate: decimal.RequireFromString("0.011"), Name: "Euro"},
	{Code: "GBP", Symbol: "£", Rate: decimal.RequireFromString("0.0095"), Name: "British Pound"},
	{Code: "JPY", Symbol: "¥", Rate: decimal.RequireFromString("1.79"), Name: "Japanese Yen"},
	{Code: "AUD", Symbol: "A$", Rate: decimal.RequireFromString("0.018"), Name: "Australian Dollar"},
	{Code: "CAD", Symbol: "C$", Rate: decimal.RequireFromString("0.016"), Name: "Canadian Dollar"},
}

var printer = message.NewPrinter(language.English)

// All returns the supported currencies in display order.
func All() []Currency {
	out := make([]Currency, len(table))
	copy(out, table)
	return out
}

// Lookup resolves code case-insensitively, falling back to INR.
func Lookup(code string) Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range table {
		if c.Code == code {
			return c
		}
	}
	return table[0]
}

func Supported(code string) bool {
	return Lookup(code).Code == strings.ToUpper(strings.TrimSpace(code))
}

// Convert returns priceINR in code, rounded half away from zero to 2 places.
func Convert(priceINR int64, code string) decimal.Decimal {
	return decimal.NewFromInt(priceINR).Mul(Lookup(code).Rate).Round(2)
}

// Format renders priceINR in code with its symbol and English digit grouping,
// e.g. "₹6,499" or "$77.99".
func Format(priceINR int64, code string) string {
	c := Lookup(code)
	v := Convert(priceINR, c.Code)
	f, _ := v.Float64()
	return c.Symbol + printer.Sprint(number.Decimal(f, number.MaxFractionDigits(2)))
}
