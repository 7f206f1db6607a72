package services

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var currencySymbols = map[string]string{
	"IDR": "Rp",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"SGD": "S$",
	"MYR": "RM",
}

// Currencies shown without minor units.
var wholeUnitCurrencies = map[string]bool{
	"IDR": true,
	"JPY": true,
}

// CurrencySymbol returns the display symbol for an ISO 4217 code. Codes
// without a known symbol display as the code itself.
func CurrencySymbol(code string) string {
	code = strings.ToUpper(code)
	if sym, ok := currencySymbols[code]; ok {
		return sym
	}
	return code
}

func validCurrency(code string) bool {
	_, err := currency.ParseISO(code)
	return err == nil
}

func localeTag(lang string) language.Tag {
	if lang == "id" {
		return language.MustParse("id-ID")
	}
	return language.AmericanEnglish
}

// FormatMoney renders amount the way the dashboard displays it, for example
// "Rp 1.500.000" for IDR in Indonesian or "$ 1,500.50" for USD in English.
func FormatMoney(amount decimal.Decimal, code, lang string) string {
	code = strings.ToUpper(code)
	scale := 2
	if wholeUnitCurrencies[code] {
		scale = 0
	}

	p := message.NewPrinter(localeTag(lang))
	v := amount.Round(int32(scale)).InexactFloat64()
	formatted := p.Sprint(number.Decimal(v, number.Scale(scale)))
	return CurrencySymbol(code) + " " + formatted
}
