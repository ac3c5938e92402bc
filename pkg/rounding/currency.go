package rounding

import (
	"sort"
	"strings"
)

// CurrencyTable maps an ISO 4217 code to the smallest denomination commonly
// used for shelf prices, as an interval rule. It is advisory only.
type CurrencyTable map[string]string

// DefaultCurrencyTable returns a fresh copy of the built-in table.
func DefaultCurrencyTable() CurrencyTable {
	return CurrencyTable{
		"USD": "0.01",
		"EUR": "0.01",
		"GBP": "0.01",
		"CAD": "0.05",
		"AUD": "0.05",
		"CHF": "0.05",
		"SEK": "1",
		"NOK": "1",
		"JPY": "1",
		"KRW": "10",
		"INR": "1",
		"HUF": "5",
		"IDR": "100",
		"VND": "1000",
		"COP": "50",
		"CLP": "10",
	}
}

// SuggestInterval returns the interval rule for code, case-insensitively.
func (t CurrencyTable) SuggestInterval(code string) (string, bool) {
	rule, ok := t[strings.ToUpper(strings.TrimSpace(code))]
	return rule, ok
}

// Codes returns the currency codes in the table, sorted.
func (t CurrencyTable) Codes() []string {
	codes := make([]string, 0, len(t))
	for code := range t {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Merge returns a new table with overrides layered over t. Override codes are
// upper-cased and rules that do not parse as a positive interval are skipped.
func (t CurrencyTable) Merge(overrides map[string]string) CurrencyTable {
	merged := make(CurrencyTable, len(t)+len(overrides))
	for code, rule := range t {
		merged[code] = rule
	}
	for code, rule := range overrides {
		if _, ok := ParseInterval(rule); !ok {
			continue
		}
		merged[strings.ToUpper(strings.TrimSpace(code))] = strings.TrimSpace(rule)
	}
	return merged
}
