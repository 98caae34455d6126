package contracts

import "strings"

// Universe is the ordered ticker list handed from S1 to the fetcher
// ⭐ SSOT: S1 → S0 symbol list
type Universe struct {
	ID      string   `json:"id"`
	Symbols []string `json:"symbols"` // exchange-qualified, e.g. NIFTYBEES.NS
	Suffix  string   `json:"suffix"`
	Source  string   `json:"source"`
}

// Contains checks if a symbol is in the universe
func (u *Universe) Contains(symbol string) bool {
	for _, s := range u.Symbols {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}

// Count returns the number of symbols
func (u *Universe) Count() int {
	return len(u.Symbols)
}

// Ticker strips the exchange suffix (case-insensitive) for display
func (u *Universe) Ticker(symbol string) string {
	return StripSuffix(symbol, u.Suffix)
}

// StripSuffix removes suffix from the end of symbol, ignoring case
func StripSuffix(symbol, suffix string) string {
	if suffix == "" || len(symbol) < len(suffix) {
		return symbol
	}
	if strings.EqualFold(symbol[len(symbol)-len(suffix):], suffix) {
		return symbol[:len(symbol)-len(suffix)]
	}
	return symbol
}
