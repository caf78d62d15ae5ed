package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Currency is an ISO 4217 code supported by the ledger.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyNGN Currency = "NGN"
)

// SupportedCurrencies lists every currency a wallet may hold.
var SupportedCurrencies = []Currency{CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyNGN}

// ParseCurrency normalizes code and reports whether it is supported.
func ParseCurrency(code string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	return c, c.IsValid()
}

// IsValid reports whether c is a supported currency.
func (c Currency) IsValid() bool {
	for _, s := range SupportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

// Wallet holds a single-currency balance in minor units.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	Currency  Currency  `json:"currency"`
	Balance   int64     `json:"balance"` // minor units, never negative
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanDebit returns true if the wallet holds at least amount.
func (w *Wallet) CanDebit(amount int64) bool {
	return w.Balance >= amount
}
