package model

import "github.com/shopspring/decimal"

type Quote struct {
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Active   bool            `json:"active"`
}

// Tradable reports whether the quote can be used to price a trade.
func (q Quote) Tradable() bool {
	return q.Active && q.Price.IsPositive()
}
