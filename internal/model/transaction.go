package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one immutable entry of the ledger. Shares is positive for a buy and negative for a sell.
type Transaction struct {
	ID       int64
	UserID   int64
	SymbolID int64
	Symbol   string
	Name     string
	Shares   int64
	Price    decimal.Decimal
	Time     time.Time
}

func (t Transaction) IsBuy() bool {
	return t.Shares > 0
}

// Amount is the absolute cash moved by the transaction.
func (t Transaction) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Shares)).Abs()
}
