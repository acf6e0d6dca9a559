package model

import (
	"github.com/shopspring/decimal"
)

// Holding is the net share count of one symbol summed over a user's transactions.
type Holding struct {
	SymbolID int64
	Symbol   string
	Name     string
	Shares   int64
}

type Position struct {
	Symbol string
	Name   string
	Shares int64
	Price  decimal.Decimal
	Value  decimal.Decimal
	// QuoteErr is set when the position could not be priced; Price and Value are zero then.
	QuoteErr error
}

type Portfolio struct {
	Positions   []Position
	Cash        decimal.Decimal
	TotalEquity decimal.Decimal
	// Partial is true when TotalEquity excludes at least one unpriced position.
	Partial bool
}

type Report struct {
	Username  string
	Currency  string
	Portfolio Portfolio
	History   []Transaction
}
