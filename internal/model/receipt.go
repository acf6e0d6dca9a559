package model

import "github.com/shopspring/decimal"

// Receipt describes an applied trade. Shares is signed like in Transaction; Cash is the balance after it.
type Receipt struct {
	TxID   int64
	Symbol string
	Name   string
	Shares int64
	Price  decimal.Decimal
	Amount decimal.Decimal
	Cash   decimal.Decimal
}
