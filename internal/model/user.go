package model

import "github.com/shopspring/decimal"

type User struct {
	ID       int64
	Username string
	Hash     string
	Cash     decimal.Decimal
}
