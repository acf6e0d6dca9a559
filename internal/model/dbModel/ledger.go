package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Symbol struct {
	ID     int64  `db:"id"`
	Symbol string `db:"symbol"`
	Name   string `db:"name"`
}

type Transaction struct {
	ID       int64           `db:"id"`
	UserID   int64           `db:"userid"`
	SymbolID int64           `db:"symbolid"`
	Symbol   string          `db:"symbol"`
	Name     string          `db:"name"`
	Price    decimal.Decimal `db:"price"`
	Shares   int64           `db:"shares"`
	Time     time.Time       `db:"time"`
}

type Holding struct {
	SymbolID int64  `db:"symbolid"`
	Symbol   string `db:"symbol"`
	Name     string `db:"name"`
	Shares   int64  `db:"shares"`
}
