package dbConverter

import (
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/model/dbModel"
)

func ConvertUser(dbUser dbModel.User) model.User {
	return model.User{
		ID:       dbUser.ID,
		Username: dbUser.Username,
		Hash:     dbUser.Hash,
		Cash:     dbUser.Cash,
	}
}

func ConvertTransaction(dbTx dbModel.Transaction) model.Transaction {
	return model.Transaction{
		ID:       dbTx.ID,
		UserID:   dbTx.UserID,
		SymbolID: dbTx.SymbolID,
		Symbol:   dbTx.Symbol,
		Name:     dbTx.Name,
		Shares:   dbTx.Shares,
		Price:    dbTx.Price,
		Time:     dbTx.Time,
	}
}

func ConvertHolding(dbHolding dbModel.Holding) model.Holding {
	return model.Holding{
		SymbolID: dbHolding.SymbolID,
		Symbol:   dbHolding.Symbol,
		Name:     dbHolding.Name,
		Shares:   dbHolding.Shares,
	}
}
