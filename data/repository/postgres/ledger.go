package postgres

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/portfolio_tracker/internal/converter/dbConverter"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/model/dbModel"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/shopspring/decimal"
)

// FindOrCreateSymbol returns the id of ticker, inserting it on first use.
// The upsert is a single statement so concurrent first trades of a ticker resolve to one row.
func (r *Postgres) FindOrCreateSymbol(ctx context.Context, ticker, name string) (symbolID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.FindOrCreateSymbol"
	params := map[string]any{
		"ticker": ticker,
		"name":   name,
	}
	query := `
		INSERT INTO symbols(symbol, name) VALUES($1, $2)
		ON CONFLICT (symbol) DO UPDATE SET
			name = symbols.name
		RETURNING id
		`

	slog.Debug("FindOrCreateSymbol start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("FindOrCreateSymbol failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("FindOrCreateSymbol completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("symbolID", symbolID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, ticker, name).Scan(&symbolID)
	if err != nil {
		return 0, mapErr(err)
	}

	return symbolID, nil
}

func (r *Postgres) AppendTransaction(ctx context.Context, userID, symbolID int64, price decimal.Decimal, shares int64) (txID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.AppendTransaction"
	params := map[string]any{
		"userID":   userID,
		"symbolID": symbolID,
		"price":    price.String(),
		"shares":   shares,
	}
	query := `
		INSERT INTO transactions(userid, symbolid, price, shares)
		VALUES ($1, $2, $3, $4)
		RETURNING id
		`

	slog.Debug("AppendTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("AppendTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AppendTransaction completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("txID", txID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID, symbolID, price, shares).Scan(&txID)
	if err != nil {
		return 0, mapErr(err)
	}

	return txID, nil
}

// TransactionsForUser returns the user's log oldest first.
func (r *Postgres) TransactionsForUser(ctx context.Context, userID int64) (transactions []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.TransactionsForUser"
	query := `
		SELECT t.id, t.userid, t.symbolid, s.symbol, s.name, t.price, t.shares, t.time
		FROM transactions t
		JOIN symbols s ON t.symbolid = s.id
		WHERE t.userid = $1
		ORDER BY t.id ASC
		`

	slog.Debug("TransactionsForUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("TransactionsForUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("TransactionsForUser completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(transactions)))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	transactions = make([]model.Transaction, 0)
	for rows.Next() {
		var dbTx dbModel.Transaction
		err = rows.StructScan(&dbTx)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, dbConverter.ConvertTransaction(dbTx))
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return transactions, nil
}

// OpenPositionsForUser aggregates the log into per-symbol share counts, keeping only positive ones.
func (r *Postgres) OpenPositionsForUser(ctx context.Context, userID int64) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.OpenPositionsForUser"
	query := `
		SELECT s.id AS symbolid, s.symbol, s.name, SUM(t.shares)::BIGINT AS shares
		FROM transactions t
		JOIN symbols s ON t.symbolid = s.id
		WHERE t.userid = $1
		GROUP BY s.id, s.symbol, s.name
		HAVING SUM(t.shares) > 0
		ORDER BY s.symbol ASC
		`

	slog.Debug("OpenPositionsForUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("OpenPositionsForUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("OpenPositionsForUser completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(holdings)))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	holdings = make([]model.Holding, 0)
	for rows.Next() {
		var dbHolding dbModel.Holding
		err = rows.StructScan(&dbHolding)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, dbConverter.ConvertHolding(dbHolding))
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return holdings, nil
}

// HoldingForUser returns the net share count of ticker; repository.ErrNotFound if the user never traded it.
func (r *Postgres) HoldingForUser(ctx context.Context, userID int64, ticker string) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.HoldingForUser"
	params := map[string]any{
		"userID": userID,
		"ticker": ticker,
	}
	query := `
		SELECT s.id AS symbolid, s.symbol, s.name, SUM(t.shares)::BIGINT AS shares
		FROM transactions t
		JOIN symbols s ON t.symbolid = s.id
		WHERE t.userid = $1
			AND s.symbol = $2
		GROUP BY s.id, s.symbol, s.name
		`

	slog.Debug("HoldingForUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("HoldingForUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("HoldingForUser completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("shares", holding.Shares))
		}
	}()

	dbHolding := dbModel.Holding{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID, ticker).StructScan(&dbHolding)
	if err != nil {
		return model.Holding{}, mapErr(err)
	}

	return dbConverter.ConvertHolding(dbHolding), nil
}
