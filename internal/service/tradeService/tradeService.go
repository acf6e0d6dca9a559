package tradeService

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KotFed0t/portfolio_tracker/data/repository"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	LockUser(ctx context.Context, userID int64) (model.User, error)
	FindOrCreateSymbol(ctx context.Context, ticker, name string) (symbolID int64, err error)
	AppendTransaction(ctx context.Context, userID, symbolID int64, price decimal.Decimal, shares int64) (txID int64, err error)
	UpdateCash(ctx context.Context, userID int64, delta decimal.Decimal) (cash decimal.Decimal, err error)
	HoldingForUser(ctx context.Context, userID int64, ticker string) (model.Holding, error)
}

type QuoteService interface {
	Quote(ctx context.Context, ticker string) (model.Quote, error)
}

type TradeService struct {
	repo   Repository
	quotes QuoteService
}

func New(repo Repository, quotes QuoteService) *TradeService {
	return &TradeService{repo: repo, quotes: quotes}
}

// ParseShares parses a share count typed by a user. Only positive integers are accepted.
func ParseShares(raw string) (int64, error) {
	shares, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || shares <= 0 {
		return 0, service.ErrInvalidInput
	}
	return shares, nil
}

// Buy debits shares*price from the user's cash and appends a positive transaction.
// The cash check and both writes happen in one transaction holding the user's row lock.
func (s *TradeService) Buy(ctx context.Context, userID int64, ticker string, shares int64) (receipt model.Receipt, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradeService.Buy"

	slog.Debug("Buy start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("ticker", ticker), slog.Int64("shares", shares))
	defer func() {
		logResult(rqID, op, receipt, err)
	}()

	if shares <= 0 {
		return model.Receipt{}, service.ErrInvalidInput
	}

	quote, err := s.quotes.Quote(ctx, ticker)
	if err != nil {
		return model.Receipt{}, err
	}

	cost := quote.Price.Mul(decimal.NewFromInt(shares))

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.repo.LockUser(ctx, userID)
		if err != nil {
			return storageErr(err)
		}

		if cost.GreaterThan(user.Cash) {
			return service.ErrInsufficientFunds
		}

		symbolID, err := s.repo.FindOrCreateSymbol(ctx, quote.Symbol, quote.Name)
		if err != nil {
			return storageErr(err)
		}

		txID, err := s.repo.AppendTransaction(ctx, userID, symbolID, quote.Price, shares)
		if err != nil {
			return storageErr(err)
		}

		cash, err := s.repo.UpdateCash(ctx, userID, cost.Neg())
		if err != nil {
			if errors.Is(err, repository.ErrNotUpdated) {
				return service.ErrInsufficientFunds
			}
			return storageErr(err)
		}

		receipt = model.Receipt{TxID: txID, Symbol: quote.Symbol, Name: quote.Name, Shares: shares, Price: quote.Price, Amount: cost, Cash: cash}
		return nil
	})
	if err != nil {
		return model.Receipt{}, err
	}

	return receipt, nil
}

// Sell credits shares*price to the user's cash and appends a negative transaction.
// The holding check and both writes happen in one transaction holding the user's row lock.
func (s *TradeService) Sell(ctx context.Context, userID int64, ticker string, shares int64) (receipt model.Receipt, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradeService.Sell"

	slog.Debug("Sell start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("ticker", ticker), slog.Int64("shares", shares))
	defer func() {
		logResult(rqID, op, receipt, err)
	}()

	if shares <= 0 {
		return model.Receipt{}, service.ErrInvalidInput
	}

	quote, err := s.quotes.Quote(ctx, ticker)
	if err != nil {
		return model.Receipt{}, err
	}

	proceeds := quote.Price.Mul(decimal.NewFromInt(shares))

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockUser(ctx, userID); err != nil {
			return storageErr(err)
		}

		holding, err := s.repo.HoldingForUser(ctx, userID, quote.Symbol)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return service.ErrNoPosition
			}
			return storageErr(err)
		}

		if holding.Shares <= 0 {
			return service.ErrNoPosition
		}

		if shares > holding.Shares {
			return service.ErrInsufficientShares
		}

		txID, err := s.repo.AppendTransaction(ctx, userID, holding.SymbolID, quote.Price, -shares)
		if err != nil {
			return storageErr(err)
		}

		cash, err := s.repo.UpdateCash(ctx, userID, proceeds)
		if err != nil {
			return storageErr(err)
		}

		receipt = model.Receipt{TxID: txID, Symbol: holding.Symbol, Name: holding.Name, Shares: -shares, Price: quote.Price, Amount: proceeds, Cash: cash}
		return nil
	})
	if err != nil {
		return model.Receipt{}, err
	}

	return receipt, nil
}

func storageErr(err error) error {
	return service.StorageFailure(err)
}

func logResult(rqID, op string, receipt model.Receipt, err error) {
	switch {
	case err == nil:
		slog.Info(
			"trade applied",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.String("symbol", receipt.Symbol),
			slog.Int64("shares", receipt.Shares),
			slog.String("price", receipt.Price.String()),
			slog.String("cash", receipt.Cash.String()),
		)
	case service.IsBusiness(err):
		slog.Info("trade rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("reason", err.Error()))
	default:
		slog.Error("trade failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}
}
