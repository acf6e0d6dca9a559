package quoteService

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/KotFed0t/portfolio_tracker/internal/externalApi"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"golang.org/x/sync/errgroup"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,15}$`)

type QuoteApi interface {
	Lookup(ctx context.Context, ticker string) (model.Quote, error)
	BoardQuotes(ctx context.Context) ([]model.Quote, error)
}

type Cache interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	SetQuote(ctx context.Context, quote model.Quote) error
	SetQuotes(ctx context.Context, quotes []model.Quote) error
}

type QuoteService struct {
	api         QuoteApi
	cache       Cache
	concurrency int
}

func New(api QuoteApi, cache Cache, concurrency int) *QuoteService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &QuoteService{api: api, cache: cache, concurrency: concurrency}
}

// NormalizeTicker upper-cases and validates a user supplied ticker.
func NormalizeTicker(ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if !tickerPattern.MatchString(ticker) {
		return "", service.ErrInvalidInput
	}
	return ticker, nil
}

// Quote returns a tradable quote for ticker, from cache when fresh, otherwise from the provider.
func (s *QuoteService) Quote(ctx context.Context, ticker string) (quote model.Quote, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "QuoteService.Quote"

	slog.Debug("Quote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() {
		if err != nil {
			slog.Debug("Quote rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
		} else {
			slog.Debug("Quote finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("price", quote.Price.String()))
		}
	}()

	ticker, err = NormalizeTicker(ticker)
	if err != nil {
		return model.Quote{}, err
	}

	quote, err = s.cache.GetQuote(ctx, ticker)
	if err != nil {
		slog.Debug("can't get quote from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

		quote, err = s.api.Lookup(ctx, ticker)
		if err != nil {
			if errors.Is(err, externalApi.ErrNotFound) {
				return model.Quote{}, service.ErrInvalidSymbol
			}
			slog.Warn("can't get quote from api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return model.Quote{}, errors.Join(service.ErrQuoteUnavailable, err)
		}

		if cacheErr := s.cache.SetQuote(ctx, quote); cacheErr != nil {
			slog.Warn("can't save quote to cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", cacheErr.Error()))
		}
	}

	if !quote.Tradable() {
		return model.Quote{}, service.ErrQuoteUnavailable
	}

	return quote, nil
}

// QuoteMany quotes tickers concurrently. errs[i] is the failure for tickers[i], quotes[i] is valid when errs[i] is nil.
func (s *QuoteService) QuoteMany(ctx context.Context, tickers []string) (quotes []model.Quote, errs []error) {
	quotes = make([]model.Quote, len(tickers))
	errs = make([]error, len(tickers))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			quotes[i], errs[i] = s.Quote(gCtx, ticker)
			return nil
		})
	}

	_ = g.Wait()

	return quotes, errs
}

// RefreshCache loads the provider's board listing into the cache.
func (s *QuoteService) RefreshCache(ctx context.Context) error {
	ctx = utils.WithRequestID(ctx, "")
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "QuoteService.RefreshCache"

	quotes, err := s.api.BoardQuotes(ctx)
	if err != nil {
		slog.Error("got error from api.BoardQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.cache.SetQuotes(ctx, quotes)
	if err != nil {
		slog.Error("got error from cache.SetQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("quote cache refreshed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(quotes)))

	return nil
}
