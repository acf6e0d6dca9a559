package moexApi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/portfolio_tracker/config"
	"github.com/KotFed0t/portfolio_tracker/internal/externalApi"
	"github.com/KotFed0t/portfolio_tracker/internal/externalApi/circuitbreaker"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/model/moexModel"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	boardSecuritiesUrl = "/iss/engines/stock/markets/shares/boards/TQBR/securities.json"
	priceScale         = 6
)

type MoexApi struct {
	client  *resty.Client
	breaker *circuitbreaker.CircuitBreaker
}

func New(cfg *config.Config) *MoexApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.MoexApi.Url)
	breaker := circuitbreaker.New("moexApi", cfg.API.Breaker.Threshold, cfg.API.Breaker.ResetTimeout)
	return &MoexApi{client: client, breaker: breaker}
}

// Lookup returns the current quote of ticker on the main board.
// Unknown tickers give externalApi.ErrNotFound; transport failures give externalApi.ErrUnavailable.
func (a *MoexApi) Lookup(ctx context.Context, ticker string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MoexApi.Lookup"

	slog.Debug("start MoexApi.Lookup request", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))

	raw, err := a.fetch(ctx, map[string]string{"securities": ticker})
	if err != nil {
		return model.Quote{}, err
	}

	quotes, err := parseRawSecurities(raw)
	if err != nil {
		slog.Error("can't parse raw data", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, fmt.Errorf("%w: %w", externalApi.ErrUnavailable, err)
	}

	for _, quote := range quotes {
		if quote.Symbol == ticker {
			slog.Debug("MoexApi.Lookup request complete", slog.String("rqID", rqID), slog.String("op", op))
			return quote, nil
		}
	}

	return model.Quote{}, externalApi.ErrNotFound
}

// BoardQuotes returns quotes of every security listed on the main board.
func (a *MoexApi) BoardQuotes(ctx context.Context) ([]model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MoexApi.BoardQuotes"

	slog.Debug("start MoexApi.BoardQuotes request", slog.String("rqID", rqID), slog.String("op", op))

	raw, err := a.fetch(ctx, nil)
	if err != nil {
		return nil, err
	}

	quotes, err := parseRawSecurities(raw)
	if err != nil {
		slog.Error("can't parse raw data", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%w: %w", externalApi.ErrUnavailable, err)
	}

	slog.Debug("MoexApi.BoardQuotes request complete", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(quotes)))

	return quotes, nil
}

func (a *MoexApi) fetch(ctx context.Context, extraParams map[string]string) (moexModel.RawSecurities, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	params := map[string]string{
		"iss.meta":           "off",
		"securities.columns": "SECID,SHORTNAME,CURRENCYID,STATUS",
		"marketdata.columns": "SECID,LAST,MARKETPRICE",
	}
	for k, v := range extraParams {
		params[k] = v
	}

	raw := moexModel.RawSecurities{}
	err := a.breaker.Execute(func() error {
		resp, err := a.client.R().
			SetContext(ctx).
			SetHeader("Accept", "application/json").
			SetQueryParams(params).
			Get(boardSecuritiesUrl)
		if err != nil {
			return err
		}

		if resp.IsError() {
			return fmt.Errorf("unexpected status %d", resp.StatusCode())
		}

		return json.Unmarshal(resp.Body(), &raw)
	})
	if err != nil {
		slog.Error("error while dialing MoexApi", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return moexModel.RawSecurities{}, fmt.Errorf("%w: %w", externalApi.ErrUnavailable, err)
	}

	return raw, nil
}

func parseRawSecurities(raw moexModel.RawSecurities) ([]model.Quote, error) {
	if len(raw.Marketdata.Data) != len(raw.Securities.Data) {
		return nil, errors.New("lengths Marketdata != Securities")
	}

	quotes := make([]model.Quote, 0, len(raw.Securities.Data))

	for i := 0; i < len(raw.Securities.Data); i++ {
		if len(raw.Marketdata.Data[i]) != len(raw.Marketdata.Columns) {
			return nil, errors.New("invalid Marketdata")
		}

		if len(raw.Securities.Data[i]) != len(raw.Securities.Columns) {
			return nil, errors.New("invalid Securities")
		}

		quote := model.Quote{}
		var last, marketPrice decimal.Decimal

		for j, column := range raw.Marketdata.Columns {
			value := raw.Marketdata.Data[i][j]
			ok := true
			switch column {
			case "SECID":
				quote.Symbol, ok = value.(string)
			case "LAST":
				last, ok = parsePrice(value)
			case "MARKETPRICE":
				marketPrice, ok = parsePrice(value)
			default:
				return nil, fmt.Errorf("unknown column %s", column)
			}

			if !ok {
				return nil, fmt.Errorf("invalid type %s = %v", column, value)
			}
		}

		for j, column := range raw.Securities.Columns {
			value := raw.Securities.Data[i][j]
			ok := true
			switch column {
			case "SECID":
				if value != quote.Symbol {
					return nil, fmt.Errorf("secID in securities and market data is not equal %v and %s", value, quote.Symbol)
				}
			case "SHORTNAME":
				quote.Name, ok = value.(string)
			case "CURRENCYID":
				quote.Currency, ok = value.(string)
				if ok && quote.Currency == "SUR" {
					quote.Currency = "RUB"
				}
			case "STATUS":
				var status string // чтобы далее не затенить переменную ok
				status, ok = value.(string)
				quote.Active = ok && status == "A"
			default:
				return nil, fmt.Errorf("unknown column %s", column)
			}

			if !ok {
				return nil, fmt.Errorf("invalid type %s = %v", column, value)
			}
		}

		quote.Price = last
		if quote.Price.IsZero() {
			quote.Price = marketPrice
		}

		quotes = append(quotes, quote)
	}

	return quotes, nil
}

// parsePrice accepts null as zero price.
func parsePrice(value any) (decimal.Decimal, bool) {
	if value == nil {
		return decimal.Zero, true
	}

	price, ok := value.(float64)
	if !ok {
		return decimal.Zero, false
	}

	return decimal.NewFromFloat(price).Round(priceScale), true
}
