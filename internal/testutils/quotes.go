package testutils

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/KotFed0t/portfolio_tracker/internal/externalApi"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/shopspring/decimal"
)

var errCacheMiss = errors.New("cache miss")

// MockQuoteApi simulates the quote provider.
type MockQuoteApi struct {
	Quotes map[string]model.Quote
	Errs   map[string]error
	Calls  int
	Mu     sync.Mutex
}

func NewMockQuoteApi() *MockQuoteApi {
	return &MockQuoteApi{Quotes: make(map[string]model.Quote), Errs: make(map[string]error)}
}

func (m *MockQuoteApi) Lookup(ctx context.Context, ticker string) (model.Quote, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++

	if err, ok := m.Errs[ticker]; ok {
		return model.Quote{}, err
	}
	quote, ok := m.Quotes[ticker]
	if !ok {
		return model.Quote{}, externalApi.ErrNotFound
	}
	return quote, nil
}

func (m *MockQuoteApi) BoardQuotes(ctx context.Context) ([]model.Quote, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++

	quotes := make([]model.Quote, 0, len(m.Quotes))
	for _, quote := range m.Quotes {
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// MockCache simulates the Redis quote cache.
type MockCache struct {
	Quotes map[string]model.Quote
	Mu     sync.Mutex
}

func NewMockCache() *MockCache {
	return &MockCache{Quotes: make(map[string]model.Quote)}
}

func (m *MockCache) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	quote, ok := m.Quotes[symbol]
	if !ok {
		return model.Quote{}, errCacheMiss
	}
	return quote, nil
}

func (m *MockCache) SetQuote(ctx context.Context, quote model.Quote) error {
	return m.SetQuotes(ctx, []model.Quote{quote})
}

func (m *MockCache) SetQuotes(ctx context.Context, quotes []model.Quote) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	for _, quote := range quotes {
		m.Quotes[quote.Symbol] = quote
	}
	return nil
}

// StaticQuotes is a quote service with fixed prices. Tickers missing from Prices are invalid symbols,
// tickers in Unavailable fail with service.ErrQuoteUnavailable.
type StaticQuotes struct {
	Prices      map[string]decimal.Decimal
	Unavailable map[string]bool
	Mu          sync.Mutex
}

func NewStaticQuotes() *StaticQuotes {
	return &StaticQuotes{Prices: make(map[string]decimal.Decimal), Unavailable: make(map[string]bool)}
}

func (q *StaticQuotes) SetPrice(ticker, price string) {
	q.Mu.Lock()
	defer q.Mu.Unlock()
	q.Prices[ticker] = decimal.RequireFromString(price)
}

func (q *StaticQuotes) Quote(ctx context.Context, ticker string) (model.Quote, error) {
	q.Mu.Lock()
	defer q.Mu.Unlock()

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return model.Quote{}, service.ErrInvalidInput
	}
	if q.Unavailable[ticker] {
		return model.Quote{}, service.ErrQuoteUnavailable
	}
	price, ok := q.Prices[ticker]
	if !ok {
		return model.Quote{}, service.ErrInvalidSymbol
	}
	return model.Quote{Symbol: ticker, Name: ticker + " Inc.", Price: price, Currency: "RUB", Active: true}, nil
}

func (q *StaticQuotes) QuoteMany(ctx context.Context, tickers []string) ([]model.Quote, []error) {
	quotes := make([]model.Quote, len(tickers))
	errs := make([]error, len(tickers))
	for i, ticker := range tickers {
		quotes[i], errs[i] = q.Quote(ctx, ticker)
	}
	return quotes, errs
}
