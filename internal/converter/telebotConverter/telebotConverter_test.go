package telebotConverter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/shopspring/decimal"
)

func TestReceiptResponse(t *testing.T) {
	got := ReceiptResponse(model.Receipt{
		Symbol: "AAPL",
		Shares: -5,
		Price:  decimal.NewFromInt(160),
		Amount: decimal.NewFromInt(800),
		Cash:   decimal.NewFromInt(9300),
	}, "USD")

	want := "✅ Sold! 5 × AAPL at $160.00 = $800.00\nCash: $9,300.00"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPortfolioResponse(t *testing.T) {
	got := PortfolioResponse(model.Portfolio{
		Positions: []model.Position{
			{Symbol: "AAPL", Name: "Apple", Shares: 5, Price: decimal.NewFromInt(160), Value: decimal.NewFromInt(800)},
			{Symbol: "MSFT", Name: "Microsoft", Shares: 1, QuoteErr: errors.New("down")},
		},
		Cash:        decimal.NewFromInt(9300),
		TotalEquity: decimal.NewFromInt(10100),
		Partial:     true,
	}, "USD")

	for _, want := range []string{
		"AAPL (Apple): 5 shares",
		"$160.00 × 5 = $800.00",
		"MSFT (Microsoft): 1 shares\n   price unavailable",
		"Cash: $9,300.00",
		"Total: $10,100.00 (some prices unavailable)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("response misses %q:\n%s", want, got)
		}
	}
}

func TestHistoryResponse(t *testing.T) {
	if got := HistoryResponse(nil, "USD"); got != "No transactions yet." {
		t.Errorf("empty history = %q", got)
	}

	got := HistoryResponse([]model.Transaction{
		{Symbol: "AAPL", Shares: 10, Price: decimal.NewFromInt(150), Time: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)},
		{Symbol: "AAPL", Shares: -5, Price: decimal.NewFromInt(160), Time: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)},
	}, "USD")

	if !strings.Contains(got, "2026-01-01 10:00  AAPL +10 @ $150.00\n2026-01-02 10:00  AAPL -5 @ $160.00") {
		t.Errorf("unexpected history:\n%s", got)
	}
}
