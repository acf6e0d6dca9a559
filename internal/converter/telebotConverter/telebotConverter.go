package telebotConverter

import (
	"fmt"
	"strings"

	"github.com/KotFed0t/portfolio_tracker/internal/converter/moneyConverter"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
)

func QuoteResponse(quote model.Quote) string {
	return fmt.Sprintf("📈 %s (%s)\nPrice: %s", quote.Name, quote.Symbol, moneyConverter.Format(quote.Price, quote.Currency))
}

func ReceiptResponse(receipt model.Receipt, currency string) string {
	verb := "Sold"
	shares := -receipt.Shares
	if receipt.Shares > 0 {
		verb = "Bought"
		shares = receipt.Shares
	}

	return fmt.Sprintf("✅ %s! %d × %s at %s = %s\nCash: %s",
		verb,
		shares,
		receipt.Symbol,
		moneyConverter.Format(receipt.Price, currency),
		moneyConverter.Format(receipt.Amount, currency),
		moneyConverter.Format(receipt.Cash, currency),
	)
}

func PortfolioResponse(portfolio model.Portfolio, currency string) string {
	var sb strings.Builder

	sb.WriteString("📊 Portfolio\n\n")

	if len(portfolio.Positions) == 0 {
		sb.WriteString("No open positions.\n")
	}

	for _, position := range portfolio.Positions {
		sb.WriteString(fmt.Sprintf("▸ %s (%s): %d shares\n", position.Symbol, position.Name, position.Shares))
		if position.QuoteErr != nil {
			sb.WriteString("   price unavailable\n")
			continue
		}
		sb.WriteString(fmt.Sprintf("   %s × %d = %s\n",
			moneyConverter.Format(position.Price, currency),
			position.Shares,
			moneyConverter.Format(position.Value, currency),
		))
	}

	sb.WriteString(fmt.Sprintf("\n💰 Cash: %s\n", moneyConverter.Format(portfolio.Cash, currency)))
	sb.WriteString(fmt.Sprintf("Total: %s", moneyConverter.Format(portfolio.TotalEquity, currency)))
	if portfolio.Partial {
		sb.WriteString(" (some prices unavailable)")
	}

	return sb.String()
}

func HistoryResponse(history []model.Transaction, currency string) string {
	if len(history) == 0 {
		return "No transactions yet."
	}

	var sb strings.Builder
	sb.WriteString("🧾 History\n\n")
	for _, tx := range history {
		sb.WriteString(fmt.Sprintf("%s  %s %+d @ %s\n",
			tx.Time.UTC().Format("2006-01-02 15:04"),
			tx.Symbol,
			tx.Shares,
			moneyConverter.Format(tx.Price, currency),
		))
	}

	return sb.String()
}
