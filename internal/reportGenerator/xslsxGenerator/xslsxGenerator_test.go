package xslsxGenerator

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestGenerate(t *testing.T) {
	report := model.Report{
		Username: "alice",
		Currency: "RUB",
		Portfolio: model.Portfolio{
			Positions: []model.Position{
				{Symbol: "AAPL", Name: "Apple", Shares: 5, Price: decimal.NewFromInt(160), Value: decimal.NewFromInt(800)},
				{Symbol: "SBER", Name: "Sberbank", Shares: 2, QuoteErr: errors.New("down")},
			},
			Cash:        decimal.NewFromInt(9300),
			TotalEquity: decimal.NewFromInt(10100),
			Partial:     true,
		},
		History: []model.Transaction{
			{Symbol: "AAPL", Shares: 10, Price: decimal.NewFromInt(150), Time: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)},
			{Symbol: "AAPL", Shares: -5, Price: decimal.NewFromInt(160), Time: time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC)},
		},
	}

	fileBytes, ext, err := New().Generate(context.Background(), report)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ext != ".xlsx" {
		t.Errorf("extension = %q", ext)
	}

	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != holdingsSheet || sheets[1] != historySheet {
		t.Fatalf("sheets = %v", sheets)
	}

	cases := []struct {
		sheet, cell, want string
	}{
		{holdingsSheet, "A3", "AAPL"},
		{holdingsSheet, "E3", "800"},
		{holdingsSheet, "D4", "unavailable"},
		{holdingsSheet, "A5", "CASH"},
		{holdingsSheet, "E5", "9300"},
		{holdingsSheet, "A6", "TOTAL (partial)"},
		{holdingsSheet, "E6", "10100"},
		{historySheet, "B4", "-5"},
		{historySheet, "D4", "800"},
		{historySheet, "E3", "2026-01-01 10:00:00"},
	}
	for _, tc := range cases {
		got, err := f.GetCellValue(tc.sheet, tc.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s, %s): %v", tc.sheet, tc.cell, err)
		}
		if got != tc.want {
			t.Errorf("%s!%s = %q, want %q", tc.sheet, tc.cell, got, tc.want)
		}
	}
}
