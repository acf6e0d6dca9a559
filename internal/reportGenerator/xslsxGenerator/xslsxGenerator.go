package xslsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/xuri/excelize/v2"
)

const (
	holdingsSheet = "Holdings"
	historySheet  = "History"
)

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

// Generate writes a workbook with a holdings sheet (positions, cash, total) and a history sheet.
func (g *XSLSXGenerator) Generate(ctx context.Context, report model.Report) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err = g.fillHoldings(f, report); err != nil {
		slog.Error("got error while filling holdings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err = g.fillHistory(f, report); err != nil {
		slog.Error("got error while filling history", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func writeTitle(f *excelize.File, sheet, from, to, title, color string) error {
	if err := f.MergeCell(sheet, from, to); err != nil {
		return err
	}

	if err := f.SetCellStr(sheet, from, title); err != nil {
		return err
	}

	styleID, err := headerStyle(f, color)
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheet, from, from, styleID); err != nil {
		return fmt.Errorf("can't apply style: %w", err)
	}

	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func (g *XSLSXGenerator) fillHoldings(f *excelize.File, report model.Report) error {
	if _, err := f.NewSheet(holdingsSheet); err != nil {
		return err
	}

	title := fmt.Sprintf("Portfolio of %s (%s)", report.Username, report.Currency)
	if err := writeTitle(f, holdingsSheet, "A1", "E1", title, "#cfe2f3"); err != nil {
		return err
	}

	if err := writeRow(f, holdingsSheet, 2, "Symbol", "Name", "Shares", "Price", "TOTAL"); err != nil {
		return err
	}

	row := 3
	for _, position := range report.Portfolio.Positions {
		var err error
		if position.QuoteErr != nil {
			err = writeRow(f, holdingsSheet, row, position.Symbol, position.Name, position.Shares, "unavailable", "unavailable")
		} else {
			err = writeRow(f, holdingsSheet, row, position.Symbol, position.Name, position.Shares,
				position.Price.InexactFloat64(), position.Value.InexactFloat64())
		}
		if err != nil {
			return err
		}
		row++
	}

	if err := writeRow(f, holdingsSheet, row, "CASH", "", "", "", report.Portfolio.Cash.InexactFloat64()); err != nil {
		return err
	}
	row++

	total := "TOTAL"
	if report.Portfolio.Partial {
		total = "TOTAL (partial)"
	}
	return writeRow(f, holdingsSheet, row, total, "", "", "", report.Portfolio.TotalEquity.InexactFloat64())
}

func (g *XSLSXGenerator) fillHistory(f *excelize.File, report model.Report) error {
	if _, err := f.NewSheet(historySheet); err != nil {
		return err
	}

	if err := writeTitle(f, historySheet, "A1", "E1", "History", "#cccccc"); err != nil {
		return err
	}

	if err := writeRow(f, historySheet, 2, "Symbol", "Shares", "Price", "Amount", "Transacted"); err != nil {
		return err
	}

	for i, tx := range report.History {
		err := writeRow(f, historySheet, i+3, tx.Symbol, tx.Shares, tx.Price.InexactFloat64(),
			tx.Amount().InexactFloat64(), tx.Time.UTC().Format("2006-01-02 15:04:05"))
		if err != nil {
			return err
		}
	}

	return nil
}
