package portfolioService

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	FindUserByID(ctx context.Context, userID int64) (model.User, error)
	LockUserShared(ctx context.Context, userID int64) (model.User, error)
	OpenPositionsForUser(ctx context.Context, userID int64) ([]model.Holding, error)
	TransactionsForUser(ctx context.Context, userID int64) ([]model.Transaction, error)
}

type QuoteService interface {
	QuoteMany(ctx context.Context, tickers []string) ([]model.Quote, []error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.Report) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, fileBytes []byte, filename string) (downloadLink string, err error)
}

type PortfolioService struct {
	repo            Repository
	quotes          QuoteService
	reportGenerator ReportGenerator
	cloudStorage    CloudStorage
	currency        string
}

// New builds the service; cloudStorage may be nil, then exports are returned as bytes only.
func New(repo Repository, quotes QuoteService, reportGenerator ReportGenerator, cloudStorage CloudStorage, currency string) *PortfolioService {
	return &PortfolioService{
		repo:            repo,
		quotes:          quotes,
		reportGenerator: reportGenerator,
		cloudStorage:    cloudStorage,
		currency:        currency,
	}
}

func (s *PortfolioService) Currency() string {
	return s.currency
}

// GetPortfolio prices every open position. Cash and positions are read under a shared lock on the user row
// so they reflect the same point of the log; quoting happens after the lock is released.
func (s *PortfolioService) GetPortfolio(ctx context.Context, userID int64) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolio"

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("GetPortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	var (
		user     model.User
		holdings []model.Holding
	)

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.repo.LockUserShared(ctx, userID)
		if err != nil {
			return err
		}

		holdings, err = s.repo.OpenPositionsForUser(ctx, userID)
		return err
	})
	if err != nil {
		slog.Error("got error reading portfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, service.StorageFailure(err)
	}

	tickers := make([]string, 0, len(holdings))
	for _, holding := range holdings {
		tickers = append(tickers, holding.Symbol)
	}

	quotes, quoteErrs := s.quotes.QuoteMany(ctx, tickers)

	portfolio = model.Portfolio{
		Positions:   make([]model.Position, 0, len(holdings)),
		Cash:        user.Cash,
		TotalEquity: user.Cash,
	}

	for i, holding := range holdings {
		position := model.Position{
			Symbol: holding.Symbol,
			Name:   holding.Name,
			Shares: holding.Shares,
		}

		if quoteErrs[i] != nil {
			slog.Warn("position not priced", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", holding.Symbol), slog.String("err", quoteErrs[i].Error()))
			position.QuoteErr = service.ErrQuoteUnavailable
			portfolio.Partial = true
		} else {
			position.Price = quotes[i].Price
			position.Value = quotes[i].Price.Mul(decimal.NewFromInt(holding.Shares))
			portfolio.TotalEquity = portfolio.TotalEquity.Add(position.Value)
		}

		portfolio.Positions = append(portfolio.Positions, position)
	}

	return portfolio, nil
}

// GetHistory returns the user's transactions oldest first.
func (s *PortfolioService) GetHistory(ctx context.Context, userID int64) ([]model.Transaction, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetHistory"

	history, err := s.repo.TransactionsForUser(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.TransactionsForUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, service.StorageFailure(err)
	}

	return history, nil
}

func (s *PortfolioService) GetReport(ctx context.Context, userID int64) (model.Report, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetReport"

	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.FindUserByID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Report{}, service.StorageFailure(err)
	}

	portfolio, err := s.GetPortfolio(ctx, userID)
	if err != nil {
		return model.Report{}, err
	}

	history, err := s.GetHistory(ctx, userID)
	if err != nil {
		return model.Report{}, err
	}

	return model.Report{
		Username:  user.Username,
		Currency:  s.currency,
		Portfolio: portfolio,
		History:   history,
	}, nil
}

// Export is a generated report file, optionally uploaded to cloud storage.
type Export struct {
	Filename     string
	FileBytes    []byte
	DownloadLink string
}

// ExportReport renders the report to a file. When cloud storage is configured and upload succeeds,
// DownloadLink is set as well.
func (s *PortfolioService) ExportReport(ctx context.Context, userID int64) (Export, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ExportReport"

	slog.Debug("ExportReport start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))

	report, err := s.GetReport(ctx, userID)
	if err != nil {
		return Export{}, err
	}

	fileBytes, ext, err := s.reportGenerator.Generate(ctx, report)
	if err != nil {
		slog.Error("got error from reportGenerator.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return Export{}, err
	}

	export := Export{
		Filename:  fmt.Sprintf("portfolio_%s_%s%s", report.Username, time.Now().UTC().Format("20060102_150405"), ext),
		FileBytes: fileBytes,
	}

	if s.cloudStorage != nil {
		link, err := s.cloudStorage.UploadFile(ctx, fileBytes, export.Filename)
		if err != nil {
			slog.Warn("can't upload report, returning file directly", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			export.DownloadLink = link
		}
	}

	return export, nil
}
