package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/portfolio_tracker/internal/converter/telebotConverter"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/KotFed0t/portfolio_tracker/internal/service/portfolioService"
	"github.com/KotFed0t/portfolio_tracker/internal/service/tradeService"
	"github.com/KotFed0t/portfolio_tracker/internal/transport/telegram/middleware"
	"github.com/KotFed0t/portfolio_tracker/utils"
	tele "gopkg.in/telebot.v4"
)

const helpMsg = `Commands:
/login <username> <password>
/logout
/quote <ticker>
/buy <ticker> <shares>
/sell <ticker> <shares>
/portfolio
/history
/export`

type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (model.User, error)
	BindSession(ctx context.Context, key string, sess model.Session) error
	Logout(ctx context.Context, key string) error
}

type QuoteService interface {
	Quote(ctx context.Context, ticker string) (model.Quote, error)
}

type TradeService interface {
	Buy(ctx context.Context, userID int64, ticker string, shares int64) (model.Receipt, error)
	Sell(ctx context.Context, userID int64, ticker string, shares int64) (model.Receipt, error)
}

type PortfolioService interface {
	Currency() string
	GetPortfolio(ctx context.Context, userID int64) (model.Portfolio, error)
	GetHistory(ctx context.Context, userID int64) ([]model.Transaction, error)
	ExportReport(ctx context.Context, userID int64) (portfolioService.Export, error)
}

type Controller struct {
	auth             AuthService
	quotes           QuoteService
	trade            TradeService
	portfolio        PortfolioService
	fileLimitInBytes int
}

func NewController(auth AuthService, quotes QuoteService, trade TradeService, portfolio PortfolioService, fileLimitInBytes int) *Controller {
	return &Controller{
		auth:             auth,
		quotes:           quotes,
		trade:            trade,
		portfolio:        portfolio,
		fileLimitInBytes: fileLimitInBytes,
	}
}

func sessionFromCtx(c tele.Context) model.Session {
	sess, _ := c.Get("session").(model.Session)
	return sess
}

func (ctrl *Controller) replyErr(ctx context.Context, c tele.Context, op string, err error) error {
	if !service.IsBusiness(err) {
		slog.Error("request failed", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("op", op), slog.String("err", err.Error()))
	}
	return c.Send("⚠️ " + service.PublicMessage(err))
}

func (ctrl *Controller) Start(c tele.Context) error {
	return c.Send("Hello! Paper-trade stocks at live prices.\n\n" + helpMsg)
}

// Login binds the sender to a user. The message with the password is deleted right away
// and only private chats are accepted.
func (ctrl *Controller) Login(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	if err := c.Delete(); err != nil {
		slog.Warn("can't delete login message", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}

	if c.Chat() == nil || c.Chat().Type != tele.ChatPrivate || middleware.SessionKey(c) == "" {
		return c.Send("⚠️ log in from a private chat with the bot")
	}

	args := c.Args()
	if len(args) != 2 {
		return c.Send("usage: /login <username> <password>")
	}

	user, err := ctrl.auth.Authenticate(ctx, args[0], args[1])
	if err != nil {
		return ctrl.replyErr(ctx, c, "Controller.Login", err)
	}

	err = ctrl.auth.BindSession(ctx, middleware.SessionKey(c), model.Session{UserID: user.ID, Username: user.Username})
	if err != nil {
		return ctrl.replyErr(ctx, c, "Controller.Login", err)
	}

	return c.Send(fmt.Sprintf("Logged in as %s", user.Username))
}

func (ctrl *Controller) Logout(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if err := ctrl.auth.Logout(ctx, middleware.SessionKey(c)); err != nil {
		return ctrl.replyErr(ctx, c, "Controller.Logout", err)
	}

	return c.Send("Logged out")
}

func (ctrl *Controller) Quote(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	args := c.Args()
	if len(args) != 1 {
		return c.Send("usage: /quote <ticker>")
	}

	quote, err := ctrl.quotes.Quote(ctx, args[0])
	if err != nil {
		return ctrl.replyErr(ctx, c, "Controller.Quote", err)
	}

	return c.Send(telebotConverter.QuoteResponse(quote))
}

func parseTradeArgs(args []string) (ticker string, shares int64, err error) {
	if len(args) != 2 {
		return "", 0, service.ErrInvalidInput
	}

	shares, err = tradeService.ParseShares(args[1])
	if err != nil {
		return "", 0, err
	}

	return args[0], shares, nil
}

func (ctrl *Controller) Buy(c tele.Context) error {
	return ctrl.runTrade(c, "Controller.Buy", "usage: /buy <ticker> <shares>", ctrl.trade.Buy)
}

func (ctrl *Controller) Sell(c tele.Context) error {
	return ctrl.runTrade(c, "Controller.Sell", "usage: /sell <ticker> <shares>", ctrl.trade.Sell)
}

type tradeFn func(ctx context.Context, userID int64, ticker string, shares int64) (model.Receipt, error)

func (ctrl *Controller) runTrade(c tele.Context, op, usage string, fn tradeFn) error {
	ctx := utils.CreateCtxWithRqID(c)

	ticker, shares, err := parseTradeArgs(c.Args())
	if err != nil {
		return c.Send(usage)
	}

	receipt, err := fn(ctx, sessionFromCtx(c).UserID, ticker, shares)
	if err != nil {
		return ctrl.replyErr(ctx, c, op, err)
	}

	return c.Send(telebotConverter.ReceiptResponse(receipt, ctrl.portfolio.Currency()))
}

func (ctrl *Controller) Portfolio(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	portfolio, err := ctrl.portfolio.GetPortfolio(ctx, sessionFromCtx(c).UserID)
	if err != nil {
		return ctrl.replyErr(ctx, c, "Controller.Portfolio", err)
	}

	return c.Send(telebotConverter.PortfolioResponse(portfolio, ctrl.portfolio.Currency()))
}

func (ctrl *Controller) History(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	history, err := ctrl.portfolio.GetHistory(ctx, sessionFromCtx(c).UserID)
	if err != nil {
		return ctrl.replyErr(ctx, c, "Controller.History", err)
	}

	return c.Send(telebotConverter.HistoryResponse(history, ctrl.portfolio.Currency()))
}

var errReportTooLarge = errors.New("report too large to send")

func (ctrl *Controller) Export(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	export, err := ctrl.portfolio.ExportReport(ctx, sessionFromCtx(c).UserID)
	if err != nil {
		return ctrl.replyErr(ctx, c, "Controller.Export", err)
	}

	if export.DownloadLink != "" {
		return c.Send("📎 Report: " + export.DownloadLink)
	}

	if len(export.FileBytes) > ctrl.fileLimitInBytes {
		slog.Warn("report exceeds telegram file limit", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.Int("size", len(export.FileBytes)))
		return c.Send("⚠️ " + errReportTooLarge.Error())
	}

	return c.Send(&tele.Document{
		File:     tele.FromReader(bytes.NewReader(export.FileBytes)),
		FileName: export.Filename,
	})
}
