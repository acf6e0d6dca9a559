package tgbot

import (
	"fmt"
	"log/slog"

	"github.com/KotFed0t/portfolio_tracker/config"
	"github.com/KotFed0t/portfolio_tracker/internal/transport/telegram"
	customMW "github.com/KotFed0t/portfolio_tracker/internal/transport/telegram/middleware"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type TGBot struct {
	bot      *tele.Bot
	ctrl     *telegram.Controller
	sessions customMW.SessionResolver
}

func New(cfg *config.Config, ctrl *telegram.Controller, sessions customMW.SessionResolver) (*TGBot, error) {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		return nil, fmt.Errorf("tele.NewBot: %w", err)
	}

	return &TGBot{bot: b, ctrl: ctrl, sessions: sessions}, nil
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/help", b.ctrl.Start)
	b.bot.Handle("/login", b.ctrl.Login)
	b.bot.Handle("/logout", b.ctrl.Logout)
	b.bot.Handle("/quote", b.ctrl.Quote)

	authorized := b.bot.Group()
	authorized.Use(customMW.Auth(b.sessions))
	authorized.Handle("/buy", b.ctrl.Buy)
	authorized.Handle("/sell", b.ctrl.Sell)
	authorized.Handle("/portfolio", b.ctrl.Portfolio)
	authorized.Handle("/history", b.ctrl.History)
	authorized.Handle("/export", b.ctrl.Export)
}
