package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KotFed0t/portfolio_tracker/config"
	"github.com/KotFed0t/portfolio_tracker/data"
	"github.com/KotFed0t/portfolio_tracker/data/cache"
	"github.com/KotFed0t/portfolio_tracker/data/repository/postgres"
	"github.com/KotFed0t/portfolio_tracker/data/session"
	"github.com/KotFed0t/portfolio_tracker/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/portfolio_tracker/internal/externalApi/moexApi"
	"github.com/KotFed0t/portfolio_tracker/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/portfolio_tracker/internal/scheduler"
	"github.com/KotFed0t/portfolio_tracker/internal/service/authService"
	"github.com/KotFed0t/portfolio_tracker/internal/service/portfolioService"
	"github.com/KotFed0t/portfolio_tracker/internal/service/quoteService"
	"github.com/KotFed0t/portfolio_tracker/internal/service/tradeService"
	"github.com/KotFed0t/portfolio_tracker/internal/tgbot"
	"github.com/KotFed0t/portfolio_tracker/internal/transport/telegram"
	"github.com/KotFed0t/portfolio_tracker/internal/transport/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.String("logLevel", cfg.LogLevel), slog.String("httpAddr", cfg.HTTP.Addr), slog.String("moexUrl", cfg.API.MoexApi.Url))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	quoteCache := cache.NewRedisCache(redisClient, cfg.Cache.QuotesExpiration)
	webSessions := session.NewRedisSession(redisClient, session.WebPrefix, cfg.SessionExpiration)
	chatSessions := session.NewRedisSession(redisClient, session.ChatPrefix, cfg.SessionExpiration)

	quoteSrv := quoteService.New(moexApi.New(cfg), quoteCache, cfg.QuoteConcurrency)
	tradeSrv := tradeService.New(pgRepo, quoteSrv)
	webAuthSrv := authService.New(pgRepo, webSessions, cfg.Ledger.InitialCash)
	chatAuthSrv := authService.New(pgRepo, chatSessions, cfg.Ledger.InitialCash)

	sched, err := scheduler.New()
	if err != nil {
		slog.Error("can't create scheduler", slog.String("err", err.Error()))
		os.Exit(1)
	}

	mustAddJob(sched.NewIntervalJob("refresh quotes cache", quoteSrv.RefreshCache, cfg.Jobs.RefreshQuotesInterval, true))

	var cloudStorage portfolioService.CloudStorage
	if cfg.GoogleDrive.CredentialsFile != "" {
		drive, err := googleDriveApi.New(ctx, cfg.GoogleDrive)
		if err != nil {
			slog.Error("can't create google drive client", slog.String("err", err.Error()))
			os.Exit(1)
		}
		cloudStorage = drive
		mustAddJob(sched.NewIntervalJob("delete old reports", drive.DeleteOldFiles, cfg.Jobs.CleanReportsInterval, false))
	}

	portfolioSrv := portfolioService.New(pgRepo, quoteSrv, xslsxGenerator.New(), cloudStorage, cfg.Ledger.Currency)

	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			slog.Error("can't stop scheduler", slog.String("err", err.Error()))
		}
	}()

	if cfg.Telegram.Token != "" {
		tgController := telegram.NewController(chatAuthSrv, quoteSrv, tradeSrv, portfolioSrv, cfg.Telegram.FileLimitInBytes)
		tgBot, err := tgbot.New(cfg, tgController, chatAuthSrv)
		if err != nil {
			slog.Error("can't create tgbot", slog.String("err", err.Error()))
			os.Exit(1)
		}
		tgBot.Start()
		defer tgBot.Stop()
	}

	webHandler, err := web.NewHandler(webAuthSrv, quoteSrv, tradeSrv, portfolioSrv, web.Options{
		SecureCookie:      cfg.HTTP.SecureCookie,
		NoCache:           cfg.HTTP.NoCache,
		SessionExpiration: cfg.SessionExpiration,
	})
	if err != nil {
		slog.Error("can't create web handler", slog.String("err", err.Error()))
		os.Exit(1)
	}

	server := web.NewServer(cfg.HTTP, webHandler.Routes())
	go func() {
		slog.Info("http server started", slog.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	select {
	case <-interrupt:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
	slog.Info("http server stopped")
}

func mustAddJob(err error) {
	if err != nil {
		slog.Error("can't add job", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
