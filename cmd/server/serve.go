package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/disaster-backend/internal/config"
	"github.com/ignatzorin/disaster-backend/internal/conversation"
	"github.com/ignatzorin/disaster-backend/internal/db"
	"github.com/ignatzorin/disaster-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/disaster-backend/internal/http/handlers"
	"github.com/ignatzorin/disaster-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/disaster-backend/internal/http/router"
	"github.com/ignatzorin/disaster-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/disaster-backend/internal/logger"
	"github.com/ignatzorin/disaster-backend/internal/notify/slack"
	"github.com/ignatzorin/disaster-backend/internal/service"
	"github.com/ignatzorin/disaster-backend/internal/transport"
	"github.com/ignatzorin/disaster-backend/internal/transport/discord"
	"github.com/ignatzorin/disaster-backend/internal/transport/telegram"
	"github.com/ignatzorin/disaster-backend/internal/usecase/alert"
	"github.com/ignatzorin/disaster-backend/internal/usecase/query"
	"github.com/ignatzorin/disaster-backend/internal/usecase/report"
	"github.com/ignatzorin/disaster-backend/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the chat bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			initLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, !skipMigrations)
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on start")
	return cmd
}

func initLogger(cfg *config.Config) {
	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}
}

func runServe(ctx context.Context, cfg *config.Config, migrate bool) error {
	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer safeClose(dbConn)

	if migrate {
		applied, err := db.RunMigrations(ctx, dbConn, db.Migrations())
		if err != nil {
			return err
		}
		logger.Log.WithField("applied", applied).Info("Миграции применены")
	}

	// Репозитории.
	reportRepo := persistence.NewReportRepositoryAdapter(dbConn)
	alertRepo := persistence.NewAlertRepositoryAdapter(dbConn)

	cache := service.NewCacheService()
	defer cache.Close()

	// Вебсокеты.
	hub := ws.NewHub()
	goroutine.SafeGoWithContext(ctx, "ws-hub", hub.Run)

	// Каналы оповещений.
	notifiers := []alert.Notifier{hub}
	if cfg.SlackWebhookURL != "" {
		slackNotifier, err := slack.New(slack.NotifierOpts{
			WebhookURL:     cfg.SlackWebhookURL,
			GatewayBaseURL: cfg.GatewayBaseURL,
		})
		if err != nil {
			return err
		}
		notifiers = append(notifiers, slackNotifier)
	}
	dispatcher := alert.NewDispatcher(alertRepo, notifiers...)

	// Use cases.
	submitUC := report.NewSubmitReportUseCase(reportRepo, dispatcher, cache)
	getUC := report.NewGetReportUseCase(reportRepo)
	changeStatusUC := report.NewChangeStatusUseCase(reportRepo, cache)
	listUC := query.NewListFilteredUseCase(reportRepo)
	nearUC := query.NewListNearUseCase(reportRepo)
	userReportsUC := query.NewListUserReportsUseCase(reportRepo)
	statsUC := query.NewDashboardStatsUseCase(reportRepo, cache, cfg.DashboardCacheTTL, cfg.DashboardScanLimit)

	// Чат-бот.
	adapter, err := newChatAdapter(cfg)
	if err != nil {
		return err
	}
	manager := conversation.NewManager(conversation.NewStore(), submitUC, userReportsUC, cfg.SessionIdleTimeout)
	bot, err := transport.NewBot(transport.BotOpts{Adapter: adapter, Handler: manager})
	if err != nil {
		return err
	}

	// Ошибка бота останавливает весь процесс.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	goroutine.SafeGoWithContext(ctx, "chat-bot", func(ctx context.Context) {
		if err := bot.Run(ctx); err != nil {
			logger.Log.WithError(err).Error("Чат-бот остановлен с ошибкой")
			cancel()
		}
	})

	// HTTP.
	rateStore, closeRateStore, err := middleware.NewRateLimitStore(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRateStore(); err != nil {
			logger.Log.WithError(err).Warn("Ошибка закрытия хранилища rate limit")
		}
	}()

	engine := httpRouter.SetupRouter(
		cfg,
		rateStore,
		httpHandlers.NewHealthHandler(map[string]httpHandlers.Pinger{"store": reportRepo}),
		httpHandlers.NewReportHandler(submitUC, getUC, changeStatusUC, listUC, nearUC, userReportsUC),
		httpHandlers.NewAlertHandler(
			alert.NewListAlertsUseCase(alertRepo),
			alert.NewGetAlertUseCase(alertRepo),
			alert.NewChangeAlertStatusUseCase(alertRepo),
		),
		httpHandlers.NewDashboardHandler(statsUC),
		httpHandlers.NewWSHandler(hub, cfg.AllowedOrigins),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo("http-shutdown", func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("Ошибка остановки HTTP сервера")
		}
	})

	logger.Log.WithFields(logrus.Fields{
		"port":     cfg.HTTPPort,
		"platform": adapter.Name(),
	}).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http: %w", err)
	}
	logger.Log.Info("Сервер остановлен")
	return nil
}

func newChatAdapter(cfg *config.Config) (transport.Adapter, error) {
	switch cfg.BotPlatform {
	case config.PlatformTelegram:
		return telegram.New(telegram.AdapterOpts{BotToken: cfg.TelegramBotToken})
	case config.PlatformDiscord:
		return discord.New(discord.AdapterOpts{BotToken: cfg.DiscordBotToken})
	}
	return nil, fmt.Errorf("config: неизвестная платформа бота %q", cfg.BotPlatform)
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Log.WithError(err).Warn("Ошибка закрытия базы")
	}
}
