package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobmarket-backend/internal/config"
	"github.com/ignatzorin/jobmarket-backend/internal/db"
	"github.com/ignatzorin/jobmarket-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/jobmarket-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/jobmarket-backend/internal/http/router"
	"github.com/ignatzorin/jobmarket-backend/internal/logger"
	"github.com/ignatzorin/jobmarket-backend/internal/mailer"
	"github.com/ignatzorin/jobmarket-backend/internal/repository"
	"github.com/ignatzorin/jobmarket-backend/internal/service"
	"github.com/ignatzorin/jobmarket-backend/internal/storage"
	"github.com/ignatzorin/jobmarket-backend/internal/worker"
	"github.com/ignatzorin/jobmarket-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	attachmentStorage, err := storage.NewAttachmentStorage(cfg.AttachmentsPath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	jobRepo := repository.NewJobRepository(dbConn)
	bidRepo := repository.NewBidRepository(dbConn)
	hiringRepo := repository.NewHiringRepository(dbConn)
	milestoneRepo := repository.NewMilestoneRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	conversationRepo := repository.NewConversationRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	goroutine.SafeGo(hub.Run)

	// Сервисы. Сервис уведомлений закрывает порт нотификаций для остальных.
	notificationService := service.NewNotificationService(notificationRepo, hub)
	authService := service.NewAuthService(userRepo, tokenManager)
	authService.SetMailer(mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom))
	userService := service.NewUserService(userRepo)
	jobService := service.NewJobService(jobRepo)
	bidService := service.NewBidService(bidRepo, jobRepo, notificationService)
	hiringService := service.NewHiringService(hiringRepo, bidRepo, jobRepo, notificationService)
	milestoneService := service.NewMilestoneService(milestoneRepo, jobRepo, notificationService, cfg.EscrowHoldPeriod)
	paymentService := service.NewPaymentService(paymentRepo, userRepo, jobRepo, notificationService)
	conversationService := service.NewConversationService(conversationRepo, notificationService)

	// Фоновый воркер выплат: созревшие escrow-платежи переводятся в
	// доступный баланс даже если сервис какое-то время не работал.
	releaseWorker := worker.NewReleaseWorker(paymentService, cfg.ReleaseSweepInterval, logger.WithComponent("release_worker"))
	goroutine.SafeGoWithContext(ctx, releaseWorker.Run)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	profileHandler := httpHandlers.NewProfileHandler(userService)
	jobHandler := httpHandlers.NewJobHandler(jobService)
	bidHandler := httpHandlers.NewBidHandler(bidService, attachmentStorage)
	hiringHandler := httpHandlers.NewHiringHandler(hiringService)
	milestoneHandler := httpHandlers.NewMilestoneHandler(milestoneService)
	paymentHandler := httpHandlers.NewPaymentHandler(paymentService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	conversationHandler := httpHandlers.NewConversationHandler(conversationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	engine := httpRouter.SetupRouter(
		cfg,
		authHandler,
		profileHandler,
		jobHandler,
		bidHandler,
		hiringHandler,
		milestoneHandler,
		paymentHandler,
		notificationHandler,
		conversationHandler,
		wsHandler,
		healthHandler,
		tokenManager,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
