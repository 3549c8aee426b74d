package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/homecare-backend/internal/config"
	"github.com/ignatzorin/homecare-backend/internal/db"
	"github.com/ignatzorin/homecare-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/homecare-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/homecare-backend/internal/http/router"
	"github.com/ignatzorin/homecare-backend/internal/logger"
	"github.com/ignatzorin/homecare-backend/internal/repository"
	"github.com/ignatzorin/homecare-backend/internal/service"
	"github.com/ignatzorin/homecare-backend/internal/signature"
	"github.com/ignatzorin/homecare-backend/internal/storage"
	"github.com/ignatzorin/homecare-backend/internal/upload"
	"github.com/ignatzorin/homecare-backend/internal/ws"
)

// Период фоновой проверки сроков действия предложений.
const expirySweepInterval = time.Hour

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
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

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	objectStorage, err := storage.NewObjectStorage(ctx, storage.Options{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		PresignTTL:      cfg.PresignTTL,
	})
	if err != nil {
		log.Fatalf("main: не удалось подготовить объектное хранилище: %v", err)
	}

	attachmentOpts := upload.DefaultOptions()
	attachmentOpts.MaxFiles = cfg.MaxUploadFiles
	attachmentOpts.MaxFileBytes = cfg.MaxUploadSizeMB * 1024 * 1024
	attachmentsGate := upload.NewGateway(objectStorage, attachmentOpts)
	contractGate := upload.NewGateway(objectStorage, upload.ContractOptions())

	ipResolver := signature.NewIPLookupClient(cfg.IPLookupURL)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	proposalRepo := repository.NewProposalRepository(dbConn)
	propertyRepo := repository.NewPropertyRepository(dbConn)
	appointmentRepo := repository.NewAppointmentRepository(dbConn)
	referralRepo := repository.NewReferralRepository(dbConn)
	achievementRepo := repository.NewAchievementRepository(dbConn)
	conversationRepo := repository.NewConversationRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	maintenanceRepo := repository.NewMaintenanceRepository(dbConn)

	// Сервисы.
	cacheService := service.NewCacheService()
	notificationService := service.NewNotificationService(notificationRepo)
	referralService := service.NewReferralService(referralRepo, userRepo)
	authService := service.NewAuthService(userRepo, tokenManager, referralService)
	achievementService := service.NewAchievementService(achievementRepo, proposalRepo)

	// Вебсокеты.
	hub := ws.NewHub(ctx)
	hub.SetNotificationSaver(notificationService)
	go hub.Run()

	proposalService := service.NewProposalService(
		proposalRepo,
		userRepo,
		achievementService,
		hub,
		referralService,
		ipResolver,
		cacheService,
	)
	propertyService := service.NewPropertyService(propertyRepo)
	maintenanceService := service.NewMaintenanceService(maintenanceRepo, propertyRepo, cacheService)
	appointmentService := service.NewAppointmentService(appointmentRepo, hub, cacheService)
	chatService := service.NewChatService(conversationRepo, userRepo, hub)
	dashboardService := service.NewDashboardService(
		proposalRepo,
		appointmentRepo,
		propertyRepo,
		conversationRepo,
		achievementService,
		referralService,
		maintenanceService,
		cacheService,
	)

	// Фоновое закрытие просроченных предложений.
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		proposalService.StartExpirySweep(ctx, expirySweepInterval)
	})

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	proposalHandler := httpHandlers.NewProposalHandler(proposalService, attachmentsGate, contractGate)
	objectHandler := httpHandlers.NewObjectHandler(objectStorage)
	dashboardHandler := httpHandlers.NewDashboardHandler(dashboardService, achievementService)
	propertyHandler := httpHandlers.NewPropertyHandler(propertyService)
	maintenanceHandler := httpHandlers.NewMaintenanceHandler(maintenanceService)
	appointmentHandler := httpHandlers.NewAppointmentHandler(appointmentService)
	referralHandler := httpHandlers.NewReferralHandler(referralService)
	chatHandler := httpHandlers.NewChatHandler(chatService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(
		cfg,
		authHandler,
		proposalHandler,
		objectHandler,
		dashboardHandler,
		propertyHandler,
		maintenanceHandler,
		appointmentHandler,
		referralHandler,
		chatHandler,
		notificationHandler,
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
