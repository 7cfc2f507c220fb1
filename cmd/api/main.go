package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/project-tracker-api/internal/admin"
	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/config"
	"github.com/project-tracker-api/internal/database"
	"github.com/project-tracker-api/internal/handler"
	"github.com/project-tracker-api/internal/notify"
	"github.com/project-tracker-api/internal/repository"
	"github.com/project-tracker-api/internal/service"
	"github.com/project-tracker-api/internal/storage"
)

// tokenCleanupInterval - период очистки истёкших отозванных токенов
const tokenCleanupInterval = time.Hour

func main() {
	// Загрузка конфигурации
	cfg := config.Load()

	// Инициализация логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Подключение к БД
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("failed to get sql.DB", slog.Any("error", err))
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Запуск миграций
	if err := database.Migrate(db, cfg.Database.Driver); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.Auth.Secret == "change-me" {
		logger.Warn("JWT_SECRET is not set, using the default secret")
	}

	// Инициализация репозиториев
	userRepo := repository.NewUserRepository(db)
	posteRepo := repository.NewPosteRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	competenceRepo := repository.NewCompetenceRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	revokedRepo := repository.NewRevokedTokenRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	files := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.MaxUploadSize)
	fanout := notify.NewFanout(notificationRepo, logger)
	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)

	// Инициализация сервисов
	activityService := service.NewActivityService(activityRepo, logger)
	authService := service.NewAuthService(userRepo, revokedRepo, tokens, logger)
	userService := service.NewUserService(userRepo, activityService, logger)
	projectService := service.NewProjectService(projectRepo, deptRepo, taskRepo, attachmentRepo, files, activityService, logger)
	taskService := service.NewTaskService(taskRepo, projectRepo, attachmentRepo, files, fanout, activityService, logger)
	dashboardService := service.NewDashboardService(dashboardRepo, projectRepo, taskRepo, userRepo, deptRepo, notificationRepo)

	// Инициализация хендлеров
	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authService, logger),
		Dashboard:     handler.NewDashboardHandler(dashboardService, logger),
		Users:         handler.NewUserHandler(userService, logger),
		Postes:        handler.NewPosteHandler(service.NewPosteService(posteRepo), logger),
		Departments:   handler.NewDepartmentHandler(service.NewDepartmentService(deptRepo, userRepo), logger),
		Sections:      handler.NewSectionHandler(service.NewSectionService(sectionRepo, deptRepo, userRepo), logger),
		Competences:   handler.NewCompetenceHandler(service.NewCompetenceService(competenceRepo), logger),
		Activities:    handler.NewActivityHandler(activityService, logger),
		Projects:      handler.NewProjectHandler(projectService, logger),
		Tasks:         handler.NewTaskHandler(taskService, logger),
		Comments:      handler.NewCommentHandler(service.NewCommentService(commentRepo, taskRepo, fanout), logger),
		Attachments:   handler.NewAttachmentHandler(service.NewAttachmentService(attachmentRepo, taskRepo, files, logger), cfg.Storage.MaxUploadSize, logger),
		Notifications: handler.NewNotificationHandler(service.NewNotificationService(notificationRepo), logger),
	}

	console, err := admin.New(admin.Services{
		Auth:      authService,
		Users:     userService,
		Projects:  projectService,
		Tasks:     taskService,
		Dashboard: dashboardService,
	}, cfg.Auth.AccessTTL, cfg.Auth.SecureCookie, logger)
	if err != nil {
		logger.Error("failed to init admin console", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка роутера
	router := handler.NewRouter(handlers, authService, console.Handler(), logger)
	httpHandler := router.Setup()

	// Настройка HTTP сервера
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go cleanupRevokedTokens(ctx, revokedRepo, logger)

	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("server is shutting down...")
		stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("could not gracefully shutdown the server", slog.Any("error", err))
		}
		close(done)
	}()

	logger.Info("server is starting", slog.String("port", cfg.Server.Port), slog.String("db_driver", cfg.Database.Driver))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("could not listen on port", slog.String("port", cfg.Server.Port), slog.Any("error", err))
		os.Exit(1)
	}

	<-done
	logger.Info("server stopped")
}

// cleanupRevokedTokens периодически удаляет отозванные токены с истёкшим сроком
func cleanupRevokedTokens(ctx context.Context, repo repository.RevokedTokenRepository, logger *slog.Logger) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := repo.Cleanup(ctx, now)
			if err != nil {
				logger.Error("failed to clean up revoked tokens", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				logger.Info("revoked tokens cleaned up", slog.Int64("removed", removed))
			}
		}
	}
}
