package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/onnyvergiean/basic-banking-system/internal/adapter/handler"
	"github.com/onnyvergiean/basic-banking-system/internal/adapter/middleware"
	"github.com/onnyvergiean/basic-banking-system/internal/adapter/storage"
	"github.com/onnyvergiean/basic-banking-system/internal/core/config"
	"github.com/onnyvergiean/basic-banking-system/internal/core/notifications"
	"github.com/onnyvergiean/basic-banking-system/internal/core/transfer"
	"github.com/onnyvergiean/basic-banking-system/internal/core/worker"
)

func main() {
	cfg := config.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	dbPool, err := storage.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("❌ Database connection failed", "error", err)
		os.Exit(1)
	}

	if err := storage.Migrate(cfg.DatabaseURL); err != nil {
		slog.Error("❌ Database migration failed", "error", err)
		os.Exit(1)
	}

	userRepo := storage.NewUserRepository(dbPool)
	accountRepo := storage.NewAccountRepository(dbPool)
	transactionRepo := storage.NewTransactionRepository(dbPool)
	outboxRepo := storage.NewOutboxRepository(dbPool)

	engine := transfer.NewEngine(accountRepo)

	authHandler := &handler.AuthHandler{
		Users:     userRepo,
		Mail:      outboxRepo,
		JWTSecret: cfg.JWTSecret,
		BaseURL:   cfg.BaseURL,
	}
	userHandler := &handler.UserHandler{Users: userRepo, MediaDir: cfg.MediaDir}
	accountHandler := &handler.AccountHandler{Accounts: accountRepo, Users: userRepo}
	transactionHandler := &handler.TransactionHandler{Engine: engine, Repo: transactionRepo}
	mediaHandler := &handler.MediaHandler{MediaDir: cfg.MediaDir}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	for _, sub := range []string{"images", "videos", "files"} {
		if err := os.MkdirAll(filepath.Join(cfg.MediaDir, sub), 0o755); err != nil {
			slog.Error("❌ Media directory setup failed", "error", err, "dir", sub)
			os.Exit(1)
		}
	}

	app.Use(cors.New())
	app.Static("/images", cfg.MediaDir+"/images")
	app.Static("/videos", cfg.MediaDir+"/videos")
	app.Static("/files", cfg.MediaDir+"/files")

	api := app.Group("/v1")

	// Public
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)
	api.Post("/auth/forgot-password", authHandler.ForgotPassword)
	api.Post("/auth/reset-password", authHandler.ResetPassword)

	api.Post("/users", userHandler.CreateUser)
	api.Get("/users", userHandler.GetUsers)

	api.Post("/transactions", transactionHandler.CreateTransaction)
	api.Get("/transactions", transactionHandler.GetTransactions)
	api.Get("/transactions/:id", transactionHandler.GetDetailTransaction)

	api.Post("/accounts/:id", accountHandler.CreateAccount)
	api.Get("/accounts/:id", accountHandler.GetAccounts)
	api.Get("/accounts/:id/:accountId", accountHandler.GetDetailAccount)

	api.Post("/qrcode", mediaHandler.GenerateQRCode)

	// Protected
	private := api.Use(middleware.Protected(cfg.JWTSecret))
	private.Get("/auth/whoami", authHandler.Whoami)
	private.Get("/users/:id", userHandler.GetUserByID)
	private.Put("/users/:id", userHandler.UpdateUser)
	private.Delete("/users/:id", userHandler.DeleteUser)
	private.Put("/profile", userHandler.UpdateProfile)
	private.Delete("/profile/image", userHandler.DeleteProfileImage)
	private.Post("/images", mediaHandler.UploadImage)
	private.Post("/videos", mediaHandler.UploadVideo)
	private.Post("/documents", mediaHandler.UploadDocument)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	mailer, err := notifications.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	if err != nil {
		slog.Error("❌ Mailer setup failed", "error", err)
		os.Exit(1)
	}
	worker.StartMailWorker(workerCtx, dbPool, mailer)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("🚀 Server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}()

	<-stop
	slog.Info("🛑 Shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	stopWorker()
	dbPool.Close()
	slog.Info("✅ Database connection closed")

	slog.Info("👋 Server exited successfully")
}
