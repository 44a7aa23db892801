package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"study-tutor/internal/access"
	"study-tutor/internal/backend"
	"study-tutor/internal/config"
	"study-tutor/internal/logger"
	"study-tutor/internal/scheduler"
	"study-tutor/internal/storage"
	"study-tutor/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	var allowRepo, pendingRepo access.Repository
	if cfg.AllowlistFilePath != "" {
		repo, err := access.NewFileRepository(cfg.AllowlistFilePath)
		if err != nil {
			lg.Warn("failed to init allowlist repo", "path", cfg.AllowlistFilePath, "error", err)
		} else {
			allowRepo = repo
		}
	}
	if cfg.PendingFilePath != "" {
		repo, err := access.NewFileRepository(cfg.PendingFilePath)
		if err != nil {
			lg.Warn("failed to init pending repo", "path", cfg.PendingFilePath, "error", err)
		} else {
			pendingRepo = repo
		}
	}
	accessSvc, err := access.New(allowRepo, pendingRepo, cfg.AllowedUsers)
	if err != nil {
		lg.Fatal("failed to init access", "error", err)
	}

	var rec storage.Recorder = storage.Nop{}
	if cfg.LogFilePath != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			lg.Warn("failed to init file recorder", "path", cfg.LogFilePath, "error", err)
		} else {
			rec = fr
		}
	}

	client, err := backend.New(backend.Config{BaseURL: cfg.BackendBaseURL, Timeout: cfg.BackendTimeout}, lg)
	if err != nil {
		lg.Fatal("failed to create backend client", "error", err)
	}

	bot, err := telegram.New(cfg.TelegramBotToken, client, accessSvc, rec, lg, telegram.Options{
		AdminUserID:    cfg.AdminUserID,
		ParseMode:      cfg.MessageParseMode,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		lg.Fatal("failed to create bot", "error", err)
	}

	sched := scheduler.New(cfg.ReportCron, lg)
	if cfg.AdminUserID != 0 {
		sched.SetReportFunction(bot.SendDailyReport)
	}
	if err := sched.Start(); err != nil {
		lg.Fatal("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg.Info("study tutor bot starting", "backend", client.BaseURL())
	bot.Start(ctx)
	lg.Info("study tutor bot stopped")
}
