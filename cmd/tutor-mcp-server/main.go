package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"study-tutor/internal/backend"
	"study-tutor/internal/config"
	"study-tutor/internal/logger"
	"study-tutor/internal/tutormcp"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.NewBackend()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// zap writes to stderr, stdout belongs to the MCP transport
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	client, err := backend.New(backend.Config{BaseURL: cfg.BackendBaseURL, Timeout: cfg.BackendTimeout}, lg)
	if err != nil {
		lg.Fatal("failed to create backend client", "error", err)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "study-tutor-mcp",
		Version: "1.0.0",
	}, nil)
	tutormcp.New(client, lg).Register(server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg.Info("starting MCP server on stdin/stdout", "backend", client.BaseURL())
	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil && ctx.Err() == nil {
		lg.Fatal("server failed", "error", err)
	}
}
