// ABOUTME: Main entry point for the cortexmem MCP stdio tool-server
// ABOUTME: Initializes config, storage, the engine, and background jobs before serving tool calls
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/cortexmem/internal/app"
	"github.com/harper/cortexmem/internal/config"
	"github.com/harper/cortexmem/internal/logging"
	"github.com/harper/cortexmem/internal/mcp"
)

var log = logging.For("server")

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, continuing without it", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if cfg.Embeddings == "openai" && cfg.OpenAIKey == "" {
		log.Warn("OPENAI_API_KEY not set, embeddings will not work")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize app", "err", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	go a.RunBackgroundJobs(ctx, cfg, time.Hour)

	server := mcpserver.NewMCPServer("cortexmem", "0.1.0")
	mcp.RegisterTools(server, a.Engine)

	log.Info("cortexmem MCP server starting on stdio")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, closing storage")
	case err := <-serverErr:
		if err != nil {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}
