// ABOUTME: CLI command that starts the MCP server for LLM agents, grounded on the teacher's mcp.go
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/cortexmem/internal/mcp"
)

// NewMCPCmd creates the mcp command.
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for LLM agents",
		Long: `Runs cortexmem as an MCP (Model Context Protocol) server over stdio,
enabling LLM agents like Claude to store and recall memories directly.

Configure in Claude Desktop's config file to enable memory tools.`,
		RunE: runMCP,
		Example: `  # Start the MCP server (typically invoked by Claude Desktop)
  memory mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "cortexmem": {
  #       "command": "memory",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, cfg, err := newAppWithConfig(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if cfg.Embeddings == "openai" && cfg.OpenAIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set - embeddings will not work")
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.RunBackgroundJobs(runCtx, cfg, time.Hour)

	server := mcpserver.NewMCPServer("cortexmem", "0.1.0")
	mcp.RegisterTools(server, a.Engine)

	if !quiet {
		log.Println("cortexmem MCP server starting on stdio...")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-runCtx.Done():
		if !quiet {
			log.Println("shutdown signal received, closing storage...")
		}
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}
