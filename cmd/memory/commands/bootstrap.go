// ABOUTME: Shared app bootstrap for CLI subcommands, mirroring the teacher's per-command storage.NewStorage() calls
package commands

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/harper/cortexmem/internal/app"
	"github.com/harper/cortexmem/internal/config"
)

// newApp loads .env and config, then boots the full engine. Every command
// that touches storage calls this exactly once and defers a.Close().
func newApp(ctx context.Context) (*app.App, error) {
	a, _, err := newAppWithConfig(ctx)
	return a, err
}

// newAppWithConfig is newApp plus the loaded config, for commands (mcp) that
// also need it directly (e.g. to start background jobs).
func newAppWithConfig(ctx context.Context) (*app.App, *config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, cfg, nil
}
