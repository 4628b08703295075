// ABOUTME: CLI command to reinforce a memory's salience
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewReinforceCmd creates the reinforce command.
func NewReinforceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reinforce <id>",
		Short: "Reinforce a memory: bumps salience and touches last_seen_at",
		Args:  cobra.ExactArgs(1),
		RunE:  runReinforce,
	}
}

func runReinforce(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.Engine.Reinforce(ctx, args[0], userID); err != nil {
		return fmt.Errorf("reinforcing memory: %w", err)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "reinforced %s\n", args[0])
	}
	return nil
}
