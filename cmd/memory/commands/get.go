// ABOUTME: CLI command to fetch a single memory by id
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var getIncludeVectors bool

// NewGetCmd creates the get command.
func NewGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a single memory by id",
		Args:  cobra.ExactArgs(1),
		RunE:  runGet,
	}
	cmd.Flags().BoolVar(&getIncludeVectors, "include-vectors", false, "Include stored embedding vectors")
	return cmd
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	memory, vectors, err := a.Engine.Get(ctx, args[0], userID, getIncludeVectors)
	if err != nil {
		return fmt.Errorf("getting memory: %w", err)
	}

	if outputFormat == "json" {
		if getIncludeVectors {
			return printJSON(cmd, map[string]interface{}{"memory": memory, "vectors": vectors})
		}
		return printJSON(cmd, memory)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "id:        %s\n", memory.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "sector:    %s (%v)\n", memory.PrimarySector, memory.Sectors)
	fmt.Fprintf(cmd.OutOrStdout(), "salience:  %.3f\n", memory.Salience)
	fmt.Fprintf(cmd.OutOrStdout(), "created:   %s\n", formatTime(memory.CreatedAt))
	fmt.Fprintf(cmd.OutOrStdout(), "last seen: %s\n", formatTime(memory.LastSeenAt))
	fmt.Fprintf(cmd.OutOrStdout(), "tags:      %v\n", memory.Tags)
	fmt.Fprintf(cmd.OutOrStdout(), "content:\n%s\n", memory.Content)
	if getIncludeVectors {
		fmt.Fprintf(cmd.OutOrStdout(), "vectors: %d row(s)\n", len(vectors))
	}
	return nil
}
