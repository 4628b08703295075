// ABOUTME: CLI command to list memories, grounded on the teacher's list.go
package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/cortexmem/internal/domain"
)

var (
	listSector string
	listLimit  int
	listOffset int
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a page of stored memories",
		Long: `List a user's memories, optionally filtered by sector.

Examples:
  memory list
  memory list --sector episodic --limit 50
  memory list --format json`,
		RunE: runList,
	}

	cmd.Flags().StringVar(&listSector, "sector", "", "Filter by sector (e.g. episodic, semantic, procedural)")
	cmd.Flags().IntVar(&listLimit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&listOffset, "offset", 0, "Page offset")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	memories, err := a.Engine.List(ctx, userID, domain.Sector(listSector), listLimit, listOffset)
	if err != nil {
		return fmt.Errorf("listing memories: %w", err)
	}

	if len(memories) == 0 {
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "no memories found")
		}
		return nil
	}

	if outputFormat == "json" {
		return printJSON(cmd, memories)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tSECTOR\tSALIENCE\tCREATED\tPREVIEW\n")
	fmt.Fprintf(w, "--\t------\t--------\t-------\t-------\n")
	for _, m := range memories {
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%s\t%s\n",
			truncate(m.ID, 12), m.PrimarySector, m.Salience, formatTime(m.CreatedAt), truncate(m.Content, 50))
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\ntotal: %d\n", len(memories))
	}
	return nil
}
