// ABOUTME: CLI command to show engine statistics, grounded on rcliao's internal/cli/stats.go
package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show engine-wide operator statistics",
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	st, err := a.Stats(ctx)
	if err != nil {
		return fmt.Errorf("computing stats: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(cmd, st)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "db path:        %s\n", st.DBPath)
	fmt.Fprintf(cmd.OutOrStdout(), "db size:        %d bytes\n", st.DBSizeBytes)
	fmt.Fprintf(cmd.OutOrStdout(), "total memories: %d\n", st.TotalMemories)
	fmt.Fprintf(cmd.OutOrStdout(), "total facts:    %d (%d open)\n", st.TotalFacts, st.OpenFacts)

	if len(st.Sectors) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "\nmemories by sector:")
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, s := range st.Sectors {
			fmt.Fprintf(w, "  %s\t%d\n", s.Sector, s.Count)
		}
		w.Flush()
	}

	if len(st.JobsByStatus) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "\ncoactivation jobs by status:")
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for status, count := range st.JobsByStatus {
			fmt.Fprintf(w, "  %s\t%d\n", status, count)
		}
		w.Flush()
	}
	return nil
}
