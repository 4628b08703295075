// ABOUTME: CLI command for temporal fact edges (C5 get_related_facts), grounded on link.go's shape
package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewEdgesCmd creates the edges command and its relate/unrelate/related subcommands.
func NewEdgesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edges",
		Short: "Manage typed temporal edges between facts",
	}
	cmd.AddCommand(newEdgesRelateCmd())
	cmd.AddCommand(newEdgesUnrelateCmd())
	cmd.AddCommand(newEdgesRelatedCmd())
	return cmd
}

func newEdgesRelateCmd() *cobra.Command {
	var weight float64
	c := &cobra.Command{
		Use:   "relate <source-fact-id> <relation> <target-fact-id>",
		Short: "Assert a weighted typed edge from one fact to another",
		Long: `Re-asserting the same (source, relation, target) accumulates weight
rather than overwriting it.

Example:
  memory edges relate fact_123 supersedes fact_456`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Engine.RelateFacts(ctx, args[0], args[2], args[1], userID, weight); err != nil {
				return fmt.Errorf("relating facts: %w", err)
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "related %s -%s-> %s\n", args[0], args[1], args[2])
			}
			return nil
		},
	}
	c.Flags().Float64Var(&weight, "weight", 1.0, "Edge weight to add")
	return c
}

func newEdgesUnrelateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unrelate <source-fact-id> <relation> <target-fact-id>",
		Short: "Remove a previously-asserted temporal edge",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Engine.UnrelateFacts(ctx, args[0], args[2], args[1], userID); err != nil {
				return fmt.Errorf("unrelating facts: %w", err)
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "unrelated %s -%s-> %s\n", args[0], args[1], args[2])
			}
			return nil
		},
	}
}

func newEdgesRelatedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "related <fact-id>",
		Short: "List facts reachable from a fact via a temporal edge, in either direction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			facts, err := a.Engine.RelatedFacts(ctx, args[0], userID)
			if err != nil {
				return fmt.Errorf("listing related facts: %w", err)
			}
			if outputFormat == "json" {
				return printJSON(cmd, facts)
			}
			for _, f := range facts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s %s %s (confidence=%s)\n",
					f.ID, f.Subject, f.Predicate, f.Object, strconv.FormatFloat(f.Confidence, 'f', 2, 64))
			}
			return nil
		},
	}
}
