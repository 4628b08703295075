// ABOUTME: CLI command for explicit memory links, grounded on rcliao's internal/store/link.go
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/cortexmem/internal/domain"
)

// NewLinkCmd creates the link command and its add/remove/list subcommands.
func NewLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Manage explicit typed relations between memories",
	}
	cmd.AddCommand(newLinkAddCmd())
	cmd.AddCommand(newLinkRemoveCmd())
	cmd.AddCommand(newLinkListCmd())
	return cmd
}

func newLinkAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <from-id> <relation> <to-id>",
		Short: "Assert a typed relation from one memory to another",
		Long: `Relation must be one of: relates_to, contradicts, depends_on, refines.

Example:
  memory link add mem_123 contradicts mem_456`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Engine.Link(ctx, args[0], args[2], domain.LinkRelation(args[1]), userID); err != nil {
				return fmt.Errorf("adding link: %w", err)
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "linked %s -%s-> %s\n", args[0], args[1], args[2])
			}
			return nil
		},
	}
}

func newLinkRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <from-id> <relation> <to-id>",
		Short: "Remove a previously-asserted relation",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Engine.Unlink(ctx, args[0], args[2], domain.LinkRelation(args[1]), userID); err != nil {
				return fmt.Errorf("removing link: %w", err)
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "unlinked %s -%s-> %s\n", args[0], args[1], args[2])
			}
			return nil
		},
	}
}

func newLinkListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <memory-id>",
		Short: "List every relation originating at a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			links, err := a.Engine.Links(ctx, args[0], userID)
			if err != nil {
				return fmt.Errorf("listing links: %w", err)
			}
			if outputFormat == "json" {
				return printJSON(cmd, links)
			}
			for _, l := range links {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -%s-> %s\n", l.FromID, l.Relation, l.ToID)
			}
			return nil
		},
	}
}
