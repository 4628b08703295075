// ABOUTME: CLI command to wipe every memory, fact, link, and temporal edge owned by a user
package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var wipeForce bool

// NewWipeCmd creates the wipe command.
func NewWipeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every memory, fact, link, and temporal edge owned by the current user",
		Long: `Wipe removes every memory, vector row, and waypoint membership for
--user, along with every temporal fact, explicit memory link, and temporal
edge that user owns. This is the single dangerous, full multi-tenant erasure
spec §6 groups as one operation, not a memory-only partial wipe.`,
		RunE: runWipe,
	}
	cmd.Flags().BoolVar(&wipeForce, "force", false, "Skip the confirmation prompt")
	return cmd
}

func runWipe(cmd *cobra.Command, args []string) error {
	if !wipeForce {
		fmt.Fprintf(cmd.OutOrStdout(), "This will delete every memory, fact, link, and edge for user %q. Type \"yes\" to continue: ", userID)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "aborted")
			return nil
		}
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result, err := a.Engine.Wipe(ctx, userID)
	if err != nil {
		return fmt.Errorf("wiping user data: %w", err)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d memor(y/ies), %d fact(s), %d link(s), %d edge(s)\n",
			result.Memories, result.Facts, result.Links, result.Edges)
	}
	return nil
}
