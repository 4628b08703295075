// ABOUTME: Root Cobra command and global flags shared by every subcommand
// ABOUTME: Owns the verbose/quiet/format globals the other commands read
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	userID       string
)

const banner = `
 ██████╗ ██████╗ ██████╗ ████████╗███████╗██╗  ██╗███╗   ███╗███████╗███╗   ███╗
██╔════╝██╔═══██╗██╔══██╗╚══██╔══╝██╔════╝╚██╗██╔╝████╗ ████║██╔════╝████╗ ████║
██║     ██║   ██║██████╔╝   ██║   █████╗   ╚███╔╝ ██╔████╔██║█████╗  ██╔████╔██║
██║     ██║   ██║██╔══██╗   ██║   ██╔══╝   ██╔██╗ ██║╚██╔╝██║██╔══╝  ██║╚██╔╝██║
╚██████╗╚██████╔╝██║  ██║   ██║   ███████╗██╔╝ ██╗██║ ╚═╝ ██║███████╗██║ ╚═╝ ██║
 ╚═════╝ ╚═════╝ ╚═╝  ╚═╝   ╚═╝   ╚══════╝╚═╝  ╚═╝╚═╝     ╚═╝╚══════╝╚═╝     ╚═╝
`

// NewRootCmd builds the memory CLI's root command and wires every subcommand.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "A cognitive memory engine for AI agents",
		Long: banner + `
memory is the CLI for cortexmem, a hierarchical semantic graph and temporal
knowledge graph for storing and recalling AI agent context.

Examples:
  memory store "met with Alice about project X"
  memory recall "what did Alice and I discuss"
  memory list --sector episodic
  memory mcp`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table, or json")
	cmd.PersistentFlags().StringVar(&userID, "user", getEnv("CORTEXMEM_USER_ID", "default"), "User id scoping every operation")

	cmd.AddCommand(NewStoreCmd())
	cmd.AddCommand(NewRecallCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewGetCmd())
	cmd.AddCommand(NewReinforceCmd())
	cmd.AddCommand(NewLinkCmd())
	cmd.AddCommand(NewEdgesCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewStatsCmd())
	cmd.AddCommand(NewWipeCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command with os.Args, returning any error.
func Execute() error {
	return NewRootCmd().Execute()
}
