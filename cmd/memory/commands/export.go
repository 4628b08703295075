// ABOUTME: CLI command to export a user's memories and facts, grounded on internal/storage/sqlite/export.go
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harper/cortexmem/internal/store/sqlite"
)

var exportOut string

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every memory and every currently active fact owned by the current user",
		RunE:  runExport,
	}
	cmd.Flags().StringVar(&exportOut, "out", "", "Write to a file instead of stdout")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	data, err := a.Export(ctx, userID)
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}

	var out []byte
	if outputFormat == "json" {
		return printOrWriteJSON(cmd, data)
	}
	out, err = sqlite.ExportYAML(data)
	if err != nil {
		return fmt.Errorf("rendering export: %w", err)
	}

	if exportOut != "" {
		return os.WriteFile(exportOut, out, 0o644)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func printOrWriteJSON(cmd *cobra.Command, v interface{}) error {
	if exportOut == "" {
		return printJSON(cmd, v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(exportOut, data, 0o644)
}
