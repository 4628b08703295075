// ABOUTME: CLI command to recall memories and/or facts, grounded on the teacher's search.go
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/cortexmem/internal/router"
)

var (
	recallType      string
	recallLimit     int
	recallSubject   string
	recallPredicate string
	recallObject    string
)

// NewRecallCmd creates the recall command.
func NewRecallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Recall memories and/or facts",
		Long: `Recall contextual memories by semantic similarity, factual triples by
pattern, or both.

Examples:
  memory recall "what did Alice and I discuss"
  memory recall --type factual --subject alice
  memory recall --limit 10 --format json "project timeline"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRecall,
	}

	cmd.Flags().StringVar(&recallType, "type", string(router.TypeUnified), "contextual, factual, or unified")
	cmd.Flags().IntVar(&recallLimit, "limit", 5, "Maximum contextual hits to return")
	cmd.Flags().StringVar(&recallSubject, "subject", "", "Fact pattern subject")
	cmd.Flags().StringVar(&recallPredicate, "predicate", "", "Fact pattern predicate")
	cmd.Flags().StringVar(&recallObject, "object", "", "Fact pattern object")

	return cmd
}

func runRecall(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(recallLimit, "limit"); err != nil {
		return err
	}

	var query string
	if len(args) > 0 {
		query = args[0]
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	res, err := a.Engine.Recall(ctx, query, router.RecallOptions{
		Type: router.QueryType(recallType),
		FactPattern: router.FactPattern{
			Subject:   recallSubject,
			Predicate: recallPredicate,
			Object:    recallObject,
		},
		K:      recallLimit,
		UserID: userID,
	})
	if err != nil {
		return fmt.Errorf("recalling: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(cmd, res)
	}
	return printRecallTable(cmd, res)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
	return nil
}

func printRecallTable(cmd *cobra.Command, res *router.RecallResult) error {
	if res.Contextual != nil {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "SCORE\tSECTOR\tID\tPREVIEW\n")
		fmt.Fprintf(w, "-----\t------\t--\t-------\n")
		for _, hit := range res.Contextual.Hits {
			fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n", hit.Score, hit.Sector, truncate(hit.ID, 12), truncate(hit.Content, 60))
		}
		w.Flush()
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "%d memory hit(s)", len(res.Contextual.Hits))
			if res.Contextual.Degraded {
				fmt.Fprint(cmd.OutOrStdout(), " (degraded recall)")
			}
			fmt.Fprintln(cmd.OutOrStdout())
		}
	}

	if res.Factual != nil {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "SUBJECT\tPREDICATE\tOBJECT\tCONFIDENCE\n")
		fmt.Fprintf(w, "-------\t---------\t------\t----------\n")
		for _, f := range res.Factual {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n", f.Subject, f.Predicate, f.Object, f.Confidence)
		}
		w.Flush()
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "%d fact(s)\n", len(res.Factual))
		}
	}

	if res.Contextual == nil && res.Factual == nil && !quiet {
		fmt.Fprintln(cmd.OutOrStdout(), "no results")
	}
	return nil
}
