// ABOUTME: CLI command to store a memory and/or facts, grounded on the teacher's add.go
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/cortexmem/internal/router"
)

var (
	storeFile  string
	storeTags  []string
	storeType  string
	storeFacts []string
)

// NewStoreCmd creates the store command.
func NewStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store [text]",
		Short: "Store a memory or fact",
		Long: `Store a contextual memory, one or more temporal facts, or both.

Examples:
  memory store "met with Alice about project X"
  memory store --file notes.txt --tags meeting,project-x
  memory store --type factual --fact "alice,works_at,acme"
  memory store --type both "discussed the acme deal" --fact "alice,works_at,acme"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStore,
	}

	cmd.Flags().StringVar(&storeFile, "file", "", "Read memory text from a file")
	cmd.Flags().StringSliceVar(&storeTags, "tags", nil, "Tags for the memory (comma-separated)")
	cmd.Flags().StringVar(&storeType, "type", string(router.StoreContextual), "contextual, factual, or both")
	cmd.Flags().StringSliceVar(&storeFacts, "fact", nil, "subject,predicate,object triple; repeatable")

	return cmd
}

func runStore(cmd *cobra.Command, args []string) error {
	text, err := resolveStoreText(args)
	if err != nil {
		return err
	}

	facts, err := parseFactTriples(storeFacts)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	res, err := a.Engine.Store(ctx, text, router.StoreOptions{
		Type:   router.StoreType(storeType),
		Facts:  facts,
		Tags:   storeTags,
		UserID: userID,
	})
	if err != nil {
		return fmt.Errorf("storing: %w", err)
	}

	if quiet {
		return nil
	}
	if res.Memory != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "stored memory %s (sectors: %v)\n", res.Memory.ID, res.Memory.Sectors)
	}
	if len(res.FactIDs) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "stored %d fact(s): %v\n", len(res.FactIDs), res.FactIDs)
	}
	return nil
}

func resolveStoreText(args []string) (string, error) {
	var text string
	switch {
	case storeFile != "":
		data, err := os.ReadFile(storeFile)
		if err != nil {
			return "", fmt.Errorf("reading file: %w", err)
		}
		text = string(data)
	case len(args) > 0:
		text = args[0]
	case router.StoreType(storeType) != router.StoreFactual:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" && router.StoreType(storeType) != router.StoreFactual {
		return "", fmt.Errorf("no text provided")
	}
	return text, nil
}

func parseFactTriples(triples []string) ([]router.FactInput, error) {
	facts := make([]router.FactInput, 0, len(triples))
	for _, t := range triples {
		parts := strings.SplitN(t, ",", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("--fact must be subject,predicate,object, got %q", t)
		}
		facts = append(facts, router.FactInput{
			Subject:    strings.TrimSpace(parts[0]),
			Predicate:  strings.TrimSpace(parts[1]),
			Object:     strings.TrimSpace(parts[2]),
			Confidence: 1.0,
		})
	}
	return facts, nil
}
