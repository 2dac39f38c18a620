package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/truescope/internal/logging"
	"github.com/ppiankov/truescope/internal/model"
	"github.com/ppiankov/truescope/internal/worker"
)

var (
	importAs          string
	importRole        string
	importConcurrency int
	importTimeout     time.Duration
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Create claims in bulk from a file",
	Long: `Import reads one claim per line and creates each one as the given identity:
- Lines starting with # and blank lines are skipped
- Duplicate lines are imported once
- Absolute http(s) URLs become url claims, anything else a text claim
- An optional tab-separated, comma-separated tag list may follow the claim

URL claims are enriched exactly as through the API.

Example:
  truescope import claims.txt --as editor-1
  truescope import claims.txt --as editor-1 --concurrency 8 --db claims.db`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importAs, "as", "", "identity id recorded as submittedBy (required)")
	importCmd.Flags().StringVar(&importRole, "role", string(model.RoleUser), "role of the importing identity")
	importCmd.Flags().IntVar(&importConcurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	importCmd.Flags().DurationVar(&importTimeout, "timeout", 10*time.Minute, "total timeout for the import")
	_ = importCmd.MarkFlagRequired("as")
}

func runImport(cmd *cobra.Command, args []string) error {
	actor := &model.Identity{ID: importAs, Role: model.Role(importRole)}
	if actor.ID == "" {
		return fmt.Errorf("--as must not be empty")
	}
	if !actor.Role.Valid() {
		return fmt.Errorf("unknown role %q", importRole)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	entries, err := worker.ReadEntriesFromFile(args[0])
	if err != nil {
		return fmt.Errorf("read claims: %w", err)
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), importTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Importing %d claims from %s as %s (%d workers)\n\n",
		len(entries), args[0], actor.ID, importConcurrency)

	results := worker.NewImportProcessor(a.claims, actor, importConcurrency).Process(ctx, entries)

	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "✗ line %d: %v\n", r.Entry.Line, r.Err)
			continue
		}
		fmt.Fprintf(out, "✓ line %d: %s (%s)\n", r.Entry.Line, r.Claim.ID, r.Claim.Kind)
	}

	created, failed := worker.Summarize(results)
	fmt.Fprintf(out, "\nCreated: %d  Failed: %d\n", created, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d claims failed", failed, len(results))
	}
	return nil
}
