package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ppiankov/truescope/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the enrichment cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [url...]",
	Short: "Drop cached page metadata",
	Long: `Remove entries from the on-disk enrichment cache (enrich.cache.dir).
With URLs, only those entries are removed; without, the whole cache is cleared.
The in-memory layer belongs to a running server and is not affected.

Example:
  truescope cache clear
  truescope cache clear https://example.com/story`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Enrich.Cache.Dir == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Enrichment cache is in memory only; nothing to clear")
			return nil
		}
		return clearCache(cmd.OutOrStdout(), cache.NewDiskCache(cfg.Enrich.Cache.Dir, cfg.Enrich.Cache.TTL), args)
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// clearCache deletes urls from c, or everything when urls is empty
func clearCache(out io.Writer, c cache.Cache, urls []string) error {
	if len(urls) == 0 {
		if err := c.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintln(out, "✓ Cleared enrichment cache")
		return nil
	}

	var errs []error
	for _, u := range urls {
		if err := c.Delete(u); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", u, err))
			continue
		}
		fmt.Fprintf(out, "✓ Removed %s\n", u)
	}
	return errors.Join(errs...)
}
