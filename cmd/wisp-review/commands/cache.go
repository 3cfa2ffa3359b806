package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wispbit/wisp-review/internal/reviewcache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the review cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show review cache row counts",
	RunE:  runCacheStats,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every entry from the review cache",
	RunE:  runCachePurge,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}

func openCache() (*reviewcache.Store, error) {
	root, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}
	return reviewcache.Open(resolveCacheDBPath(root))
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return fmt.Errorf("opening review cache: %w", err)
	}
	defer cache.Close()

	stats, err := cache.Stats()
	if err != nil {
		return fmt.Errorf("reading cache stats: %w", err)
	}

	if outputFormat == "json" {
		return outputJSON(stats)
	}

	fmt.Printf("rules:              %d\n", stats.Rules)
	fmt.Printf("reviewed files:     %d\n", stats.ReviewFiles)
	fmt.Printf("cached violations:  %d\n", stats.Violations)
	fmt.Printf("visited files:      %d\n", stats.VisitedFiles)
	return nil
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return fmt.Errorf("opening review cache: %w", err)
	}
	defer cache.Close()

	if err := cache.Purge(); err != nil {
		return fmt.Errorf("purging review cache: %w", err)
	}

	fmt.Println("Review cache purged.")
	return nil
}
