package cmd

import (
	"fmt"
	"time"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/config"
	"github.com/theirongolddev/gwlens/internal/store"

	"github.com/spf13/cobra"
)

var flagPurgeOlderThan time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the local snapshot cache",
	RunE:  runCacheStats,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached snapshots",
	RunE:  runCachePurge,
}

func init() {
	cachePurgeCmd.Flags().DurationVar(&flagPurgeOlderThan, "older-than", 0, "Only delete entries older than this (0 deletes everything)")
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(_ *cobra.Command, _ []string) error {
	cache, err := store.Open(config.CachePath())
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	st, err := cache.Stats()
	if err != nil {
		return err
	}

	now := time.Now()
	fmt.Printf("  Cache file: %s\n", config.CachePath())
	fmt.Printf("  Enabled:    %v (ttl %ds)\n", appCfg.Cache.Enabled, appCfg.Cache.TTLSec)
	fmt.Printf("  Entries:    %s\n", cli.FormatNumber(int64(st.Entries)))
	fmt.Printf("  Payloads:   %s bytes\n", cli.FormatNumber(st.Bytes))
	if st.Entries > 0 {
		fmt.Printf("  Oldest:     %s\n", cli.FormatAge(st.Oldest, now))
		fmt.Printf("  Newest:     %s\n", cli.FormatAge(st.Newest, now))
	}
	return nil
}

func runCachePurge(_ *cobra.Command, _ []string) error {
	cache, err := store.Open(config.CachePath())
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	n, err := cache.Purge(flagPurgeOlderThan)
	if err != nil {
		return err
	}
	fmt.Printf("  Removed %d cached snapshots\n", n)
	return nil
}
