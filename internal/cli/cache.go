package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/jarflow/internal/config"
	"github.com/matzehuels/jarflow/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the descriptor cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached descriptor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Cache.Backend == config.CacheNone {
				printInfo("Cache is disabled")
				return nil
			}
			ctx := cmd.Context()
			store, err := c.cfg.OpenCache(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			clearer, ok := store.(cache.Clearer)
			if !ok {
				return fmt.Errorf("%s cache cannot be cleared", c.cfg.Cache.Backend)
			}
			n, err := clearer.Clear(ctx)
			if err != nil {
				return err
			}

			printSuccess("Cleared %d cached entries", n)
			if c.cfg.Cache.Backend == config.CacheRedis {
				printDetail("Redis: %s", c.cfg.Cache.RedisAddr)
			} else if dir, err := c.cfg.CacheDir(); err == nil {
				printDetail("Directory: %s", dir)
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.cfg.CacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}
