package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repovec/repovec/internal/store"
	"github.com/repovec/repovec/internal/syncer"
)

var syncBackfill bool

var syncCmd = &cobra.Command{
	Use:   "sync [owner/repo ...]",
	Short: "Run one synchronization pass",
	Long: `Synchronize the embedding artifacts of the given repositories. A
repository that has never completed a sync is backfilled; anything else
gets an incremental update from its watermark. Pass --backfill to force
a full re-index.

If no arguments are provided, all repos defined in the config file are
synced.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncBackfill, "backfill", false, "force a full re-index")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	repos, err := resolveRepos(args, cfg.Repos)
	if err != nil {
		return err
	}

	c, err := initComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Store.Close()

	var failed int
	for _, fullName := range repos {
		// Repos named in config may not be registered yet.
		if _, err := c.Store.GetRepo(fullName); errors.Is(err, store.ErrNotFound) {
			if _, err := c.Store.CreateRepo(fullName); err != nil {
				return fmt.Errorf("tracking %s: %w", fullName, err)
			}
		}

		run := c.Syncer.Sync
		if syncBackfill {
			run = c.Syncer.Backfill
		}

		stats, err := run(cmd.Context(), fullName)
		if err != nil {
			if errors.Is(err, syncer.ErrSyncInFlight) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: sync already running, skipped\n", fullName)
				continue
			}
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "%s: sync failed: %v\n", fullName, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d issues embedded, %d pulls embedded, %d reused, %d removed\n",
			fullName, stats.IssuesEmbedded, stats.PullsEmbedded, stats.PullsReused, stats.Deleted)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d repos failed to sync", failed, len(repos))
	}
	return nil
}
