package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <owner/repo> [owner/repo ...]",
	Short: "Start tracking repositories",
	Long: `Register repositories for embedding synchronization. New repositories
start in the pending state; the first sync (manual or scheduled)
performs a full backfill.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	c, err := initComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Store.Close()

	for _, arg := range args {
		if _, _, err := parseRepoArg(arg); err != nil {
			return err
		}
		if _, err := c.Store.CreateRepo(arg); err != nil {
			return fmt.Errorf("tracking %s: %w", arg, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tracking %s (pending backfill)\n", arg)
	}

	return nil
}
