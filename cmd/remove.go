package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repovec/repovec/internal/syncer"
)

var removeKeepArtifact bool

var removeCmd = &cobra.Command{
	Use:   "remove <owner/repo>",
	Short: "Stop tracking a repository",
	Long: `Remove a repository from tracking and delete its embedding artifact
from blob storage. Pass --keep-artifact to leave the artifact behind.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVar(&removeKeepArtifact, "keep-artifact", false, "keep the stored artifact")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	if _, _, err := parseRepoArg(args[0]); err != nil {
		return err
	}
	fullName := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	c, err := initComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Store.Close()

	if err := c.Store.DeleteRepo(fullName); err != nil {
		return fmt.Errorf("removing %s: %w", fullName, err)
	}

	if !removeKeepArtifact {
		if err := c.Blobs.Delete(cmd.Context(), syncer.BlobKey(fullName)); err != nil {
			return fmt.Errorf("deleting artifact for %s: %w", fullName, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", fullName)
	return nil
}
