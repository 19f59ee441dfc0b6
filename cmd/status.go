package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/repovec/repovec/internal/notify"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracked repositories and their sync state",
	Long: `Display the lifecycle state, watermark and last error of every tracked
repository, plus the size of the metadata database.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	repos, err := c.Store.ListRepos()
	if err != nil {
		return fmt.Errorf("listing repos: %w", err)
	}

	if len(repos) == 0 {
		fmt.Println("No repositories tracked yet.")
		fmt.Println("Run 'repovec add <owner/repo>' to get started.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REPOSITORY\tSTATUS\tLAST SYNC\tERROR")
	fmt.Fprintln(w, "----------\t------\t---------\t-----")

	for _, r := range repos {
		lastSync := "never"
		if r.LastSyncAt > 0 {
			lastSync = notify.TimeAgo(time.Unix(r.LastSyncAt, 0))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.FullName, r.Status, lastSync, r.ErrorMessage)
	}
	w.Flush()

	fmt.Println()
	dbPath := expandHome(cfg.Store.Path)
	dbSize, err := dbFileSize(dbPath)
	if err != nil {
		fmt.Printf("Database: %s (size unknown)\n", dbPath)
	} else {
		fmt.Printf("Database: %s (%s)\n", dbPath, formatBytes(dbSize))
	}

	return nil
}

// formatBytes formats bytes into a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// dbFileSize returns the size in bytes of the database file.
func dbFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
