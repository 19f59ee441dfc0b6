package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	gogithub "github.com/google/go-github/v60/github"

	"github.com/repovec/repovec/internal/blob"
	"github.com/repovec/repovec/internal/config"
	"github.com/repovec/repovec/internal/github"
	"github.com/repovec/repovec/internal/notify"
	"github.com/repovec/repovec/internal/provider"
	"github.com/repovec/repovec/internal/pubsub"
	"github.com/repovec/repovec/internal/store"
	"github.com/repovec/repovec/internal/syncer"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "repovec",
	Short: "Keep embedding snapshots of GitHub repos in sync",
	Long: `Repovec maintains one compressed embedding artifact per tracked GitHub
repository, covering its open issues and pull requests. It backfills
new repositories, applies incremental updates from a watermark, and
re-embeds only what actually changed.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default %s)", defaultConfigPath()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repovec/config.yaml"
	}
	return home + "/.repovec/config.yaml"
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = defaultConfigPath()
	}
	return config.Load(path)
}

// components holds initialized components for use by subcommands.
type components struct {
	Config *config.Config
	Store  *store.DB
	Blobs  blob.Store
	Broker *pubsub.Broker[syncer.Event]
	Syncer *syncer.Syncer
	Logger *slog.Logger
}

// initComponents creates all components from config.
func initComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*components, error) {
	c := &components{
		Config: cfg,
		Logger: logger,
	}

	db, err := store.Open(expandHome(cfg.Store.Path))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	c.Store = db

	blobs, err := createBlobStore(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	c.Blobs = blobs

	client, err := createGitHubClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	embedder, err := provider.New(provider.Config{
		Type:   cfg.Providers.Embedding.Type,
		Model:  cfg.Providers.Embedding.Model,
		APIKey: cfg.Providers.Embedding.APIKey,
		URL:    cfg.Providers.Embedding.URL,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	c.Broker = pubsub.NewBroker[syncer.Event]()
	c.Syncer = syncer.New(syncer.Deps{
		Store:    db,
		Blobs:    blobs,
		Embedder: embedder,
		Client:   client,
		Broker:   c.Broker,
		Logger:   logger,
	})

	return c, nil
}

// createGitHubClient builds the API client for the configured auth mode.
func createGitHubClient(cfg *config.Config) (*gogithub.Client, error) {
	if cfg.GitHub.Auth == "app" {
		appID, err := strconv.ParseInt(cfg.GitHub.AppID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing app_id: %w", err)
		}
		installID, err := strconv.ParseInt(cfg.GitHub.InstallationID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing installation_id: %w", err)
		}
		client, err := github.NewAppClient(appID, installID, []byte(cfg.GitHub.PrivateKey), expandHome(cfg.GitHub.PrivateKeyPath))
		if err != nil {
			return nil, fmt.Errorf("creating GitHub app client: %w", err)
		}
		return client, nil
	}
	return github.NewTokenClient(cfg.GitHub.Token), nil
}

// createBlobStore builds the artifact store from config.
func createBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.Blob.Type {
	case "s3":
		s3, err := blob.NewS3Store(ctx, blob.S3Config{
			Endpoint:  cfg.Blob.S3.Endpoint,
			AccessKey: cfg.Blob.S3.AccessKey,
			SecretKey: cfg.Blob.S3.SecretKey,
			Bucket:    cfg.Blob.S3.Bucket,
			Region:    cfg.Blob.S3.Region,
			UseSSL:    cfg.Blob.S3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("creating s3 store: %w", err)
		}
		return s3, nil
	default:
		fs, err := blob.NewFSStore(expandHome(cfg.Blob.Dir))
		if err != nil {
			return nil, fmt.Errorf("creating blob directory: %w", err)
		}
		return fs, nil
	}
}

// createNotifier builds a Notifier from config and flag override.
func createNotifier(cfg *config.Config, notifyFlag string) (notify.Notifier, error) {
	notifyType := notifyFlag
	if notifyType == "" {
		notifyType = cfg.Notify.Type
	}
	if notifyType == "" {
		// Determine from config
		hasSlack := cfg.Notify.SlackWebhook != ""
		hasDiscord := cfg.Notify.DiscordWebhook != ""
		switch {
		case hasSlack && hasDiscord:
			notifyType = "both"
		case hasSlack:
			notifyType = "slack"
		case hasDiscord:
			notifyType = "discord"
		default:
			return nil, nil // no notification configured
		}
	}

	return notify.NewNotifier(notifyType, cfg.Notify.SlackWebhook, cfg.Notify.DiscordWebhook)
}
