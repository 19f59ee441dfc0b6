// Package syncer orchestrates one synchronization pass for a tracked
// repository: fetch changed items, merge them into the previous
// embedding artifact, and write the result back to blob storage.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v60/github"

	"github.com/repovec/repovec/internal/blob"
	"github.com/repovec/repovec/internal/codec"
	"github.com/repovec/repovec/internal/github"
	"github.com/repovec/repovec/internal/metrics"
	"github.com/repovec/repovec/internal/provider"
	"github.com/repovec/repovec/internal/pubsub"
	"github.com/repovec/repovec/internal/store"
	"github.com/repovec/repovec/internal/vector"
)

// ErrSyncInFlight is returned when a sync for the repository is already
// running. Callers should retry later rather than treat it as a failure.
var ErrSyncInFlight = errors.New("sync already in flight")

// ErrInvalidRepoName is returned for repository names that are not of
// the form "owner/repo".
var ErrInvalidRepoName = errors.New("invalid repository name")

// Mode names which kind of pass ran.
type Mode string

const (
	ModeBackfill    Mode = "backfill"
	ModeIncremental Mode = "incremental"
)

// Event is published after every completed pass, successful or not.
type Event struct {
	Repo    string
	Mode    Mode
	Stats   vector.Stats
	Elapsed time.Duration
	Err     error
}

// Fetcher lists the changed items of one repository. It is satisfied
// by *github.Fetcher and can be replaced with a mock for testing.
type Fetcher interface {
	Issues(ctx context.Context, since time.Time) ([]github.Issue, error)
	PullRequests(ctx context.Context, since time.Time) ([]github.PullRequest, error)
}

// Deps holds the dependencies for the Syncer.
type Deps struct {
	Store    store.Store
	Blobs    blob.Store
	Embedder provider.BatchEmbedder
	Client   *gogithub.Client
	Broker   *pubsub.Broker[Event]
	Logger   *slog.Logger

	// NewFetcher overrides fetcher construction; when nil, fetchers
	// are built from Client.
	NewFetcher func(owner, repo string) Fetcher
}

// Syncer runs backfill and incremental passes over tracked repositories.
type Syncer struct {
	deps Deps
}

// New creates a new Syncer with the given dependencies.
func New(deps Deps) *Syncer {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.NewFetcher == nil {
		deps.NewFetcher = func(owner, repo string) Fetcher {
			return github.NewFetcher(deps.Client, owner, repo, deps.Logger)
		}
	}
	return &Syncer{deps: deps}
}

// Sync runs one pass for the repository. A repository that has never
// completed a sync gets a full backfill; anything else gets an
// incremental update from its watermark. Scheduled and manual triggers
// both land here.
func (s *Syncer) Sync(ctx context.Context, fullName string) (vector.Stats, error) {
	return s.run(ctx, fullName, false)
}

// Backfill re-indexes the repository from scratch, discarding the
// previous artifact and the watermark.
func (s *Syncer) Backfill(ctx context.Context, fullName string) (vector.Stats, error) {
	return s.run(ctx, fullName, true)
}

func (s *Syncer) run(ctx context.Context, fullName string, force bool) (vector.Stats, error) {
	owner, name, err := splitRepo(fullName)
	if err != nil {
		return vector.Stats{}, err
	}

	repo, err := s.deps.Store.GetRepo(fullName)
	if err != nil {
		return vector.Stats{}, fmt.Errorf("looking up %s: %w", fullName, err)
	}

	backfill := force || repo.LastSyncAt == 0
	mode := ModeIncremental
	target := store.StatusSyncing
	if backfill {
		mode = ModeBackfill
		target = store.StatusBackfilling
	}

	now := time.Now().UTC()
	ok, err := s.deps.Store.BeginSync(fullName, target, now)
	if err != nil {
		return vector.Stats{}, fmt.Errorf("claiming %s: %w", fullName, err)
	}
	if !ok {
		return vector.Stats{}, fmt.Errorf("%s: %w", fullName, ErrSyncInFlight)
	}

	logger := s.deps.Logger.With("repo", fullName, "mode", string(mode))
	logger.Info("sync started")

	start := time.Now()
	stats, err := s.pass(ctx, owner, name, fullName, repo, backfill, logger)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "failure"
		// The watermark is untouched on failure so the next pass
		// re-covers the same window.
		if failErr := s.deps.Store.FailSync(fullName, err.Error(), time.Now().UTC()); failErr != nil {
			logger.Error("recording sync failure", "error", failErr)
		}
		logger.Error("sync failed", "error", err, "duration", elapsed)
	} else {
		logger.Info("sync finished",
			"issues_embedded", stats.IssuesEmbedded,
			"pulls_embedded", stats.PullsEmbedded,
			"pulls_reused", stats.PullsReused,
			"deleted", stats.Deleted,
			"duration", elapsed,
		)
	}

	metrics.RecordSync(string(mode), outcome, elapsed)

	if s.deps.Broker != nil {
		s.deps.Broker.Publish(Event{
			Repo:    fullName,
			Mode:    mode,
			Stats:   stats,
			Elapsed: elapsed,
			Err:     err,
		})
	}

	return stats, err
}

// pass does the fetch-merge-store cycle. The caller owns the lifecycle
// transitions around it; pass records success itself because the
// watermark and the artifact must advance together.
func (s *Syncer) pass(ctx context.Context, owner, name, fullName string, repo *store.Repo, backfill bool, logger *slog.Logger) (vector.Stats, error) {
	var since time.Time
	if !backfill {
		since = time.Unix(repo.LastSyncAt, 0).UTC()
	}

	fetcher := s.deps.NewFetcher(owner, name)

	issues, err := fetcher.Issues(ctx, since)
	if err != nil {
		return vector.Stats{}, fmt.Errorf("fetching issues: %w", err)
	}
	pulls, err := fetcher.PullRequests(ctx, since)
	if err != nil {
		return vector.Stats{}, fmt.Errorf("fetching pull requests: %w", err)
	}
	logger.Debug("fetched changed items", "issues", len(issues), "pulls", len(pulls))

	prev := vector.NewObject(fullName)
	if !backfill {
		prev, err = s.loadArtifact(ctx, fullName)
		if err != nil {
			return vector.Stats{}, err
		}
	}

	now := time.Now().UTC()
	next, stats, err := vector.Merge(ctx, prev, fullName, issues, pulls, s.deps.Embedder, now)
	if err != nil {
		return vector.Stats{}, fmt.Errorf("merging: %w", err)
	}
	metrics.RecordMerge(stats.IssuesEmbedded, stats.PullsEmbedded, stats.PullsReused, stats.Deleted)

	text, err := next.Encode()
	if err != nil {
		return vector.Stats{}, fmt.Errorf("encoding artifact: %w", err)
	}
	data, err := codec.Compress(text)
	if err != nil {
		return vector.Stats{}, fmt.Errorf("compressing artifact: %w", err)
	}
	if err := s.deps.Blobs.Put(ctx, BlobKey(fullName), data, codec.ContentType); err != nil {
		return vector.Stats{}, fmt.Errorf("storing artifact: %w", err)
	}

	if err := s.deps.Store.FinishSync(fullName, next.SyncedAt, time.Now().UTC()); err != nil {
		return vector.Stats{}, fmt.Errorf("recording sync: %w", err)
	}
	return stats, nil
}

// loadArtifact reads and decodes the previous artifact. A missing blob
// yields an empty object so a repository whose artifact was removed out
// of band recovers on the next pass.
func (s *Syncer) loadArtifact(ctx context.Context, fullName string) (vector.Object, error) {
	data, found, err := s.deps.Blobs.Get(ctx, BlobKey(fullName))
	if err != nil {
		return vector.Object{}, fmt.Errorf("loading artifact: %w", err)
	}
	if !found {
		return vector.NewObject(fullName), nil
	}
	text, err := codec.Decompress(data)
	if err != nil {
		return vector.Object{}, fmt.Errorf("decompressing artifact: %w", err)
	}
	obj, err := vector.Decode(text)
	if err != nil {
		return vector.Object{}, fmt.Errorf("decoding artifact: %w", err)
	}
	return obj, nil
}

// BlobKey returns the storage key of a repository's artifact.
func BlobKey(fullName string) string {
	return fullName + ".json.gz"
}

func splitRepo(fullName string) (owner, name string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q (want owner/repo)", ErrInvalidRepoName, fullName)
	}
	return parts[0], parts[1], nil
}
