package store

import "time"

// Store defines the metadata operations used by the sync orchestrator.
// It is satisfied by *DB and can be replaced with a mock for testing.
type Store interface {
	// GetRepo retrieves a repository record by full name.
	GetRepo(fullName string) (*Repo, error)

	// CreateRepo inserts a new record in the pending state.
	CreateRepo(fullName string) (*Repo, error)

	// ListRepos returns all tracked repositories.
	ListRepos() ([]Repo, error)

	// DeleteRepo removes a repository record.
	DeleteRepo(fullName string) error

	// BeginSync compare-and-swaps the repository into an in-flight
	// status; false means a sync is already running.
	BeginSync(fullName string, target Status, now time.Time) (bool, error)

	// FinishSync records success and advances the watermark.
	FinishSync(fullName string, syncedAt int64, now time.Time) error

	// FailSync records failure with a diagnostic message.
	FailSync(fullName, message string, now time.Time) error

	// ResetStale flips interrupted in-flight syncs to error.
	ResetStale(olderThan, now time.Time) (int64, error)
}

// Compile-time check that *DB satisfies the Store interface.
var _ Store = (*DB)(nil)
