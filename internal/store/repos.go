package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when the requested repository is not tracked.
var ErrNotFound = errors.New("repository not tracked")

// Status is the lifecycle state of a tracked repository.
type Status string

const (
	StatusPending     Status = "pending"     // created, never synced
	StatusBackfilling Status = "backfilling" // first full indexing in progress
	StatusActive      Status = "active"      // last operation succeeded
	StatusSyncing     Status = "syncing"     // incremental update in progress
	StatusError       Status = "error"       // last operation failed
)

// InFlight reports whether a sync is currently recorded as running.
func (s Status) InFlight() bool {
	return s == StatusBackfilling || s == StatusSyncing
}

// Repo is the metadata record for one tracked repository.
type Repo struct {
	ID           int64
	FullName     string // "owner/repo", unique
	Status       Status
	LastSyncAt   int64 // Unix seconds; 0 = never synced
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const repoColumns = `id, full_name, status, last_sync_at, error_message, created_at, updated_at`

// CreateRepo inserts a new repository record in the pending state.
func (d *DB) CreateRepo(fullName string) (*Repo, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := d.db.Exec(
		`INSERT INTO repos (full_name, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		fullName, StatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating repo %s: %w", fullName, err)
	}
	return d.GetRepo(fullName)
}

// GetRepo retrieves a repository by full name.
func (d *DB) GetRepo(fullName string) (*Repo, error) {
	row := d.db.QueryRow(`SELECT `+repoColumns+` FROM repos WHERE full_name = ?`, fullName)
	r, err := scanRepo(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fullName)
		}
		return nil, fmt.Errorf("getting repo %s: %w", fullName, err)
	}
	return r, nil
}

// ListRepos returns all tracked repositories ordered by full name.
func (d *DB) ListRepos() ([]Repo, error) {
	rows, err := d.db.Query(`SELECT ` + repoColumns + ` FROM repos ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("listing repos: %w", err)
	}
	defer rows.Close()

	var repos []Repo
	for rows.Next() {
		r, err := scanRepo(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning repo: %w", err)
		}
		repos = append(repos, *r)
	}
	return repos, rows.Err()
}

// DeleteRepo removes a repository record.
func (d *DB) DeleteRepo(fullName string) error {
	res, err := d.db.Exec(`DELETE FROM repos WHERE full_name = ?`, fullName)
	if err != nil {
		return fmt.Errorf("deleting repo %s: %w", fullName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting repo %s: %w", fullName, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, fullName)
	}
	return nil
}

// BeginSync atomically transitions a repository into the given in-flight
// status (backfilling or syncing). It returns false without modifying
// anything if a sync is already recorded as in flight, which is the
// gate that keeps concurrent orchestrators from duplicating work.
//
// The transition is persisted before any fetch begins, so a crash
// mid-sync leaves the in-flight status visible for later recovery.
func (d *DB) BeginSync(fullName string, target Status, now time.Time) (bool, error) {
	if !target.InFlight() {
		return false, fmt.Errorf("invalid sync target status %q", target)
	}

	res, err := d.db.Exec(
		`UPDATE repos SET status = ?, error_message = NULL, updated_at = ?
		 WHERE full_name = ? AND status NOT IN (?, ?)`,
		target, now.UTC().Format(time.RFC3339), fullName, StatusBackfilling, StatusSyncing,
	)
	if err != nil {
		return false, fmt.Errorf("beginning sync for %s: %w", fullName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("beginning sync for %s: %w", fullName, err)
	}
	return n > 0, nil
}

// FinishSync records a successful sync: status becomes active, the
// error message is cleared and the watermark advances. The watermark
// never moves backward.
func (d *DB) FinishSync(fullName string, syncedAt int64, now time.Time) error {
	_, err := d.db.Exec(
		`UPDATE repos SET status = ?, last_sync_at = MAX(last_sync_at, ?), error_message = NULL, updated_at = ?
		 WHERE full_name = ?`,
		StatusActive, syncedAt, now.UTC().Format(time.RFC3339), fullName,
	)
	if err != nil {
		return fmt.Errorf("finishing sync for %s: %w", fullName, err)
	}
	return nil
}

// FailSync records a failed sync: status becomes error with a
// diagnostic message. The watermark is left untouched so the next
// attempt re-fetches the failed window.
func (d *DB) FailSync(fullName, message string, now time.Time) error {
	_, err := d.db.Exec(
		`UPDATE repos SET status = ?, error_message = ?, updated_at = ? WHERE full_name = ?`,
		StatusError, message, now.UTC().Format(time.RFC3339), fullName,
	)
	if err != nil {
		return fmt.Errorf("failing sync for %s: %w", fullName, err)
	}
	return nil
}

// ResetStale flips repositories stuck in an in-flight status (crash
// evidence: the process died between BeginSync and the terminal write)
// to error once their record has not been touched since olderThan.
// Returns the number of repositories reset.
func (d *DB) ResetStale(olderThan, now time.Time) (int64, error) {
	res, err := d.db.Exec(
		`UPDATE repos SET status = ?, error_message = ?, updated_at = ?
		 WHERE status IN (?, ?) AND updated_at < ?`,
		StatusError, "sync interrupted", now.UTC().Format(time.RFC3339),
		StatusBackfilling, StatusSyncing, olderThan.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("resetting stale syncs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("resetting stale syncs: %w", err)
	}
	return n, nil
}

// scanRepo scans one repos row via the given Scan function, so it works
// for both sql.Row and sql.Rows.
func scanRepo(scan func(dest ...any) error) (*Repo, error) {
	var r Repo
	var status string
	var errMsg sql.NullString
	var createdAt, updatedAt string

	if err := scan(&r.ID, &r.FullName, &status, &r.LastSyncAt, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	r.Status = Status(status)
	r.ErrorMessage = errMsg.String
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &r, nil
}
