package store

import (
	"errors"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGetRepo(t *testing.T) {
	db := openTestDB(t)

	created, err := db.CreateRepo("acme/widgets")
	if err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}
	if created.Status != StatusPending {
		t.Errorf("new repo status = %s, want pending", created.Status)
	}
	if created.LastSyncAt != 0 {
		t.Errorf("new repo lastSyncAt = %d, want 0", created.LastSyncAt)
	}

	got, err := db.GetRepo("acme/widgets")
	if err != nil {
		t.Fatalf("GetRepo: %v", err)
	}
	if got.FullName != "acme/widgets" || got.ID != created.ID {
		t.Errorf("got %+v", got)
	}
}

func TestCreateRepoDuplicate(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.CreateRepo("acme/widgets"); err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}
	if _, err := db.CreateRepo("acme/widgets"); err == nil {
		t.Error("expected unique constraint error on duplicate full name")
	}
}

func TestGetRepoNotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetRepo("ghost/repo")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRepo(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.CreateRepo("acme/widgets"); err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}
	if err := db.DeleteRepo("acme/widgets"); err != nil {
		t.Fatalf("DeleteRepo: %v", err)
	}
	if _, err := db.GetRepo("acme/widgets"); !errors.Is(err, ErrNotFound) {
		t.Errorf("repo still present after delete: %v", err)
	}
	if err := db.DeleteRepo("acme/widgets"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestBeginSyncGate(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	if _, err := db.CreateRepo("acme/widgets"); err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}

	ok, err := db.BeginSync("acme/widgets", StatusBackfilling, now)
	if err != nil {
		t.Fatalf("BeginSync: %v", err)
	}
	if !ok {
		t.Fatal("first BeginSync refused")
	}

	// A second attempt while in flight must be refused.
	ok, err = db.BeginSync("acme/widgets", StatusSyncing, now)
	if err != nil {
		t.Fatalf("BeginSync: %v", err)
	}
	if ok {
		t.Error("BeginSync succeeded while already in flight")
	}

	got, _ := db.GetRepo("acme/widgets")
	if got.Status != StatusBackfilling {
		t.Errorf("status = %s, want backfilling", got.Status)
	}
}

func TestBeginSyncInvalidTarget(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.BeginSync("acme/widgets", StatusActive, time.Now()); err == nil {
		t.Error("expected error for non-in-flight target status")
	}
}

func TestBeginSyncAllowedFromError(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	if _, err := db.CreateRepo("acme/widgets"); err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}
	if ok, _ := db.BeginSync("acme/widgets", StatusSyncing, now); !ok {
		t.Fatal("BeginSync refused from pending")
	}
	if err := db.FailSync("acme/widgets", "fetch exploded", now); err != nil {
		t.Fatalf("FailSync: %v", err)
	}

	got, _ := db.GetRepo("acme/widgets")
	if got.Status != StatusError || got.ErrorMessage != "fetch exploded" {
		t.Fatalf("after fail: %+v", got)
	}

	// error is always retryable.
	ok, err := db.BeginSync("acme/widgets", StatusBackfilling, now)
	if err != nil || !ok {
		t.Errorf("retry from error refused: ok=%v err=%v", ok, err)
	}
	got, _ = db.GetRepo("acme/widgets")
	if got.ErrorMessage != "" {
		t.Errorf("error message not cleared on retry: %q", got.ErrorMessage)
	}
}

func TestFinishSyncAdvancesWatermark(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	if _, err := db.CreateRepo("acme/widgets"); err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}
	if err := db.FinishSync("acme/widgets", 1000, now); err != nil {
		t.Fatalf("FinishSync: %v", err)
	}

	got, _ := db.GetRepo("acme/widgets")
	if got.Status != StatusActive || got.LastSyncAt != 1000 {
		t.Fatalf("after finish: %+v", got)
	}

	// The watermark only moves forward.
	if err := db.FinishSync("acme/widgets", 500, now); err != nil {
		t.Fatalf("FinishSync: %v", err)
	}
	got, _ = db.GetRepo("acme/widgets")
	if got.LastSyncAt != 1000 {
		t.Errorf("watermark moved backward: %d", got.LastSyncAt)
	}
}

func TestFailSyncKeepsWatermark(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	if _, err := db.CreateRepo("acme/widgets"); err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}
	if err := db.FinishSync("acme/widgets", 1000, now); err != nil {
		t.Fatalf("FinishSync: %v", err)
	}
	if err := db.FailSync("acme/widgets", "embedding provider down", now); err != nil {
		t.Fatalf("FailSync: %v", err)
	}

	got, _ := db.GetRepo("acme/widgets")
	if got.Status != StatusError {
		t.Errorf("status = %s, want error", got.Status)
	}
	if got.LastSyncAt != 1000 {
		t.Errorf("failure moved the watermark: %d", got.LastSyncAt)
	}
}

func TestResetStale(t *testing.T) {
	db := openTestDB(t)
	past := time.Now().Add(-time.Hour)

	if _, err := db.CreateRepo("acme/stuck"); err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}
	if _, err := db.CreateRepo("acme/healthy"); err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}

	// Simulate a crash: in-flight transition recorded an hour ago.
	if ok, _ := db.BeginSync("acme/stuck", StatusSyncing, past); !ok {
		t.Fatal("BeginSync refused")
	}
	// A fresh in-flight sync should not be reset.
	if ok, _ := db.BeginSync("acme/healthy", StatusSyncing, time.Now()); !ok {
		t.Fatal("BeginSync refused")
	}

	n, err := db.ResetStale(time.Now().Add(-30*time.Minute), time.Now())
	if err != nil {
		t.Fatalf("ResetStale: %v", err)
	}
	if n != 1 {
		t.Errorf("reset %d repos, want 1", n)
	}

	stuck, _ := db.GetRepo("acme/stuck")
	if stuck.Status != StatusError {
		t.Errorf("stuck repo status = %s, want error", stuck.Status)
	}
	healthy, _ := db.GetRepo("acme/healthy")
	if healthy.Status != StatusSyncing {
		t.Errorf("healthy repo status = %s, want syncing", healthy.Status)
	}
}

func TestListRepos(t *testing.T) {
	db := openTestDB(t)

	for _, name := range []string{"zeta/z", "acme/widgets"} {
		if _, err := db.CreateRepo(name); err != nil {
			t.Fatalf("CreateRepo(%s): %v", name, err)
		}
	}

	repos, err := db.ListRepos()
	if err != nil {
		t.Fatalf("ListRepos: %v", err)
	}
	if len(repos) != 2 {
		t.Fatalf("got %d repos, want 2", len(repos))
	}
	if repos[0].FullName != "acme/widgets" || repos[1].FullName != "zeta/z" {
		t.Errorf("repos not ordered by name: %+v", repos)
	}
}
