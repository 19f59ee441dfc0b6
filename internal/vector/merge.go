package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/repovec/repovec/internal/content"
	"github.com/repovec/repovec/internal/github"
)

// Embedder is the batch embedding contract the merge depends on: one
// vector per input text, same order, no call for an empty batch.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Stats summarizes what one merge did.
type Stats struct {
	IssuesEmbedded int
	PullsEmbedded  int
	PullsReused    int
	Deleted        int
}

// embedTarget records where a batched embedding lands once the vectors
// come back.
type embedTarget struct {
	issue *github.Issue
	pull  *github.PullRequest
	hash  string
}

// Merge combines a previous artifact with a freshly fetched window of
// issues and pull requests and returns the complete replacement
// artifact.
//
// Items absent from the fetch window are carried over untouched:
// absence from an incremental window means unchanged since the
// watermark, not closed. Fetched closed or merged items are removed.
// Open issues are always re-embedded; open pull requests are
// re-embedded only when their content fingerprint changed or no prior
// entry exists. All texts needing embedding go to the Embedder as one
// ordered batch.
//
// The result is built fully in memory; nothing is written anywhere on
// error.
func Merge(ctx context.Context, prev Object, repo string, issues []github.Issue, pulls []github.PullRequest, embedder Embedder, now time.Time) (Object, Stats, error) {
	next := NewObject(repo)
	next.SyncedAt = now.Unix()
	for id, iv := range prev.Issues {
		next.Issues[id] = iv
	}
	for id, pv := range prev.PullRequests {
		next.PullRequests[id] = pv
	}

	var stats Stats
	var texts []string
	var targets []embedTarget

	for i := range issues {
		is := &issues[i]
		if !is.Open() {
			if _, ok := next.Issues[is.ID]; ok {
				delete(next.Issues, is.ID)
				stats.Deleted++
			}
			continue
		}
		texts = append(texts, content.IssueText(is.Title, is.Body))
		targets = append(targets, embedTarget{issue: is})
	}

	for i := range pulls {
		pr := &pulls[i]
		if !pr.Open() {
			if _, ok := next.PullRequests[pr.ID]; ok {
				delete(next.PullRequests, pr.ID)
				stats.Deleted++
			}
			continue
		}

		hash := content.PullHash(pr.Title, pr.Body, pr.Files)
		if existing, ok := next.PullRequests[pr.ID]; ok && existing.Hash == hash {
			// Content unchanged: keep the vector, refresh the rest.
			existing.Number = pr.Number
			existing.State = pr.State
			next.PullRequests[pr.ID] = existing
			stats.PullsReused++
			continue
		}

		texts = append(texts, content.PullText(pr.Title, pr.Body, pr.Files))
		targets = append(targets, embedTarget{pull: pr, hash: hash})
	}

	var vectors [][]float32
	if len(texts) > 0 {
		var err error
		vectors, err = embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return Object{}, Stats{}, fmt.Errorf("embedding batch of %d: %w", len(texts), err)
		}
		if len(vectors) != len(texts) {
			return Object{}, Stats{}, fmt.Errorf("embedding batch returned %d vectors for %d texts", len(vectors), len(texts))
		}
	}

	for i, tgt := range targets {
		switch {
		case tgt.issue != nil:
			next.Issues[tgt.issue.ID] = ItemVector{
				ID:     tgt.issue.ID,
				Number: tgt.issue.Number,
				State:  tgt.issue.State,
				Vector: vectors[i],
			}
			stats.IssuesEmbedded++
		case tgt.pull != nil:
			next.PullRequests[tgt.pull.ID] = PullVector{
				ItemVector: ItemVector{
					ID:     tgt.pull.ID,
					Number: tgt.pull.Number,
					State:  tgt.pull.State,
					Vector: vectors[i],
				},
				Hash: tgt.hash,
			}
			stats.PullsEmbedded++
		}
	}

	return next, stats, nil
}
