package github

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gogithub "github.com/google/go-github/v60/github"

	"github.com/repovec/repovec/internal/retry"
)

// pageSize is the fixed page size for all list calls.
const pageSize = 100

// Fetcher pages through one repository's issues and pull requests.
//
// With a zero watermark it runs in backfill mode: open items only.
// With a non-zero watermark it returns every item (open, closed or
// merged) updated at or after the watermark, which is what lets the
// merge layer observe closures.
type Fetcher struct {
	client *gogithub.Client
	owner  string
	repo   string
	logger *slog.Logger
}

// NewFetcher creates a Fetcher for owner/repo.
func NewFetcher(client *gogithub.Client, owner, repo string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: client,
		owner:  owner,
		repo:   repo,
		logger: logger.With("repo", owner+"/"+repo),
	}
}

// Issues fetches issues, paginating until the API reports no further
// pages. Pull requests surfaced by the issues endpoint are skipped.
func (f *Fetcher) Issues(ctx context.Context, since time.Time) ([]Issue, error) {
	opts := &gogithub.IssueListByRepoOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "asc",
		ListOptions: gogithub.ListOptions{PerPage: pageSize},
	}
	if since.IsZero() {
		opts.State = "open"
	} else {
		opts.Since = since
	}

	var out []Issue
	for {
		var (
			page []*gogithub.Issue
			resp *gogithub.Response
		)
		err := retry.Do(ctx, 0, func() error {
			var err error
			page, resp, err = f.client.Issues.ListByRepo(ctx, f.owner, f.repo, opts)
			return retryableErr(resp, err)
		})
		if err != nil {
			return nil, fmt.Errorf("listing issues page %d: %w", opts.Page, err)
		}

		for _, gh := range page {
			// The issues endpoint also returns pull requests.
			if gh.PullRequestLinks != nil {
				continue
			}
			out = append(out, convertIssue(gh))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage

		if err := f.throttle(ctx, resp); err != nil {
			return nil, err
		}
	}

	f.logger.Debug("fetched issues", "count", len(out), "since", since)
	return out, nil
}

// PullRequests fetches pull requests with their changed file paths.
//
// The pull request list endpoint has no since parameter, so incremental
// fetches list by updated time descending and stop paginating once an
// item falls before the watermark.
func (f *Fetcher) PullRequests(ctx context.Context, since time.Time) ([]PullRequest, error) {
	opts := &gogithub.PullRequestListOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gogithub.ListOptions{PerPage: pageSize},
	}
	if since.IsZero() {
		opts.State = "open"
	}

	var out []PullRequest
	for {
		var (
			page []*gogithub.PullRequest
			resp *gogithub.Response
		)
		err := retry.Do(ctx, 0, func() error {
			var err error
			page, resp, err = f.client.PullRequests.List(ctx, f.owner, f.repo, opts)
			return retryableErr(resp, err)
		})
		if err != nil {
			return nil, fmt.Errorf("listing pull requests page %d: %w", opts.Page, err)
		}

		pastWatermark := false
		for _, gh := range page {
			if !since.IsZero() && gh.GetUpdatedAt().Time.Before(since) {
				pastWatermark = true
				break
			}

			pr := convertPull(gh)
			files, err := f.pullFiles(ctx, pr.Number)
			if err != nil {
				return nil, fmt.Errorf("listing files for pull #%d: %w", pr.Number, err)
			}
			pr.Files = files
			out = append(out, pr)
		}

		if pastWatermark || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage

		if err := f.throttle(ctx, resp); err != nil {
			return nil, err
		}
	}

	f.logger.Debug("fetched pull requests", "count", len(out), "since", since)
	return out, nil
}

// pullFiles returns the changed file paths of one pull request, in the
// order the API reports them.
func (f *Fetcher) pullFiles(ctx context.Context, number int) ([]string, error) {
	opts := &gogithub.ListOptions{PerPage: pageSize}

	var files []string
	for {
		var (
			page []*gogithub.CommitFile
			resp *gogithub.Response
		)
		err := retry.Do(ctx, 0, func() error {
			var err error
			page, resp, err = f.client.PullRequests.ListFiles(ctx, f.owner, f.repo, number, opts)
			return retryableErr(resp, err)
		})
		if err != nil {
			return nil, err
		}

		for _, cf := range page {
			files = append(files, cf.GetFilename())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// throttle waits out the rate limit window when the remaining request
// budget is low.
func (f *Fetcher) throttle(ctx context.Context, resp *gogithub.Response) error {
	rl := ParseRateLimit(resp.Response)
	if rl == nil || !rl.ShouldThrottle() {
		return nil
	}
	wait := rl.WaitDuration()
	if wait <= 0 {
		return nil
	}

	f.logger.Warn("rate limit low, throttling", "remaining", rl.Remaining, "wait", wait)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// retryableErr normalizes a page call outcome for the retry loop:
// 5xx responses become errors so they are retried, anything else fails
// the fetch immediately.
func retryableErr(resp *gogithub.Response, err error) error {
	if resp != nil && IsServerError(resp.Response) {
		return fmt.Errorf("server error: status %d", resp.StatusCode)
	}
	return retry.Permanent(err)
}

func convertIssue(gh *gogithub.Issue) Issue {
	return Issue{
		ID:        gh.GetNodeID(),
		Number:    gh.GetNumber(),
		Title:     gh.GetTitle(),
		Body:      gh.GetBody(),
		State:     gh.GetState(),
		UpdatedAt: gh.GetUpdatedAt().Time,
	}
}

func convertPull(gh *gogithub.PullRequest) PullRequest {
	return PullRequest{
		ID:        gh.GetNodeID(),
		Number:    gh.GetNumber(),
		Title:     gh.GetTitle(),
		Body:      gh.GetBody(),
		State:     gh.GetState(),
		Merged:    gh.MergedAt != nil,
		UpdatedAt: gh.GetUpdatedAt().Time,
	}
}
