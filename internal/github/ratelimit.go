package github

import (
	"net/http"
	"strconv"
	"time"
)

// throttleThreshold is the remaining request count below which the
// fetcher slows down instead of burning the rest of the budget.
const throttleThreshold = 100

// RateLimitInfo holds parsed rate limit headers from a GitHub response.
type RateLimitInfo struct {
	Remaining int
	Reset     time.Time
}

// ParseRateLimit extracts rate limit information from a GitHub API
// response. Returns nil if the headers are not present.
func ParseRateLimit(resp *http.Response) *RateLimitInfo {
	if resp == nil {
		return nil
	}

	remainingStr := resp.Header.Get("X-RateLimit-Remaining")
	resetStr := resp.Header.Get("X-RateLimit-Reset")
	if remainingStr == "" && resetStr == "" {
		return nil
	}

	info := &RateLimitInfo{}
	if remaining, err := strconv.Atoi(remainingStr); err == nil {
		info.Remaining = remaining
	}
	if resetUnix, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
		info.Reset = time.Unix(resetUnix, 0)
	}
	return info
}

// ShouldThrottle returns true when the remaining budget is below the
// safety threshold.
func (r *RateLimitInfo) ShouldThrottle() bool {
	return r != nil && r.Remaining < throttleThreshold
}

// WaitDuration returns how long to wait for the limit window to reset.
// Zero if the reset time is already past.
func (r *RateLimitInfo) WaitDuration() time.Duration {
	if r == nil {
		return 0
	}
	d := time.Until(r.Reset)
	if d < 0 {
		return 0
	}
	return d
}

// IsServerError returns true for 5xx responses.
func IsServerError(resp *http.Response) bool {
	return resp != nil && resp.StatusCode >= 500 && resp.StatusCode < 600
}
