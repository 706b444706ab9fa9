package scheduler

import (
	"time"

	"github.com/avatarforge/api/internal/model"
)

// RetryCoordinator computes publish retry state. Pure: no clock reads, no
// I/O; the caller supplies now.
type RetryCoordinator struct {
	maxRetries  int
	baseBackoff time.Duration
}

// NewRetryCoordinator creates a coordinator. Zero values fall back to the
// production defaults (3 retries, 2h base).
func NewRetryCoordinator(maxRetries int, baseBackoff time.Duration) *RetryCoordinator {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseBackoff <= 0 {
		baseBackoff = 2 * time.Hour
	}
	return &RetryCoordinator{maxRetries: maxRetries, baseBackoff: baseBackoff}
}

// Reschedule returns the post's next state after a transient publish
// failure. Below the retry limit the post goes back to pending with an
// exponentially backed-off time (2h, 4h, 8h for the defaults); at the
// limit it goes terminal failed and the scheduled time is left untouched.
func (r *RetryCoordinator) Reschedule(post model.ScheduledPost, now time.Time) model.ScheduledPost {
	if post.Retry.Count >= r.maxRetries {
		post.Status = model.PostStatusFailed
		return post
	}

	delay := r.baseBackoff * (1 << post.Retry.Count)
	post.ScheduledTime = now.UTC().Add(delay)
	post.Retry.Count++
	attempt := now.UTC()
	post.Retry.LastAttempt = &attempt
	post.Status = model.PostStatusPending
	return post
}
