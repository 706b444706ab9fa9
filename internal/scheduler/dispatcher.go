package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/avatarforge/api/internal/client"
	"github.com/avatarforge/api/internal/model"
)

// Publisher is the platform capability the dispatcher publishes through.
// One implementation per platform, selected from the registry by tag.
type Publisher interface {
	Publish(ctx context.Context, account *model.SocialAccount, mediaURL, caption string, hashtags []string) (*model.PublishResult, error)
	CheckHealth(ctx context.Context, account *model.SocialAccount) (*model.AccountHealth, error)
}

// DispatchStore is the post and account state the dispatcher reads and
// writes during a sweep.
type DispatchStore interface {
	// LoadDuePosts returns pending posts with scheduledTime <= now, oldest
	// first, at most limit.
	LoadDuePosts(ctx context.Context, now time.Time, limit int) ([]model.ScheduledPost, error)
	// SavePost persists the post and, when its status is terminal, drops it
	// from the due set so it is never swept again.
	SavePost(ctx context.Context, post *model.ScheduledPost) error
	GetAccount(ctx context.Context, accountID string) (*model.SocialAccount, error)
}

// Dispatcher sweeps due posts and publishes them through the per-platform
// publisher registry.
type Dispatcher struct {
	store      DispatchStore
	publishers map[model.Platform]Publisher
	retry      *RetryCoordinator
	batchSize  int

	sweepMu sync.Mutex
}

// NewDispatcher creates a dispatcher. batchSize <= 0 falls back to 100.
func NewDispatcher(store DispatchStore, publishers map[model.Platform]Publisher, retry *RetryCoordinator, batchSize int) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Dispatcher{
		store:      store,
		publishers: publishers,
		retry:      retry,
		batchSize:  batchSize,
	}
}

// Sweep publishes every due post once. Only one sweep runs at a time; a
// sweep that finds another in flight returns immediately with no work done.
func (d *Dispatcher) Sweep(ctx context.Context, now time.Time) ([]model.DispatchResult, error) {
	if !d.sweepMu.TryLock() {
		return nil, nil
	}
	defer d.sweepMu.Unlock()

	due, err := d.store.LoadDuePosts(ctx, now, d.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load due posts: %w", err)
	}
	if len(due) == 0 {
		return nil, nil
	}

	results := make([]model.DispatchResult, 0, len(due))
	for i := range due {
		if due[i].Status != model.PostStatusPending {
			continue
		}
		results = append(results, d.dispatch(ctx, &due[i], now))
	}

	log.Printf("[Dispatcher] sweep at %s: %d due, %d handled", now.UTC().Format(time.RFC3339), len(due), len(results))
	return results, nil
}

// Dispatch publishes one pending post immediately, outside the sweep cycle.
func (d *Dispatcher) Dispatch(ctx context.Context, post *model.ScheduledPost, now time.Time) model.DispatchResult {
	return d.dispatch(ctx, post, now)
}

func (d *Dispatcher) dispatch(ctx context.Context, post *model.ScheduledPost, now time.Time) model.DispatchResult {
	account, err := d.store.GetAccount(ctx, post.AccountID)
	if err != nil {
		// Account state unavailable; leave the post pending for the next sweep.
		log.Printf("[Dispatcher] ✗ post %s: account %s unavailable: %v", post.ID, post.AccountID, err)
		return model.DispatchResult{PostID: post.ID, Status: post.Status, Skipped: true, Error: err.Error()}
	}

	if !account.IsHealthy() {
		log.Printf("[Dispatcher] post %s skipped, account %s unhealthy (status=%s score=%d)",
			post.ID, account.ID, account.Status, account.HealthScore)
		return model.DispatchResult{PostID: post.ID, Status: post.Status, Skipped: true}
	}

	publisher, ok := d.publishers[post.Platform]
	if !ok {
		return d.fail(ctx, post, fmt.Sprintf("no publisher for platform %s", post.Platform))
	}

	result, err := publisher.Publish(ctx, account, post.MediaURL, post.Caption, post.Hashtags)
	if err != nil {
		if client.IsFatal(err) {
			return d.fail(ctx, post, err.Error())
		}
		return d.retryLater(ctx, post, now, err)
	}

	post.Status = model.PostStatusPublished
	post.PlatformPostID = result.PostID
	post.PlatformURL = result.URL
	publishedAt := result.PublishedAt.UTC()
	post.PublishedAt = &publishedAt
	if err := d.store.SavePost(ctx, post); err != nil {
		log.Printf("[Dispatcher] ✗ failed to save published post %s: %v", post.ID, err)
	}

	log.Printf("[Dispatcher] post %s published to %s as %s", post.ID, post.Platform, result.PostID)
	return model.DispatchResult{PostID: post.ID, Status: model.PostStatusPublished}
}

// fail marks the post terminally failed.
func (d *Dispatcher) fail(ctx context.Context, post *model.ScheduledPost, msg string) model.DispatchResult {
	post.Status = model.PostStatusFailed
	post.ErrorMessage = msg
	if err := d.store.SavePost(ctx, post); err != nil {
		log.Printf("[Dispatcher] ✗ failed to save failed post %s: %v", post.ID, err)
	}
	log.Printf("[Dispatcher] ✗ post %s failed permanently: %s", post.ID, msg)
	return model.DispatchResult{PostID: post.ID, Status: model.PostStatusFailed, Error: msg}
}

// retryLater delegates a transient failure to the retry coordinator.
func (d *Dispatcher) retryLater(ctx context.Context, post *model.ScheduledPost, now time.Time, cause error) model.DispatchResult {
	updated := d.retry.Reschedule(*post, now)
	if updated.Status == model.PostStatusFailed {
		updated.ErrorMessage = fmt.Sprintf("retries exhausted: %v", cause)
	}
	*post = updated

	if err := d.store.SavePost(ctx, post); err != nil {
		log.Printf("[Dispatcher] ✗ failed to save rescheduled post %s: %v", post.ID, err)
	}

	if post.Status == model.PostStatusFailed {
		log.Printf("[Dispatcher] ✗ post %s failed after %d retries: %v", post.ID, post.Retry.Count, cause)
		return model.DispatchResult{PostID: post.ID, Status: model.PostStatusFailed, Error: post.ErrorMessage}
	}
	log.Printf("[Dispatcher] post %s rescheduled for %s after transient failure: %v",
		post.ID, post.ScheduledTime.Format(time.RFC3339), cause)
	return model.DispatchResult{PostID: post.ID, Status: model.PostStatusPending, Error: cause.Error()}
}
