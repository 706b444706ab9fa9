package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avatarforge/api/internal/model"
)

// ErrNotFound marks a missing record. Callers match with errors.Is.
var ErrNotFound = errors.New("not found")

const (
	jobTTL = 24 * time.Hour

	keyJob          = "job:%s"
	keyContent      = "content:%s"
	keyContentByJob = "content:job:%s"
	keyPost         = "post:%s"
	keyAccount      = "account:%s"
	keyDueSet       = "posts:due"
	// Per-account sorted set of pending/published post times, used for the
	// min-interval and daily-cap queries.
	keySchedule = "schedule:%s"
)

// Store persists jobs, content items, scheduled posts and accounts in
// Redis. It backs the pipeline repository, the scheduling engine state and
// the dispatcher due-set.
type Store struct {
	redis *redis.Client
}

// NewStore creates a store over an existing Redis client.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

// --- jobs ---

// SaveJob writes the job record with the standard 24h retention.
func (s *Store) SaveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return s.redis.Set(ctx, fmt.Sprintf(keyJob, job.ID), data, jobTTL).Err()
}

// GetJob loads one job record.
func (s *Store) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf(keyJob, jobID)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// --- content items ---

// SaveItem persists one generation item and indexes it under its job.
func (s *Store) SaveItem(ctx context.Context, item *model.GenerationItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(keyContent, item.ID), data, 0)
	pipe.RPush(ctx, fmt.Sprintf(keyContentByJob, item.JobID), item.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

// GetItem loads one content item.
func (s *Store) GetItem(ctx context.Context, itemID string) (*model.GenerationItem, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf(keyContent, itemID)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("content %s: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	var item model.GenerationItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &item, nil
}

// GetItems loads content items by id, skipping any that no longer exist.
func (s *Store) GetItems(ctx context.Context, itemIDs []string) ([]model.GenerationItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		keys = append(keys, fmt.Sprintf(keyContent, id))
	}

	raw, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}

	items := make([]model.GenerationItem, 0, len(raw))
	for _, v := range raw {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var item model.GenerationItem
		if err := json.Unmarshal([]byte(str), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// ListItemsByJob returns a job's items in pipeline order.
func (s *Store) ListItemsByJob(ctx context.Context, jobID string) ([]model.GenerationItem, error) {
	ids, err := s.redis.LRange(ctx, fmt.Sprintf(keyContentByJob, jobID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list job items: %w", err)
	}
	return s.GetItems(ctx, ids)
}

// --- scheduled posts ---

// SavePost persists the post and keeps the due-set and the per-account
// schedule index consistent with its status: pending posts are due-listed,
// terminal posts never are, and only pending or published posts count
// toward scheduling state.
func (s *Store) SavePost(ctx context.Context, post *model.ScheduledPost) error {
	data, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("failed to marshal post: %w", err)
	}

	scheduleKey := fmt.Sprintf(keySchedule, post.AccountID)

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(keyPost, post.ID), data, 0)
	switch post.Status {
	case model.PostStatusPending:
		pipe.ZAdd(ctx, keyDueSet, redis.Z{Score: float64(post.ScheduledTime.Unix()), Member: post.ID})
		pipe.ZAdd(ctx, scheduleKey, redis.Z{Score: float64(post.ScheduledTime.Unix()), Member: post.ID})
	case model.PostStatusPublished:
		pipe.ZRem(ctx, keyDueSet, post.ID)
		pipe.ZAdd(ctx, scheduleKey, redis.Z{Score: float64(post.ScheduledTime.Unix()), Member: post.ID})
	default:
		pipe.ZRem(ctx, keyDueSet, post.ID)
		pipe.ZRem(ctx, scheduleKey, post.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save post: %w", err)
	}
	return nil
}

// GetPost loads one scheduled post.
func (s *Store) GetPost(ctx context.Context, postID string) (*model.ScheduledPost, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf(keyPost, postID)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	var post model.ScheduledPost
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post: %w", err)
	}
	return &post, nil
}

// LoadDuePosts returns pending posts due at or before now, oldest first.
func (s *Store) LoadDuePosts(ctx context.Context, now time.Time, limit int) ([]model.ScheduledPost, error) {
	ids, err := s.redis.ZRangeByScore(ctx, keyDueSet, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read due set: %w", err)
	}

	posts := make([]model.ScheduledPost, 0, len(ids))
	for _, id := range ids {
		post, err := s.GetPost(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Stale due-set entry
			s.redis.ZRem(ctx, keyDueSet, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if post.Status != model.PostStatusPending {
			s.redis.ZRem(ctx, keyDueSet, id)
			continue
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

// ListPostsByAccount returns an account's posts, newest slot first. An
// empty status matches everything.
func (s *Store) ListPostsByAccount(ctx context.Context, accountID string, status model.PostStatus) ([]model.ScheduledPost, error) {
	ids, err := s.redis.ZRevRange(ctx, fmt.Sprintf(keySchedule, accountID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list account posts: %w", err)
	}

	posts := make([]model.ScheduledPost, 0, len(ids))
	for _, id := range ids {
		post, err := s.GetPost(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if status != "" && post.Status != status {
			continue
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

// LastScheduledTime returns the latest pending or published post time for
// the account, or nil when it has none.
func (s *Store) LastScheduledTime(ctx context.Context, accountID string) (*time.Time, error) {
	entries, err := s.redis.ZRevRangeWithScores(ctx, fmt.Sprintf(keySchedule, accountID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule index: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	last := time.Unix(int64(entries[0].Score), 0).UTC()
	return &last, nil
}

// CountPostsForDay counts pending and published posts in one UTC day.
func (s *Store) CountPostsForDay(ctx context.Context, accountID string, day time.Time) (int, error) {
	dayStart := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	n, err := s.redis.ZCount(ctx, fmt.Sprintf(keySchedule, accountID),
		strconv.FormatInt(dayStart.Unix(), 10),
		"("+strconv.FormatInt(dayEnd.Unix(), 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count day posts: %w", err)
	}
	return int(n), nil
}

// --- accounts ---

// accountRecord re-adds the access token the API-facing struct hides, so
// the stored record round-trips with credentials intact.
type accountRecord struct {
	model.SocialAccount
	AccessToken string `json:"accessToken,omitempty"`
}

// SaveAccount persists one social account record.
func (s *Store) SaveAccount(ctx context.Context, account *model.SocialAccount) error {
	data, err := json.Marshal(accountRecord{SocialAccount: *account, AccessToken: account.AccessToken})
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	return s.redis.Set(ctx, fmt.Sprintf(keyAccount, account.ID), data, 0).Err()
}

// GetAccount loads one social account.
func (s *Store) GetAccount(ctx context.Context, accountID string) (*model.SocialAccount, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf(keyAccount, accountID)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	var record accountRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	account := record.SocialAccount
	account.AccessToken = record.AccessToken
	return &account, nil
}
