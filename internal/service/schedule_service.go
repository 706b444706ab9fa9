package service

import (
	"context"
	"fmt"
	"time"

	"github.com/avatarforge/api/internal/model"
	"github.com/avatarforge/api/internal/scheduler"
	"github.com/avatarforge/api/internal/store"
)

// ScheduleService handles post scheduling, cancellation and immediate
// publishing on top of the scheduling engine and dispatcher.
type ScheduleService struct {
	store      *store.Store
	engine     *scheduler.Engine
	dispatcher *scheduler.Dispatcher
	publishers map[model.Platform]scheduler.Publisher
	useJitter  bool
}

func NewScheduleService(st *store.Store, engine *scheduler.Engine, dispatcher *scheduler.Dispatcher, publishers map[model.Platform]scheduler.Publisher, useJitter bool) *ScheduleService {
	return &ScheduleService{
		store:      st,
		engine:     engine,
		dispatcher: dispatcher,
		publishers: publishers,
		useJitter:  useJitter,
	}
}

// ScheduleBatch slots the requested content items onto the account's
// calendar and persists the resulting posts.
func (s *ScheduleService) ScheduleBatch(ctx context.Context, req *model.ScheduleBatchRequest) (*model.ScheduleBatchResponse, error) {
	account, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.GetItems(ctx, req.ContentIDs)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no content items found")
	}

	var startTime time.Time
	if req.StartTime != nil {
		startTime = *req.StartTime
	}
	useJitter := s.useJitter
	if req.UseJitter != nil {
		useJitter = *req.UseJitter
	}

	posts, skipped, err := s.engine.ScheduleBatch(ctx, account, items, startTime, useJitter)
	if err != nil {
		return nil, err
	}

	for i := range posts {
		if err := s.store.SavePost(ctx, &posts[i]); err != nil {
			return nil, fmt.Errorf("failed to save post %s: %w", posts[i].ID, err)
		}
	}

	return &model.ScheduleBatchResponse{
		AccountID: account.ID,
		Scheduled: len(posts),
		Skipped:   skipped,
		Posts:     posts,
	}, nil
}

// ListPosts returns an account's posts, optionally filtered by status.
func (s *ScheduleService) ListPosts(ctx context.Context, accountID string, status model.PostStatus) ([]model.ScheduledPost, error) {
	return s.store.ListPostsByAccount(ctx, accountID, status)
}

// CancelPost cancels one pending post.
func (s *ScheduleService) CancelPost(ctx context.Context, postID string) (*model.ScheduledPost, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	if post.Status != model.PostStatusPending {
		return nil, fmt.Errorf("post already %s", post.Status)
	}

	post.Status = model.PostStatusCancelled
	if err := s.store.SavePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// PublishNow pushes one pending post through the dispatcher immediately,
// ahead of its scheduled slot.
func (s *ScheduleService) PublishNow(ctx context.Context, postID string) (*model.DispatchResult, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	if post.Status != model.PostStatusPending {
		return nil, fmt.Errorf("post already %s", post.Status)
	}

	result := s.dispatcher.Dispatch(ctx, post, time.Now().UTC())
	return &result, nil
}

// OptimalTimes exposes the configured posting windows for a platform.
func (s *ScheduleService) OptimalTimes(platform model.Platform) (*model.OptimalTimesResponse, error) {
	rules := s.engine.Rules()
	hours := rules.Hours(platform)
	if len(hours) == 0 {
		return nil, fmt.Errorf("unsupported platform %q", platform)
	}

	return &model.OptimalTimesResponse{
		Platform:         platform,
		OptimalHours:     hours,
		MinIntervalHours: int(rules.MinInterval(platform).Hours()),
		DailyCap:         rules.DailyCap(platform),
	}, nil
}

// CheckAccountHealth runs the platform health probe and folds the result
// into the stored account record.
func (s *ScheduleService) CheckAccountHealth(ctx context.Context, accountID string) (*model.AccountHealth, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	publisher, ok := s.publishers[account.Platform]
	if !ok {
		return nil, fmt.Errorf("no publisher for platform %s", account.Platform)
	}

	health, err := publisher.CheckHealth(ctx, account)
	if err != nil {
		return nil, err
	}

	account.HealthScore = health.Score
	switch {
	case health.Healthy:
		account.Status = model.AccountActive
	case health.Shadowban:
		account.Status = model.AccountShadowbanned
	case health.RateLimited:
		account.Status = model.AccountRateLimited
	default:
		account.Status = model.AccountSuspended
	}
	now := time.Now().UTC()
	account.LastCheckAt = &now

	if err := s.store.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account health: %w", err)
	}

	return health, nil
}
