package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/avatarforge/api/internal/config"
	"github.com/avatarforge/api/internal/model"
	"github.com/avatarforge/api/internal/store"
)

const (
	TaskTypeBatch = "batch:generate"
)

// BatchService handles generation batch job management
type BatchService struct {
	store       *store.Store
	asynqClient *asynq.Client
	defaults    config.PipelineConfig
}

func NewBatchService(st *store.Store, asynqClient *asynq.Client, defaults config.PipelineConfig) *BatchService {
	return &BatchService{
		store:       st,
		asynqClient: asynqClient,
		defaults:    defaults,
	}
}

// StartBatch queues a new generation batch
func (s *BatchService) StartBatch(ctx context.Context, req *model.BatchStartRequest) (*model.BatchStartResponse, error) {
	ratios, err := s.resolveRatios(req)
	if err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	now := time.Now()

	payload := &model.GenerationJob{
		ID:             jobID,
		AvatarID:       req.AvatarID,
		Niche:          req.Niche,
		Count:          req.Count,
		Platform:       req.Platform,
		TierRatios:     ratios,
		WithCaptions:   boolOrDefault(req.WithCaptions, true),
		WithModeration: boolOrDefault(req.WithModeration, true),
		WithUpload:     boolOrDefault(req.WithUpload, true),
		CustomPrompts:  req.CustomPrompts,
		CustomTier:     req.CustomTier,
		CreatedAt:      now,
	}
	if len(req.CustomPrompts) > 0 {
		payload.Count = len(req.CustomPrompts)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &model.Job{
		ID:        jobID,
		Type:      model.JobTypeBatch,
		Status:    model.JobStatusQueued,
		Progress:  0,
		Payload:   payloadBytes,
		CreatedAt: now,
	}

	if err := s.store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := newBatchTask(jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("generate"),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.BatchStartResponse{
		JobID:     jobID,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
	}, nil
}

// GetStatus returns the current status of a batch job
func (s *BatchService) GetStatus(ctx context.Context, jobID string) (*model.BatchStatusResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.BatchStatusResponse{
		JobID:        job.ID,
		Status:       job.Status,
		Progress:     job.Progress,
		CurrentStage: job.CurrentStage,
		Error:        job.Error,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
	}, nil
}

// GetResult returns the result of a completed batch job
func (s *BatchService) GetResult(ctx context.Context, jobID string) (*model.BatchResult, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusSucceeded {
		return nil, fmt.Errorf("job not completed")
	}

	var result model.BatchResult
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

// CancelBatch cancels a batch job. Best effort: only jobs the worker has
// not picked up yet can be cancelled.
func (s *BatchService) CancelBatch(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusQueued {
		return nil, fmt.Errorf("job already %s", job.Status)
	}

	job.Status = model.JobStatusCanceled
	now := time.Now()
	job.CompletedAt = &now

	if err := s.store.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	return job, nil
}

// ListJobItems returns the persisted content items of a batch
func (s *BatchService) ListJobItems(ctx context.Context, jobID string) ([]model.GenerationItem, error) {
	return s.store.ListItemsByJob(ctx, jobID)
}

// UpdateJobProgress updates job progress (called by worker)
func (s *BatchService) UpdateJobProgress(ctx context.Context, jobID string, progress int, stage string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Progress = progress
	job.CurrentStage = stage

	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}

	return s.store.SaveJob(ctx, job)
}

// ClaimJob transitions a queued job to running, refusing cancelled jobs
// (called by worker before any work starts)
func (s *BatchService) ClaimJob(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == model.JobStatusCanceled {
		return nil, fmt.Errorf("job cancelled")
	}
	if job.Status != model.JobStatusQueued {
		return nil, fmt.Errorf("job already %s", job.Status)
	}

	job.Status = model.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	if err := s.store.SaveJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// CompleteJob marks job as completed (called by worker)
func (s *BatchService) CompleteJob(ctx context.Context, jobID string, result interface{}) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusSucceeded
	job.Progress = 100
	job.Result = resultBytes
	now := time.Now()
	job.CompletedAt = &now

	return s.store.SaveJob(ctx, job)
}

// FailJob marks job as failed (called by worker)
func (s *BatchService) FailJob(ctx context.Context, jobID string, errMsg string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	now := time.Now()
	job.CompletedAt = &now

	return s.store.SaveJob(ctx, job)
}

// resolveRatios merges request ratios over the configured defaults and
// checks they sum to 1.0.
func (s *BatchService) resolveRatios(req *model.BatchStartRequest) (model.TierRatios, error) {
	ratios := model.TierRatios{
		Safe:       s.defaults.SafeRatio,
		Premium:    s.defaults.PremiumRatio,
		Restricted: s.defaults.RestrictedRatio,
	}
	if req.SafeRatio != nil {
		ratios.Safe = *req.SafeRatio
	}
	if req.PremiumRatio != nil {
		ratios.Premium = *req.PremiumRatio
	}
	if req.RestrictedRatio != nil {
		ratios.Restricted = *req.RestrictedRatio
	}

	if math.Abs(ratios.Sum()-1.0) > 1e-6 {
		return model.TierRatios{}, fmt.Errorf("tier ratios must sum to 1.0, got %.3f", ratios.Sum())
	}
	return ratios, nil
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func newBatchTask(jobID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": payload,
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeBatch, data), nil
}
