package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/avatarforge/api/internal/model"
	"github.com/avatarforge/api/internal/pipeline"
	"github.com/avatarforge/api/internal/service"
	"github.com/avatarforge/api/internal/websocket"
)

// PipelineFactory builds an orchestrator bound to a progress callback.
// Tasks run concurrently, so each gets its own orchestrator.
type PipelineFactory func(onProgress pipeline.ProgressFunc) *pipeline.Orchestrator

// BatchWorker processes generation batch jobs
type BatchWorker struct {
	batchService *service.BatchService
	newPipeline  PipelineFactory
	hub          *websocket.Hub
}

// NewBatchWorker creates a new batch worker
func NewBatchWorker(batchService *service.BatchService, newPipeline PipelineFactory, hub *websocket.Hub) *BatchWorker {
	return &BatchWorker{
		batchService: batchService,
		newPipeline:  newPipeline,
		hub:          hub,
	}
}

// ProcessTask handles batch task processing
func (w *BatchWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID
	log.Printf("Starting batch job: %s", jobID)

	var job model.GenerationJob
	if err := json.Unmarshal(taskPayload.Payload, &job); err != nil {
		w.failJob(ctx, jobID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal batch payload: %w", err)
	}

	if _, err := w.batchService.ClaimJob(ctx, jobID); err != nil {
		// Cancelled before start, or duplicate delivery
		log.Printf("Batch job %s not claimable: %v", jobID, err)
		return nil
	}

	orch := w.newPipeline(func(stage model.PipelineStage, progress int) {
		w.updateProgress(ctx, jobID, progress, string(stage))
	})

	result, err := orch.Run(ctx, &job)
	if err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("Batch generation failed: %v", err))
		return err
	}

	if err := w.batchService.CompleteJob(ctx, jobID, result); err != nil {
		log.Printf("Failed to mark job as completed: %v", err)
		return err
	}

	w.hub.BroadcastComplete(jobID, result)
	log.Printf("Batch job %s completed: %d/%d items persisted", jobID, result.Persisted, result.Requested)
	return nil
}

func (w *BatchWorker) updateProgress(ctx context.Context, jobID string, progress int, stage string) {
	if err := w.batchService.UpdateJobProgress(ctx, jobID, progress, stage); err != nil {
		log.Printf("Failed to update progress: %v", err)
	}
	w.hub.BroadcastProgress(jobID, progress, model.JobStatusRunning, stage)
}

func (w *BatchWorker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.batchService.FailJob(ctx, jobID, errMsg); err != nil {
		log.Printf("Failed to mark job as failed: %v", err)
	}
	w.hub.BroadcastError(jobID, "BATCH_FAILED", errMsg)
}
