package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/avatarforge/api/internal/client"
	"github.com/avatarforge/api/internal/model"
)

// Selector picks templates for a batch.
type Selector interface {
	Select(niche string, count int, ratios model.TierRatios) ([]model.Template, error)
}

// Generator produces one asset from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, params map[string]interface{}) (*client.GeneratedAsset, error)
}

// Copywriter produces a caption and hashtags for an item.
type Copywriter interface {
	GenerateCaption(ctx context.Context, platform, category, prompt string) (*client.Caption, error)
}

// Moderator classifies an item and assigns its tier.
type Moderator interface {
	Classify(ctx context.Context, text, assetRef string) (*model.ModerationVerdict, error)
}

// BlobStore copies a provider asset into durable storage.
type BlobStore interface {
	Put(ctx context.Context, assetRef, key string) (string, error)
}

// Repository persists finished items.
type Repository interface {
	SaveItem(ctx context.Context, item *model.GenerationItem) error
}

// ProgressFunc receives stage transitions. Progress is 0-100.
type ProgressFunc func(stage model.PipelineStage, progress int)

// stageProgress is the reported completion after each stage.
var stageProgress = map[model.PipelineStage]int{
	model.StageSelect:   10,
	model.StageGenerate: 55,
	model.StageCaption:  70,
	model.StageModerate: 85,
	model.StageStore:    95,
	model.StagePersist:  100,
}

// Orchestrator runs a batch through the six pipeline stages. Only the
// select stage can fail the batch; every later failure is absorbed into
// per-item state and the final counts.
type Orchestrator struct {
	selector   Selector
	generator  Generator
	copywriter Copywriter
	moderator  Moderator
	blobs      BlobStore
	repo       Repository
	limit      int
	onProgress ProgressFunc
}

// NewOrchestrator wires the pipeline. copywriter, moderator and blobs may be
// nil when the matching batch options are off. limit bounds per-stage
// concurrency.
func NewOrchestrator(selector Selector, generator Generator, copywriter Copywriter, moderator Moderator, blobs BlobStore, repo Repository, limit int, onProgress ProgressFunc) *Orchestrator {
	if onProgress == nil {
		onProgress = func(model.PipelineStage, int) {}
	}
	return &Orchestrator{
		selector:   selector,
		generator:  generator,
		copywriter: copywriter,
		moderator:  moderator,
		blobs:      blobs,
		repo:       repo,
		limit:      limit,
		onProgress: onProgress,
	}
}

// Run executes one batch and always returns a result unless selection
// fails or the context dies.
func (o *Orchestrator) Run(ctx context.Context, job *model.GenerationJob) (*model.BatchResult, error) {
	start := time.Now()
	result := &model.BatchResult{
		JobID:     job.ID,
		AvatarID:  job.AvatarID,
		Requested: job.Count,
		Stats: model.GenerationStats{
			Version:      1,
			TierCounts:   map[model.Tier]int{},
			RatingCounts: map[model.SafetyRating]int{},
		},
	}

	items, err := o.selectStage(ctx, job, result)
	if err != nil {
		return nil, err
	}

	items = o.generateStage(ctx, items, result)
	result.Generated = len(items)

	if job.WithCaptions && o.copywriter != nil {
		items = o.captionStage(ctx, job, items, result)
	}
	if job.WithModeration && o.moderator != nil {
		items = o.moderateStage(ctx, items, result)
	}
	if job.WithUpload && o.blobs != nil {
		items = o.storeStage(ctx, job, items, result)
	}

	items = o.persistStage(ctx, items, result)

	for _, item := range items {
		result.Stats.TierCounts[item.Tier]++
		if item.Verdict != nil {
			result.Stats.RatingCounts[item.Verdict.Rating]++
		}
		result.Stats.TotalCostUSD += item.CostUSD
		if item.Caption != "" {
			result.Stats.WithCaptions++
		}
		if item.StoredAt != nil {
			result.Stats.StoredCount++
		}
	}

	result.Items = items
	result.Stats.GenerationTime = time.Since(start).Seconds()
	result.CompletedAt = time.Now().UTC()

	log.Printf("[Pipeline] job %s: %d/%d generated, %d rejected, %d persisted, $%.4f",
		job.ID, result.Generated, result.Requested, result.Rejected, result.Persisted, result.Stats.TotalCostUSD)

	return result, nil
}

// selectStage builds the initial item list, either from custom prompts or
// from the template catalog. An empty selection fails the batch.
func (o *Orchestrator) selectStage(ctx context.Context, job *model.GenerationJob, result *model.BatchResult) ([]model.GenerationItem, error) {
	stageStart := time.Now()
	now := time.Now().UTC()

	var items []model.GenerationItem
	if len(job.CustomPrompts) > 0 {
		tier := job.CustomTier
		if tier == "" {
			tier = model.TierSafe
		}
		for _, prompt := range job.CustomPrompts {
			items = append(items, model.GenerationItem{
				ID:        uuid.NewString(),
				JobID:     job.ID,
				AvatarID:  job.AvatarID,
				Prompt:    prompt,
				Tier:      tier,
				CreatedAt: now,
			})
		}
	} else {
		templates, err := o.selector.Select(job.Niche, job.Count, job.TierRatios)
		if err != nil {
			return nil, fmt.Errorf("template selection failed: %w", err)
		}
		for _, tpl := range templates {
			items = append(items, model.GenerationItem{
				ID:         uuid.NewString(),
				JobID:      job.ID,
				AvatarID:   job.AvatarID,
				TemplateID: tpl.ID,
				Prompt:     tpl.FullPrompt(),
				Tier:       tpl.Tier,
				CreatedAt:  now,
			})
		}
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no templates selected for niche %q", job.Niche)
	}

	o.finishStage(result, model.StageSelect, stageStart, len(items), 0)
	return items, nil
}

// generateStage renders every item concurrently. Failed items drop out.
func (o *Orchestrator) generateStage(ctx context.Context, items []model.GenerationItem, result *model.BatchResult) []model.GenerationItem {
	stageStart := time.Now()

	tasks := make([]func(context.Context) (*client.GeneratedAsset, error), len(items))
	for i := range items {
		prompt := items[i].Prompt
		tasks[i] = func(ctx context.Context) (*client.GeneratedAsset, error) {
			return o.generator.Generate(ctx, prompt, nil)
		}
	}

	survivors := items[:0:0]
	failures := 0
	for i, r := range Run(ctx, o.limit, tasks) {
		if r.Err != nil {
			failures++
			log.Printf("[Pipeline] ✗ generate item %s: %v", items[i].ID, r.Err)
			continue
		}
		items[i].AssetRef = r.Value.AssetRef
		items[i].CostUSD += r.Value.CostUSD
		items[i].Duration = r.Value.Duration
		survivors = append(survivors, items[i])
	}

	o.finishStage(result, model.StageGenerate, stageStart, len(survivors), failures)
	return survivors
}

// captionStage attaches captions sequentially. Failures leave the item
// caption-less but never remove it.
func (o *Orchestrator) captionStage(ctx context.Context, job *model.GenerationJob, items []model.GenerationItem, result *model.BatchResult) []model.GenerationItem {
	stageStart := time.Now()

	failures := 0
	for i := range items {
		caption, err := o.copywriter.GenerateCaption(ctx, string(job.Platform), job.Niche, items[i].Prompt)
		if err != nil {
			failures++
			log.Printf("[Pipeline] ✗ caption item %s: %v", items[i].ID, err)
			continue
		}
		items[i].Caption = caption.Text
		items[i].Hashtags = caption.Hashtags
		items[i].CostUSD += client.CostPerCaption
	}

	o.finishStage(result, model.StageCaption, stageStart, len(items), failures)
	return items
}

// moderateStage classifies items sequentially and reassigns each tier from
// its verdict. Rejected items drop out; classification errors fail closed
// and drop the item too.
func (o *Orchestrator) moderateStage(ctx context.Context, items []model.GenerationItem, result *model.BatchResult) []model.GenerationItem {
	stageStart := time.Now()

	survivors := items[:0:0]
	failures := 0
	for i := range items {
		items[i].CostUSD += client.CostPerCheck
		verdict, err := o.moderator.Classify(ctx, items[i].Prompt, items[i].AssetRef)
		if err != nil {
			failures++
			log.Printf("[Pipeline] ✗ moderate item %s: %v", items[i].ID, err)
			continue
		}
		items[i].Verdict = verdict
		if verdict.Rejected {
			result.Rejected++
			log.Printf("[Pipeline] item %s rejected: %s", items[i].ID, verdict.Reason)
			continue
		}
		items[i].Tier = verdict.Tier
		survivors = append(survivors, items[i])
	}

	o.finishStage(result, model.StageModerate, stageStart, len(survivors), failures+result.Rejected)
	return survivors
}

// storeStage copies provider assets into blob storage. A failed store keeps
// the item with its provider reference; the provider URL expires, so the
// failure is logged loudly.
func (o *Orchestrator) storeStage(ctx context.Context, job *model.GenerationJob, items []model.GenerationItem, result *model.BatchResult) []model.GenerationItem {
	stageStart := time.Now()

	failures := 0
	for i := range items {
		key := fmt.Sprintf("content/%s/%s/%s.jpg", job.AvatarID, job.ID, items[i].ID)
		url, err := o.blobs.Put(ctx, items[i].AssetRef, key)
		if err != nil {
			failures++
			result.FailedToStore++
			items[i].FailReason = fmt.Sprintf("store failed: %v", err)
			log.Printf("[Pipeline] ✗ store item %s, provider URL will expire: %v", items[i].ID, err)
			continue
		}
		now := time.Now().UTC()
		items[i].URL = url
		items[i].CostUSD += client.CostPerUpload
		items[i].StoredAt = &now
	}

	o.finishStage(result, model.StageStore, stageStart, len(items), failures)
	return items
}

// persistStage writes items to the repository one by one; a failed write
// drops only that item.
func (o *Orchestrator) persistStage(ctx context.Context, items []model.GenerationItem, result *model.BatchResult) []model.GenerationItem {
	stageStart := time.Now()

	survivors := items[:0:0]
	failures := 0
	for i := range items {
		if err := o.repo.SaveItem(ctx, &items[i]); err != nil {
			failures++
			log.Printf("[Pipeline] ✗ persist item %s: %v", items[i].ID, err)
			continue
		}
		survivors = append(survivors, items[i])
	}
	result.Persisted = len(survivors)

	o.finishStage(result, model.StagePersist, stageStart, len(survivors), failures)
	return survivors
}

// finishStage records stats and reports progress.
func (o *Orchestrator) finishStage(result *model.BatchResult, stage model.PipelineStage, start time.Time, survivors, failures int) {
	result.Stats.Stages = append(result.Stats.Stages, model.StageStats{
		Stage:     stage,
		Duration:  time.Since(start),
		Survivors: survivors,
		Failures:  failures,
	})
	o.onProgress(stage, stageProgress[stage])
}
