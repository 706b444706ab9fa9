package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/avatarforge/api/internal/client"
	"github.com/avatarforge/api/internal/model"
)

type fakeSelector struct {
	templates []model.Template
	err       error
}

func (f *fakeSelector) Select(niche string, count int, ratios model.TierRatios) ([]model.Template, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.templates, nil
}

type fakeGenerator struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool // 1-based call index
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, params map[string]interface{}) (*client.GeneratedAsset, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.failOn[n] {
		return nil, &client.TransientError{Op: "replicate.generate", Err: errors.New("provider overloaded")}
	}
	return &client.GeneratedAsset{AssetRef: fmt.Sprintf("https://provider/%d.jpg", n), CostUSD: 0.01, Duration: 1.5}, nil
}

type fakeCopywriter struct {
	err error
}

func (f *fakeCopywriter) GenerateCaption(ctx context.Context, platform, category, prompt string) (*client.Caption, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &client.Caption{Text: "living my best life", Hashtags: []string{"fitness", "daily"}}, nil
}

type fakeModerator struct {
	rejectPrompts map[string]bool
	err           error
}

func (f *fakeModerator) Classify(ctx context.Context, text, assetRef string) (*model.ModerationVerdict, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.rejectPrompts[text] {
		return &model.ModerationVerdict{Rating: model.RatingRejected, Rejected: true, Reason: "sexual score 0.95 exceeds threshold 0.90"}, nil
	}
	return &model.ModerationVerdict{Rating: model.RatingSafe, Tier: model.TierSafe}, nil
}

type fakeBlobStore struct {
	failKeys []string // substring match
}

func (f *fakeBlobStore) Put(ctx context.Context, assetRef, key string) (string, error) {
	for _, frag := range f.failKeys {
		if strings.Contains(key, frag) {
			return "", &client.TransientError{Op: "r2.upload", Err: errors.New("bucket unavailable")}
		}
	}
	return "https://cdn.example.com/" + key, nil
}

type fakeRepo struct {
	mu    sync.Mutex
	saved []model.GenerationItem
	err   error
}

func (f *fakeRepo) SaveItem(ctx context.Context, item *model.GenerationItem) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *item)
	return nil
}

func safeTemplates(n int) []model.Template {
	out := make([]model.Template, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Template{
			ID:       fmt.Sprintf("T-%03d", i),
			Category: model.CategoryFitness,
			Tier:     model.TierSafe,
			Prompt:   fmt.Sprintf("prompt %d", i),
		})
	}
	return out
}

func testJob(count int) *model.GenerationJob {
	return &model.GenerationJob{
		ID:             "job-1",
		AvatarID:       "avatar-1",
		Niche:          "fitness",
		Count:          count,
		Platform:       model.PlatformInstagram,
		TierRatios:     model.DefaultTierRatios(),
		WithCaptions:   true,
		WithModeration: true,
		WithUpload:     true,
	}
}

func newTestOrchestrator(sel Selector, gen Generator, repo Repository) *Orchestrator {
	return NewOrchestrator(sel, gen, &fakeCopywriter{}, &fakeModerator{}, &fakeBlobStore{}, repo, 5, nil)
}

func TestRun_HappyPath(t *testing.T) {
	repo := &fakeRepo{}
	o := newTestOrchestrator(&fakeSelector{templates: safeTemplates(4)}, &fakeGenerator{}, repo)

	result, err := o.Run(context.Background(), testJob(4))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Generated != 4 || result.Persisted != 4 {
		t.Errorf("expected 4 generated and persisted, got %d/%d", result.Generated, result.Persisted)
	}
	if len(repo.saved) != 4 {
		t.Errorf("expected 4 items saved, got %d", len(repo.saved))
	}
	if len(result.Stats.Stages) != 6 {
		t.Errorf("expected 6 stage entries, got %d", len(result.Stats.Stages))
	}
	for _, item := range result.Items {
		if item.Caption == "" {
			t.Errorf("item %s missing caption", item.ID)
		}
		if item.URL == "" {
			t.Errorf("item %s missing stored URL", item.ID)
		}
		if item.StoredAt == nil {
			t.Errorf("item %s missing StoredAt", item.ID)
		}
	}
}

func TestRun_SelectFailureAbortsJob(t *testing.T) {
	o := newTestOrchestrator(&fakeSelector{err: errors.New("catalog empty")}, &fakeGenerator{}, &fakeRepo{})

	if _, err := o.Run(context.Background(), testJob(4)); err == nil {
		t.Fatal("expected selection failure to abort the job")
	}
}

func TestRun_GenerationFailuresAreAbsorbed(t *testing.T) {
	gen := &fakeGenerator{failOn: map[int]bool{2: true, 3: true}}
	o := newTestOrchestrator(&fakeSelector{templates: safeTemplates(5)}, gen, &fakeRepo{})

	result, err := o.Run(context.Background(), testJob(5))
	if err != nil {
		t.Fatalf("partial generation failure must not fail the job: %v", err)
	}

	if result.Generated != 3 {
		t.Errorf("expected 3 generated, got %d", result.Generated)
	}
	if result.Persisted != 3 {
		t.Errorf("expected 3 persisted, got %d", result.Persisted)
	}
}

func TestRun_RejectedItemsAreRemoved(t *testing.T) {
	templates := safeTemplates(3)
	mod := &fakeModerator{rejectPrompts: map[string]bool{templates[1].FullPrompt(): true}}
	repo := &fakeRepo{}
	o := NewOrchestrator(&fakeSelector{templates: templates}, &fakeGenerator{}, &fakeCopywriter{}, mod, &fakeBlobStore{}, repo, 5, nil)

	result, err := o.Run(context.Background(), testJob(3))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Rejected != 1 {
		t.Errorf("expected 1 rejected, got %d", result.Rejected)
	}
	if result.Persisted != 2 {
		t.Errorf("expected 2 persisted, got %d", result.Persisted)
	}
	for _, item := range result.Items {
		if item.Prompt == templates[1].FullPrompt() {
			t.Error("rejected item must not reach the result")
		}
	}
}

func TestRun_CaptionFailureIsNonFatal(t *testing.T) {
	o := NewOrchestrator(&fakeSelector{templates: safeTemplates(3)}, &fakeGenerator{},
		&fakeCopywriter{err: errors.New("llm down")}, &fakeModerator{}, &fakeBlobStore{}, &fakeRepo{}, 5, nil)

	result, err := o.Run(context.Background(), testJob(3))
	if err != nil {
		t.Fatalf("caption failure must not fail the job: %v", err)
	}

	if result.Persisted != 3 {
		t.Errorf("expected all 3 items to survive caption failures, got %d", result.Persisted)
	}
	for _, item := range result.Items {
		if item.Caption != "" {
			t.Errorf("item %s should have no caption", item.ID)
		}
	}
}

func TestRun_StoreFailureKeepsProviderRef(t *testing.T) {
	templates := safeTemplates(2)
	repo := &fakeRepo{}
	o := NewOrchestrator(&fakeSelector{templates: templates}, &fakeGenerator{}, &fakeCopywriter{},
		&fakeModerator{}, &fakeBlobStore{failKeys: []string{"job-1"}}, repo, 5, nil)

	result, err := o.Run(context.Background(), testJob(2))
	if err != nil {
		t.Fatalf("store failure must not fail the job: %v", err)
	}

	if result.FailedToStore != 2 {
		t.Errorf("expected 2 store failures, got %d", result.FailedToStore)
	}
	if result.Persisted != 2 {
		t.Errorf("store failures keep items, got %d persisted", result.Persisted)
	}
	for _, item := range result.Items {
		if item.AssetRef == "" {
			t.Errorf("item %s lost its provider reference", item.ID)
		}
		if item.URL != "" {
			t.Errorf("item %s should have no stored URL", item.ID)
		}
	}
}

func TestRun_CostAggregation(t *testing.T) {
	o := newTestOrchestrator(&fakeSelector{templates: safeTemplates(2)}, &fakeGenerator{}, &fakeRepo{})

	result, err := o.Run(context.Background(), testJob(2))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// 2 × (image 0.01 + caption 0.003 + moderation 0.0001 + upload 0.001)
	want := 2 * (0.01 + client.CostPerCaption + client.CostPerCheck + client.CostPerUpload)
	if diff := result.Stats.TotalCostUSD - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected total cost %.4f, got %.4f", want, result.Stats.TotalCostUSD)
	}
}

func TestRun_CustomPromptsBypassSelector(t *testing.T) {
	repo := &fakeRepo{}
	o := newTestOrchestrator(&fakeSelector{err: errors.New("must not be called")}, &fakeGenerator{}, repo)

	job := testJob(2)
	job.CustomPrompts = []string{"sunrise rooftop portrait", "city rain walk"}
	job.CustomTier = model.TierPremium

	result, err := o.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Generated != 2 {
		t.Errorf("expected 2 generated from custom prompts, got %d", result.Generated)
	}
}

func TestRun_OptionalStagesSkipped(t *testing.T) {
	repo := &fakeRepo{}
	o := newTestOrchestrator(&fakeSelector{templates: safeTemplates(2)}, &fakeGenerator{}, repo)

	job := testJob(2)
	job.WithCaptions = false
	job.WithModeration = false
	job.WithUpload = false

	result, err := o.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// select, generate, persist only
	if len(result.Stats.Stages) != 3 {
		t.Errorf("expected 3 stage entries, got %d", len(result.Stats.Stages))
	}
	for _, item := range result.Items {
		if item.Caption != "" || item.URL != "" || item.Verdict != nil {
			t.Errorf("item %s ran a skipped stage", item.ID)
		}
	}
}

func TestRun_ReportsProgressPerStage(t *testing.T) {
	var stages []model.PipelineStage
	var last int
	progress := func(stage model.PipelineStage, pct int) {
		stages = append(stages, stage)
		if pct < last {
			t.Errorf("progress went backwards at %s: %d < %d", stage, pct, last)
		}
		last = pct
	}

	o := NewOrchestrator(&fakeSelector{templates: safeTemplates(2)}, &fakeGenerator{}, &fakeCopywriter{},
		&fakeModerator{}, &fakeBlobStore{}, &fakeRepo{}, 5, progress)

	if _, err := o.Run(context.Background(), testJob(2)); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(stages) != 6 {
		t.Fatalf("expected 6 progress reports, got %d", len(stages))
	}
	if stages[0] != model.StageSelect || stages[5] != model.StagePersist {
		t.Errorf("unexpected stage order: %v", stages)
	}
	if last != 100 {
		t.Errorf("final progress should be 100, got %d", last)
	}
}
