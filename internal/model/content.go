package model

import "time"

// TierRatios is the requested tier mix for a batch. The three ratios
// must sum to 1.0.
type TierRatios struct {
	Safe       float64 `json:"safe"`
	Premium    float64 `json:"premium"`
	Restricted float64 `json:"restricted"`
}

// DefaultTierRatios is the 60/30/10 production mix.
func DefaultTierRatios() TierRatios {
	return TierRatios{Safe: 0.6, Premium: 0.3, Restricted: 0.1}
}

// Sum returns the total of the three ratios.
func (r TierRatios) Sum() float64 {
	return r.Safe + r.Premium + r.Restricted
}

// GenerationJob is one batch request. Immutable once started.
type GenerationJob struct {
	ID             string     `json:"id"`
	AvatarID       string     `json:"avatarId"`
	Niche          string     `json:"niche,omitempty"`
	Count          int        `json:"count"`
	Platform       Platform   `json:"platform"`
	TierRatios     TierRatios `json:"tierRatios"`
	WithCaptions   bool       `json:"withCaptions"`
	WithModeration bool       `json:"withModeration"`
	WithUpload     bool       `json:"withUpload"`
	CustomPrompts  []string   `json:"customPrompts,omitempty"`
	CustomTier     Tier       `json:"customTier,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// ModerationVerdict is the classification result for one item.
// Produced once, never mutated.
type ModerationVerdict struct {
	Rating   SafetyRating       `json:"rating"`
	Tier     Tier               `json:"tier,omitempty"`
	Scores   map[string]float64 `json:"scores,omitempty"`
	Rejected bool               `json:"rejected"`
	Reason   string             `json:"reason,omitempty"`
}

// GenerationItem is one candidate content piece flowing through the
// pipeline. Owned by its job until persisted.
type GenerationItem struct {
	ID         string             `json:"id"`
	JobID      string             `json:"jobId"`
	AvatarID   string             `json:"avatarId"`
	TemplateID string             `json:"templateId,omitempty"`
	Prompt     string             `json:"prompt"`
	Tier       Tier               `json:"tier"`
	AssetRef   string             `json:"assetRef,omitempty"` // provider URL before storage
	URL        string             `json:"url,omitempty"`      // final blob URL
	Caption    string             `json:"caption,omitempty"`
	Hashtags   []string           `json:"hashtags,omitempty"`
	Verdict    *ModerationVerdict `json:"verdict,omitempty"`
	CostUSD    float64            `json:"costUsd"`
	Duration   float64            `json:"durationSeconds"`
	FailReason string             `json:"failReason,omitempty"`
	StoredAt   *time.Time         `json:"storedAt,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// StageStats records one pipeline stage outcome.
type StageStats struct {
	Stage     PipelineStage `json:"stage"`
	Duration  time.Duration `json:"duration"`
	Survivors int           `json:"survivors"`
	Failures  int           `json:"failures"`
}

// GenerationStats is the typed, versioned statistics block attached to a
// finished batch.
type GenerationStats struct {
	Version        int                  `json:"version"`
	TierCounts     map[Tier]int         `json:"tierCounts"`
	RatingCounts   map[SafetyRating]int `json:"ratingCounts"`
	TotalCostUSD   float64              `json:"totalCostUsd"`
	GenerationTime float64              `json:"generationTimeSeconds"`
	WithCaptions   int                  `json:"withCaptions"`
	StoredCount    int                  `json:"storedCount"`
	Stages         []StageStats         `json:"stages"`
}

// BatchResult is the final, always-returned outcome of one pipeline run.
// Partial failures never prevent a result; they show up in the counts.
type BatchResult struct {
	JobID         string           `json:"jobId"`
	AvatarID      string           `json:"avatarId"`
	Requested     int              `json:"requested"`
	Generated     int              `json:"generated"`
	Rejected      int              `json:"rejected"`
	FailedToStore int              `json:"failedToStore"`
	Persisted     int              `json:"persisted"`
	Items         []GenerationItem `json:"items"`
	Stats         GenerationStats  `json:"statistics"`
	CompletedAt   time.Time        `json:"completedAt"`
}
