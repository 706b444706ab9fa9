package model

import "time"

// BatchStartRequest starts a generation batch for an avatar.
type BatchStartRequest struct {
	AvatarID        string   `json:"avatarId" validate:"required,uuid4"`
	Niche           string   `json:"niche,omitempty"`
	Count           int      `json:"count" validate:"required,min=1,max=200"`
	Platform        Platform `json:"platform" validate:"required,oneof=instagram tiktok twitter fanhub"`
	SafeRatio       *float64 `json:"safeRatio,omitempty" validate:"omitempty,min=0,max=1"`
	PremiumRatio    *float64 `json:"premiumRatio,omitempty" validate:"omitempty,min=0,max=1"`
	RestrictedRatio *float64 `json:"restrictedRatio,omitempty" validate:"omitempty,min=0,max=1"`
	WithCaptions    *bool    `json:"withCaptions,omitempty"`
	WithModeration  *bool    `json:"withModeration,omitempty"`
	WithUpload      *bool    `json:"withUpload,omitempty"`
	CustomPrompts   []string `json:"customPrompts,omitempty" validate:"omitempty,max=200,dive,min=3"`
	CustomTier      Tier     `json:"customTier,omitempty" validate:"omitempty,oneof=tier1 tier2 tier3"`
}

// BatchStartResponse acknowledges an accepted batch job.
type BatchStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// BatchStatusResponse reports batch job progress.
type BatchStatusResponse struct {
	JobID        string     `json:"jobId"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"`
	CurrentStage string     `json:"currentStage,omitempty"`
	Error        *string    `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// ScheduleBatchRequest schedules approved content items on one account.
type ScheduleBatchRequest struct {
	AccountID  string     `json:"accountId" validate:"required,uuid4"`
	ContentIDs []string   `json:"contentIds" validate:"required,min=1,max=100,dive,uuid4"`
	StartTime  *time.Time `json:"startTime,omitempty"`
	UseJitter  *bool      `json:"useJitter,omitempty"`
}

// ScheduleBatchResponse lists the created posts.
type ScheduleBatchResponse struct {
	AccountID string          `json:"accountId"`
	Scheduled int             `json:"scheduled"`
	Skipped   []SkippedItem   `json:"skipped,omitempty"`
	Posts     []ScheduledPost `json:"posts"`
}

// SkippedItem explains why a content item was not scheduled.
type SkippedItem struct {
	ContentID string `json:"contentId"`
	Reason    string `json:"reason"`
}

// OptimalTimesResponse exposes the per-platform posting windows. Hours are
// local to the posting account's timezone.
type OptimalTimesResponse struct {
	Platform         Platform `json:"platform"`
	OptimalHours     []int    `json:"optimalHours"`
	MinIntervalHours int      `json:"minIntervalHours"`
	DailyCap         int      `json:"dailyCap"`
}
