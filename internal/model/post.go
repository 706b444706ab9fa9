package model

import "time"

// SocialAccount is a connected platform account. Token handling and OAuth
// live in the surrounding API layer; the core only needs identity, timezone
// and health.
type SocialAccount struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	AvatarID    string        `json:"avatarId,omitempty"`
	Platform    Platform      `json:"platform"`
	Username    string        `json:"username"`
	AccessToken string        `json:"-"`
	Timezone    string        `json:"timezone"` // IANA name, e.g. "America/New_York"
	Status      AccountStatus `json:"status"`
	HealthScore int           `json:"healthScore"`
	LastCheckAt *time.Time    `json:"lastHealthCheck,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// IsHealthy reports whether the account may publish.
func (a *SocialAccount) IsHealthy() bool {
	return a.Status == AccountActive && a.HealthScore >= 70
}

// RetryState tracks publish retries for a scheduled post.
// Invariant: Count never exceeds the configured max; once it would,
// the post goes terminal failed instead.
type RetryState struct {
	Count       int        `json:"count"`
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`
}

// ScheduledPost is one time-slotted publish job. Created by the scheduling
// engine, mutated only by the dispatcher and retry coordinator.
type ScheduledPost struct {
	ID             string     `json:"id"`
	AccountID      string     `json:"accountId"`
	ContentID      string     `json:"contentId"`
	AvatarID       string     `json:"avatarId,omitempty"`
	Platform       Platform   `json:"platform"`
	ScheduledTime  time.Time  `json:"scheduledTime"` // UTC
	Timezone       string     `json:"timezone"`
	MediaURL       string     `json:"mediaUrl"`
	Caption        string     `json:"caption,omitempty"`
	Hashtags       []string   `json:"hashtags,omitempty"`
	Status         PostStatus `json:"status"`
	Retry          RetryState `json:"retry"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty"`
	PlatformPostID string     `json:"platformPostId,omitempty"`
	PlatformURL    string     `json:"platformUrl,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// PublishResult is what a platform publisher returns on success.
type PublishResult struct {
	PostID      string    `json:"postId"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

// AccountHealth is a platform health-check result.
type AccountHealth struct {
	Healthy     bool     `json:"healthy"`
	Score       int      `json:"score"`
	Shadowban   bool     `json:"shadowban"`
	RateLimited bool     `json:"rateLimited"`
	Issues      []string `json:"issues,omitempty"`
}

// DispatchResult records what a sweep did with one due post.
type DispatchResult struct {
	PostID  string     `json:"postId"`
	Status  PostStatus `json:"status"`
	Skipped bool       `json:"skipped"` // unhealthy account, retried next sweep
	Error   string     `json:"error,omitempty"`
}
