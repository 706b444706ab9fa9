package model

// Platform identifies a social network target
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformTwitter   Platform = "twitter"
	PlatformFanHub    Platform = "fanhub"
)

var ValidPlatforms = []Platform{
	PlatformInstagram, PlatformTikTok, PlatformTwitter, PlatformFanHub,
}

// Tier is a content sensitivity/access class
type Tier string

const (
	TierSafe       Tier = "tier1" // safe for all platforms
	TierPremium    Tier = "tier2" // suggestive, premium platforms
	TierRestricted Tier = "tier3" // explicit, restricted platforms only
)

// SafetyRating is the moderation verdict class
type SafetyRating string

const (
	RatingSafe       SafetyRating = "safe"
	RatingSuggestive SafetyRating = "suggestive"
	RatingBorderline SafetyRating = "borderline"
	RatingRejected   SafetyRating = "rejected"
)

// TierForRating maps a non-rejected safety rating to its access tier.
func TierForRating(r SafetyRating) Tier {
	switch r {
	case RatingSuggestive:
		return TierPremium
	case RatingBorderline:
		return TierRestricted
	default:
		return TierSafe
	}
}

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// PostStatus is the lifecycle state of a scheduled post
type PostStatus string

const (
	PostStatusPending   PostStatus = "pending"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
	PostStatusCancelled PostStatus = "cancelled"
)

// Terminal reports whether a post status can never change again.
func (s PostStatus) Terminal() bool {
	return s == PostStatusPublished || s == PostStatusFailed || s == PostStatusCancelled
}

// AccountStatus is the health state of a connected social account
type AccountStatus string

const (
	AccountActive       AccountStatus = "active"
	AccountSuspended    AccountStatus = "suspended"
	AccountShadowbanned AccountStatus = "shadowbanned"
	AccountRateLimited  AccountStatus = "rate_limited"
	AccountDisconnected AccountStatus = "disconnected"
)

// PipelineStage names the orchestrator stages
type PipelineStage string

const (
	StageSelect   PipelineStage = "select"
	StageGenerate PipelineStage = "generate"
	StageCaption  PipelineStage = "caption"
	StageModerate PipelineStage = "moderate"
	StageStore    PipelineStage = "store"
	StagePersist  PipelineStage = "persist"
)

// platformTiers lists the access tiers each platform accepts.
var platformTiers = map[Platform][]Tier{
	PlatformInstagram: {TierSafe},
	PlatformTikTok:    {TierSafe},
	PlatformTwitter:   {TierSafe, TierPremium},
	PlatformFanHub:    {TierSafe, TierPremium, TierRestricted},
}

// PlatformAllowsTier reports whether content of the given tier may be
// published on the platform. Unknown platforms accept tier1 only.
func PlatformAllowsTier(p Platform, t Tier) bool {
	tiers, ok := platformTiers[p]
	if !ok {
		tiers = []Tier{TierSafe}
	}
	for _, allowed := range tiers {
		if allowed == t {
			return true
		}
	}
	return false
}
