package scheduler

import (
	"time"

	"github.com/avatarforge/api/internal/model"
)

// PlatformRules carries the per-platform posting constraints the engine
// enforces: candidate posting hours, the smallest gap between two posts on
// one account, and the per-day post limit. Built from configuration in
// main; defaults match the production tables.
type PlatformRules struct {
	hours     map[model.Platform][]int
	intervals map[model.Platform]time.Duration
	caps      map[model.Platform]int
}

// DefaultPlatformRules returns the production posting constraints.
func DefaultPlatformRules() PlatformRules {
	return PlatformRules{
		// Posting hours per platform, ascending. The hours are local to the
		// account's timezone; the engine builds slots with time.Date in that
		// location.
		hours: map[model.Platform][]int{
			model.PlatformInstagram: {13, 14, 15, 17, 18, 19},
			model.PlatformTikTok:    {14, 15, 16, 18, 19, 20, 21},
			model.PlatformTwitter:   {12, 13, 17, 18},
			model.PlatformFanHub:    {20, 21, 22, 23},
		},
		intervals: map[model.Platform]time.Duration{
			model.PlatformInstagram: 4 * time.Hour,
			model.PlatformTikTok:    3 * time.Hour,
			model.PlatformTwitter:   1 * time.Hour,
			model.PlatformFanHub:    6 * time.Hour,
		},
		caps: map[model.Platform]int{
			model.PlatformInstagram: 3,
			model.PlatformTikTok:    5,
			model.PlatformTwitter:   10,
			model.PlatformFanHub:    2,
		},
	}
}

// NewPlatformRules merges configured overrides onto the defaults. Keys are
// platform names; a platform absent from an override map keeps its default.
func NewPlatformRules(hours map[string][]int, intervalHours map[string]int, caps map[string]int) PlatformRules {
	rules := DefaultPlatformRules()
	for name, h := range hours {
		if len(h) > 0 {
			rules.hours[model.Platform(name)] = h
		}
	}
	for name, iv := range intervalHours {
		if iv > 0 {
			rules.intervals[model.Platform(name)] = time.Duration(iv) * time.Hour
		}
	}
	for name, c := range caps {
		if c > 0 {
			rules.caps[model.Platform(name)] = c
		}
	}
	return rules
}

// Hours returns the posting hours for a platform, local to the account's
// timezone. Nil means the platform is unsupported.
func (r PlatformRules) Hours(p model.Platform) []int {
	return r.hours[p]
}

// MinInterval returns the per-account posting gap for a platform.
func (r PlatformRules) MinInterval(p model.Platform) time.Duration {
	if d, ok := r.intervals[p]; ok {
		return d
	}
	return 4 * time.Hour
}

// DailyCap returns the per-account per-UTC-day post limit for a platform.
func (r PlatformRules) DailyCap(p model.Platform) int {
	if c, ok := r.caps[p]; ok {
		return c
	}
	return 3
}
