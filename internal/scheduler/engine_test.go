package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/avatarforge/api/internal/model"
)

type fakeScheduleStore struct {
	last      *time.Time
	dayCounts map[string]int
}

func (f *fakeScheduleStore) LastScheduledTime(ctx context.Context, accountID string) (*time.Time, error) {
	return f.last, nil
}

func (f *fakeScheduleStore) CountPostsForDay(ctx context.Context, accountID string, day time.Time) (int, error) {
	return f.dayCounts[day.UTC().Format("2006-01-02")], nil
}

func newTestEngine(store *fakeScheduleStore, seed int64) *Engine {
	return NewEngine(store, DefaultPlatformRules(), rand.New(rand.NewSource(seed)))
}

func testAccount(platform model.Platform, tz string) *model.SocialAccount {
	return &model.SocialAccount{
		ID:          "acct-1",
		Platform:    platform,
		Username:    "testuser",
		Timezone:    tz,
		Status:      model.AccountActive,
		HealthScore: 90,
	}
}

func storedItems(n int, tier model.Tier) []model.GenerationItem {
	items := make([]model.GenerationItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, model.GenerationItem{
			ID:       fmt.Sprintf("content-%d", i),
			AvatarID: "avatar-1",
			Tier:     tier,
			URL:      fmt.Sprintf("https://cdn.example.com/%d.jpg", i),
			Caption:  "caption",
		})
	}
	return items
}

func hourSet(hours []int) map[int]bool {
	set := map[int]bool{}
	for _, h := range hours {
		set[h] = true
	}
	return set
}

func TestScheduleBatch_InstagramNoJitter(t *testing.T) {
	engine := newTestEngine(&fakeScheduleStore{dayCounts: map[string]int{}}, 1)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	posts, skipped, err := engine.ScheduleBatch(context.Background(),
		testAccount(model.PlatformInstagram, "UTC"), storedItems(3, model.TierSafe), start, false)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("expected no skips, got %v", skipped)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}

	rules := engine.Rules()
	allowed := hourSet(rules.Hours(model.PlatformInstagram))
	minGap := rules.MinInterval(model.PlatformInstagram)
	for i, p := range posts {
		if p.Status != model.PostStatusPending {
			t.Errorf("post %d: expected pending, got %s", i, p.Status)
		}
		if !allowed[p.ScheduledTime.UTC().Hour()] {
			t.Errorf("post %d at %s falls outside the optimal hours", i, p.ScheduledTime)
		}
		if p.ScheduledTime.Minute() != 0 {
			t.Errorf("post %d: expected minute 0 without jitter, got %d", i, p.ScheduledTime.Minute())
		}
		if i > 0 {
			gap := p.ScheduledTime.Sub(posts[i-1].ScheduledTime)
			if gap < minGap {
				t.Errorf("posts %d-%d only %v apart, need %v", i-1, i, gap, minGap)
			}
		}
	}
}

func TestScheduleBatch_TimezoneConversion(t *testing.T) {
	engine := newTestEngine(&fakeScheduleStore{dayCounts: map[string]int{}}, 1)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	posts, _, err := engine.ScheduleBatch(context.Background(),
		testAccount(model.PlatformInstagram, "America/New_York"), storedItems(2, model.TierSafe), start, false)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	loc, _ := time.LoadLocation("America/New_York")
	allowed := hourSet(engine.Rules().Hours(model.PlatformInstagram))
	for i, p := range posts {
		if !allowed[p.ScheduledTime.In(loc).Hour()] {
			t.Errorf("post %d at %s is not an optimal hour in the account timezone", i, p.ScheduledTime.In(loc))
		}
	}
}

func TestScheduleBatch_DailyCapRollsToNextDay(t *testing.T) {
	// Jan 1 already holds a full day of pending posts
	full := DefaultPlatformRules().DailyCap(model.PlatformInstagram)
	store := &fakeScheduleStore{dayCounts: map[string]int{"2024-01-01": full}}
	engine := newTestEngine(store, 1)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	posts, _, err := engine.ScheduleBatch(context.Background(),
		testAccount(model.PlatformInstagram, "UTC"), storedItems(1, model.TierSafe), start, false)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}

	if got := posts[0].ScheduledTime.UTC().Format("2006-01-02"); got != "2024-01-02" {
		t.Errorf("full day should push the post to Jan 2, got %s", got)
	}
}

func TestScheduleBatch_DailyCapNeverExceeded(t *testing.T) {
	engine := newTestEngine(&fakeScheduleStore{dayCounts: map[string]int{}}, 1)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	posts, _, err := engine.ScheduleBatch(context.Background(),
		testAccount(model.PlatformInstagram, "UTC"), storedItems(5, model.TierSafe), start, false)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if len(posts) != 5 {
		t.Fatalf("expected 5 posts, got %d", len(posts))
	}

	dailyCap := engine.Rules().DailyCap(model.PlatformInstagram)
	perDay := map[string]int{}
	for _, p := range posts {
		perDay[p.ScheduledTime.UTC().Format("2006-01-02")]++
	}
	for day, n := range perDay {
		if n > dailyCap {
			t.Errorf("day %s holds %d posts, cap is %d", day, n, dailyCap)
		}
	}

	firstDay := posts[0].ScheduledTime.UTC().Format("2006-01-02")
	if posts[4].ScheduledTime.UTC().Format("2006-01-02") == firstDay {
		t.Error("5th post cannot fit on the first day")
	}
}

func TestScheduleBatch_ClampsAgainstLastScheduled(t *testing.T) {
	last := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	store := &fakeScheduleStore{last: &last, dayCounts: map[string]int{}}
	engine := newTestEngine(store, 1)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	posts, _, err := engine.ScheduleBatch(context.Background(),
		testAccount(model.PlatformInstagram, "UTC"), storedItems(1, model.TierSafe), start, false)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	bound := last.Add(engine.Rules().MinInterval(model.PlatformInstagram))
	if posts[0].ScheduledTime.Before(bound) {
		t.Errorf("post at %s violates the min interval after %s", posts[0].ScheduledTime, last)
	}
}

func TestScheduleBatch_JitterKeepsInterval(t *testing.T) {
	engine := newTestEngine(&fakeScheduleStore{dayCounts: map[string]int{}}, 7)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	posts, _, err := engine.ScheduleBatch(context.Background(),
		testAccount(model.PlatformInstagram, "UTC"), storedItems(4, model.TierSafe), start, true)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	minGap := engine.Rules().MinInterval(model.PlatformInstagram)
	for i := 1; i < len(posts); i++ {
		gap := posts[i].ScheduledTime.Sub(posts[i-1].ScheduledTime)
		if gap < minGap {
			t.Errorf("posts %d-%d only %v apart under jitter, need %v", i-1, i, gap, minGap)
		}
	}
}

func TestScheduleBatch_ConfiguredRules(t *testing.T) {
	// Operator overrides narrow Instagram to a single morning hour with a
	// one-post cap; the engine must schedule against the override, not the
	// defaults.
	rules := NewPlatformRules(
		map[string][]int{"instagram": {8}},
		map[string]int{"instagram": 2},
		map[string]int{"instagram": 1},
	)
	engine := NewEngine(&fakeScheduleStore{dayCounts: map[string]int{}}, rules, rand.New(rand.NewSource(1)))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	posts, _, err := engine.ScheduleBatch(context.Background(),
		testAccount(model.PlatformInstagram, "UTC"), storedItems(2, model.TierSafe), start, false)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}

	for i, p := range posts {
		if p.ScheduledTime.UTC().Hour() != 8 {
			t.Errorf("post %d at %s ignores the configured hour", i, p.ScheduledTime)
		}
	}
	// Cap of one per day forces consecutive days
	if posts[1].ScheduledTime.Sub(posts[0].ScheduledTime) != 24*time.Hour {
		t.Errorf("configured cap of 1 should push the second post a day out, got %s and %s",
			posts[0].ScheduledTime, posts[1].ScheduledTime)
	}
}

func TestNewPlatformRules_MergesOverDefaults(t *testing.T) {
	rules := NewPlatformRules(
		map[string][]int{"twitter": {9, 10}},
		nil,
		map[string]int{"twitter": 4},
	)

	if got := rules.Hours(model.PlatformTwitter); len(got) != 2 || got[0] != 9 {
		t.Errorf("expected overridden twitter hours, got %v", got)
	}
	if got := rules.DailyCap(model.PlatformTwitter); got != 4 {
		t.Errorf("expected overridden twitter cap 4, got %d", got)
	}
	// Untouched platforms keep their defaults
	def := DefaultPlatformRules()
	if got := rules.MinInterval(model.PlatformTwitter); got != def.MinInterval(model.PlatformTwitter) {
		t.Errorf("interval should stay at the default, got %v", got)
	}
	if got := rules.Hours(model.PlatformInstagram); len(got) != len(def.Hours(model.PlatformInstagram)) {
		t.Errorf("instagram hours should stay at the default, got %v", got)
	}
}

func TestScheduleBatch_TierGating(t *testing.T) {
	engine := newTestEngine(&fakeScheduleStore{dayCounts: map[string]int{}}, 1)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	items := storedItems(1, model.TierSafe)
	items = append(items, storedItems(1, model.TierRestricted)...)
	items[1].ID = "restricted-item"

	posts, skipped, err := engine.ScheduleBatch(context.Background(),
		testAccount(model.PlatformInstagram, "UTC"), items, start, false)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	if len(posts) != 1 {
		t.Errorf("expected 1 scheduled, got %d", len(posts))
	}
	if len(skipped) != 1 || skipped[0].ContentID != "restricted-item" {
		t.Fatalf("expected the restricted item skipped, got %v", skipped)
	}
}

func TestScheduleBatch_RestrictedAllowedOnFanhub(t *testing.T) {
	engine := newTestEngine(&fakeScheduleStore{dayCounts: map[string]int{}}, 1)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	posts, skipped, err := engine.ScheduleBatch(context.Background(),
		testAccount(model.PlatformFanHub, "UTC"), storedItems(1, model.TierRestricted), start, false)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if len(skipped) != 0 || len(posts) != 1 {
		t.Errorf("restricted content belongs on fanhub: %d posts, %v skipped", len(posts), skipped)
	}
}

func TestScheduleBatch_SkipsItemsWithoutMedia(t *testing.T) {
	engine := newTestEngine(&fakeScheduleStore{dayCounts: map[string]int{}}, 1)

	items := []model.GenerationItem{{ID: "no-media", Tier: model.TierSafe}}
	posts, skipped, err := engine.ScheduleBatch(context.Background(),
		testAccount(model.PlatformInstagram, "UTC"), items, time.Now(), false)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if len(posts) != 0 || len(skipped) != 1 {
		t.Errorf("expected only a skip, got %d posts, %d skipped", len(posts), len(skipped))
	}
}

func TestScheduleBatch_InvalidTimezone(t *testing.T) {
	engine := newTestEngine(&fakeScheduleStore{dayCounts: map[string]int{}}, 1)

	_, _, err := engine.ScheduleBatch(context.Background(),
		testAccount(model.PlatformInstagram, "Not/AZone"), storedItems(1, model.TierSafe), time.Now(), false)
	if err == nil {
		t.Fatal("expected an error for an invalid timezone")
	}
}
