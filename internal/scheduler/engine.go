package scheduler

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avatarforge/api/internal/model"
)

// ScheduleStore provides the account scheduling state the engine needs.
type ScheduleStore interface {
	// LastScheduledTime returns the account's most recent pending or
	// published post time, or nil when the account has none.
	LastScheduledTime(ctx context.Context, accountID string) (*time.Time, error)
	// CountPostsForDay counts pending and published posts for one UTC day.
	CountPostsForDay(ctx context.Context, accountID string, day time.Time) (int, error)
}

const (
	jitterWindowMinutes = 30
	jitterExtraDayOdds  = 0.10
	// maxDayAdvances caps how far a single batch may push into the future
	// before the engine gives up on an item.
	maxDayAdvances = 370
)

// Engine assigns publish slots to content items. All scheduling state for
// one account is mutated under that account's lock, so concurrent batches
// for the same account serialize and the interval and cap invariants hold.
type Engine struct {
	store ScheduleStore
	rules PlatformRules

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine creates a scheduling engine with the given platform rules.
// A zero-value rules gets the defaults; a nil rng gets a time-seeded
// source, tests inject a fixed seed.
func NewEngine(store ScheduleStore, rules PlatformRules, rng *rand.Rand) *Engine {
	if rules.hours == nil {
		rules = DefaultPlatformRules()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		store: store,
		rules: rules,
		locks: map[string]*sync.Mutex{},
		rng:   rng,
	}
}

// Rules returns the platform constraints the engine schedules against.
func (e *Engine) Rules() PlatformRules {
	return e.rules
}

// accountLock returns the mutex for one account, creating it on first use.
func (e *Engine) accountLock(accountID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[accountID] = lock
	}
	return lock
}

// ScheduleBatch assigns a pending post slot to each item, in order. Items
// whose tier the platform does not allow, or that carry no media, are
// skipped with a reason instead of scheduled.
func (e *Engine) ScheduleBatch(ctx context.Context, account *model.SocialAccount, items []model.GenerationItem, startTime time.Time, useJitter bool) ([]model.ScheduledPost, []model.SkippedItem, error) {
	hours := e.rules.Hours(account.Platform)
	if len(hours) == 0 {
		return nil, nil, fmt.Errorf("unsupported platform %q", account.Platform)
	}

	lock := e.accountLock(account.ID)
	lock.Lock()
	defer lock.Unlock()

	loc := time.UTC
	if account.Timezone != "" {
		parsed, err := time.LoadLocation(account.Timezone)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid account timezone %q: %w", account.Timezone, err)
		}
		loc = parsed
	}

	if startTime.IsZero() {
		startTime = time.Now()
	}
	cursor := startTime.UTC()

	last, err := e.store.LastScheduledTime(ctx, account.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load last scheduled time: %w", err)
	}

	minInterval := e.rules.MinInterval(account.Platform)
	dailyCap := e.rules.DailyCap(account.Platform)
	dayCounts := map[string]int{}

	var posts []model.ScheduledPost
	var skipped []model.SkippedItem

	for _, item := range items {
		if !model.PlatformAllowsTier(account.Platform, item.Tier) {
			skipped = append(skipped, model.SkippedItem{
				ContentID: item.ID,
				Reason:    fmt.Sprintf("tier %s not allowed on %s", item.Tier, account.Platform),
			})
			continue
		}
		mediaURL := item.URL
		if mediaURL == "" {
			mediaURL = item.AssetRef
		}
		if mediaURL == "" {
			skipped = append(skipped, model.SkippedItem{ContentID: item.ID, Reason: "item has no media"})
			continue
		}

		slot, err := e.nextSlot(ctx, account.ID, cursor, last, loc, hours, minInterval, dailyCap, useJitter, dayCounts)
		if err != nil {
			skipped = append(skipped, model.SkippedItem{ContentID: item.ID, Reason: err.Error()})
			continue
		}

		posts = append(posts, model.ScheduledPost{
			ID:            uuid.NewString(),
			AccountID:     account.ID,
			ContentID:     item.ID,
			AvatarID:      item.AvatarID,
			Platform:      account.Platform,
			ScheduledTime: slot,
			Timezone:      account.Timezone,
			MediaURL:      mediaURL,
			Caption:       item.Caption,
			Hashtags:      item.Hashtags,
			Status:        model.PostStatusPending,
			CreatedAt:     time.Now().UTC(),
		})

		cursor = slot
		slotCopy := slot
		last = &slotCopy
		dayCounts[dayKey(slot)]++
	}

	log.Printf("[Scheduler] account %s: %d scheduled, %d skipped", account.ID, len(posts), len(skipped))
	return posts, skipped, nil
}

// nextSlot computes the publish time for one item: next optimal hour after
// the cursor, jitter, then the min-interval clamp, then the daily cap.
func (e *Engine) nextSlot(ctx context.Context, accountID string, cursor time.Time, last *time.Time, loc *time.Location, hours []int, minInterval time.Duration, dailyCap int, useJitter bool, dayCounts map[string]int) (time.Time, error) {
	for advances := 0; advances < maxDayAdvances; advances++ {
		slot := e.nextOptimal(cursor, loc, hours, useJitter)

		if useJitter {
			slot = e.applyJitter(slot)
		}

		// Jitter first, clamp second: the interval bound wins over the
		// randomized offset. The clamp lands on the first optimal hour at
		// or after the bound, never on an arbitrary time.
		if last != nil {
			bound := last.Add(minInterval)
			if slot.Before(bound) {
				slot = e.firstOptimalNotBefore(bound, loc, hours, useJitter)
			}
		}

		count, err := e.dayCount(ctx, accountID, slot, dayCounts)
		if err != nil {
			return time.Time{}, err
		}
		if count >= dailyCap {
			// Day is full; restart from the next UTC midnight.
			cursor = slot.Truncate(24 * time.Hour).Add(24 * time.Hour)
			continue
		}

		return slot, nil
	}
	return time.Time{}, fmt.Errorf("no free slot within %d days", maxDayAdvances)
}

// nextOptimal returns the first optimal hour strictly after the cursor's
// hour in the account timezone, rolling to the next day when the list is
// exhausted. The minute is randomized only under jitter.
func (e *Engine) nextOptimal(cursor time.Time, loc *time.Location, hours []int, useJitter bool) time.Time {
	local := cursor.In(loc)

	minute := 0
	if useJitter {
		minute = e.intn(60)
	}

	for _, h := range hours {
		if h > local.Hour() {
			return time.Date(local.Year(), local.Month(), local.Day(), h, minute, 0, 0, loc).UTC()
		}
	}
	next := local.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), hours[0], minute, 0, 0, loc).UTC()
}

// firstOptimalNotBefore returns the earliest optimal-hour slot at or after
// bound. Two local days always contain one.
func (e *Engine) firstOptimalNotBefore(bound time.Time, loc *time.Location, hours []int, useJitter bool) time.Time {
	minute := 0
	if useJitter {
		minute = e.intn(60)
	}

	local := bound.In(loc)
	for day := 0; day < 2; day++ {
		base := local.AddDate(0, 0, day)
		for _, h := range hours {
			candidate := time.Date(base.Year(), base.Month(), base.Day(), h, minute, 0, 0, loc)
			if !candidate.Before(bound) {
				return candidate.UTC()
			}
		}
	}
	return bound.UTC()
}

// applyJitter shifts the slot by up to ±30 minutes and, one time in ten,
// a whole extra day. Predictable posting cadence trips platform detection.
func (e *Engine) applyJitter(slot time.Time) time.Time {
	offset := time.Duration(e.intn(2*jitterWindowMinutes+1)-jitterWindowMinutes) * time.Minute
	slot = slot.Add(offset)
	if e.float64() < jitterExtraDayOdds {
		slot = slot.AddDate(0, 0, 1)
	}
	return slot
}

// dayCount returns the post count for the slot's UTC day, seeding the
// in-batch counter from already-persisted posts on first touch.
func (e *Engine) dayCount(ctx context.Context, accountID string, slot time.Time, dayCounts map[string]int) (int, error) {
	key := dayKey(slot)
	if _, ok := dayCounts[key]; !ok {
		existing, err := e.store.CountPostsForDay(ctx, accountID, slot.UTC())
		if err != nil {
			return 0, fmt.Errorf("failed to count posts for %s: %w", key, err)
		}
		dayCounts[key] = existing
	}
	return dayCounts[key], nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (e *Engine) intn(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Intn(n)
}

func (e *Engine) float64() float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64()
}
