package scheduler

import (
	"testing"
	"time"

	"github.com/avatarforge/api/internal/model"
)

func TestReschedule_BackoffSequence(t *testing.T) {
	coord := NewRetryCoordinator(3, 2*time.Hour)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	post := model.ScheduledPost{ID: "post-1", Status: model.PostStatusPending}

	for i, wantDelay := range []time.Duration{2 * time.Hour, 4 * time.Hour, 8 * time.Hour} {
		post = coord.Reschedule(post, now)
		if post.Status != model.PostStatusPending {
			t.Fatalf("retry %d: expected pending, got %s", i+1, post.Status)
		}
		if got := post.ScheduledTime.Sub(now); got != wantDelay {
			t.Errorf("retry %d: expected delay %v, got %v", i+1, wantDelay, got)
		}
		if post.Retry.Count != i+1 {
			t.Errorf("retry %d: expected count %d, got %d", i+1, i+1, post.Retry.Count)
		}
	}
}

func TestReschedule_FourthFailureIsTerminal(t *testing.T) {
	coord := NewRetryCoordinator(3, 2*time.Hour)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	post := model.ScheduledPost{
		ID:            "post-1",
		Status:        model.PostStatusPending,
		ScheduledTime: now.Add(8 * time.Hour),
		Retry:         model.RetryState{Count: 3},
	}

	before := post.ScheduledTime
	post = coord.Reschedule(post, now)

	if post.Status != model.PostStatusFailed {
		t.Fatalf("expected failed, got %s", post.Status)
	}
	if !post.ScheduledTime.Equal(before) {
		t.Errorf("terminal failure must not move the scheduled time")
	}

	// Further calls change nothing
	again := coord.Reschedule(post, now.Add(time.Hour))
	if again.Status != model.PostStatusFailed || !again.ScheduledTime.Equal(before) {
		t.Errorf("failed post must stay failed: %s at %s", again.Status, again.ScheduledTime)
	}
}

func TestReschedule_Defaults(t *testing.T) {
	coord := NewRetryCoordinator(0, 0)
	now := time.Now().UTC()

	post := coord.Reschedule(model.ScheduledPost{Status: model.PostStatusPending}, now)
	if got := post.ScheduledTime.Sub(now); got != 2*time.Hour {
		t.Errorf("expected default 2h base backoff, got %v", got)
	}
}
