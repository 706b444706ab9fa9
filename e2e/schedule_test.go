package e2e

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/avatarforge/api/internal/model"
)

// seedAccount writes a healthy account straight into the store.
func seedAccount(t *testing.T, ta *testApp, platform model.Platform) *model.SocialAccount {
	t.Helper()
	account := &model.SocialAccount{
		ID:          uuid.New().String(),
		UserID:      "test-user-123",
		Platform:    platform,
		Username:    "e2e_account",
		AccessToken: "test-token",
		Timezone:    "UTC",
		Status:      model.AccountActive,
		HealthScore: 100,
		CreatedAt:   time.Now().UTC(),
	}
	if err := ta.store.SaveAccount(context.Background(), account); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	return account
}

// seedItem writes a stored content item straight into the store.
func seedItem(t *testing.T, ta *testApp, tier model.Tier) *model.GenerationItem {
	t.Helper()
	now := time.Now().UTC()
	item := &model.GenerationItem{
		ID:        uuid.New().String(),
		JobID:     uuid.New().String(),
		AvatarID:  uuid.New().String(),
		Prompt:    "test prompt",
		Tier:      tier,
		URL:       "https://cdn.example.com/test.jpg",
		Caption:   "test caption",
		CreatedAt: now,
		StoredAt:  &now,
	}
	if err := ta.store.SaveItem(context.Background(), item); err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}
	return item
}

func TestScheduleBatch_Success(t *testing.T) {
	ta := setupApp(t)

	account := seedAccount(t, ta, model.PlatformInstagram)
	item1 := seedItem(t, ta, model.TierSafe)
	item2 := seedItem(t, ta, model.TierSafe)

	body := fmt.Sprintf(`{
		"accountId": "%s",
		"contentIds": ["%s", "%s"],
		"useJitter": false
	}`, account.ID, item1.ID, item2.ID)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/schedule/batch", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusCreated)

	result := parseJSON(t, resp)
	if result["scheduled"] != float64(2) {
		t.Errorf("expected 2 scheduled, got %v", result["scheduled"])
	}
	posts, ok := result["posts"].([]interface{})
	if !ok || len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %v", result["posts"])
	}
	for i, p := range posts {
		post := p.(map[string]interface{})
		if post["status"] != "pending" {
			t.Errorf("post[%d]: expected status pending, got %v", i, post["status"])
		}
	}
}

func TestScheduleBatch_TierGating(t *testing.T) {
	ta := setupApp(t)

	// Restricted content cannot land on Instagram
	account := seedAccount(t, ta, model.PlatformInstagram)
	item := seedItem(t, ta, model.TierRestricted)

	body := fmt.Sprintf(`{
		"accountId": "%s",
		"contentIds": ["%s"],
		"useJitter": false
	}`, account.ID, item.ID)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/schedule/batch", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusCreated)

	result := parseJSON(t, resp)
	if result["scheduled"] != float64(0) {
		t.Errorf("expected 0 scheduled, got %v", result["scheduled"])
	}
	skipped, ok := result["skipped"].([]interface{})
	if !ok || len(skipped) != 1 {
		t.Fatalf("expected 1 skipped item, got %v", result["skipped"])
	}
}

func TestScheduleBatch_AccountNotFound(t *testing.T) {
	ta := setupApp(t)

	item := seedItem(t, ta, model.TierSafe)

	body := fmt.Sprintf(`{
		"accountId": "%s",
		"contentIds": ["%s"]
	}`, uuid.New().String(), item.ID)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/schedule/batch", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestSchedulePosts_ListAndCancel(t *testing.T) {
	ta := setupApp(t)

	account := seedAccount(t, ta, model.PlatformTwitter)
	item := seedItem(t, ta, model.TierPremium)

	body := fmt.Sprintf(`{
		"accountId": "%s",
		"contentIds": ["%s"],
		"useJitter": false
	}`, account.ID, item.ID)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/schedule/batch", body)
	if err != nil {
		t.Fatalf("schedule request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/schedule/posts?accountId="+account.ID, "")
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	listed := parseJSON(t, resp)
	posts, ok := listed["posts"].([]interface{})
	if !ok || len(posts) != 1 {
		t.Fatalf("expected 1 post, got %v", listed["posts"])
	}
	postID := posts[0].(map[string]interface{})["id"].(string)

	resp, err = doAuthRequest(t, ta.app, http.MethodPost, "/api/schedule/cancel/"+postID, "")
	if err != nil {
		t.Fatalf("cancel request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	cancelled := parseJSON(t, resp)
	if cancelled["status"] != "cancelled" {
		t.Errorf("expected status cancelled, got %v", cancelled["status"])
	}

	// A cancelled post cannot be published
	resp, err = doAuthRequest(t, ta.app, http.MethodPost, "/api/publish/"+postID, "")
	if err != nil {
		t.Fatalf("publish request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestScheduleCancel_NotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/schedule/cancel/"+uuid.New().String(), "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestOptimalTimes(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/schedule/optimal-times/instagram", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	hours, ok := result["optimalHours"].([]interface{})
	if !ok || len(hours) == 0 {
		t.Fatal("expected optimal hours in response")
	}
	if result["minIntervalHours"] != float64(4) {
		t.Errorf("expected min interval 4, got %v", result["minIntervalHours"])
	}
	if result["dailyCap"] != float64(3) {
		t.Errorf("expected daily cap 3, got %v", result["dailyCap"])
	}
}

func TestOptimalTimes_UnknownPlatform(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/schedule/optimal-times/myspace", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}
