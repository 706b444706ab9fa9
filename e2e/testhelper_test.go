package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/avatarforge/api/internal/auth"
	"github.com/avatarforge/api/internal/client"
	"github.com/avatarforge/api/internal/config"
	"github.com/avatarforge/api/internal/handler"
	"github.com/avatarforge/api/internal/middleware"
	"github.com/avatarforge/api/internal/model"
	"github.com/avatarforge/api/internal/scheduler"
	"github.com/avatarforge/api/internal/service"
	"github.com/avatarforge/api/internal/store"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app   *fiber.App
	store *store.Store
}

// setupApp creates a Fiber app identical to main.go but without the asynq
// worker, so queued jobs stay queued and handler behavior is deterministic.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	// Redis (localhost — must be running)
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})

	// Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { asynqClient.Close() })

	validate := validator.New()

	publishers := map[model.Platform]scheduler.Publisher{
		model.PlatformInstagram: client.NewInstagramClient(),
		model.PlatformTikTok:    client.NewTikTokClient(),
		model.PlatformTwitter:   client.NewTwitterClient(),
		model.PlatformFanHub:    client.NewFanhubClient(),
	}

	st := store.NewStore(redisClient)
	engine := scheduler.NewEngine(st, scheduler.DefaultPlatformRules(), nil)
	retry := scheduler.NewRetryCoordinator(3, 0)
	dispatcher := scheduler.NewDispatcher(st, publishers, retry, 100)

	pipelineDefaults := config.PipelineConfig{
		ConcurrencyLimit: 5,
		SafeRatio:        0.6,
		PremiumRatio:     0.3,
		RestrictedRatio:  0.1,
	}

	batchService := service.NewBatchService(st, asynqClient, pipelineDefaults)
	scheduleService := service.NewScheduleService(st, engine, dispatcher, publishers, false)

	batchHandler := handler.NewBatchHandler(batchService, validate)
	scheduleHandler := handler.NewScheduleHandler(scheduleService, validate)
	accountHandler := handler.NewAccountHandler(st, scheduleService, validate)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	// Base routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"replicate":  false,
				"captioner":  false,
				"moderation": false,
				"r2":         false,
			},
		})
	})

	// API routes (authenticated)
	api := app.Group("/api", authMiddleware.Authenticate())

	// Use very high rate limits so tests don't get blocked
	content := api.Group("/content")
	content.Post("/batch", rateLimiter.BatchLimit(10000), batchHandler.Start)
	content.Get("/batch/status/:jobId", batchHandler.Status)
	content.Get("/batch/result/:jobId", batchHandler.Result)
	content.Post("/batch/cancel/:jobId", batchHandler.Cancel)
	content.Get("/batch/items/:jobId", batchHandler.Items)

	schedule := api.Group("/schedule")
	schedule.Post("/batch", rateLimiter.ScheduleLimit(10000), scheduleHandler.Batch)
	schedule.Get("/posts", scheduleHandler.Posts)
	schedule.Post("/cancel/:postId", scheduleHandler.Cancel)
	schedule.Get("/optimal-times/:platform", scheduleHandler.OptimalTimes)

	api.Post("/publish/:postId", rateLimiter.PublishLimit(10000), scheduleHandler.PublishNow)

	accounts := api.Group("/accounts")
	accounts.Post("/", accountHandler.Connect)
	accounts.Get("/:accountId", accountHandler.Get)
	accounts.Get("/:accountId/health", accountHandler.Health)

	return &testApp{app: app, store: st}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	claims := auth.Claims{
		UserID: "test-user-123",
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "avatarforge-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode extracts the error.code field from a response map.
func errorCode(t *testing.T, result map[string]interface{}) string {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected error object in response")
	}
	code, _ := errObj["code"].(string)
	return code
}
