package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/avatarforge/api/internal/catalog"
	"github.com/avatarforge/api/internal/client"
	"github.com/avatarforge/api/internal/config"
	"github.com/avatarforge/api/internal/handler"
	"github.com/avatarforge/api/internal/middleware"
	"github.com/avatarforge/api/internal/model"
	"github.com/avatarforge/api/internal/pipeline"
	"github.com/avatarforge/api/internal/scheduler"
	"github.com/avatarforge/api/internal/service"
	"github.com/avatarforge/api/internal/store"
	"github.com/avatarforge/api/internal/worker"
	ws "github.com/avatarforge/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	replicateClient := client.NewReplicateClient(&cfg.Replicate)
	captionerClient := client.NewCaptionerClient(&cfg.Captioner)
	moderationClient := client.NewModerationClient(&cfg.Moderation)

	// Initialize R2 client (optional - continues if not configured)
	var r2Client *client.R2Client
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		var err error
		r2Client, err = client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		}
	} else {
		log.Println("Info: R2 storage not configured, generated assets keep provider URLs")
	}

	// Platform publishers
	publishers := map[model.Platform]scheduler.Publisher{
		model.PlatformInstagram: client.NewInstagramClient(),
		model.PlatformTikTok:    client.NewTikTokClient(),
		model.PlatformTwitter:   client.NewTwitterClient(),
		model.PlatformFanHub:    client.NewFanhubClient(),
	}

	// Initialize store and scheduling core
	st := store.NewStore(redisClient)
	rules := scheduler.NewPlatformRules(cfg.Scheduler.OptimalHours, cfg.Scheduler.MinIntervalHours, cfg.Scheduler.DailyCaps)
	engine := scheduler.NewEngine(st, rules, nil)
	retry := scheduler.NewRetryCoordinator(cfg.Scheduler.MaxRetries, time.Duration(cfg.Scheduler.BaseBackoffHours)*time.Hour)
	dispatcher := scheduler.NewDispatcher(st, publishers, retry, cfg.Scheduler.DispatchBatch)

	// Initialize services
	batchService := service.NewBatchService(st, asynqClient, cfg.Pipeline)
	scheduleService := service.NewScheduleService(st, engine, dispatcher, publishers, cfg.Scheduler.UseJitter)

	// Initialize handlers
	batchHandler := handler.NewBatchHandler(batchService, validate)
	scheduleHandler := handler.NewScheduleHandler(scheduleService, validate)
	accountHandler := handler.NewAccountHandler(st, scheduleService, validate)

	// Initialize middleware
	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		// Behind Traefik: auth is handled by ForwardAuth, read X-User-* headers
		log.Println("Info: Gateway mode enabled, using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuthMiddleware()
	} else {
		apiAuthMiddleware = middleware.NewAuthMiddleware(cfg.JWT.Secret).Authenticate()
	}
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"replicate":  replicateClient.IsConfigured(),
				"captioner":  captionerClient.IsConfigured(),
				"moderation": moderationClient.IsConfigured(),
				"r2":         r2Client != nil,
			},
		})
	})

	// API routes
	api := app.Group("/api", apiAuthMiddleware)

	// Content batch routes
	content := api.Group("/content")
	content.Post("/batch", rateLimiter.BatchLimit(cfg.RateLimit.BatchPerHour), batchHandler.Start)
	content.Get("/batch/status/:jobId", batchHandler.Status)
	content.Get("/batch/result/:jobId", batchHandler.Result)
	content.Post("/batch/cancel/:jobId", batchHandler.Cancel)
	content.Get("/batch/items/:jobId", batchHandler.Items)

	// Schedule routes
	schedule := api.Group("/schedule")
	schedule.Post("/batch", rateLimiter.ScheduleLimit(cfg.RateLimit.SchedulePerHour), scheduleHandler.Batch)
	schedule.Get("/posts", scheduleHandler.Posts)
	schedule.Post("/cancel/:postId", scheduleHandler.Cancel)
	schedule.Get("/optimal-times/:platform", scheduleHandler.OptimalTimes)

	// Publish routes
	api.Post("/publish/:postId", rateLimiter.PublishLimit(cfg.RateLimit.PublishPerHour), scheduleHandler.PublishNow)

	// Account routes
	accounts := api.Group("/accounts")
	accounts.Post("/", accountHandler.Connect)
	accounts.Get("/:accountId", accountHandler.Get)
	accounts.Get("/:accountId/health", accountHandler.Health)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, batchService, replicateClient, captionerClient, moderationClient, r2Client, st, hub)

	// Start dispatcher sweep loop
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go runSweepLoop(sweepCtx, dispatcher, time.Duration(cfg.Scheduler.SweepInterval)*time.Second)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		stopSweep()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	batchService *service.BatchService,
	replicateClient *client.ReplicateClient,
	captionerClient *client.CaptionerClient,
	moderationClient *client.ModerationClient,
	r2Client *client.R2Client,
	st *store.Store,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"generate": 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	selector := catalog.NewDefaultSelector()

	// Optional stages wire to nil when the backing client is missing, so the
	// pipeline skips them instead of calling through a dead client.
	var copywriter pipeline.Copywriter
	if captionerClient.IsConfigured() {
		copywriter = captionerClient
	}
	var moderator pipeline.Moderator
	if moderationClient.IsConfigured() {
		moderator = moderationClient
	}
	var blobs pipeline.BlobStore
	if r2Client != nil {
		blobs = r2Client
	}

	newPipeline := func(onProgress pipeline.ProgressFunc) *pipeline.Orchestrator {
		return pipeline.NewOrchestrator(selector, replicateClient, copywriter, moderator, blobs, st, cfg.Pipeline.ConcurrencyLimit, onProgress)
	}

	batchWorker := worker.NewBatchWorker(batchService, newPipeline, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeBatch, batchWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

// runSweepLoop polls for due posts until the context dies. The dispatcher
// single-flights internally, so an overlapping tick is a no-op.
func runSweepLoop(ctx context.Context, dispatcher *scheduler.Dispatcher, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results, err := dispatcher.Sweep(ctx, time.Now().UTC())
			if err != nil {
				log.Printf("Dispatch sweep error: %v", err)
				continue
			}
			if len(results) > 0 {
				log.Printf("Dispatch sweep handled %d posts", len(results))
			}
		}
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
