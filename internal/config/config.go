package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	Replicate  ReplicateConfig
	Captioner  CaptionerConfig
	Moderation ModerationConfig
	R2         R2Config
	Pipeline   PipelineConfig
	Scheduler  SchedulerConfig
	Gateway    GatewayConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	BatchPerHour    int
	SchedulePerHour int
	PublishPerHour  int
}

type ReplicateConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int // seconds
}

type CaptionerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type ModerationConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type PipelineConfig struct {
	ConcurrencyLimit int
	SafeRatio        float64
	PremiumRatio     float64
	RestrictedRatio  float64
}

type SchedulerConfig struct {
	UseJitter        bool
	MaxRetries       int
	BaseBackoffHours int
	SweepInterval    int // seconds
	DispatchBatch    int

	// Per-platform posting constraints, keyed by platform name. Hours are
	// local to the posting account's timezone.
	OptimalHours     map[string][]int
	MinIntervalHours map[string]int
	DailyCaps        map[string]int
}

// schedulerPlatforms are the platform keys the per-platform scheduler
// settings are read for.
var schedulerPlatforms = []string{"instagram", "tiktok", "twitter", "fanhub"}

type GatewayConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("REPLICATE_API_KEY")
	readSecret("CAPTIONER_API_KEY")
	readSecret("MODERATION_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("replicate.api_key", "REPLICATE_API_KEY")
	_ = viper.BindEnv("replicate.base_url", "REPLICATE_BASE_URL")
	_ = viper.BindEnv("replicate.model", "REPLICATE_MODEL")
	_ = viper.BindEnv("replicate.timeout", "REPLICATE_TIMEOUT")
	_ = viper.BindEnv("captioner.api_key", "CAPTIONER_API_KEY")
	_ = viper.BindEnv("captioner.base_url", "CAPTIONER_BASE_URL")
	_ = viper.BindEnv("captioner.model", "CAPTIONER_MODEL")
	_ = viper.BindEnv("moderation.api_key", "MODERATION_API_KEY")
	_ = viper.BindEnv("moderation.base_url", "MODERATION_BASE_URL")
	_ = viper.BindEnv("moderation.model", "MODERATION_MODEL")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("pipeline.concurrency_limit", "PIPELINE_CONCURRENCY_LIMIT")
	_ = viper.BindEnv("scheduler.use_jitter", "SCHEDULER_USE_JITTER")
	_ = viper.BindEnv("scheduler.max_retries", "SCHEDULER_MAX_RETRIES")
	_ = viper.BindEnv("scheduler.base_backoff_hours", "SCHEDULER_BASE_BACKOFF_HOURS")
	_ = viper.BindEnv("scheduler.sweep_interval", "SCHEDULER_SWEEP_INTERVAL")
	_ = viper.BindEnv("scheduler.dispatch_batch", "SCHEDULER_DISPATCH_BATCH")
	for _, p := range schedulerPlatforms {
		upper := strings.ToUpper(p)
		_ = viper.BindEnv("scheduler.optimal_hours."+p, "SCHEDULER_OPTIMAL_HOURS_"+upper)
		_ = viper.BindEnv("scheduler.min_interval_hours."+p, "SCHEDULER_MIN_INTERVAL_HOURS_"+upper)
		_ = viper.BindEnv("scheduler.daily_cap."+p, "SCHEDULER_DAILY_CAP_"+upper)
	}
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.batch_per_hour", 10)
	viper.SetDefault("ratelimit.schedule_per_hour", 30)
	viper.SetDefault("ratelimit.publish_per_hour", 60)

	// Replicate defaults
	viper.SetDefault("replicate.base_url", "https://api.replicate.com/v1")
	viper.SetDefault("replicate.model", "black-forest-labs/flux-dev-lora")
	viper.SetDefault("replicate.timeout", 120)

	// Captioner defaults (OpenAI-compatible chat API)
	viper.SetDefault("captioner.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("captioner.model", "llama-3.3-70b-versatile")

	// Moderation defaults
	viper.SetDefault("moderation.base_url", "https://api.openai.com/v1")
	viper.SetDefault("moderation.model", "omni-moderation-latest")

	// Pipeline defaults
	viper.SetDefault("pipeline.concurrency_limit", 5)
	viper.SetDefault("pipeline.safe_ratio", 0.6)
	viper.SetDefault("pipeline.premium_ratio", 0.3)
	viper.SetDefault("pipeline.restricted_ratio", 0.1)

	// Scheduler defaults
	viper.SetDefault("scheduler.use_jitter", true)
	viper.SetDefault("scheduler.max_retries", 3)
	viper.SetDefault("scheduler.base_backoff_hours", 2)
	viper.SetDefault("scheduler.sweep_interval", 60)
	viper.SetDefault("scheduler.dispatch_batch", 100)

	// Per-platform posting constraints
	viper.SetDefault("scheduler.optimal_hours.instagram", []int{13, 14, 15, 17, 18, 19})
	viper.SetDefault("scheduler.optimal_hours.tiktok", []int{14, 15, 16, 18, 19, 20, 21})
	viper.SetDefault("scheduler.optimal_hours.twitter", []int{12, 13, 17, 18})
	viper.SetDefault("scheduler.optimal_hours.fanhub", []int{20, 21, 22, 23})
	viper.SetDefault("scheduler.min_interval_hours.instagram", 4)
	viper.SetDefault("scheduler.min_interval_hours.tiktok", 3)
	viper.SetDefault("scheduler.min_interval_hours.twitter", 1)
	viper.SetDefault("scheduler.min_interval_hours.fanhub", 6)
	viper.SetDefault("scheduler.daily_cap.instagram", 3)
	viper.SetDefault("scheduler.daily_cap.tiktok", 5)
	viper.SetDefault("scheduler.daily_cap.twitter", 10)
	viper.SetDefault("scheduler.daily_cap.fanhub", 2)

	// Gateway defaults
	viper.SetDefault("gateway.enabled", false)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			BatchPerHour:    viper.GetInt("ratelimit.batch_per_hour"),
			SchedulePerHour: viper.GetInt("ratelimit.schedule_per_hour"),
			PublishPerHour:  viper.GetInt("ratelimit.publish_per_hour"),
		},
		Replicate: ReplicateConfig{
			APIKey:  viper.GetString("replicate.api_key"),
			BaseURL: viper.GetString("replicate.base_url"),
			Model:   viper.GetString("replicate.model"),
			Timeout: viper.GetInt("replicate.timeout"),
		},
		Captioner: CaptionerConfig{
			APIKey:  viper.GetString("captioner.api_key"),
			BaseURL: viper.GetString("captioner.base_url"),
			Model:   viper.GetString("captioner.model"),
		},
		Moderation: ModerationConfig{
			APIKey:  viper.GetString("moderation.api_key"),
			BaseURL: viper.GetString("moderation.base_url"),
			Model:   viper.GetString("moderation.model"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Pipeline: PipelineConfig{
			ConcurrencyLimit: viper.GetInt("pipeline.concurrency_limit"),
			SafeRatio:        viper.GetFloat64("pipeline.safe_ratio"),
			PremiumRatio:     viper.GetFloat64("pipeline.premium_ratio"),
			RestrictedRatio:  viper.GetFloat64("pipeline.restricted_ratio"),
		},
		Scheduler: SchedulerConfig{
			UseJitter:        viper.GetBool("scheduler.use_jitter"),
			MaxRetries:       viper.GetInt("scheduler.max_retries"),
			BaseBackoffHours: viper.GetInt("scheduler.base_backoff_hours"),
			SweepInterval:    viper.GetInt("scheduler.sweep_interval"),
			DispatchBatch:    viper.GetInt("scheduler.dispatch_batch"),
			OptimalHours:     map[string][]int{},
			MinIntervalHours: map[string]int{},
			DailyCaps:        map[string]int{},
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
	}

	for _, p := range schedulerPlatforms {
		cfg.Scheduler.OptimalHours[p] = viper.GetIntSlice("scheduler.optimal_hours." + p)
		cfg.Scheduler.MinIntervalHours[p] = viper.GetInt("scheduler.min_interval_hours." + p)
		cfg.Scheduler.DailyCaps[p] = viper.GetInt("scheduler.daily_cap." + p)
	}

	return cfg, nil
}
