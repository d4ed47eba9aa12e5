package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No login; every caller gets the default tier
	AuthModeLocal AuthMode = "local" // Local user database with sessions
)

type (
	Config struct {
		HTTP
		Global
		Database
		Storage
		Covers
		GoogleBooks
		CoverCache
		Views
		Tasks
		Auth
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Storage struct {
		Dir            string
		Bucket         string
		CoverPrefix    string
		PublicBaseURL  string
		URLMode        string        // "public" or "signed"
		SigningSecret  string        // required in signed mode
		SignedURLTTL   time.Duration // lifetime of a signed media URL
		MaxUploadBytes int64
	}
	Covers struct {
		MirrorBaseURL string
		ProbeTimeout  time.Duration // per-source lookup timeout
	}
	GoogleBooks struct {
		BaseURL           string
		APIKey            string
		RequestsPerSecond int
		Burst             int // searches allowed at once; at least a full page
		MaxResults        int
	}
	CoverCache struct {
		Dir             string
		Retention       time.Duration
		CleanupSchedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Views struct {
		IdleTimeout      time.Duration
		EvictionSchedule string // Cron format
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		MaxLoginAttempts int           // Failed attempts before the account is locked (default: 5)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)

		OverrideTier int // Minimum tier allowed to override covers
		DefaultTier  int // Tier of anonymous callers
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Owned storage defaults
	v.SetDefault("storage_dir", DefaultStorageDir)
	v.SetDefault("storage_bucket", "bookcovers")
	v.SetDefault("storage_cover_prefix", "covers/")
	v.SetDefault("storage_public_base_url", "http://localhost:8188")
	v.SetDefault("storage_url_mode", "public")
	v.SetDefault("storage_signing_secret", "")
	v.SetDefault("storage_signed_url_ttl", "1h")
	v.SetDefault("storage_max_upload_bytes", 5<<20)

	// Cover source defaults
	v.SetDefault("covers_mirror_base_url", "https://raw.githubusercontent.com/benoitvallon/100-best-books/master/static/images")
	v.SetDefault("covers_probe_timeout", "8s")
	v.SetDefault("google_books_base_url", "https://www.googleapis.com/books/v1")
	v.SetDefault("google_books_api_key", "")
	v.SetDefault("google_books_rps", 5)
	v.SetDefault("google_books_burst", 100)
	v.SetDefault("google_books_max_results", 5)

	// Cover cache defaults
	v.SetDefault("cover_cache_dir", DefaultCoverCacheDir)
	v.SetDefault("cover_cache_retention", "168h")           // 7 days
	v.SetDefault("cover_cache_cleanup_schedule", "0 3 * * *") // Daily at 03:00

	// View defaults
	v.SetDefault("view_idle_timeout", "30m")
	v.SetDefault("view_eviction_schedule", "*/5 * * * *")

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_session_secret", "")      // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h") // 24 hours
	v.SetDefault("auth_bcrypt_cost", 12)         // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)    // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)   // Max failed attempts
	v.SetDefault("auth_lockout_duration", "30m") // Lockout duration
	v.SetDefault("auth_override_tier", 2)
	v.SetDefault("auth_default_tier", 0)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Storage: Storage{
			Dir:            v.GetString("STORAGE_DIR"),
			Bucket:         v.GetString("STORAGE_BUCKET"),
			CoverPrefix:    v.GetString("STORAGE_COVER_PREFIX"),
			PublicBaseURL:  v.GetString("STORAGE_PUBLIC_BASE_URL"),
			URLMode:        v.GetString("STORAGE_URL_MODE"),
			SigningSecret:  v.GetString("STORAGE_SIGNING_SECRET"),
			SignedURLTTL:   v.GetDuration("STORAGE_SIGNED_URL_TTL"),
			MaxUploadBytes: v.GetInt64("STORAGE_MAX_UPLOAD_BYTES"),
		},
		Covers: Covers{
			MirrorBaseURL: v.GetString("COVERS_MIRROR_BASE_URL"),
			ProbeTimeout:  v.GetDuration("COVERS_PROBE_TIMEOUT"),
		},
		GoogleBooks: GoogleBooks{
			BaseURL:           v.GetString("GOOGLE_BOOKS_BASE_URL"),
			APIKey:            v.GetString("GOOGLE_BOOKS_API_KEY"),
			RequestsPerSecond: v.GetInt("GOOGLE_BOOKS_RPS"),
			Burst:             v.GetInt("GOOGLE_BOOKS_BURST"),
			MaxResults:        v.GetInt("GOOGLE_BOOKS_MAX_RESULTS"),
		},
		CoverCache: CoverCache{
			Dir:             v.GetString("COVER_CACHE_DIR"),
			Retention:       v.GetDuration("COVER_CACHE_RETENTION"),
			CleanupSchedule: v.GetString("COVER_CACHE_CLEANUP_SCHEDULE"),
		},
		Views: Views{
			IdleTimeout:      v.GetDuration("VIEW_IDLE_TIMEOUT"),
			EvictionSchedule: v.GetString("VIEW_EVICTION_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			Mode:             AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
			OverrideTier:     v.GetInt("AUTH_OVERRIDE_TIER"),
			DefaultTier:      v.GetInt("AUTH_DEFAULT_TIER"),
		},
	}
}
