package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
	http_controllers "github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/shelf"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// loginLimiterPruneSchedule drops login limiter entries every 10 minutes.
const loginLimiterPruneSchedule = "*/10 * * * *"

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the listener goes away
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// csrfSecret returns the configured secret, hex-decoded when possible, or a
// freshly generated one.
func csrfSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}
	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(secret)
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookshelf v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	components, err := NewComponents(cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	coverCache, err := covers.NewCache(cfg.CoverCache.Dir)
	if err != nil {
		log.Printf("WARNING: Failed to initialize cover cache: %v", err)
	} else {
		log.Printf("Cover cache initialized at %s", cfg.CoverCache.Dir)
	}

	// Sessions always exist: they carry the caller's view even without login
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	capabilities := auth.NewCapabilities(cfg.Auth.OverrideTier, cfg.Auth.DefaultTier)

	var authService *auth.Service
	var secret []byte
	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("Authentication mode: local")
		authService = auth.NewService(db.DB, cfg.Auth)

		secret, err = csrfSecret(cfg.Auth.SessionSecret)
		if err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}

		hasUsers, _ := authService.HasUsers(context.Background())
		if !hasUsers {
			log.Printf("No users found. Run '%s create-user' to create an account.", os.Args[0])
		}
	} else {
		log.Printf("Authentication mode: none (every caller has tier %d)", cfg.Auth.DefaultTier)
	}
	authMiddleware := auth.NewMiddleware(authService, sessionManager, cfg.Auth)
	authController := auth.NewAuthController(authService, sessionManager, capabilities, cfg.Auth)

	views := shelf.NewRegistry(components.Resolver, components.Store, capabilities, cfg.Views.IdleTimeout)
	views.SetCandidatePrefix(components.Store.Prefix())

	// Task queue for cover downloads and cache pruning
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var pruneQueue tasks.Enqueuer
	if cfg.Tasks.Enabled && coverCache != nil {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromAppConfig(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewCacheCoverQueue(coverCache),
			tasks.NewPruneCoverCacheQueue(coverCache),
		)
		views.OnPublish(tasks.CachePublishedCovers(taskClient, coverCache))
		pruneQueue = taskClient

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	sched := scheduler.New()
	jobs := []scheduler.Job{
		scheduler.EvictViewsJob(cfg.Views.EvictionSchedule, views),
		{
			Name:     "prune_login_limiter",
			Schedule: loginLimiterPruneSchedule,
			Run: func(ctx context.Context) {
				authController.Limiter().Prune(time.Hour)
			},
		},
	}
	if coverCache != nil {
		jobs = append(jobs, scheduler.PruneCoverCacheJob(cfg.CoverCache.CleanupSchedule, cfg.CoverCache.Retention, pruneQueue, coverCache))
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			log.Fatalf("Failed to schedule %s: %v", job.Name, err)
		}
	}
	schedCtx, schedCancel := context.WithCancel(context.Background())
	sched.Start(schedCtx)

	routerCfg := http_controllers.RouterConfig{
		Catalog:        components.Catalog,
		Views:          views,
		Sessions:       sessionManager,
		Database:       db,
		Store:          components.Store,
		Media:          components.Bucket,
		MediaSigner:    components.Signer,
		Capabilities:   capabilities,
		SessionManager: sessionManager,
		AuthMiddleware: authMiddleware,
		AuthController: authController,
		CSRFSecret:     secret,
		SecureCookies:  cfg.Auth.SecureCookies,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		Version:        version,
	}
	if coverCache != nil {
		routerCfg.CoverCache = coverCache
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		sched.Stop()
		schedCancel()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
