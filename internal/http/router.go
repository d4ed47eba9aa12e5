package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/storage"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	api := router.Group("/api")

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(api.Group("/auth"))
	}

	views := NewViewsController(cfg.Catalog, cfg.Views, cfg.Sessions, cfg.CoverCache, cfg.Store)
	api.GET("/books", views.ListBooks)
	api.GET("/view", views.GetView)
	api.GET("/books/:id/cover", views.GetCover)
	api.POST("/books/:id/cover/override", views.StartOverride)
	api.GET("/covers/override", views.OverrideStatus)
	api.POST("/covers/override/select", views.SelectCandidate)
	api.DELETE("/covers/override", views.CancelOverride)

	if cfg.Store != nil && cfg.Media != nil && cfg.MediaSigner != nil {
		media := NewMediaController(cfg.Store, cfg.Media, cfg.MediaSigner, cfg.Capabilities, cfg.MaxUploadBytes)
		api.POST("/covers/upload", media.Upload)
		router.GET(storage.MediaRoute+"*path", media.Serve)
	}

	return router
}
