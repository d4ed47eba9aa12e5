package auth

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/config"
)

// LoginRequest is the body of POST /api/auth/login. Login accepts a
// username or an email.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// MeResponse describes the caller.
type MeResponse struct {
	User              *Principal `json:"user"`
	AuthMode          string     `json:"auth_mode"`
	CanOverrideCovers bool       `json:"can_override_covers"`
}

// AuthController serves the JSON authentication endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	capabilities   *Capabilities
	limiter        *LoginLimiter
	config         config.Auth
}

// NewAuthController creates a new authentication controller. service and
// sessionManager may be nil in none mode.
func NewAuthController(service *Service, sessionManager *SessionManager, capabilities *Capabilities, cfg config.Auth) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		capabilities:   capabilities,
		limiter:        NewLoginLimiter(12*time.Second, 5),
		config:         cfg,
	}
}

// Limiter exposes the login limiter so idle clients can be pruned.
func (ac *AuthController) Limiter() *LoginLimiter {
	return ac.limiter
}

// RegisterRoutes registers the auth endpoints under group. Login and logout
// exist only in local mode.
func (ac *AuthController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/me", ac.Me)
	group.GET("/csrf", ac.CSRFToken)
	if ac.config.Mode == config.AuthModeLocal && ac.service != nil && ac.sessionManager != nil {
		group.POST("/login", ac.Login)
		group.POST("/logout", ac.Logout)
	}
}

// Login checks credentials and binds the user to the caller's session.
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "login and password are required"})
		return
	}

	clientIP := c.ClientIP()
	if !ac.limiter.Allow(clientIP) {
		c.Header("Retry-After", strconv.Itoa(int(ac.limiter.every.Seconds())))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts, try again later"})
		return
	}

	user, err := ac.service.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountLocked):
			c.JSON(http.StatusLocked, gin.H{"error": "account is locked, try again later"})
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		default:
			log.Printf("[AUTH] Login failed for %q: %v", req.Login, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}
	ac.limiter.Reset(clientIP)

	if err := ac.sessionManager.CreateSession(c.Request.Context(), user); err != nil {
		log.Printf("[AUTH] Failed to create session for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	p := Principal{UserID: user.ID, Username: user.Username, Tier: user.Tier, Authenticated: true}
	c.JSON(http.StatusOK, MeResponse{
		User:              &p,
		AuthMode:          string(ac.config.Mode),
		CanOverrideCovers: ac.capabilities.CanOverrideCovers(WithPrincipal(c.Request.Context(), p)),
	})
}

// Logout destroys the caller's session.
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.sessionManager.DestroySession(c.Request.Context()); err != nil {
		log.Printf("[AUTH] Failed to destroy session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Me describes the current caller and what they may do.
func (ac *AuthController) Me(c *gin.Context) {
	resp := MeResponse{
		AuthMode:          string(ac.config.Mode),
		CanOverrideCovers: ac.capabilities.CanOverrideCovers(c.Request.Context()),
	}
	if p := GetPrincipal(c); p.Authenticated {
		resp.User = &p
	}
	c.JSON(http.StatusOK, resp)
}

// CSRFToken returns the token clients send back in the X-CSRF-Token header.
// It is empty when CSRF protection is not enabled.
func (ac *AuthController) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"csrf_token": GetCSRFToken(c), "header": CSRFTokenHeader})
}
