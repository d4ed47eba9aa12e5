package auth

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/config"
)

// ContextKeyPrincipal is the gin context key holding the caller's Principal.
const ContextKeyPrincipal = "auth_principal"

type principalKey struct{}

// Principal is the caller as seen by the rest of the application.
type Principal struct {
	UserID        uint   `json:"id"`
	Username      string `json:"username"`
	Tier          int    `json:"tier"`
	Authenticated bool   `json:"authenticated"`
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx. ok is false when the
// request never passed through the middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Middleware resolves the caller for every request. It never rejects a
// request: browsing is open to everyone and privileged actions check
// Capabilities instead.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
}

// NewMiddleware creates a new authentication middleware. sessionManager may
// be nil in none mode.
func NewMiddleware(service *Service, sessionManager *SessionManager, cfg config.Auth) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
	}
}

func (m *Middleware) anonymous() Principal {
	return Principal{Tier: m.config.DefaultTier}
}

// Handler returns a Gin middleware that stores the caller's Principal in
// both the gin context and the request context.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := m.resolve(c.Request.Context())
		c.Set(ContextKeyPrincipal, p)
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

func (m *Middleware) resolve(ctx context.Context) Principal {
	if m.config.Mode != config.AuthModeLocal || m.sessionManager == nil || m.service == nil {
		return m.anonymous()
	}

	userID := m.sessionManager.GetUserID(ctx)
	if userID == 0 {
		return m.anonymous()
	}

	// The tier is re-read so that changes apply without a new login.
	user, err := m.service.GetUserByID(ctx, userID)
	if err != nil {
		log.Printf("[AUTH] Session references unknown user %d: %v", userID, err)
		return m.anonymous()
	}
	return Principal{
		UserID:        user.ID,
		Username:      user.Username,
		Tier:          user.Tier,
		Authenticated: true,
	}
}

// GetPrincipal returns the caller stored by the middleware, or an anonymous
// tier-0 principal.
func GetPrincipal(c *gin.Context) Principal {
	if v, ok := c.Get(ContextKeyPrincipal); ok {
		if p, ok := v.(Principal); ok {
			return p
		}
	}
	return Principal{}
}

// GetUserID returns the authenticated user's ID, or 0.
func GetUserID(c *gin.Context) uint {
	return GetPrincipal(c).UserID
}
