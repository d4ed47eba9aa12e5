package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/config"
)

type authStack struct {
	router *gin.Engine
	sm     *SessionManager
	svc    *Service
	ctrl   *AuthController
}

func setupAuthStack(t *testing.T) *authStack {
	t.Helper()
	cfg := testAuthConfig()
	db := setupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)
	svc := NewService(db, cfg)

	ctrl := NewAuthController(svc, sm, NewCapabilities(cfg.OverrideTier, cfg.DefaultTier), cfg)
	router := gin.New()
	router.Use(sm.SessionLoadSave(), NewMiddleware(svc, sm, cfg).Handler())
	ctrl.RegisterRoutes(router.Group("/api/auth"))

	return &authStack{router: router, sm: sm, svc: svc, ctrl: ctrl}
}

func (s *authStack) do(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestAuthController_LoginMeLogout(t *testing.T) {
	s := setupAuthStack(t)
	_, err := s.svc.CreateUser(context.Background(), "curator", "curator@example.com", testPassword, 2)
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null,"auth_mode":"local","can_override_covers":false}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/auth/login", `{"login":"curator","password":"`+testPassword+`"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"can_override_covers":true`)
	cookie := sessionCookie(t, s.sm, w)
	require.NotNil(t, cookie)

	w = s.do(http.MethodGet, "/api/auth/me", "", cookie)
	assert.Contains(t, w.Body.String(), `"username":"curator"`)
	assert.Contains(t, w.Body.String(), `"can_override_covers":true`)

	w = s.do(http.MethodPost, "/api/auth/logout", "", cookie)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/auth/me", "", cookie)
	assert.Contains(t, w.Body.String(), `"user":null`)
}

func TestAuthController_LoginFailures(t *testing.T) {
	s := setupAuthStack(t)
	_, err := s.svc.CreateUser(context.Background(), "reader", "reader@example.com", testPassword, 0)
	require.NoError(t, err)

	w := s.do(http.MethodPost, "/api/auth/login", `{"login":"reader"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", `{"login":"reader","password":"wrong-password-1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", `{"login":"nobody","password":"wrong-password-1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "unknown users look like bad passwords")

	w = s.do(http.MethodPost, "/api/auth/login", `{"login":"reader","password":"wrong-password-1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", `{"login":"reader","password":"wrong-password-1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// third failure locked the account (MaxLoginAttempts is 3)
	w = s.do(http.MethodPost, "/api/auth/login", `{"login":"reader","password":"`+testPassword+`"}`, nil)
	assert.Equal(t, http.StatusLocked, w.Code)
}

func TestAuthController_LoginRateLimited(t *testing.T) {
	s := setupAuthStack(t)

	for i := 0; i < 5; i++ {
		w := s.do(http.MethodPost, "/api/auth/login", `{"login":"nobody","password":"wrong-password-1"}`, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := s.do(http.MethodPost, "/api/auth/login", `{"login":"nobody","password":"wrong-password-1"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestAuthController_NoneModeHasNoLogin(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Mode = config.AuthModeNone
	cfg.DefaultTier = 2

	router := gin.New()
	router.Use(NewMiddleware(nil, nil, cfg).Handler())
	NewAuthController(nil, nil, NewCapabilities(cfg.OverrideTier, cfg.DefaultTier), cfg).RegisterRoutes(router.Group("/api/auth"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.JSONEq(t, `{"user":null,"auth_mode":"none","can_override_covers":true}`, w.Body.String())
}
