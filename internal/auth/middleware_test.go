package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// principalRouter echoes the principal seen through both the gin context
// and the request context.
func principalRouter(sm *SessionManager, m *Middleware, login *entities.User) *gin.Engine {
	router := gin.New()
	if sm != nil {
		router.Use(sm.SessionLoadSave())
	}
	router.Use(m.Handler())
	router.POST("/login", func(c *gin.Context) {
		_ = sm.CreateSession(c.Request.Context(), login)
		c.Status(http.StatusNoContent)
	})
	router.GET("/whoami", func(c *gin.Context) {
		fromCtx, ok := PrincipalFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"gin":     GetPrincipal(c),
			"request": fromCtx,
			"ok":      ok,
		})
	})
	return router
}

func TestMiddleware_NoneModeIsAnonymousAtDefaultTier(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Mode = config.AuthModeNone
	cfg.DefaultTier = 1
	m := NewMiddleware(nil, nil, cfg)

	w := httptest.NewRecorder()
	principalRouter(nil, m, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusOK, w.Code)
	anon := `{"id":0,"username":"","tier":1,"authenticated":false}`
	assert.JSONEq(t, `{"gin":`+anon+`,"request":`+anon+`,"ok":true}`, w.Body.String())
}

func TestMiddleware_LocalModeLoadsSessionUser(t *testing.T) {
	cfg := testAuthConfig()
	db := setupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)
	svc := NewService(db, cfg)

	user, err := svc.CreateUser(context.Background(), "curator", "curator@example.com", testPassword, 2)
	require.NoError(t, err)

	router := principalRouter(sm, NewMiddleware(svc, sm, cfg), user)

	// anonymous first
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusOK, w.Code, "browsing is never blocked")
	assert.Contains(t, w.Body.String(), `"authenticated":false`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookie := sessionCookie(t, sm, w)
	require.NotNil(t, cookie)

	// tier changes apply to existing sessions
	require.NoError(t, db.Model(&entities.User{}).Where("id = ?", user.ID).Update("tier", 3).Error)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	p := `{"id":` + jsonUint(user.ID) + `,"username":"curator","tier":3,"authenticated":true}`
	assert.JSONEq(t, `{"gin":`+p+`,"request":`+p+`,"ok":true}`, w.Body.String())
}

func TestMiddleware_DeletedUserFallsBackToAnonymous(t *testing.T) {
	cfg := testAuthConfig()
	db := setupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)
	svc := NewService(db, cfg)

	ghost := &entities.User{ID: 404, Username: "ghost", Tier: 5}
	router := principalRouter(sm, NewMiddleware(svc, sm, cfg), ghost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookie := sessionCookie(t, sm, w)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "ghost")
}

func TestPrincipalFrom_Missing(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, Principal{}, GetPrincipal(c))
	assert.Zero(t, GetUserID(c))
}

func TestCapabilities_CanOverrideCovers(t *testing.T) {
	caps := NewCapabilities(2, 0)

	tests := []struct {
		name string
		ctx  context.Context
		want bool
	}{
		{name: "no principal uses default tier", ctx: context.Background(), want: false},
		{name: "below threshold", ctx: WithPrincipal(context.Background(), Principal{Tier: 1}), want: false},
		{name: "at threshold", ctx: WithPrincipal(context.Background(), Principal{Tier: 2}), want: true},
		{name: "above threshold", ctx: WithPrincipal(context.Background(), Principal{Tier: 9}), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, caps.CanOverrideCovers(tt.ctx))
		})
	}

	assert.True(t, NewCapabilities(0, 0).CanOverrideCovers(context.Background()), "tier 0 threshold opens overrides to everyone")
}

func jsonUint(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
