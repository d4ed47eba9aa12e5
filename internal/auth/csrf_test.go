package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var csrfSecret = []byte("test-secret-key-32-bytes-long!!!")

func csrfRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CSRFMiddleware(csrfSecret, false))
	router.GET("/token", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"csrf_token": GetCSRFToken(c)})
	})
	router.POST("/change", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestCSRFMiddleware_AllowsGET(t *testing.T) {
	rr := httptest.NewRecorder()
	csrfRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/token", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotEmpty(t, body["csrf_token"])
}

func TestCSRFMiddleware_BlocksPOSTWithoutToken(t *testing.T) {
	rr := httptest.NewRecorder()
	csrfRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/change", nil))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"CSRF token invalid or missing"}`, rr.Body.String())
}

func TestCSRFMiddleware_AcceptsEchoedToken(t *testing.T) {
	router := csrfRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/token", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	req := httptest.NewRequest(http.MethodPost, "/change", nil)
	for _, cookie := range rr.Result().Cookies() {
		req.AddCookie(cookie)
	}
	req.Header.Set(CSRFTokenHeader, body["csrf_token"])
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGetCSRFToken_NoToken(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetCSRFToken(c))
}
