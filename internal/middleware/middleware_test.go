package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studybuddy_backend/internal/util"
	"studybuddy_backend/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-at-least-32-characters"

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, util.GetUserFromContext(c).UserID())
	})
	r.GET("/me", handlers...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(AuthMiddleware(testSecret))

	token, err := util.GenerateJWT("user-1", "a@b.c", testSecret, time.Hour)
	require.NoError(t, err)

	w := do(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())

	w = do(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())

	other, err := util.GenerateJWT("user-1", "", "another-secret-another-secret-xx", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, other).Code)

	expired, err := util.GenerateJWT("user-1", "", testSecret, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, expired).Code)
}

func TestAuthMiddleware_RejectsOtherAlgorithms(t *testing.T) {
	r := newRouter(AuthMiddleware(testSecret))

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "user-1"})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, signed).Code)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) { return false, errors.New("down") }
func (failingLimiter) SetLimit(int, time.Duration)                 {}
func (failingLimiter) Close() error                                { return nil }

func TestUserRateLimit(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(2, time.Minute)
	defer limiter.Close()
	r := newRouter(AuthMiddleware(testSecret), UserRateLimit(limiter))

	alice, _ := util.GenerateJWT("alice", "", testSecret, time.Hour)
	bob, _ := util.GenerateJWT("bob", "", testSecret, time.Hour)

	assert.Equal(t, http.StatusOK, do(r, alice).Code)
	assert.Equal(t, http.StatusOK, do(r, alice).Code)
	w := do(r, alice)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Rate limit exceeded. Please try again in a moment."}`, w.Body.String())

	assert.Equal(t, http.StatusOK, do(r, bob).Code)
}

func TestUserRateLimit_FailsOpen(t *testing.T) {
	r := newRouter(AuthMiddleware(testSecret), UserRateLimit(failingLimiter{}))
	token, _ := util.GenerateJWT("alice", "", testSecret, time.Hour)
	assert.Equal(t, http.StatusOK, do(r, token).Code)
}
