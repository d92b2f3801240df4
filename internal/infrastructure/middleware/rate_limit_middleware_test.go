package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stagepass/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newRateLimitedRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	router.Use(NewHTTPRateLimitMiddleware(cfg))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doGet(router http.Handler, remoteAddr, xff string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestHTTPRateLimitMiddleware_Disabled_AllowsRequests(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimiting.Enabled = false
	router := newRateLimitedRouter(cfg)

	assert.Equal(t, http.StatusOK, doGet(router, "", "").Code)
	assert.Equal(t, http.StatusOK, doGet(router, "", "").Code)
}

func TestHTTPRateLimitMiddleware_Enabled_RateLimited(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.HTTP.RequestsPerSecond = 1
	cfg.RateLimiting.HTTP.Burst = 1
	cfg.RateLimiting.HTTP.MaxConcurrent = 0
	router := newRateLimitedRouter(cfg)

	assert.Equal(t, http.StatusOK, doGet(router, "10.0.0.1:1234", "").Code)

	w := doGet(router, "10.0.0.1:1234", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, doGet(router, "10.0.0.2:1234", "").Code)
}

func TestClientIP_PrefersFirstForwardedHop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:5000"
	assert.Equal(t, "192.168.1.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage")
	assert.Equal(t, "192.168.1.1", clientIP(req))
}

func TestRateLimiterStore_EvictsIdleLimiters(t *testing.T) {
	store := newRateLimiterStore(1, 1)
	start := time.Now()

	store.getLimiter("a", start)
	store.getLimiter("b", start.Add(5*time.Minute))
	store.getLimiter("c", start.Add(limiterIdleTTL+time.Minute))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.NotContains(t, store.limiters, "a")
	assert.Contains(t, store.limiters, "b")
	assert.Contains(t, store.limiters, "c")
}
