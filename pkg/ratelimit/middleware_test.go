package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"telinsights/internal/config"
)

func TestFromSettings(t *testing.T) {
	got := FromSettings(config.RateLimitConfig{Enabled: true, RPS: 2.5, Burst: 4, CleanupInterval: 30})
	assert.Equal(t, 2.5, got.RPS)
	assert.Equal(t, 4, got.Burst)
	assert.Equal(t, 30*time.Second, got.CleanupInterval)
	assert.Equal(t, DefaultConfig().MaxAge, got.MaxAge)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	router := gin.New()
	router.Use(RateLimitMiddleware(ctx, RateLimitConfig{
		RPS:             0.001,
		Burst:           2,
		CleanupInterval: time.Minute,
		MaxAge:          time.Minute,
	}))
	router.GET("/tools/summary", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/tools/summary", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	limited := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.Contains(t, limited.Body.String(), `"error_code":"RATE_LIMITED"`)

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code)
}

func TestLimiterSet_Evict(t *testing.T) {
	set := &limiterSet{limiters: make(map[string]*Limiter), config: DefaultConfig()}
	now := time.Now()

	set.get("old", now.Add(-time.Hour))
	set.get("fresh", now)
	set.evict(now)

	assert.NotContains(t, set.limiters, "old")
	assert.Contains(t, set.limiters, "fresh")
}
