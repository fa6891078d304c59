package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"memoai-go/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func rateLimitedEngine(cfg config.RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(cfg))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestRateLimiter_Disabled(t *testing.T) {
	r := rateLimitedEngine(config.RateLimitConfig{Enabled: false})
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiter_PerIPBurstExhausted(t *testing.T) {
	r := rateLimitedEngine(config.RateLimitConfig{
		Enabled:       true,
		GlobalPerHour: 100000,
		PerIPRPS:      1,
		PerIPBurst:    2,
	})

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
	assert.Equal(t, http.StatusTooManyRequests, codes[3])
}

func TestRateLimiter_GlobalBudget(t *testing.T) {
	r := rateLimitedEngine(config.RateLimitConfig{
		Enabled:       true,
		GlobalPerHour: 10, // burst = 10/10+1 = 2
		PerIPRPS:      1000,
		PerIPBurst:    1000,
	})

	got429 := false
	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			got429 = true
			assert.Equal(t, "3600", w.Header().Get("Retry-After"))
			break
		}
	}
	assert.True(t, got429, "global limiter should kick in")
}
