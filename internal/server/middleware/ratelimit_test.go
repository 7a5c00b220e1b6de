package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(3, time.Minute, setupTestLogger())
	defer limiter.Stop()
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, _ := limiter.Allow("10.0.0.1")
		assert.True(t, ok, "request %d should pass", i+1)
	}

	ok, wait := limiter.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, wait)

	// другой адрес имеет свой bucket
	ok, _ = limiter.Allow("10.0.0.2")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	ok, _ = limiter.Allow("10.0.0.1")
	assert.True(t, ok, "tokens should be refilled")
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(0, time.Minute, setupTestLogger())
	defer limiter.Stop()

	for i := 0; i < 100; i++ {
		ok, _ := limiter.Allow("10.0.0.1")
		assert.True(t, ok)
	}
}

func TestRateLimiter_CleanupOldBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1, time.Minute, setupTestLogger())
	limiter.Stop()
	limiter.Stop()
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	now = now.Add(3 * time.Minute)
	limiter.Allow("10.0.0.2")

	limiter.cleanupOldBuckets()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.NotContains(t, limiter.buckets, "10.0.0.1")
	assert.Contains(t, limiter.buckets, "10.0.0.2")
}

func TestRateLimiter_Middleware(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute, setupTestLogger())
	defer limiter.Stop()

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/entities/workout/w1", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	// порт не входит в ключ
	assert.Equal(t, http.StatusOK, send("192.168.1.1:1000").Code)
	assert.Equal(t, http.StatusOK, send("192.168.1.1:2000").Code)

	w := send("192.168.1.1:3000")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")

	assert.Equal(t, http.StatusOK, send("192.168.1.2:1000").Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		expected   string
	}{
		{name: "host and port", remoteAddr: "192.168.1.1:12345", expected: "192.168.1.1"},
		{name: "ipv6", remoteAddr: "[::1]:8080", expected: "::1"},
		{name: "set by RealIP", remoteAddr: "203.0.113.7", expected: "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			assert.Equal(t, tt.expected, clientIP(req))
		})
	}
}
