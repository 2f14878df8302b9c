package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(requests int, window time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRateLimiter(requests, window).Middleware())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	r := newLimitedRouter(3, time.Minute)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
}

func TestRateLimiterRejectsOverBudget(t *testing.T) {
	r := newLimitedRouter(2, time.Minute)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 30*time.Millisecond)

	if ok, _ := rl.allow("client"); !ok {
		t.Fatal("first request should pass")
	}
	if ok, _ := rl.allow("client"); ok {
		t.Fatal("second request should be limited")
	}
	time.Sleep(40 * time.Millisecond)
	if ok, _ := rl.allow("client"); !ok {
		t.Fatal("request after the window should pass")
	}
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if ok, _ := rl.allow("a"); !ok {
		t.Fatal("client a should pass")
	}
	if ok, _ := rl.allow("b"); !ok {
		t.Fatal("client b has its own budget")
	}
}
