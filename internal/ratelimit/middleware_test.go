package ratelimit

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"dialer-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

func TestMiddleware_NilClientIsPassThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := gin.New()
	r.Use(Middleware(nil, log, General))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected pass-through, got %d", w.Code)
		}
	}
}

func TestCallerKey_PrefersUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	if got := callerKey(c); got != "ip:192.0.2.1" {
		t.Fatalf("expected ip fallback, got %q", got)
	}

	ctx := auth.WithIdentity(c.Request.Context(), "u-42", "a@b.c", "agent")
	c.Request = c.Request.WithContext(ctx)
	if got := callerKey(c); got != "user:u-42" {
		t.Fatalf("expected user key, got %q", got)
	}
}
