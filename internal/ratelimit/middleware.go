package ratelimit

import (
	"log/slog"
	"net/http"
	"time"

	"dialer-platform/internal/auth"
	"dialer-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limit is one named fixed-window budget.
type Limit struct {
	Name     string
	Requests int
	Window   time.Duration
}

// Per-route-class budgets. Auth is tight to slow credential stuffing; the
// dialer budget caps session churn per agent.
var (
	General = Limit{Name: "general", Requests: 100, Window: time.Minute}
	Auth    = Limit{Name: "auth", Requests: 10, Window: time.Minute}
	Dialer  = Limit{Name: "dialer", Requests: 20, Window: time.Minute}
	Write   = Limit{Name: "write", Requests: 40, Window: time.Minute}
)

// Middleware enforces a fixed-window rate limit keyed by caller identity.
// With a nil client (redis not configured) it is a pass-through, and redis
// errors fail open so a cache outage cannot take the API down with it.
func Middleware(rdb *redis.Client, log *slog.Logger, limit Limit) gin.HandlerFunc {
	if rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := "rl:" + limit.Name + ":" + callerKey(c)

		allowed, err := utils.AllowFixedWindow(c.Request.Context(), rdb, key, limit.Requests, limit.Window)
		if err != nil {
			log.Warn("rate limit check failed, allowing request", "key", key, "err", err)
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// callerKey prefers the authenticated user id and falls back to the client IP
// for unauthenticated routes.
func callerKey(c *gin.Context) string {
	if userID, err := auth.UserID(c.Request.Context()); err == nil {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}
