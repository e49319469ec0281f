package main

import (
	"log/slog"

	"dialer-platform/internal/auth"
	"dialer-platform/internal/httpapi"
	"dialer-platform/internal/live"
	"dialer-platform/internal/ratelimit"
	"dialer-platform/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authManager *auth.Manager, rdb *redis.Client, hub *live.Hub, log *slog.Logger) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "live_subscribers": hub.SubscriberCount()})
	})

	// AUTH routes (registration and token issuance).
	authGroup := r.Group("/v1/auth")
	authGroup.Use(ratelimit.Middleware(rdb, log, ratelimit.Auth))
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(authManager))
	v1.Use(ratelimit.Middleware(rdb, log, ratelimit.General))
	{
		v1.GET("/me", h.Me)

		// Live session updates over websocket. Clients send SUBSCRIBE frames
		// after connecting; polling GET /dialer/sessions/:id stays available
		// as the fallback.
		v1.GET("/ws", gin.WrapH(live.Handler(hub, log)))

		// LEADS routes
		leadsGroup := v1.Group("/leads")
		leadsGroup.Use(rbac.RequireAnyRole(rbac.RoleAgent))
		{
			leadsGroup.GET("", h.ListLeads)
			leadsGroup.GET("/filters", h.LeadFilterOptions)
			leadsGroup.GET("/:lead_id", h.GetLead)
			leadsGroup.GET("/:lead_id/activities", h.LeadActivities)

			write := leadsGroup.Group("")
			write.Use(ratelimit.Middleware(rdb, log, ratelimit.Write))
			{
				write.POST("", h.CreateLead)
				write.POST("/:lead_id/enrich", h.EnrichLead)
				write.POST("/:lead_id/rescore", h.RescoreLead)
			}
		}

		// DIALER routes
		dialerGroup := v1.Group("/dialer")
		dialerGroup.Use(rbac.RequireAnyRole(rbac.RoleAgent))
		{
			dialerGroup.GET("/sessions", h.ListSessions)
			dialerGroup.GET("/sessions/:session_id", h.GetSession)

			mutate := dialerGroup.Group("")
			mutate.Use(ratelimit.Middleware(rdb, log, ratelimit.Dialer))
			{
				mutate.POST("/sessions", h.CreateSession)
				mutate.POST("/sessions/:session_id/stop", h.StopSession)
			}
		}

		// CALLS routes
		callsGroup := v1.Group("/calls")
		callsGroup.Use(rbac.RequireAnyRole(rbac.RoleAgent))
		{
			callsGroup.GET("/:call_id", h.GetCall)
		}

		// CRM inspection routes (mock external CRM state).
		crmGroup := v1.Group("/crm")
		crmGroup.Use(rbac.RequireAnyRole(rbac.RoleAgent))
		{
			crmGroup.GET("/contacts", h.CRMContacts)
			crmGroup.GET("/activities", h.CRMActivities)
		}

		// REPORTS routes
		reportsGroup := v1.Group("/reports")
		reportsGroup.Use(rbac.RequireAnyRole(rbac.RoleAgent))
		{
			reportsGroup.GET("/outcomes", h.OutcomeReport)
		}
	}
}
