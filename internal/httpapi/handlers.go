package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"dialer-platform/internal/agents"
	"dialer-platform/internal/audit"
	"dialer-platform/internal/auth"
	"dialer-platform/internal/crm"
	"dialer-platform/internal/dialer"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/rbac"
	"dialer-platform/internal/reporting"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth    *auth.Manager
	Agents  *agents.Service
	Leads   *leads.Service
	Engine  *dialer.Engine
	CRM     *crm.Service
	Reports *reporting.Service
	Audit   *audit.Service
	Log     *slog.Logger
}

/* ===================== AUTH ===================== */

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "invalid json"})
		return
	}

	u, err := h.Agents.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	switch {
	case errors.Is(err, agents.ErrEmailTaken):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"detail": "email already registered"})
		return
	case errors.Is(err, agents.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "name, email and password (6+ chars) required"})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "registration failed"})
		return
	}
	c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "invalid json"})
		return
	}

	u, err := h.Agents.Authenticate(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, agents.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid credentials"})
		return
	case errors.Is(err, agents.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "email and password required"})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "login failed"})
		return
	}

	pair, err := h.Auth.IssuePair(time.Now(), u.ID, u.Email, u.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          u,
	})
}

func (h Handlers) Me(c *gin.Context) {
	uid, _ := auth.UserID(c.Request.Context())
	email, _ := auth.Email(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "email": email, "role": role})
}

/* ===================== LEADS ===================== */

func (h Handlers) CreateLead(c *gin.Context) {
	var req leads.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "invalid json"})
		return
	}

	l, err := h.Leads.Create(c.Request.Context(), req)
	switch {
	case errors.Is(err, leads.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "all lead fields are required"})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "lead creation failed"})
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (h Handlers) ListLeads(c *gin.Context) {
	f := leads.Filter{
		Industry:  c.Query("industry"),
		Headcount: c.Query("headcount"),
	}
	out, err := h.Leads.List(c.Request.Context(), f)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "lead listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": out, "count": len(out)})
}

func (h Handlers) GetLead(c *gin.Context) {
	l, err := h.Leads.Get(c.Request.Context(), c.Param("lead_id"))
	if errors.Is(err, leads.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "lead not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "lead lookup failed"})
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h Handlers) EnrichLead(c *gin.Context) {
	leadID := c.Param("lead_id")
	l, err := h.Leads.Enrich(c.Request.Context(), leadID)
	if errors.Is(err, leads.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "lead not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "enrichment failed"})
		return
	}

	h.auditLeadEnriched(c, leadID)
	c.JSON(http.StatusOK, l)
}

func (h Handlers) RescoreLead(c *gin.Context) {
	l, err := h.Leads.Rescore(c.Request.Context(), c.Param("lead_id"))
	if errors.Is(err, leads.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "lead not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "rescore failed"})
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h Handlers) LeadFilterOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"industries": leads.Industries,
		"headcounts": leads.Headcounts,
	})
}

func (h Handlers) LeadActivities(c *gin.Context) {
	leadID := c.Param("lead_id")
	if _, err := h.Leads.Get(c.Request.Context(), leadID); errors.Is(err, leads.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "lead not found"})
		return
	}

	activities, err := h.CRM.Activities(c.Request.Context(), leadID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "activity lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities, "count": len(activities)})
}

/* ===================== DIALER ===================== */

type createSessionRequest struct {
	LeadIDs []string `json:"lead_ids"`
}

// CreateSession starts a parallel-dial session for the current agent.
// By default the request blocks until the session finishes; ?wait=false
// returns the initial state immediately for websocket-driven clients.
func (h Handlers) CreateSession(c *gin.Context) {
	agentID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "authentication required"})
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "invalid json"})
		return
	}

	var state dialer.SessionState
	if c.Query("wait") == "false" {
		state, err = h.Engine.CreateSession(c.Request.Context(), agentID, req.LeadIDs)
	} else {
		state, err = h.Engine.CreateSessionAndWait(c.Request.Context(), agentID, req.LeadIDs)
	}
	switch {
	case errors.Is(err, dialer.ErrEmptyLeadList):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "lead_ids must not be empty"})
		return
	case errors.Is(err, dialer.ErrAgentBusy):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"detail": "agent already has a running session"})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "session creation failed"})
		return
	}

	h.auditSessionCreated(c, state.ID)
	c.JSON(http.StatusCreated, state)
}

func (h Handlers) ListSessions(c *gin.Context) {
	agentID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "authentication required"})
		return
	}

	status := dialer.SessionStatus(c.Query("status"))
	sessions, err := h.Engine.ListSessions(c.Request.Context(), agentID, status)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "session listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

func (h Handlers) GetSession(c *gin.Context) {
	state, ok := h.ownedSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h Handlers) StopSession(c *gin.Context) {
	state, ok := h.ownedSession(c)
	if !ok {
		return
	}

	stopped, err := h.Engine.StopSession(c.Request.Context(), state.ID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "session stop failed"})
		return
	}

	h.auditSessionStopped(c, stopped.ID)
	c.JSON(http.StatusOK, stopped)
}

// ownedSession loads the session and enforces that it belongs to the caller.
// Admins may inspect any session.
func (h Handlers) ownedSession(c *gin.Context) (dialer.SessionState, bool) {
	agentID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "authentication required"})
		return dialer.SessionState{}, false
	}

	state, err := h.Engine.SessionState(c.Request.Context(), c.Param("session_id"))
	if errors.Is(err, dialer.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "session not found"})
		return dialer.SessionState{}, false
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "session lookup failed"})
		return dialer.SessionState{}, false
	}

	role, _ := auth.Role(c.Request.Context())
	if state.AgentID != agentID && !rbac.IsAdmin(role) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "session belongs to another agent"})
		return dialer.SessionState{}, false
	}
	return state, true
}

/* ===================== CALLS ===================== */

func (h Handlers) GetCall(c *gin.Context) {
	call, err := h.Engine.Call(c.Request.Context(), c.Param("call_id"))
	if errors.Is(err, dialer.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "call not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "call lookup failed"})
		return
	}
	c.JSON(http.StatusOK, call)
}

/* ===================== CRM ===================== */

func (h Handlers) CRMContacts(c *gin.Context) {
	contacts, err := h.CRM.Contacts(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "contact listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts, "count": len(contacts)})
}

func (h Handlers) CRMActivities(c *gin.Context) {
	activities, err := h.CRM.Activities(c.Request.Context(), c.Query("lead_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "activity listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities, "count": len(activities)})
}

/* ===================== REPORTS ===================== */

// OutcomeReport summarizes the caller's dial outcomes.
// from/to are RFC3339; the default window is the trailing 24 hours.
func (h Handlers) OutcomeReport(c *gin.Context) {
	agentID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "authentication required"})
		return
	}

	now := time.Now().UTC()
	tr := reporting.TimeRange{From: now.Add(-24 * time.Hour), To: now}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "from must be RFC3339"})
			return
		}
		tr.From = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "to must be RFC3339"})
			return
		}
		tr.To = t
	}

	summary, err := h.Reports.OutcomeSummary(c.Request.Context(), reporting.OutcomeSummaryRequest{
		AgentID: agentID,
		Range:   tr,
	})
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "invalid report range"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "report failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

/* ===================== AUDIT HELPERS ===================== */

// Audit logging is best-effort: failures are logged, never surfaced.

func (h Handlers) auditSessionCreated(c *gin.Context, sessionID string) {
	if h.Audit == nil {
		return
	}
	uid, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	if err := h.Audit.LogSessionCreated(c.Request.Context(), uid, role, c.ClientIP(), sessionID, ""); err != nil {
		h.Log.Warn("audit append failed", "err", err)
	}
}

func (h Handlers) auditSessionStopped(c *gin.Context, sessionID string) {
	if h.Audit == nil {
		return
	}
	uid, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	if err := h.Audit.LogSessionStopped(c.Request.Context(), uid, role, c.ClientIP(), sessionID); err != nil {
		h.Log.Warn("audit append failed", "err", err)
	}
}

func (h Handlers) auditLeadEnriched(c *gin.Context, leadID string) {
	if h.Audit == nil {
		return
	}
	uid, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	if err := h.Audit.LogLeadEnriched(c.Request.Context(), uid, role, c.ClientIP(), leadID); err != nil {
		h.Log.Warn("audit append failed", "err", err)
	}
}
