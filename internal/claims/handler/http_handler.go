package handler

import (
	"net/http"

	"estate_portal_backend/internal/claims/service"
	"estate_portal_backend/internal/claims/transport"
	"estate_portal_backend/internal/roles"
	"estate_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HTTPHandler exposes the claim coordinator. The claim endpoint is the hot
// path: it is hit by candidates racing through the channel reply webhook and
// carries its own stricter rate limit.
type HTTPHandler struct {
	coord *service.Coordinator
}

func NewHTTPHandler(coord *service.Coordinator) *HTTPHandler {
	return &HTTPHandler{coord: coord}
}

// RegisterRoutes mounts the claims API. claimLimit is the rate-limit
// middleware for the claim callback.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup, claimLimit gin.HandlerFunc) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Status)
	rg.POST("/:id/broadcast", h.Broadcast)
	rg.POST("/:id/claim", claimLimit, h.Claim)
	rg.POST("/:id/cancel", httpkit.RequireRole(string(roles.Admin)), h.Cancel)
}

func (h *HTTPHandler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	created, err := h.coord.Create(c.Request.Context(), req.Payload, req.CandidateIDs)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.FromDomain(created))
}

func (h *HTTPHandler) List(c *gin.Context) {
	httpkit.OK(c, gin.H{"items": transport.FromDomainList(h.coord.List(c.Request.Context()))})
}

func (h *HTTPHandler) Status(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	req, err := h.coord.Status(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromDomain(req))
}

func (h *HTTPHandler) Broadcast(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	status, err := h.coord.Broadcast(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": string(status)})
}

func (h *HTTPHandler) Claim(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	var body transport.ClaimRequest
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	agentID := identity.UserID()
	if body.AgentID != nil && identity.Role() == string(roles.Admin) {
		agentID = *body.AgentID
	}

	req, err := h.coord.Claim(c.Request.Context(), id, agentID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromDomain(req))
}

func (h *HTTPHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.coord.Cancel(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "ok"})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}
