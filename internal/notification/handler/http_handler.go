package handler

import (
	"net/http"

	"estate_portal_backend/internal/notification/feed"
	"estate_portal_backend/internal/roles"
	"estate_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HTTPHandler exposes the notification query API. The role scoping every
// call comes from the authenticated principal; admins may inspect another
// role's feed through the ?role= query parameter.
type HTTPHandler struct {
	svc *feed.Service
}

func NewHTTPHandler(svc *feed.Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread", h.UnreadCount)
	rg.POST("/:id/read", h.MarkRead)
	rg.POST("/read-all", h.MarkAllRead)
	rg.DELETE("/:id", h.Remove)
	rg.DELETE("", httpkit.RequireRole(string(roles.Admin)), h.Clear)
}

// roleFor resolves the effective role for the request.
func roleFor(c *gin.Context, identity httpkit.Identity) roles.Role {
	role := roles.Role(identity.Role())
	if override := c.Query("role"); override != "" && role == roles.Admin {
		role = roles.Role(override)
	}
	return role
}

func (h *HTTPHandler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	role := roleFor(c, identity)

	items, err := h.svc.List(c.Request.Context(), role)
	if httpkit.HandleError(c, err) {
		return
	}
	count, err := h.svc.UnreadCount(c.Request.Context(), role)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"items":  items,
		"unread": count,
	})
}

func (h *HTTPHandler) UnreadCount(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	count, err := h.svc.UnreadCount(c.Request.Context(), roleFor(c, identity))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"count": count})
}

func (h *HTTPHandler) MarkRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	// Idempotent: already-read and unknown ids land on the same answer.
	h.svc.MarkRead(c.Request.Context(), roleFor(c, identity), id)
	httpkit.OK(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.MarkAllRead(c.Request.Context(), roleFor(c, identity)); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) Remove(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	h.svc.Remove(c.Request.Context(), id)
	httpkit.OK(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) Clear(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.Clear(c.Request.Context(), roleFor(c, identity)); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "ok"})
}
