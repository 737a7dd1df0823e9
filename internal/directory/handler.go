package directory

import (
	"net/http"

	"estate_portal_backend/internal/roles"
	"estate_portal_backend/platform/httpkit"
	"estate_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes directory maintenance to the back office.
type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/candidates", h.Candidates)
	rg.POST("", h.Register)
	rg.PATCH("/:id/availability", h.SetAvailability)
}

type registerRequest struct {
	Name          string `json:"name" binding:"required"`
	Role          string `json:"role" binding:"required"`
	ContactHandle string `json:"contactHandle" binding:"required"`
	Available     bool   `json:"available"`
}

type availabilityRequest struct {
	Available bool `json:"available"`
}

func (h *Handler) List(c *gin.Context) {
	httpkit.OK(c, gin.H{"items": h.svc.List(c.Request.Context())})
}

func (h *Handler) Candidates(c *gin.Context) {
	role := roles.Role(c.Query("role"))
	if !roles.Valid(role) {
		httpkit.Error(c, http.StatusBadRequest, "unknown role", nil)
		return
	}
	requireAvailable := c.DefaultQuery("available", "true") != "false"

	candidates := h.svc.CandidatesFor(c.Request.Context(), role, requireAvailable)
	httpkit.OK(c, gin.H{"items": candidates})
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	agent, err := h.svc.Register(c.Request.Context(), Agent{
		Name:          req.Name,
		Role:          roles.Role(req.Role),
		ContactHandle: req.ContactHandle,
		Available:     req.Available,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, agent)
}

func (h *Handler) SetAvailability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.svc.SetAvailable(c.Request.Context(), id, req.Available); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "ok"})
}
