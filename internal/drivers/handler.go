package drivers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// Handler exposes driver endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches driver routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/drivers", h.create)
	rg.GET("/drivers", h.list)
	rg.GET("/drivers/:id", h.get)
	rg.DELETE("/drivers/:id", middleware.RequireAdmin(), h.delete)
}

type driverResponse struct {
	Driver
	Compliance
}

func (h *Handler) create(c *gin.Context) {
	var req Input
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	d, err := h.Svc.Create(c.Request.Context(), middleware.CompanyIDFromContext(c), req)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set("driverId", d.ID)
	respond.Created(c, d)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list drivers", nil)
		return
	}
	respond.OK(c, gin.H{"drivers": list})
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("driverId", id)
	companyID := middleware.CompanyIDFromContext(c)
	d, err := h.Svc.Get(c.Request.Context(), companyID, id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	comp, err := h.Svc.Compliance(c.Request.Context(), companyID, id)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compute compliance", nil)
		return
	}
	respond.OK(c, driverResponse{Driver: d, Compliance: comp})
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set("driverId", id)
	if err := h.Svc.Delete(c.Request.Context(), middleware.CompanyIDFromContext(c), id); err != nil {
		respond.FromError(c, err)
		return
	}
	respond.NoContent(c)
}
