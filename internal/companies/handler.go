package companies

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// Handler exposes company settings and document type endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/company", h.getCompany)
	rg.PATCH("/company", middleware.RequireAdmin(), h.updateCompany)
	rg.GET("/document-types", h.listTypes)
	rg.POST("/document-types", middleware.RequireAdmin(), h.createType)
	rg.PATCH("/document-types/:id", middleware.RequireAdmin(), h.updateType)
	rg.DELETE("/document-types/:id", middleware.RequireAdmin(), h.deleteType)
}

type fieldView struct {
	FieldDef
	Input string `json:"input"`
}

type typeView struct {
	DocumentType
	Fields []fieldView `json:"fields"`
}

func toView(t DocumentType) typeView {
	fields := make([]fieldView, 0, len(t.Fields))
	for _, f := range t.Fields {
		fields = append(fields, fieldView{FieldDef: f, Input: f.Type.Input()})
	}
	return typeView{DocumentType: t, Fields: fields}
}

func (h *Handler) getCompany(c *gin.Context) {
	company, err := h.Svc.Get(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load company", nil)
		return
	}
	respond.OK(c, company)
}

func (h *Handler) updateCompany(c *gin.Context) {
	var req SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	company, err := h.Svc.UpdateSettings(c.Request.Context(), middleware.CompanyIDFromContext(c), req)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, company)
}

func (h *Handler) listTypes(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	types, err := h.Svc.ListTypes(c.Request.Context(), middleware.CompanyIDFromContext(c), activeOnly)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list document types", nil)
		return
	}
	out := make([]typeView, 0, len(types))
	for _, t := range types {
		out = append(out, toView(t))
	}
	respond.OK(c, gin.H{"documentTypes": out})
}

func (h *Handler) createType(c *gin.Context) {
	var req TypeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	t, err := h.Svc.CreateType(c.Request.Context(), middleware.CompanyIDFromContext(c), req)
	if err != nil {
		h.writeErr(c, err)
		return
	}
	respond.Created(c, toView(t))
}

func (h *Handler) updateType(c *gin.Context) {
	var req TypeUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	t, err := h.Svc.UpdateType(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"), req)
	if err != nil {
		h.writeErr(c, err)
		return
	}
	respond.OK(c, toView(t))
}

func (h *Handler) deleteType(c *gin.Context) {
	if err := h.Svc.DeleteType(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id")); err != nil {
		h.writeErr(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) writeErr(c *gin.Context, err error) {
	if errors.Is(err, ErrDuplicateName) {
		respond.Error(c, http.StatusConflict, ErrDuplicateName.Code, ErrDuplicateName.Message, nil)
		return
	}
	respond.FromError(c, err)
}
