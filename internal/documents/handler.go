package documents

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group. The create
// route takes a driver ID in the :id position.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/presigned-urls/:driverId", h.presign)
	rg.POST("/documents/:id", h.create)
	rg.GET("/documents/:id", h.get)
	rg.PUT("/documents/:id", h.update)
	rg.GET("/drivers/:id/documents", h.listByDriver)
}

type presignRequest struct {
	Files []FileSpec `json:"files"`
}

func (h *Handler) presign(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	driverID := c.Param("driverId")
	grants, err := h.Svc.RequestUploadGrants(c.Request.Context(), middleware.CompanyIDFromContext(c), driverID, req.Files)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, grants)
}

func (h *Handler) create(c *gin.Context) {
	driverID := c.Param("id")
	c.Set("driverId", driverID)

	var req RecordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	companyID := middleware.CompanyIDFromContext(c)
	doc, err := h.Svc.CreateRecord(c.Request.Context(), companyID, driverID, req)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set("documentId", doc.ID)
	respond.Created(c, ToResponse(doc, h.Svc.Status(doc, h.Svc.ReminderDays(c.Request.Context(), companyID))))
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)
	companyID := middleware.CompanyIDFromContext(c)
	doc, err := h.Svc.Get(c.Request.Context(), companyID, id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, ToResponse(doc, h.Svc.Status(doc, h.Svc.ReminderDays(c.Request.Context(), companyID))))
}

func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	upd, err := ParseUpdate(body)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	companyID := middleware.CompanyIDFromContext(c)
	doc, err := h.Svc.Update(c.Request.Context(), companyID, id, upd)
	if err != nil {
		var fieldErrs *FieldErrors
		if errors.As(err, &fieldErrs) {
			respond.Error(c, http.StatusBadRequest, "invalid_fields", "one or more fields are invalid", fieldErrs.Problems)
			return
		}
		respond.FromError(c, err)
		return
	}
	respond.OK(c, ToResponse(doc, h.Svc.Status(doc, h.Svc.ReminderDays(c.Request.Context(), companyID))))
}

func (h *Handler) listByDriver(c *gin.Context) {
	driverID := strings.TrimSpace(c.Param("id"))
	c.Set("driverId", driverID)
	companyID := middleware.CompanyIDFromContext(c)
	if err := h.Svc.checkDriver(c.Request.Context(), companyID, driverID); err != nil {
		respond.FromError(c, err)
		return
	}
	docs, err := h.Svc.ListByDriver(c.Request.Context(), companyID, driverID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}
	days := h.Svc.ReminderDays(c.Request.Context(), companyID)
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, ToResponse(doc, h.Svc.Status(doc, days)))
	}
	respond.OK(c, gin.H{"documents": out})
}
