package verification

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/documents"
	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the workflow.
type Handler struct {
	Flow *Workflow
}

// NewHandler constructs a Handler.
func NewHandler(flow *Workflow) *Handler {
	return &Handler{Flow: flow}
}

// RegisterRoutes attaches onboarding routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/onboarding/sessions")
	g.POST("", h.start)
	g.GET("/:id", h.get)
	g.GET("/:id/options", h.options)
	g.POST("/:id/ai", h.chooseAI)
	g.POST("/:id/retry", h.retry)
	g.POST("/:id/manual", h.chooseManual)
	g.GET("/:id/form", h.form)
	g.GET("/:id/documents/:documentId/form", h.form)
	g.PUT("/:id/documents/:documentId", h.save)
	g.POST("/:id/complete", h.complete)
}

type startRequest struct {
	DriverID    string   `json:"driverId"`
	DocumentIDs []string `json:"documentIds"`
}

func (h *Handler) start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DriverID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "driverId and documentIds are required", nil)
		return
	}
	c.Set("driverId", req.DriverID)
	s, err := h.Flow.Start(c.Request.Context(), middleware.CompanyIDFromContext(c), req.DriverID, req.DocumentIDs)
	if err != nil {
		fail(c, err)
		return
	}
	respond.Created(c, s)
}

func (h *Handler) get(c *gin.Context) {
	s, err := h.Flow.Get(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, s)
}

func (h *Handler) options(c *gin.Context) {
	opts, err := h.Flow.Options(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, opts)
}

func (h *Handler) chooseAI(c *gin.Context) {
	h.transition(c, h.Flow.ChooseAI)
}

func (h *Handler) retry(c *gin.Context) {
	h.transition(c, h.Flow.RetryScan)
}

func (h *Handler) chooseManual(c *gin.Context) {
	h.transition(c, h.Flow.ChooseManual)
}

func (h *Handler) complete(c *gin.Context) {
	h.transition(c, h.Flow.Complete)
}

func (h *Handler) transition(c *gin.Context, step func(ctx context.Context, companyID, id string) (Session, error)) {
	s, err := step(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, s)
}

func (h *Handler) form(c *gin.Context) {
	documentID := c.Param("documentId")
	c.Set("documentId", documentID)
	f, err := h.Flow.Form(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"), documentID)
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, f)
}

type saveResponse struct {
	Session  Session                    `json:"session"`
	Document documents.DocumentResponse `json:"document"`
}

func (h *Handler) save(c *gin.Context) {
	documentID := c.Param("documentId")
	c.Set("documentId", documentID)

	var in FormInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	s, doc, err := h.Flow.Save(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("id"), documentID, in)
	if err != nil {
		fail(c, err)
		return
	}
	docs := h.Flow.Documents
	status := docs.Status(doc, docs.ReminderDays(c.Request.Context(), s.CompanyID))
	respond.OK(c, saveResponse{Session: s, Document: documents.ToResponse(doc, status)})
}

func fail(c *gin.Context, err error) {
	var fieldErr *documents.FieldErrors
	switch {
	case errors.As(err, &fieldErr):
		respond.Error(c, http.StatusBadRequest, "invalid_fields", "invalid fields", fieldErr.Problems)
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrStale):
		code, msg := ErrInvalidState.Code, ErrInvalidState.Message
		if errors.Is(err, ErrStale) {
			code, msg = ErrStale.Code, ErrStale.Message
		}
		respond.Error(c, http.StatusConflict, code, msg, nil)
	default:
		respond.FromError(c, err)
	}
}
