package extraction

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the orchestrator.
type Handler struct {
	Orch *Orchestrator
}

// NewHandler constructs a Handler.
func NewHandler(orch *Orchestrator) *Handler {
	return &Handler{Orch: orch}
}

// RegisterRoutes attaches scan routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/bulk-ai-scan", h.scanMany)
	rg.POST("/documents/:id/ai-scan", h.scanOne)
}

type scanOneResponse struct {
	DocumentID       string         `json:"documentId"`
	ExtractedData    *ExtractedData `json:"extractedData"`
	CreditsUsed      int            `json:"creditsUsed"`
	CreditsRemaining int            `json:"creditsRemaining"`
}

func (h *Handler) scanOne(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)

	out, err := h.Orch.ScanOne(c.Request.Context(), middleware.CompanyIDFromContext(c), id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	if !out.Result.Success {
		if out.Result.Error == "document not found" {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusBadGateway, ErrExtractionFailed.Code, ErrExtractionFailed.Message, map[string]any{
			"reason":           out.Result.Error,
			"creditsRemaining": out.CreditsRemaining,
		})
		return
	}
	respond.OK(c, scanOneResponse{
		DocumentID:       out.Result.DocumentID,
		ExtractedData:    out.Result.ExtractedData,
		CreditsUsed:      out.CreditsUsed,
		CreditsRemaining: out.CreditsRemaining,
	})
}

type scanManyRequest struct {
	DocumentIDs []string `json:"documentIds"`
}

func (h *Handler) scanMany(c *gin.Context) {
	var req scanManyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	out, err := h.Orch.ScanMany(c.Request.Context(), middleware.CompanyIDFromContext(c), req.DocumentIDs)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, out)
}
