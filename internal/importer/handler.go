package importer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/drivers"
	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
	"compliance-backend/internal/shared/telemetry"
)

const maxImportBytes = 2 << 20

// companyCreator creates drivers for one company through the drivers service.
type companyCreator struct {
	svc       *drivers.Service
	companyID string
}

func (c companyCreator) CreateDriver(ctx context.Context, d NewDriver) error {
	_, err := c.svc.Create(ctx, c.companyID, drivers.Input{
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		Email:      d.Email,
		Phone:      d.Phone,
		Location:   d.Location,
		EmployeeID: d.EmployeeID,
	})
	return err
}

// Handler exposes the bulk import endpoint.
type Handler struct {
	Drivers *drivers.Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *drivers.Service) *Handler {
	return &Handler{Drivers: svc}
}

// RegisterRoutes attaches import routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/drivers/import", h.importCSV)
}

func (h *Handler) importCSV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
			return
		}
		defer file.Close()
		body = file
	}

	companyID := middleware.CompanyIDFromContext(c)
	im := &Importer{Creator: companyCreator{svc: h.Drivers, companyID: companyID}}
	res, rows, err := im.Import(c.Request.Context(), body)
	if err != nil {
		var missing *MissingColumnsError
		switch {
		case errors.As(err, &missing):
			respond.Error(c, http.StatusBadRequest, ErrMissingColumns.Code, missing.Error(), gin.H{"missingColumns": missing.Columns})
		case errors.Is(err, ErrInvalidRows):
			respond.Error(c, http.StatusUnprocessableEntity, ErrInvalidRows.Code, ErrInvalidRows.Message, gin.H{"rows": invalidOnly(rows)})
		default:
			respond.FromError(c, err)
		}
		return
	}

	telemetry.Info("import.complete", map[string]any{
		"company_id":    companyID,
		"successful":    len(res.Successful),
		"failed":        len(res.Failed),
		"limit_reached": res.LimitReached,
	})
	respond.OK(c, res)
}

func invalidOnly(rows []Row) []Row {
	out := make([]Row, 0)
	for _, r := range rows {
		if !r.Valid {
			out = append(out, r)
		}
	}
	return out
}
