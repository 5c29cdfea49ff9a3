package local

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/respond"
	"compliance-backend/internal/shared/storage/object"
	"compliance-backend/internal/shared/telemetry"
)

const maxUploadBytes = 25 << 20

// RegisterRoutes serves signed PUTs at /uploads/local/*key under rg.
// These routes carry their own signature and skip bearer auth.
func (s *Store) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/uploads/local/*key", s.handlePut)
}

func (s *Store) handlePut(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if err := s.Verify(key, c.Query("expires"), c.Query("sig")); err != nil {
		switch {
		case errors.Is(err, ErrGrantExpired):
			respond.Error(c, http.StatusForbidden, "grant_expired", "upload grant expired", nil)
		case errors.Is(err, object.ErrInvalidKey):
			respond.Error(c, http.StatusBadRequest, "invalid_key", "invalid storage key", nil)
		default:
			respond.Error(c, http.StatusForbidden, "signature_invalid", "upload signature invalid", nil)
		}
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	n, err := s.Put(c.Request.Context(), key, body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds size limit", nil)
			return
		}
		telemetry.Error("uploads.local.put_failed", map[string]any{
			"key":        key,
			"err":        err,
			"request_id": c.GetString("requestId"),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store upload", nil)
		return
	}
	telemetry.Info("uploads.local.stored", map[string]any{"key": key, "size_bytes": n})
	c.Status(http.StatusOK)
}
