package documents

import (
	"sort"
	"strings"

	"compliance-backend/internal/shared/apperr"
)

var (
	ErrNotFound        = apperr.New(apperr.KindNotFound, "not_found", "document not found")
	ErrInvalidInput    = apperr.Validation("validation_error", "invalid input")
	ErrKeyOutOfScope   = apperr.Validation("invalid_key", "key does not belong to this driver")
	ErrObjectMissing   = apperr.Validation("upload_missing", "no uploaded object found for key")
	ErrTooManyFiles    = apperr.Validation("too_many_files", "too many files in one request")
	ErrUnsupportedType = apperr.Validation("unsupported_content_type", "content type is not allowed")
)

// FieldErrors reports per-field validation problems on an update.
type FieldErrors struct {
	Problems map[string]string
}

func (e *FieldErrors) Error() string {
	keys := make([]string, 0, len(e.Problems))
	for k := range e.Problems {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Problems[k])
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

func (e *FieldErrors) Unwrap() error {
	return apperr.Validation("invalid_fields", "invalid fields")
}
