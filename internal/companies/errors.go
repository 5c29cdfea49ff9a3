package companies

import "compliance-backend/internal/shared/apperr"

var (
	ErrNotFound      = apperr.New(apperr.KindNotFound, "not_found", "not found")
	ErrDuplicateName = apperr.Validation("duplicate_name", "a document type with this name already exists")
	ErrInvalidType   = apperr.Validation("invalid_document_type", "invalid document type")
)
