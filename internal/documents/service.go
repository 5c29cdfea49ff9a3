package documents

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"compliance-backend/internal/companies"
	"compliance-backend/internal/compliance"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/storage/object"
	"compliance-backend/internal/shared/telemetry"
	"compliance-backend/internal/shared/util"
)

const (
	DefaultGrantTTL    = 15 * time.Minute
	maxGrantTTL        = time.Hour
	maxFilesPerRequest = 20
	MaxUploadBytes     = 25 << 20
)

var allowedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"image/heic":      {},
}

// DriverChecker confirms a driver exists within a company.
type DriverChecker interface {
	CheckDriver(ctx context.Context, companyID, driverID string) error
}

// CompanyCatalog supplies reminder settings and per-type field schemas.
type CompanyCatalog interface {
	Get(ctx context.Context, companyID string) (companies.Company, error)
	FieldsFor(ctx context.Context, companyID, typeName string) ([]companies.FieldDef, bool, error)
}

// Service contains business logic for documents.
type Service struct {
	Repo      Repo
	Presigner object.Presigner
	Objects   object.Store
	Drivers   DriverChecker
	Companies CompanyCatalog
	GrantTTL  time.Duration
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) grantTTL() time.Duration {
	switch {
	case s.GrantTTL <= 0:
		return DefaultGrantTTL
	case s.GrantTTL > maxGrantTTL:
		return maxGrantTTL
	default:
		return s.GrantTTL
	}
}

// DriverPrefix is the key prefix every object of a driver lives under.
func DriverPrefix(companyID, driverID string) string {
	return companyID + "/" + driverID + "/"
}

// RequestUploadGrants issues one presigned upload target per file.
func (s *Service) RequestUploadGrants(ctx context.Context, companyID, driverID string, files []FileSpec) ([]UploadGrant, error) {
	if len(files) == 0 {
		return nil, ErrInvalidInput
	}
	if len(files) > maxFilesPerRequest {
		return nil, ErrTooManyFiles
	}
	if err := s.checkDriver(ctx, companyID, driverID); err != nil {
		return nil, err
	}

	ttl := s.grantTTL()
	grants := make([]UploadGrant, 0, len(files))
	for _, f := range files {
		name, err := util.SanitizeFileName(f.FileName)
		if err != nil {
			return nil, fmt.Errorf("%w: filename %q", ErrInvalidInput, f.FileName)
		}
		contentType := strings.TrimSpace(f.ContentType)
		if contentType != "" {
			if _, ok := allowedContentTypes[contentType]; !ok {
				return nil, ErrUnsupportedType
			}
		}
		if f.Size < 0 || f.Size > MaxUploadBytes {
			return nil, fmt.Errorf("%w: size out of range", ErrInvalidInput)
		}

		key := path.Join(companyID, driverID, uuid.NewString()+"-"+name)
		signed, err := s.Presigner.PresignPut(ctx, key, contentType, ttl)
		if err != nil {
			telemetry.Error("documents.presign.failed", map[string]any{
				"company_id": companyID,
				"driver_id":  driverID,
				"key":        key,
				"err":        err,
			})
			return nil, fmt.Errorf("presign upload: %w", err)
		}
		grants = append(grants, UploadGrant{
			FileName:    f.FileName,
			ContentType: contentType,
			Key:         key,
			UploadURL:   signed.URL,
			ExpiresAt:   signed.ExpiresAt,
		})
	}
	metrics.AddUploadGrants(len(grants))
	return grants, nil
}

// CreateRecord persists a PENDING document for an object that has already
// been stored under the driver's prefix.
func (s *Service) CreateRecord(ctx context.Context, companyID, driverID string, in RecordInput) (Document, error) {
	key := strings.TrimSpace(in.Key)
	if key == "" || strings.TrimSpace(in.FileName) == "" {
		return Document{}, ErrInvalidInput
	}
	if path.Clean(key) != key || !strings.HasPrefix(key, DriverPrefix(companyID, driverID)) {
		return Document{}, ErrKeyOutOfScope
	}
	if err := s.checkDriver(ctx, companyID, driverID); err != nil {
		return Document{}, err
	}

	contentType := strings.TrimSpace(in.ContentType)
	size := in.Size
	if s.Objects != nil {
		info, err := s.Objects.Stat(ctx, key)
		if err != nil {
			if errors.Is(err, object.ErrNotFound) {
				return Document{}, ErrObjectMissing
			}
			return Document{}, fmt.Errorf("stat object: %w", err)
		}
		if info.Size > 0 {
			size = info.Size
		}
		if contentType == "" {
			contentType = info.ContentType
		}
	}

	now := s.now()
	doc := Document{
		ID:          uuid.NewString(),
		DriverID:    driverID,
		CompanyID:   companyID,
		Key:         key,
		FileName:    strings.TrimSpace(in.FileName),
		ContentType: contentType,
		Size:        size,
		RawStatus:   compliance.RawPending,
		Fields:      map[string]string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	metrics.IncDocumentsRecorded()
	telemetry.Info("document.recorded", map[string]any{
		"company_id":  companyID,
		"driver_id":   driverID,
		"document_id": doc.ID,
		"size_bytes":  size,
	})
	return doc, nil
}

// Get returns a document within the company.
func (s *Service) Get(ctx context.Context, companyID, id string) (Document, error) {
	if strings.TrimSpace(id) == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.Get(ctx, companyID, id)
}

// ListByDriver returns the driver's documents, oldest first.
func (s *Service) ListByDriver(ctx context.Context, companyID, driverID string) ([]Document, error) {
	return s.Repo.ListByDriver(ctx, companyID, driverID)
}

// DeleteByDriver removes every document of a driver.
func (s *Service) DeleteByDriver(ctx context.Context, companyID, driverID string) error {
	return s.Repo.DeleteByDriver(ctx, companyID, driverID)
}

// Update applies a partial edit. The merged dynamic fields are checked
// against the schema of the document's (possibly new) type when one exists.
func (s *Service) Update(ctx context.Context, companyID, id string, upd Update) (Document, error) {
	doc, err := s.Get(ctx, companyID, id)
	if err != nil {
		return Document{}, err
	}

	problems := map[string]string{}
	if upd.Type != nil {
		doc.Type = strings.TrimSpace(*upd.Type)
	}
	if upd.DocumentNumber != nil {
		doc.DocumentNumber = optionalString(*upd.DocumentNumber)
	}
	if upd.IssuedDate != nil {
		t, err := ParseDate(*upd.IssuedDate)
		if err != nil {
			problems["issuedDate"] = err.Error()
		}
		doc.IssuedDate = t
	}
	if upd.ExpiryDate != nil {
		t, err := ParseDate(*upd.ExpiryDate)
		if err != nil {
			problems["expiryDate"] = err.Error()
		}
		doc.ExpiryDate = t
	}
	if upd.Notes != nil {
		doc.Notes = *upd.Notes
	}
	if upd.RawStatus != nil {
		doc.RawStatus = *upd.RawStatus
	}
	if len(upd.Fields) > 0 {
		if doc.Fields == nil {
			doc.Fields = map[string]string{}
		}
		for k, v := range upd.Fields {
			if strings.TrimSpace(v) == "" {
				delete(doc.Fields, k)
				continue
			}
			doc.Fields[k] = strings.TrimSpace(v)
		}
	}
	if err := s.checkFields(ctx, companyID, doc.Type, doc.Fields, problems); err != nil {
		return Document{}, err
	}
	if len(problems) > 0 {
		return Document{}, &FieldErrors{Problems: problems}
	}

	doc.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, doc); err != nil {
		return Document{}, err
	}
	telemetry.Info("document.updated", map[string]any{
		"company_id":  companyID,
		"document_id": doc.ID,
		"type":        doc.Type,
		"raw_status":  string(doc.RawStatus),
	})
	return doc, nil
}

// ReminderDays returns the company's reminder thresholds, or none when the
// company cannot be loaded.
func (s *Service) ReminderDays(ctx context.Context, companyID string) []int {
	if s.Companies == nil {
		return nil
	}
	c, err := s.Companies.Get(ctx, companyID)
	if err != nil {
		telemetry.Warn("documents.reminder_days_unavailable", map[string]any{"company_id": companyID, "err": err})
		return nil
	}
	return c.ReminderDays
}

// Status computes the display status of a document.
func (s *Service) Status(doc Document, reminderDays []int) compliance.DisplayStatus {
	now := s.now()
	window := compliance.ReminderWindowFromDays(reminderDays, doc.ExpiryDate, now)
	return compliance.EffectiveStatus(compliance.StatusInput{RawStatus: doc.RawStatus, ExpiryDate: doc.ExpiryDate}, now, window)
}

func (s *Service) checkDriver(ctx context.Context, companyID, driverID string) error {
	if strings.TrimSpace(driverID) == "" {
		return ErrInvalidInput
	}
	if s.Drivers == nil {
		return nil
	}
	return s.Drivers.CheckDriver(ctx, companyID, driverID)
}

func (s *Service) checkFields(ctx context.Context, companyID, typeName string, values map[string]string, problems map[string]string) error {
	if s.Companies == nil || typeName == "" {
		return nil
	}
	defs, ok, err := s.Companies.FieldsFor(ctx, companyID, typeName)
	if err != nil {
		return fmt.Errorf("load field schema: %w", err)
	}
	if !ok {
		return nil
	}
	for key, msg := range companies.ValidateValues(defs, values) {
		problems[key] = msg
	}
	return nil
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 and keeps the calendar date.
// An empty string clears the date.
func ParseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(companies.DateLayout, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.New("must be a date (YYYY-MM-DD)")
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
