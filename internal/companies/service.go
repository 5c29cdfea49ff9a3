package companies

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"compliance-backend/internal/shared/apperr"
	"compliance-backend/internal/shared/telemetry"
)

// CreditGranter seeds the ledger of a newly provisioned company.
type CreditGranter interface {
	Grant(ctx context.Context, companyID string, amount int, reason string) (int, error)
}

// Service manages company settings and document types.
type Service struct {
	Repo                Repo
	Credits             CreditGranter
	DefaultDriverLimit  int
	DefaultCredits      int
	DefaultReminderDays []int
	Now                 func() time.Time
}

// TypeInput creates a document type.
type TypeInput struct {
	Name      string     `json:"name"`
	Active    *bool      `json:"active"`
	SortOrder int        `json:"sortOrder"`
	Fields    []FieldDef `json:"fields"`
}

// SettingsUpdate changes company-level settings; nil fields are unchanged.
type SettingsUpdate struct {
	DriverLimit  *int  `json:"driverLimit"`
	ReminderDays []int `json:"reminderDays"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Get returns the company, provisioning it with defaults on first sight.
func (s *Service) Get(ctx context.Context, companyID string) (Company, error) {
	c, err := s.Repo.GetCompany(ctx, companyID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Company{}, fmt.Errorf("get company: %w", err)
	}

	c = Company{
		ID:           companyID,
		Name:         companyID,
		DriverLimit:  s.DefaultDriverLimit,
		ReminderDays: append([]int(nil), s.DefaultReminderDays...),
		CreatedAt:    s.now(),
	}
	created, err := s.Repo.CreateCompanyIfAbsent(ctx, c)
	if err != nil {
		return Company{}, fmt.Errorf("provision company: %w", err)
	}
	if created {
		telemetry.Info("company.provisioned", map[string]any{
			"company_id":   companyID,
			"driver_limit": c.DriverLimit,
		})
		if s.Credits != nil && s.DefaultCredits > 0 {
			if _, err := s.Credits.Grant(ctx, companyID, s.DefaultCredits, "signup"); err != nil {
				telemetry.Error("company.seed_credits_failed", map[string]any{"company_id": companyID, "err": err})
			}
		}
		return c, nil
	}
	return s.Repo.GetCompany(ctx, companyID)
}

// UpdateSettings changes the plan limit and reminder thresholds.
func (s *Service) UpdateSettings(ctx context.Context, companyID string, upd SettingsUpdate) (Company, error) {
	c, err := s.Get(ctx, companyID)
	if err != nil {
		return Company{}, err
	}
	if upd.DriverLimit != nil {
		if *upd.DriverLimit < 0 {
			return Company{}, apperr.Validation("invalid_request", "driverLimit must not be negative")
		}
		c.DriverLimit = *upd.DriverLimit
	}
	if upd.ReminderDays != nil {
		for _, d := range upd.ReminderDays {
			if d <= 0 {
				return Company{}, apperr.Validation("invalid_request", "reminderDays must be positive")
			}
		}
		c.ReminderDays = upd.ReminderDays
	}
	if err := s.Repo.UpdateSettings(ctx, companyID, c.DriverLimit, c.ReminderDays); err != nil {
		return Company{}, fmt.Errorf("update settings: %w", err)
	}
	return c, nil
}

// ListTypes returns the company's document types in display order.
func (s *Service) ListTypes(ctx context.Context, companyID string, activeOnly bool) ([]DocumentType, error) {
	types, err := s.Repo.ListTypes(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	if !activeOnly {
		return types, nil
	}
	out := types[:0]
	for _, t := range types {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

// RequiredTypeNames lists active document type names, in order.
func (s *Service) RequiredTypeNames(ctx context.Context, companyID string) ([]string, error) {
	types, err := s.ListTypes(ctx, companyID, true)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.Name)
	}
	return names, nil
}

// FieldsFor returns the field schema of the named type, if one exists.
func (s *Service) FieldsFor(ctx context.Context, companyID, typeName string) ([]FieldDef, bool, error) {
	types, err := s.Repo.ListTypes(ctx, companyID)
	if err != nil {
		return nil, false, err
	}
	for _, t := range types {
		if t.Name == typeName {
			return t.Fields, true, nil
		}
	}
	return nil, false, nil
}

// CreateType adds a document type.
func (s *Service) CreateType(ctx context.Context, companyID string, in TypeInput) (DocumentType, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return DocumentType{}, apperr.Validation("invalid_request", "name is required")
	}
	if err := checkFields(in.Fields); err != nil {
		return DocumentType{}, err
	}
	if _, err := s.Get(ctx, companyID); err != nil {
		return DocumentType{}, err
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	t := DocumentType{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Name:      name,
		Active:    active,
		SortOrder: in.SortOrder,
		Fields:    in.Fields,
		CreatedAt: s.now(),
	}
	if err := s.Repo.CreateType(ctx, t); err != nil {
		return DocumentType{}, err
	}
	return t, nil
}

// UpdateType renames, toggles, reorders or reshapes a document type.
func (s *Service) UpdateType(ctx context.Context, companyID, id string, upd TypeUpdate) (DocumentType, error) {
	t, err := s.Repo.GetType(ctx, companyID, id)
	if err != nil {
		return DocumentType{}, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return DocumentType{}, apperr.Validation("invalid_request", "name must not be empty")
		}
		t.Name = name
	}
	if upd.Active != nil {
		t.Active = *upd.Active
	}
	if upd.SortOrder != nil {
		t.SortOrder = *upd.SortOrder
	}
	if upd.Fields != nil {
		if err := checkFields(*upd.Fields); err != nil {
			return DocumentType{}, err
		}
		t.Fields = *upd.Fields
	}
	if err := s.Repo.UpdateType(ctx, t); err != nil {
		return DocumentType{}, err
	}
	return t, nil
}

// DeleteType removes a document type. Documents keep their type string.
func (s *Service) DeleteType(ctx context.Context, companyID, id string) error {
	return s.Repo.DeleteType(ctx, companyID, id)
}

func checkFields(fields []FieldDef) error {
	seen := map[string]struct{}{}
	for _, f := range fields {
		if err := f.Check(); err != nil {
			return apperr.Wrap(apperr.KindValidation, ErrInvalidType.Code, err, "invalid field")
		}
		if _, dup := seen[f.Key]; dup {
			return apperr.Validation(ErrInvalidType.Code, "duplicate field key "+f.Key)
		}
		seen[f.Key] = struct{}{}
	}
	return nil
}
