package drivers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"compliance-backend/internal/companies"
	"compliance-backend/internal/compliance"
	"compliance-backend/internal/documents"
	"compliance-backend/internal/shared/telemetry"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// DocumentStore is the slice of the documents service drivers depend on.
type DocumentStore interface {
	ListByDriver(ctx context.Context, companyID, driverID string) ([]documents.Document, error)
	DeleteByDriver(ctx context.Context, companyID, driverID string) error
}

// CompanySource supplies the plan limit and the required document types.
type CompanySource interface {
	Get(ctx context.Context, companyID string) (companies.Company, error)
	RequiredTypeNames(ctx context.Context, companyID string) ([]string, error)
}

// Service contains business logic for drivers.
type Service struct {
	Repo      Repo
	Documents DocumentStore
	Companies CompanySource
	Now       func() time.Time
}

// Compliance is a driver's score and per-type status.
type Compliance struct {
	Score     int                     `json:"complianceScore"`
	Required  []string                `json:"requiredTypes"`
	Breakdown []compliance.TypeStatus `json:"documentStatuses"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create adds a driver, refusing with ErrLimitReached once the company is
// at its plan limit.
func (s *Service) Create(ctx context.Context, companyID string, in Input) (Driver, error) {
	d := Driver{
		ID:         uuid.NewString(),
		CompanyID:  companyID,
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      strings.TrimSpace(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		Location:   strings.TrimSpace(in.Location),
		EmployeeID: strings.TrimSpace(in.EmployeeID),
		CreatedAt:  s.now(),
	}
	if d.FirstName == "" || d.LastName == "" || d.Email == "" {
		return Driver{}, ErrInvalidInput
	}
	if !ValidEmail(d.Email) {
		return Driver{}, ErrInvalidEmail
	}

	company, err := s.Companies.Get(ctx, companyID)
	if err != nil {
		return Driver{}, fmt.Errorf("load company: %w", err)
	}
	created, err := s.Repo.CreateWithinLimit(ctx, d, company.DriverLimit)
	if err != nil {
		return Driver{}, fmt.Errorf("create driver: %w", err)
	}
	if !created {
		telemetry.Warn("driver.limit_reached", map[string]any{
			"company_id":   companyID,
			"driver_limit": company.DriverLimit,
		})
		return Driver{}, ErrLimitReached
	}
	telemetry.Info("driver.created", map[string]any{
		"company_id": companyID,
		"driver_id":  d.ID,
	})
	return d, nil
}

// Get returns a driver within the company.
func (s *Service) Get(ctx context.Context, companyID, id string) (Driver, error) {
	if strings.TrimSpace(id) == "" {
		return Driver{}, ErrNotFound
	}
	return s.Repo.Get(ctx, companyID, id)
}

// List returns the company's drivers by name.
func (s *Service) List(ctx context.Context, companyID string) ([]Driver, error) {
	return s.Repo.List(ctx, companyID)
}

// CheckDriver returns ErrNotFound unless the driver belongs to the company.
func (s *Service) CheckDriver(ctx context.Context, companyID, driverID string) error {
	_, err := s.Get(ctx, companyID, driverID)
	return err
}

// Compliance scores the driver's documents against the company's active
// document types.
func (s *Service) Compliance(ctx context.Context, companyID, driverID string) (Compliance, error) {
	company, err := s.Companies.Get(ctx, companyID)
	if err != nil {
		return Compliance{}, fmt.Errorf("load company: %w", err)
	}
	required, err := s.Companies.RequiredTypeNames(ctx, companyID)
	if err != nil {
		return Compliance{}, fmt.Errorf("load document types: %w", err)
	}
	docs, err := s.Documents.ListByDriver(ctx, companyID, driverID)
	if err != nil {
		return Compliance{}, fmt.Errorf("list documents: %w", err)
	}
	scored := make([]compliance.ScoredDocument, 0, len(docs))
	for _, d := range docs {
		scored = append(scored, d.Scored())
	}
	return Compliance{
		Score:     compliance.Score(scored, required),
		Required:  required,
		Breakdown: compliance.Breakdown(scored, required, s.now(), company.ReminderDays),
	}, nil
}

// Delete removes the driver and every document it owns.
func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	if _, err := s.Get(ctx, companyID, id); err != nil {
		return err
	}
	if err := s.Documents.DeleteByDriver(ctx, companyID, id); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	if err := s.Repo.Delete(ctx, companyID, id); err != nil {
		return err
	}
	telemetry.Info("driver.deleted", map[string]any{"company_id": companyID, "driver_id": id})
	return nil
}
