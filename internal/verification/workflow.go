package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"compliance-backend/internal/compliance"
	"compliance-backend/internal/documents"
	"compliance-backend/internal/extraction"
	"compliance-backend/internal/shared/telemetry"
)

const (
	// scanTimeout bounds one scan, retries included.
	scanTimeout = 10 * time.Minute
	// A SCANNING session untouched for this long is treated as failed, so a
	// crashed scan does not strand the driver. It must outlast scanTimeout so
	// a live scan is never retried alongside itself.
	scanStaleAfter = scanTimeout + 5*time.Minute
)

// Scanner runs credit-metered extraction.
type Scanner interface {
	Available() bool
	ScanMany(ctx context.Context, companyID string, documentIDs []string) (extraction.BatchResult, error)
}

// CreditReader reports a company's balance.
type CreditReader interface {
	Balance(ctx context.Context, companyID string) (int, error)
}

// DocumentEditor loads and persists documents.
type DocumentEditor interface {
	Get(ctx context.Context, companyID, id string) (documents.Document, error)
	Update(ctx context.Context, companyID, id string, upd documents.Update) (documents.Document, error)
	ReminderDays(ctx context.Context, companyID string) []int
	Status(doc documents.Document, reminderDays []int) compliance.DisplayStatus
}

// DriverChecker confirms a driver exists within a company.
type DriverChecker interface {
	CheckDriver(ctx context.Context, companyID, driverID string) error
}

// Workflow drives onboarding sessions through their states.
type Workflow struct {
	Store     SessionStore
	Scanner   Scanner
	Credits   CreditReader
	Documents DocumentEditor
	Drivers   DriverChecker
	Now       func() time.Time
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

// Start opens a session over the driver's freshly uploaded documents.
func (w *Workflow) Start(ctx context.Context, companyID, driverID string, documentIDs []string) (Session, error) {
	if err := w.Drivers.CheckDriver(ctx, companyID, driverID); err != nil {
		return Session{}, err
	}
	ids := make([]string, 0, len(documentIDs))
	seen := map[string]bool{}
	for _, id := range documentIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return Session{}, ErrNoDocuments
	}
	for _, id := range ids {
		doc, err := w.Documents.Get(ctx, companyID, id)
		if err != nil {
			return Session{}, err
		}
		if doc.DriverID != driverID {
			return Session{}, ErrForeignDocument
		}
	}

	now := w.now()
	s := Session{
		ID:          uuid.NewString(),
		DriverID:    driverID,
		CompanyID:   companyID,
		DocumentIDs: ids,
		State:       StateChoosingMethod,
		Verified:    map[string]bool{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.Store.Put(ctx, &s); err != nil {
		return Session{}, err
	}
	telemetry.Info("onboarding.started", map[string]any{
		"company_id": companyID,
		"driver_id":  driverID,
		"session_id": s.ID,
		"documents":  len(ids),
	})
	return s, nil
}

// Get returns a session of the company.
func (w *Workflow) Get(ctx context.Context, companyID, id string) (Session, error) {
	return w.load(ctx, companyID, id)
}

// Options reports whether the AI branch can be taken. It needs a configured
// extractor and one credit per document.
func (w *Workflow) Options(ctx context.Context, companyID, id string) (MethodOptions, error) {
	s, err := w.load(ctx, companyID, id)
	if err != nil {
		return MethodOptions{}, err
	}
	return w.options(ctx, s)
}

func (w *Workflow) options(ctx context.Context, s Session) (MethodOptions, error) {
	bal, err := w.Credits.Balance(ctx, s.CompanyID)
	if err != nil {
		return MethodOptions{}, fmt.Errorf("check credits: %w", err)
	}
	opts := MethodOptions{Credits: bal, DocumentCount: len(s.DocumentIDs)}
	switch {
	case w.Scanner == nil || !w.Scanner.Available():
		opts.Reason = extraction.ErrExtractionUnavailable.Code
	case bal < len(s.DocumentIDs):
		opts.Reason = extraction.ErrInsufficientCredits.Code
	default:
		opts.AIAvailable = true
	}
	return opts, nil
}

// ChooseAI scans every document of the session in one call.
func (w *Workflow) ChooseAI(ctx context.Context, companyID, id string) (Session, error) {
	s, err := w.load(ctx, companyID, id)
	if err != nil {
		return Session{}, err
	}
	if s.State != StateChoosingMethod {
		return s, ErrInvalidState
	}
	return w.scan(ctx, s)
}

// RetryScan runs the scan again after a failure.
func (w *Workflow) RetryScan(ctx context.Context, companyID, id string) (Session, error) {
	s, err := w.load(ctx, companyID, id)
	if err != nil {
		return Session{}, err
	}
	if s.State != StateScanFailed {
		return s, ErrInvalidState
	}
	return w.scan(ctx, s)
}

// scan moves through SCANNING. A failed scan is a state, not an error: the
// session lands in SCAN_FAILED with the reason recorded.
func (w *Workflow) scan(ctx context.Context, s Session) (Session, error) {
	opts, err := w.options(ctx, s)
	if err != nil {
		return s, err
	}
	if !opts.AIAvailable {
		if opts.Reason == extraction.ErrInsufficientCredits.Code {
			return s, extraction.ErrInsufficientCredits
		}
		return s, extraction.ErrExtractionUnavailable
	}

	s.State = StateScanning
	s.LastError = ""
	if err := w.put(ctx, &s); err != nil {
		return s, err
	}

	scanCtx, cancel := context.WithTimeout(ctx, scanTimeout)
	batch, err := w.Scanner.ScanMany(scanCtx, s.CompanyID, s.DocumentIDs)
	cancel()
	if err != nil {
		s.State = StateScanFailed
		s.LastError = err.Error()
		telemetry.Warn("onboarding.scan_failed", map[string]any{"session_id": s.ID, "company_id": s.CompanyID, "err": err})
		if perr := w.put(ctx, &s); perr != nil {
			return s, perr
		}
		return s, nil
	}

	s.State = StateScanDone
	s.Results = make(map[string]extraction.ScanResult, len(batch.Results))
	for _, r := range batch.Results {
		s.Results[r.DocumentID] = r
	}
	s.CreditsUsed += batch.TotalCreditsUsed
	telemetry.Info("onboarding.scan_done", map[string]any{
		"session_id":   s.ID,
		"company_id":   s.CompanyID,
		"credits_used": batch.TotalCreditsUsed,
	})

	s.State = StateVerifying
	s.Current = s.nextUnverified(0)
	if s.Current < 0 {
		s.Current = 0
	}
	if err := w.put(ctx, &s); err != nil {
		return s, err
	}
	return s, nil
}

// ChooseManual switches to manual entry, from the start or after a failed scan.
func (w *Workflow) ChooseManual(ctx context.Context, companyID, id string) (Session, error) {
	s, err := w.load(ctx, companyID, id)
	if err != nil {
		return Session{}, err
	}
	if s.State != StateChoosingMethod && s.State != StateScanFailed {
		return s, ErrInvalidState
	}
	s.State = StateManualEntry
	s.Current = s.nextUnverified(0)
	if s.Current < 0 {
		s.Current = 0
	}
	if err := w.put(ctx, &s); err != nil {
		return s, err
	}
	return s, nil
}

// Form returns the edit form for a document; an empty documentID means the
// session's current document. Unverified documents are pre-filled from the
// scan in VERIFYING and left blank in MANUAL_ENTRY.
func (w *Workflow) Form(ctx context.Context, companyID, id, documentID string) (Form, error) {
	s, err := w.load(ctx, companyID, id)
	if err != nil {
		return Form{}, err
	}
	if s.State != StateVerifying && s.State != StateManualEntry && s.State != StateComplete {
		return Form{}, ErrInvalidState
	}
	if documentID == "" {
		documentID = s.DocumentIDs[s.Current]
	}
	if !s.has(documentID) {
		return Form{}, ErrUnknownDocument
	}
	doc, err := w.Documents.Get(ctx, companyID, documentID)
	if err != nil {
		return Form{}, err
	}

	f := Form{DocumentID: doc.ID, FileName: doc.FileName, Verified: s.Verified[doc.ID]}
	switch {
	case f.Verified:
		fillFromDocument(&f, doc)
	case s.State == StateVerifying:
		r := s.Results[doc.ID]
		if r.Success && r.ExtractedData != nil {
			fillFromScan(&f, *r.ExtractedData)
		} else {
			f.ScanError = r.Error
		}
	}
	return f, nil
}

func fillFromScan(f *Form, d extraction.ExtractedData) {
	f.Type = d.Type
	f.DocumentNumber = d.DocumentNumber
	f.IssuedDate = d.IssuedDate
	f.ExpiryDate = d.ExpiryDate
	if len(d.Fields) > 0 {
		f.Fields = make(map[string]string, len(d.Fields))
		for k, v := range d.Fields {
			f.Fields[k] = v
		}
	}
	f.Prefilled = true
}

func fillFromDocument(f *Form, doc documents.Document) {
	f.Type = doc.Type
	if doc.DocumentNumber != nil {
		f.DocumentNumber = *doc.DocumentNumber
	}
	if doc.IssuedDate != nil {
		f.IssuedDate = doc.IssuedDate.Format(time.DateOnly)
	}
	if doc.ExpiryDate != nil {
		f.ExpiryDate = doc.ExpiryDate.Format(time.DateOnly)
	}
	f.Notes = doc.Notes
	f.Fields = doc.Fields
}

// Save persists the reviewed values and marks the document verified. Type
// and expiry date are required and checked before anything is written.
// Manual entry advances on its own and completes after the last document;
// review mode never completes without an explicit Complete.
func (w *Workflow) Save(ctx context.Context, companyID, id, documentID string, in FormInput) (Session, documents.Document, error) {
	s, err := w.load(ctx, companyID, id)
	if err != nil {
		return Session{}, documents.Document{}, err
	}
	if s.State != StateVerifying && s.State != StateManualEntry {
		return s, documents.Document{}, ErrInvalidState
	}
	if !s.has(documentID) {
		return s, documents.Document{}, ErrUnknownDocument
	}
	if problems := requiredProblems(in); len(problems) > 0 {
		return s, documents.Document{}, &documents.FieldErrors{Problems: problems}
	}

	active := compliance.RawActive
	upd := documents.Update{
		Type:           &in.Type,
		DocumentNumber: &in.DocumentNumber,
		IssuedDate:     &in.IssuedDate,
		ExpiryDate:     &in.ExpiryDate,
		Notes:          &in.Notes,
		RawStatus:      &active,
		Fields:         in.Fields,
	}
	doc, err := w.Documents.Update(ctx, companyID, documentID, upd)
	if err != nil {
		return s, documents.Document{}, err
	}

	s.Verified[documentID] = true
	idx := 0
	for i, docID := range s.DocumentIDs {
		if docID == documentID {
			idx = i
		}
	}
	next := s.nextUnverified(idx + 1)
	switch {
	case next >= 0:
		s.Current = next
	case s.State == StateManualEntry:
		s.State = StateComplete
	default:
		s.Current = idx
	}
	if err := w.put(ctx, &s); err != nil {
		return s, doc, err
	}
	telemetry.Info("onboarding.document_verified", map[string]any{
		"session_id":  s.ID,
		"company_id":  companyID,
		"document_id": documentID,
		"state":       string(s.State),
	})
	return s, doc, nil
}

func requiredProblems(in FormInput) map[string]string {
	problems := map[string]string{}
	if strings.TrimSpace(in.Type) == "" {
		problems["type"] = "is required"
	}
	if strings.TrimSpace(in.ExpiryDate) == "" {
		problems["expiryDate"] = "is required"
	}
	return problems
}

// Complete closes a reviewed session once every document was saved.
func (w *Workflow) Complete(ctx context.Context, companyID, id string) (Session, error) {
	s, err := w.load(ctx, companyID, id)
	if err != nil {
		return Session{}, err
	}
	switch s.State {
	case StateComplete:
		return s, nil
	case StateVerifying, StateManualEntry:
	default:
		return s, ErrInvalidState
	}
	if !s.allVerified() {
		return s, ErrUnverifiedDocuments
	}
	s.State = StateComplete
	if err := w.put(ctx, &s); err != nil {
		return s, err
	}
	telemetry.Info("onboarding.complete", map[string]any{
		"session_id":   s.ID,
		"company_id":   companyID,
		"driver_id":    s.DriverID,
		"credits_used": s.CreditsUsed,
	})
	return s, nil
}

func (w *Workflow) load(ctx context.Context, companyID, id string) (Session, error) {
	s, err := w.Store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if s.CompanyID != companyID {
		return Session{}, ErrSessionNotFound
	}
	if s.Verified == nil {
		s.Verified = map[string]bool{}
	}
	if s.State == StateScanning && w.now().Sub(s.UpdatedAt) > scanStaleAfter {
		s.State = StateScanFailed
		s.LastError = "scan interrupted"
	}
	return s, nil
}

func (w *Workflow) put(ctx context.Context, s *Session) error {
	s.UpdatedAt = w.now()
	if err := w.Store.Put(ctx, s); err != nil {
		if errors.Is(err, ErrStale) {
			return err
		}
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
