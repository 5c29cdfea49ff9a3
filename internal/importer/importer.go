package importer

import (
	"context"
	"io"

	"compliance-backend/internal/shared/apperr"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/telemetry"
)

// FailReason explains why a row did not become a driver.
type FailReason string

const (
	ReasonLimitReached FailReason = "LIMIT_REACHED"
	ReasonError        FailReason = "ERROR"
)

// ErrInvalidRows refuses submission while any row still has errors.
var ErrInvalidRows = apperr.Validation("invalid_rows", "fix invalid rows before importing")

// NewDriver is the driver payload built from one row.
type NewDriver struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Location   string `json:"location"`
	EmployeeID string `json:"employeeId"`
}

// Driver maps the row onto a creation payload.
func (r Row) Driver() NewDriver {
	return NewDriver{
		FirstName:  r.Fields["firstName"],
		LastName:   r.Fields["lastName"],
		Email:      r.Fields["email"],
		Phone:      r.Fields["phone"],
		Location:   r.Fields["location"],
		EmployeeID: r.Fields["employeeId"],
	}
}

// DriverCreator creates one driver. Plan-limit refusals must classify as
// apperr.KindQuota.
type DriverCreator interface {
	CreateDriver(ctx context.Context, d NewDriver) error
}

// Failure is a row that was not imported.
type Failure struct {
	Row    Row        `json:"row"`
	Reason FailReason `json:"reason"`
	Error  string     `json:"error,omitempty"`
}

// Result is the outcome of a submission.
type Result struct {
	Successful   []Row     `json:"successful"`
	Failed       []Failure `json:"failed"`
	LimitReached bool      `json:"limitReached"`
}

// Importer submits validated rows to a DriverCreator.
type Importer struct {
	Creator DriverCreator
}

// Submit creates drivers one row at a time, in order. A quota error marks
// the current row and every remaining row LIMIT_REACHED without attempting
// them; any other error fails only that row.
func (im *Importer) Submit(ctx context.Context, rows []Row) (Result, error) {
	for _, r := range rows {
		if !r.Valid {
			return Result{}, ErrInvalidRows
		}
	}

	res := Result{Successful: []Row{}, Failed: []Failure{}}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := im.Creator.CreateDriver(ctx, row.Driver())
		switch {
		case err == nil:
			res.Successful = append(res.Successful, row)
			metrics.ObserveImportRow("success")
		case apperr.IsQuota(err):
			res.LimitReached = true
			for _, rest := range rows[i:] {
				res.Failed = append(res.Failed, Failure{Row: rest, Reason: ReasonLimitReached, Error: err.Error()})
				metrics.ObserveImportRow("limit_reached")
			}
			telemetry.Warn("import.limit_reached", map[string]any{
				"row_number": row.RowNumber,
				"skipped":    len(rows) - i,
			})
			return res, nil
		default:
			res.Failed = append(res.Failed, Failure{Row: row, Reason: ReasonError, Error: err.Error()})
			metrics.ObserveImportRow("error")
		}
	}
	return res, nil
}

// Import parses, validates and submits. When validation fails the rows are
// returned with their errors and nothing is submitted.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, []Row, error) {
	rows, err := Parse(r)
	if err != nil {
		return Result{}, nil, err
	}
	if !Validate(rows) {
		return Result{}, rows, ErrInvalidRows
	}
	res, err := im.Submit(ctx, rows)
	return res, rows, err
}
