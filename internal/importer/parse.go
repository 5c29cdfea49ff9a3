// Package importer turns a driver roster CSV into drivers, one row at a
// time, stopping as soon as the plan limit is hit.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"compliance-backend/internal/shared/apperr"
)

// RequiredColumns is the header every import file must carry.
var RequiredColumns = []string{"firstName", "lastName", "email", "phone", "location", "employeeId"}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	ErrMissingColumns = apperr.Validation("missing_columns", "csv is missing required columns")
	ErrEmptyFile      = apperr.Validation("empty_file", "csv has no header row")
)

// MissingColumnsError names the absent header columns.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

// Row is one data line of the file. RowNumber is the 1-based line in the
// file, so the first data row is 2.
type Row struct {
	Fields    map[string]string `json:"fields"`
	RowNumber int               `json:"rowNumber"`
	Valid     bool              `json:"valid"`
	Errors    []string          `json:"errors,omitempty"`
}

// Parse reads the header and data rows. A missing required column fails the
// whole file before any row is looked at.
func Parse(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid_csv", err, "read csv header")
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		index[h] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "invalid_csv", err, "read csv row")
		}
		line, _ := reader.FieldPos(0)
		fields := make(map[string]string, len(RequiredColumns))
		for _, col := range RequiredColumns {
			if i := index[col]; i < len(record) {
				fields[col] = record[i]
			} else {
				fields[col] = ""
			}
		}
		rows = append(rows, Row{Fields: fields, RowNumber: line})
	}
	return rows, nil
}

// Validate checks every row and records its problems. It returns true when
// all rows are valid.
func Validate(rows []Row) bool {
	allValid := true
	for i := range rows {
		var problems []string
		for _, col := range RequiredColumns {
			v := strings.TrimSpace(rows[i].Fields[col])
			rows[i].Fields[col] = v
			if v == "" {
				problems = append(problems, fmt.Sprintf("%s is required", col))
			}
		}
		if email := rows[i].Fields["email"]; email != "" && !emailPattern.MatchString(email) {
			problems = append(problems, "email is not valid")
		}
		rows[i].Errors = problems
		rows[i].Valid = len(problems) == 0
		if !rows[i].Valid {
			allValid = false
		}
	}
	return allValid
}
