package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance-backend/internal/shared/apperr"
)

const header = "firstName,lastName,email,phone,location,employeeId\n"

func TestParseRequiresAllColumns(t *testing.T) {
	_, err := Parse(strings.NewReader("firstName,lastName,email\nA,B,a@b.co\n"))
	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"phone", "location", "employeeId"}, missing.Columns)
	assert.ErrorIs(t, err, ErrMissingColumns)

	_, err = Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestParseMapsColumnsByHeaderAndNumbersRows(t *testing.T) {
	csv := "employeeId,email,firstName,lastName,phone,location\n" +
		"E1,ana@x.io,Ana,Diaz,555,Austin\n" +
		"E2,bo@x.io,Bo\n"
	rows, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].RowNumber)
	assert.Equal(t, "Ana", rows[0].Fields["firstName"])
	assert.Equal(t, "E1", rows[0].Fields["employeeId"])
	assert.Equal(t, 3, rows[1].RowNumber)
	assert.Equal(t, "", rows[1].Fields["location"])
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		line       string
		wantValid  bool
		wantErrSub string
	}{
		{name: "complete row", line: "Ana,Diaz,ana@x.io,555,Austin,E1", wantValid: true},
		{name: "whitespace only field", line: "Ana,  ,ana@x.io,555,Austin,E1", wantErrSub: "lastName is required"},
		{name: "bad email", line: "Ana,Diaz,ana@x,555,Austin,E1", wantErrSub: "email is not valid"},
		{name: "email with space", line: "Ana,Diaz,an a@x.io,555,Austin,E1", wantErrSub: "email is not valid"},
		{name: "missing employee id", line: "Ana,Diaz,ana@x.io,555,Austin,", wantErrSub: "employeeId is required"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rows, err := Parse(strings.NewReader(header + tt.line + "\n"))
			require.NoError(t, err)
			ok := Validate(rows)
			assert.Equal(t, tt.wantValid, ok)
			assert.Equal(t, tt.wantValid, rows[0].Valid)
			if tt.wantErrSub != "" {
				assert.Contains(t, strings.Join(rows[0].Errors, "; "), tt.wantErrSub)
			}
		})
	}
}

type scriptedCreator struct {
	calls   []string
	outcome map[string]error // email -> error
}

func (s *scriptedCreator) CreateDriver(ctx context.Context, d NewDriver) error {
	s.calls = append(s.calls, d.Email)
	return s.outcome[d.Email]
}

var limitErr = apperr.New(apperr.KindQuota, "limit_reached", "driver limit reached")

func fourRows(t *testing.T) []Row {
	t.Helper()
	rows, err := Parse(strings.NewReader(header +
		"A,One,a@x.io,1,X,E1\n" +
		"B,Two,b@x.io,2,X,E2\n" +
		"C,Three,c@x.io,3,X,E3\n" +
		"D,Four,d@x.io,4,X,E4\n"))
	require.NoError(t, err)
	require.True(t, Validate(rows))
	return rows
}

func TestSubmitStopsAtLimit(t *testing.T) {
	creator := &scriptedCreator{outcome: map[string]error{"c@x.io": limitErr}}
	res, err := (&Importer{Creator: creator}).Submit(context.Background(), fourRows(t))
	require.NoError(t, err)

	assert.Len(t, res.Successful, 2)
	require.Len(t, res.Failed, 2)
	assert.True(t, res.LimitReached)
	assert.Equal(t, ReasonLimitReached, res.Failed[0].Reason)
	assert.Equal(t, ReasonLimitReached, res.Failed[1].Reason)
	assert.Equal(t, "d@x.io", res.Failed[1].Row.Fields["email"])
	assert.Equal(t, []string{"a@x.io", "b@x.io", "c@x.io"}, creator.calls)
}

func TestSubmitContinuesPastOtherErrors(t *testing.T) {
	creator := &scriptedCreator{outcome: map[string]error{"b@x.io": errors.New("duplicate email")}}
	res, err := (&Importer{Creator: creator}).Submit(context.Background(), fourRows(t))
	require.NoError(t, err)

	assert.Len(t, res.Successful, 3)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, ReasonError, res.Failed[0].Reason)
	assert.False(t, res.LimitReached)
	assert.Len(t, creator.calls, 4)
}

func TestImportRefusesInvalidBatch(t *testing.T) {
	creator := &scriptedCreator{}
	_, rows, err := (&Importer{Creator: creator}).Import(context.Background(), strings.NewReader(header+
		"A,One,a@x.io,1,X,E1\n"+
		"B,Two,not-an-email,2,X,E2\n"))
	assert.ErrorIs(t, err, ErrInvalidRows)
	require.Len(t, rows, 2)
	assert.False(t, rows[1].Valid)
	assert.Empty(t, creator.calls)
}
