package documents

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"compliance-backend/internal/companies"
	"compliance-backend/internal/compliance"
)

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID             string               `json:"id"`
	DriverID       string               `json:"driverId"`
	Type           string               `json:"type"`
	Key            string               `json:"key"`
	FileName       string               `json:"filename"`
	ContentType    string               `json:"contentType"`
	Size           int64                `json:"size"`
	DocumentNumber *string              `json:"documentNumber"`
	IssuedDate     *string              `json:"issuedDate"`
	ExpiryDate     *string              `json:"expiryDate"`
	RawStatus      compliance.RawStatus `json:"rawStatus"`
	Status         string               `json:"status"`
	StatusLabel    string               `json:"statusLabel"`
	Notes          string               `json:"notes"`
	Fields         map[string]string    `json:"fields"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// ToResponse renders a document together with its computed display status.
func ToResponse(doc Document, status compliance.DisplayStatus) DocumentResponse {
	fields := doc.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	return DocumentResponse{
		ID:             doc.ID,
		DriverID:       doc.DriverID,
		Type:           doc.Type,
		Key:            doc.Key,
		FileName:       doc.FileName,
		ContentType:    doc.ContentType,
		Size:           doc.Size,
		DocumentNumber: doc.DocumentNumber,
		IssuedDate:     formatDate(doc.IssuedDate),
		ExpiryDate:     formatDate(doc.ExpiryDate),
		RawStatus:      doc.RawStatus,
		Status:         string(status),
		StatusLabel:    status.Label(),
		Notes:          doc.Notes,
		Fields:         fields,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(companies.DateLayout)
	return &s
}

// ParseUpdate turns an arbitrary JSON field map into an Update. Known keys
// map onto document columns; everything else, and the optional nested
// "fields" object, becomes a dynamic field value.
func ParseUpdate(body map[string]any) (Update, error) {
	var upd Update
	for key, raw := range body {
		switch key {
		case "type":
			v, err := stringValue(key, raw)
			if err != nil {
				return Update{}, err
			}
			upd.Type = &v
		case "documentNumber":
			v, err := stringValue(key, raw)
			if err != nil {
				return Update{}, err
			}
			upd.DocumentNumber = &v
		case "issuedDate":
			v, err := stringValue(key, raw)
			if err != nil {
				return Update{}, err
			}
			upd.IssuedDate = &v
		case "expiryDate":
			v, err := stringValue(key, raw)
			if err != nil {
				return Update{}, err
			}
			upd.ExpiryDate = &v
		case "notes":
			v, err := stringValue(key, raw)
			if err != nil {
				return Update{}, err
			}
			upd.Notes = &v
		case "rawStatus", "status":
			v, err := stringValue(key, raw)
			if err != nil {
				return Update{}, err
			}
			st, ok := compliance.ParseRawStatus(strings.ToUpper(strings.TrimSpace(v)))
			if !ok {
				return Update{}, fmt.Errorf("%s: unknown status %q", key, v)
			}
			upd.RawStatus = &st
		case "fields":
			nested, ok := raw.(map[string]any)
			if !ok && raw != nil {
				return Update{}, fmt.Errorf("fields must be an object")
			}
			for k, v := range nested {
				s, err := stringValue(k, v)
				if err != nil {
					return Update{}, err
				}
				upd.setField(k, s)
			}
		case "id", "driverId", "key", "filename", "contentType", "size", "createdAt", "updatedAt", "statusLabel":
			// read-only
		default:
			s, err := stringValue(key, raw)
			if err != nil {
				return Update{}, err
			}
			upd.setField(key, s)
		}
	}
	return upd, nil
}

func (u *Update) setField(key, value string) {
	if u.Fields == nil {
		u.Fields = map[string]string{}
	}
	u.Fields[key] = value
}

func stringValue(key string, raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%s must be a scalar value", key)
	}
}
