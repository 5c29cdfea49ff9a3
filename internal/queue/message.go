package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

// KindExpiryReminder marks a document crossing a reminder threshold.
const KindExpiryReminder = "expiry_reminder"

// MessageVersion is bumped on incompatible payload changes.
const MessageVersion = 1

// ErrMissingDocumentID is returned for reminder payloads without a document.
var ErrMissingDocumentID = errors.New("missing document id")

// Message is the payload sent to downstream notification consumers.
// ThresholdDays is the reminder threshold crossed; 0 means expired.
type Message struct {
	Kind          string `json:"kind"`
	CompanyID     string `json:"companyId"`
	DriverID      string `json:"driverId"`
	DocumentID    string `json:"documentId"`
	DocumentType  string `json:"documentType,omitempty"`
	ExpiryDate    string `json:"expiryDate"`
	ThresholdDays int    `json:"thresholdDays"`
	DaysLeft      int    `json:"daysLeft"`
	Status        string `json:"status"`
	EnqueuedAt    string `json:"enqueuedAt"`
	Version       int    `json:"version"`
}

// Validate checks the fields every consumer relies on.
func (m Message) Validate() error {
	if strings.TrimSpace(m.DocumentID) == "" {
		return ErrMissingDocumentID
	}
	return nil
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
