package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"portfel/internal/notify"
)

// MailMessage asks the worker to deliver one mail.
type MailMessage struct {
	notify.Message
	Timestamp time.Time `json:"timestamp"`
}

func NewMailMessage(m notify.Message) *MailMessage {
	return &MailMessage{Message: m, Timestamp: time.Now()}
}

func (m *MailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MailMessageFromJSON(data []byte) (*MailMessage, error) {
	var msg MailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.To == "" {
		return nil, errors.New("mail message without recipient")
	}
	return &msg, nil
}

// ExportMessage is a lightweight notice that a household ledger changed.
// The worker reads the ledger from the database itself.
type ExportMessage struct {
	HouseholdID int64     `json:"household_id"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExportMessage(householdID int64, reason string) *ExportMessage {
	return &ExportMessage{HouseholdID: householdID, Reason: reason, Timestamp: time.Now()}
}

func (m *ExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExportMessageFromJSON(data []byte) (*ExportMessage, error) {
	var msg ExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.HouseholdID <= 0 {
		return nil, errors.New("export message without household")
	}
	return &msg, nil
}
