package amqp

import (
	"encoding/json"
	"time"
)

// Actions carried by ledger change messages.
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// LedgerChangeMessage tells the report worker that the ledger changed for
// a given month. It carries only identifiers; the worker re-reads the
// month from the backend and recomputes the summaries itself.
type LedgerChangeMessage struct {
	TransactionID string    `json:"transaction_id"`
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	Action        string    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerChangeMessage(transactionID string, year, month int, action string) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		TransactionID: transactionID,
		Year:          year,
		Month:         month,
		Action:        action,
		Timestamp:     time.Now(),
	}
}

func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
