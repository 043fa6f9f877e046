package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"gastos/internal/core"
)

// MonthSyncMessage announces that a ledger month changed. It carries only the
// identity and version; the worker reads the row itself.
type MonthSyncMessage struct {
	UID       int64     `json:"uid"`
	Month     string    `json:"month"`
	Version   int64     `json:"version"`
	Deleted   bool      `json:"deleted"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMonthSyncMessage(uid int64, key core.MonthKey, version int64, deleted bool) *MonthSyncMessage {
	return &MonthSyncMessage{
		UID:       uid,
		Month:     string(key),
		Version:   version,
		Deleted:   deleted,
		Timestamp: time.Now(),
	}
}

func (m *MonthSyncMessage) Key() core.MonthKey {
	return core.MonthKey(m.Month)
}

func (m *MonthSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MonthSyncMessageFromJSON decodes a message and rejects ones whose month key
// or version could never match a stored row.
func MonthSyncMessageFromJSON(data []byte) (*MonthSyncMessage, error) {
	var msg MonthSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := core.ParseMonthKey(msg.Month); err != nil {
		return nil, err
	}
	if msg.UID < 0 || msg.Version < 1 {
		return nil, fmt.Errorf("invalid message uid=%d version=%d", msg.UID, msg.Version)
	}
	return &msg, nil
}
