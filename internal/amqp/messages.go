package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a change to the ledger.
type EventType string

const (
	RecordCreated EventType = "record.created"
	RecordUpdated EventType = "record.updated"
	RecordDeleted EventType = "record.deleted"
	WorkerCreated EventType = "worker.created"
	WorkerDeleted EventType = "worker.deleted"
)

func (t EventType) valid() bool {
	switch t {
	case RecordCreated, RecordUpdated, RecordDeleted, WorkerCreated, WorkerDeleted:
		return true
	}
	return false
}

// ChangeEvent announces a committed write. It carries ids only; consumers
// read current state from the primary store.
type ChangeEvent struct {
	Type      EventType `json:"type"`
	RecordID  int64     `json:"record_id,omitempty"`
	WorkerID  int64     `json:"worker_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordEvent(t EventType, id int64) *ChangeEvent {
	return &ChangeEvent{Type: t, RecordID: id, Timestamp: time.Now().UTC()}
}

func NewWorkerEvent(t EventType, id int64) *ChangeEvent {
	return &ChangeEvent{Type: t, WorkerID: id, Timestamp: time.Now().UTC()}
}

func (m *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeEventFromJSON decodes and checks an event body.
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var msg ChangeEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.valid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}
