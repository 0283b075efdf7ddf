package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrEventNameRequired = errors.New("outbox: event name is required")

// EventRecord is one domain event awaiting delivery. Records are written
// inside the transaction that produced the state change, so an event
// exists if and only if its side effect committed.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Store appends event records; implementations share the unit-of-work
// transaction of the caller.
type Store interface {
	Add(ctx context.Context, record EventRecord) error
}

// NewRecord builds an event record with a JSON payload.
func NewRecord(name, aggregate string, payload any, occurredAt time.Time) (EventRecord, error) {
	if name == "" {
		return EventRecord{}, ErrEventNameRequired
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return EventRecord{}, err
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return EventRecord{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    body,
		OccurredAt: occurredAt.UTC(),
		Aggregate:  aggregate,
		Headers:    map[string]string{},
	}, nil
}
