package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "tradepost/internal/app/outbox"
	infraoutbox "tradepost/internal/infra/outbox"
)

type outboxEntry struct {
	record      appoutbox.EventRecord
	state       string
	attempts    int
	nextAttempt time.Time
	lastError   string
}

// Outbox is the in-memory twin of the Postgres outbox table.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(_ context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, &outboxEntry{
		record:      record,
		state:       "NEW",
		nextAttempt: time.Now(),
	})
	return nil
}

func (o *Outbox) Claim(_ context.Context, _ string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for _, e := range o.entries {
		if (e.state == "NEW" || e.state == "FAILED") && !e.nextAttempt.After(now) {
			e.state = "CLAIMED"
			return &infraoutbox.EventDocument{
				ID:         e.record.ID,
				Name:       e.record.Name,
				Aggregate:  e.record.Aggregate,
				Payload:    e.record.Payload,
				Headers:    e.record.Headers,
				OccurredAt: e.record.OccurredAt,
				Attempts:   e.attempts,
			}, nil
		}
	}
	return nil, nil
}

func (o *Outbox) MarkSent(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.record.ID == id {
			e.state = "SENT"
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.record.ID == id {
			e.state = "FAILED"
			e.attempts++
			e.nextAttempt = next
			e.lastError = errMsg
			return nil
		}
	}
	return nil
}

// Pending reports records not yet delivered; used by tests.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []appoutbox.EventRecord
	for _, e := range o.entries {
		if e.state != "SENT" {
			out = append(out, e.record)
		}
	}
	return out
}

var (
	_ appoutbox.Store        = (*Outbox)(nil)
	_ infraoutbox.ClaimStore = (*Outbox)(nil)
)
