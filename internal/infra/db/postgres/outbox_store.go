package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "tradepost/internal/app/outbox"
	infraoutbox "tradepost/internal/infra/outbox"
)

const (
	outboxStateNew     = "NEW"
	outboxStateClaimed = "CLAIMED"
	outboxStateSent    = "SENT"
	outboxStateFailed  = "FAILED"
)

// OutboxStore appends events on the unit of work's transaction, so an
// event row commits exactly when the state change it describes does.
type OutboxStore struct {
	q querier
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers := record.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	headerJSON, err := json.Marshal(headers)
	if err != nil {
		return err
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO outbox_events (id, name, aggregate, payload, headers, state, next_attempt_at, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), $7)
	`, record.ID, record.Name, record.Aggregate, record.Payload, headerJSON, outboxStateNew, record.OccurredAt)
	return err
}

var _ appoutbox.Store = (*OutboxStore)(nil)

// OutboxClaimStore serves the delivery worker outside any unit of work.
// SKIP LOCKED keeps concurrent workers from claiming the same event.
type OutboxClaimStore struct {
	Pool *pgxpool.Pool
}

func (s *OutboxClaimStore) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE outbox_events
		SET state = $2, claimed_by = $1, claimed_at = now()
		WHERE id = (
			SELECT id FROM outbox_events
			WHERE state IN ($3, $4) AND next_attempt_at <= now()
			ORDER BY next_attempt_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, aggregate, payload, headers, occurred_at, attempts
	`, workerID, outboxStateClaimed, outboxStateNew, outboxStateFailed)

	var (
		doc        infraoutbox.EventDocument
		headerJSON []byte
	)
	err := row.Scan(&doc.ID, &doc.Name, &doc.Aggregate, &doc.Payload, &headerJSON, &doc.OccurredAt, &doc.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(headerJSON) > 0 {
		if err := json.Unmarshal(headerJSON, &doc.Headers); err != nil {
			return nil, err
		}
	}
	return &doc, nil
}

func (s *OutboxClaimStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE outbox_events SET state = $2, sent_at = now() WHERE id = $1
	`, id, outboxStateSent)
	return err
}

func (s *OutboxClaimStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE outbox_events
		SET state = $2, next_attempt_at = $3, last_error = $4, attempts = attempts + 1
		WHERE id = $1
	`, id, outboxStateFailed, next, errMsg)
	return err
}

var _ infraoutbox.ClaimStore = (*OutboxClaimStore)(nil)
