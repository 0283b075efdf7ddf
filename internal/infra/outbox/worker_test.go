package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	appoutbox "tradepost/internal/app/outbox"
)

type fakeStore struct {
	queue  []*EventDocument
	sent   []string
	failed []string
}

func (s *fakeStore) Claim(_ context.Context, _ string) (*EventDocument, error) {
	if len(s.queue) == 0 {
		return nil, nil
	}
	doc := s.queue[0]
	s.queue = s.queue[1:]
	return doc, nil
}

func (s *fakeStore) MarkSent(_ context.Context, id string) error {
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id string, _ time.Time, _ string) error {
	s.failed = append(s.failed, id)
	return nil
}

type fakeProducer struct {
	published []publishedMessage
	err       error
}

type publishedMessage struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, publishedMessage{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func eventDoc(id, name string) *EventDocument {
	record, _ := appoutbox.NewRecord(name, "agg-1", map[string]string{"k": "v"}, time.Now())
	return &EventDocument{
		ID:         id,
		Name:       record.Name,
		Aggregate:  record.Aggregate,
		Payload:    record.Payload,
		OccurredAt: record.OccurredAt,
	}
}

func TestProcessOnceDeliversEnvelope(t *testing.T) {
	store := &fakeStore{queue: []*EventDocument{eventDoc("evt-1", "chat.message_posted")}}
	producer := &fakeProducer{}
	worker := &Worker{Store: store, Producer: producer}

	if err := worker.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(producer.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(producer.published))
	}
	msg := producer.published[0]
	if msg.topic != "chat.events.v1" {
		t.Fatalf("wrong topic: %s", msg.topic)
	}
	if msg.key != "agg-1" {
		t.Fatalf("wrong partition key: %s", msg.key)
	}
	if msg.headers["content-type"] != "application/cloudevents+json" {
		t.Fatalf("wrong content type: %s", msg.headers["content-type"])
	}

	var envelope map[string]any
	if err := json.Unmarshal(msg.payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope["type"] != "chat.message_posted.v1" {
		t.Fatalf("wrong event type: %v", envelope["type"])
	}
	if envelope["source"] != "app://tradepost" {
		t.Fatalf("wrong source: %v", envelope["source"])
	}
	data := envelope["data"].(map[string]any)
	if data["k"] != "v" {
		t.Fatalf("payload lost: %v", data)
	}

	if len(store.sent) != 1 || store.sent[0] != "evt-1" {
		t.Fatalf("event not marked sent: %v", store.sent)
	}
}

func TestProcessOnceTopicPrefix(t *testing.T) {
	store := &fakeStore{queue: []*EventDocument{eventDoc("evt-1", "chat.conversation_created")}}
	producer := &fakeProducer{}
	worker := &Worker{Store: store, Producer: producer, TopicPrefix: "staging."}

	if err := worker.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if got := producer.published[0].topic; got != "staging.chat.events.v1" {
		t.Fatalf("prefix not applied: %s", got)
	}
}

func TestProcessOncePublishFailureReschedules(t *testing.T) {
	store := &fakeStore{queue: []*EventDocument{eventDoc("evt-1", "chat.message_posted")}}
	producer := &fakeProducer{err: errors.New("broker down")}
	worker := &Worker{Store: store, Producer: producer, Backoff: []time.Duration{time.Second}}

	if err := worker.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("publish failure must not stop the worker: %v", err)
	}
	if len(store.failed) != 1 || store.failed[0] != "evt-1" {
		t.Fatalf("event not rescheduled: %v", store.failed)
	}
	if len(store.sent) != 0 {
		t.Fatalf("failed event must not be marked sent: %v", store.sent)
	}
}

func TestProcessOnceEmptyQueue(t *testing.T) {
	worker := &Worker{Store: &fakeStore{}, Producer: &fakeProducer{}}
	if err := worker.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("empty queue: %v", err)
	}
}

func TestWorkerRequiresDependencies(t *testing.T) {
	worker := &Worker{}
	if err := worker.ProcessOnce(context.Background()); !errors.Is(err, ErrWorkerNotConfigured) {
		t.Fatalf("expected ErrWorkerNotConfigured, got %v", err)
	}
}
