package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"reflexion-api/internal/domain"
)

type recordedPublish struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	published []recordedPublish
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.published = append(f.published, recordedPublish{exchange: exchange, key: key, msg: msg})
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublishRoutesByType(t *testing.T) {
	ch := &fakeChannel{}
	p := &RabbitPublisher{ch: ch, exchange: "reflexion.events"}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), domain.Event{
		Type:       domain.EventEmotionsLogged,
		UserID:     "u1",
		Payload:    map[string]any{"emotions": []string{"alegria"}},
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(ch.published))
	}
	got := ch.published[0]
	if got.exchange != "reflexion.events" || got.key != domain.EventEmotionsLogged {
		t.Fatalf("unexpected routing %s/%s", got.exchange, got.key)
	}
	if got.msg.ContentType != "application/json" || got.msg.MessageId == "" || !got.msg.Timestamp.Equal(at) {
		t.Fatalf("unexpected headers %+v", got.msg)
	}
	var decoded domain.Event
	if err := json.Unmarshal(got.msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.UserID != "u1" || decoded.Type != domain.EventEmotionsLogged {
		t.Fatalf("unexpected body %+v", decoded)
	}
}

func TestPublishErrors(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := &RabbitPublisher{ch: ch, exchange: "x"}
	if err := p.Publish(context.Background(), domain.Event{Type: domain.EventSentenceSelected}); err == nil {
		t.Fatal("expected broker error")
	}
	if err := p.Publish(context.Background(), domain.Event{}); err == nil {
		t.Fatal("expected error for empty type")
	}
	if len(ch.published) != 1 {
		t.Fatalf("empty event must not reach the broker, got %d publishes", len(ch.published))
	}
	if err := p.Close(); err != nil || !ch.closed {
		t.Fatalf("close: %v closed=%v", err, ch.closed)
	}
}

func TestNewRabbitPublisherValidates(t *testing.T) {
	if _, err := NewRabbitPublisher("", "x"); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewRabbitPublisher("amqp://localhost", ""); err == nil {
		t.Fatal("expected error for empty exchange")
	}
}
