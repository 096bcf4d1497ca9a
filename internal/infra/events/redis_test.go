package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"reflexion-api/internal/domain"
)

func newTestRedisPublisher(t *testing.T) *RedisPublisher {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisPublisher(client, "reflexion:events")
}

func TestRedisPublisherFIFO(t *testing.T) {
	p := newTestRedisPublisher(t)
	ctx := context.Background()

	for _, typ := range []string{domain.EventUserRegistered, domain.EventEmotionsLogged} {
		if err := p.Publish(ctx, domain.Event{Type: typ, UserID: "u1"}); err != nil {
			t.Fatalf("publish %s: %v", typ, err)
		}
	}
	for _, want := range []string{domain.EventUserRegistered, domain.EventEmotionsLogged} {
		got, err := p.Pop(ctx)
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if got.Type != want || got.UserID != "u1" || got.OccurredAt.IsZero() {
			t.Fatalf("unexpected event %+v, want type %s", got, want)
		}
	}
}

func TestRedisPublisherRejectsUntyped(t *testing.T) {
	p := newTestRedisPublisher(t)
	if err := p.Publish(context.Background(), domain.Event{}); err == nil {
		t.Fatal("expected error for empty type")
	}
}

func TestRedisPopHonoursContext(t *testing.T) {
	p := newTestRedisPublisher(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Pop(ctx); err == nil {
		t.Fatal("expected context error on empty list")
	}
}
