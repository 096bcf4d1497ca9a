package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"reflexion-api/internal/adapters/repo"
	"reflexion-api/internal/domain"
	"reflexion-api/internal/infra/config"
	"reflexion-api/internal/infra/events"
)

func memoryConfig() config.AppConfig {
	var cfg config.AppConfig
	cfg.Storage.Driver = config.DriverMemory
	cfg.Auth.JWTSecret = "secret"
	cfg.Emotions = config.StringList{"alegria", "tristeza"}
	return cfg
}

func TestOpenStoreMemory(t *testing.T) {
	store, err := OpenStore(context.Background(), memoryConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()
	if _, ok := store.Sentences.(*repo.Memory); !ok {
		t.Fatalf("expected memory sentences repo, got %T", store.Sentences)
	}
}

func TestOpenStoreWrapsCache(t *testing.T) {
	srv := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.Cache.RedisAddr = srv.Addr()
	store, err := OpenStore(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()
	if _, ok := store.Sentences.(*repo.CachedSentences); !ok {
		t.Fatalf("expected cached sentences repo, got %T", store.Sentences)
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.Driver = "sqlite"
	if _, err := OpenStore(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenEvents(t *testing.T) {
	cfg := memoryConfig()
	p, closeFn, err := OpenEvents(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenEvents: %v", err)
	}
	closeFn()
	if _, ok := p.(domain.NopPublisher); !ok {
		t.Fatalf("expected nop publisher, got %T", p)
	}

	cfg.Cache.RedisAddr = miniredis.RunT(t).Addr()
	cfg.Events.RedisKey = "events"
	p, closeFn, err = OpenEvents(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenEvents: %v", err)
	}
	defer closeFn()
	if _, ok := p.(*events.RedisPublisher); !ok {
		t.Fatalf("expected redis publisher, got %T", p)
	}
}

func TestNewServicesEndToEnd(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(ctx, memoryConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()
	services, err := NewServices(memoryConfig(), store, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}

	user, err := services.Auth.Register(ctx, "ana", "ana@example.com", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := services.Sentences.Create(ctx, "t", "b", "e"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := services.Emotions.Record(ctx, user.ID, []string{"alegria"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	sel, err := services.Reflection.SelectForUser(ctx, user.ID, []string{"alegria"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !sel.Recorded || sel.Sentence.Title != "t" {
		t.Fatalf("unexpected selection %+v", sel)
	}
	if _, err := services.Reflection.ReflectFromService(ctx, user.ID, nil); err == nil {
		t.Fatal("expected reflection to be unavailable without endpoint")
	}
}
