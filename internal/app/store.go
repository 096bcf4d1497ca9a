package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"reflexion-api/internal/adapters/repo"
	"reflexion-api/internal/domain"
	"reflexion-api/internal/infra/cache"
	"reflexion-api/internal/infra/config"
	"reflexion-api/internal/infra/db"
)

// Store объединяет репозитории выбранного драйвера хранения.
type Store struct {
	Users     domain.UserRepo
	Sentences domain.SentenceRepo
	Images    domain.ImageRepo

	closers []func()
}

// Close освобождает соединения в обратном порядке.
func (s *Store) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// OpenStore подключает хранилище по STORAGE_DRIVER и, если задан REDIS_ADDR,
// оборачивает счётчик фраз кешем.
func OpenStore(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*Store, error) {
	store := &Store{}
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.Storage.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("подключение к postgres: %w", err)
		}
		store.closers = append(store.closers, pool.Close)
		pg := repo.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("миграции: %w", err)
		}
		store.Users, store.Sentences, store.Images = pg, pg, pg
	case config.DriverMongo:
		client, database, err := db.ConnectMongo(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("подключение к mongo: %w", err)
		}
		store.closers = append(store.closers, func() { _ = client.Disconnect(context.Background()) })
		mg := repo.NewMongo(database)
		if err := mg.EnsureIndexes(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("индексы mongo: %w", err)
		}
		store.Users, store.Sentences, store.Images = mg, mg, mg
	case config.DriverMemory:
		mem := repo.NewMemory()
		store.Users, store.Sentences, store.Images = mem, mem, mem
	default:
		return nil, fmt.Errorf("неизвестный драйвер %q", cfg.Storage.Driver)
	}

	if cfg.Cache.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		store.closers = append(store.closers, func() { _ = client.Close() })
		store.Sentences = repo.NewCachedSentences(store.Sentences, cache.NewRedis(client), cfg.Cache.SentenceCountTTL, logger)
	}
	logger.Info().Str("driver", cfg.Storage.Driver).Bool("cache", cfg.Cache.RedisAddr != "").Msg("store: ready")
	return store, nil
}
