package app

import (
	"github.com/rs/zerolog"

	"reflexion-api/internal/adapters/reflectionclient"
	"reflexion-api/internal/domain"
	"reflexion-api/internal/infra/config"
	"reflexion-api/internal/usecase/auth"
	"reflexion-api/internal/usecase/emotions"
	"reflexion-api/internal/usecase/reflection"
	"reflexion-api/internal/usecase/sentences"
	"reflexion-api/internal/usecase/users"
)

// Services содержит сценарии поверх одного Store.
type Services struct {
	Auth       *auth.Service
	Users      *users.Service
	Emotions   *emotions.Service
	Reflection *reflection.Service
	Sentences  *sentences.Service
}

// NewServices собирает сценарии. Без IA_API_ENDPOINT внешний источник рефлексий не подключается.
func NewServices(cfg config.AppConfig, store *Store, events domain.EventPublisher, logger zerolog.Logger) (*Services, error) {
	if events == nil {
		events = domain.NopPublisher{}
	}
	catalog := emotions.NewCatalog(cfg.Emotions)

	reflectionOpts := []reflection.Option{
		reflection.WithEvents(events),
		reflection.WithLogger(logger.With().Str("component", "reflection").Logger()),
	}
	if cfg.Reflection.Endpoint != "" {
		client, err := reflectionclient.New(cfg.Reflection.Endpoint, cfg.Reflection.Secret,
			reflectionclient.WithTimeout(cfg.Reflection.Timeout))
		if err != nil {
			return nil, err
		}
		reflectionOpts = append(reflectionOpts, reflection.WithReflectionSource(client))
	}

	return &Services{
		Auth: auth.NewService(store.Users, cfg.Auth.JWTSecret,
			auth.WithTTL(cfg.Auth.JWTTTL),
			auth.WithEvents(events),
			auth.WithLogger(logger.With().Str("component", "auth").Logger()),
		),
		Users:      users.NewService(store.Users, store.Sentences),
		Emotions:   emotions.NewService(store.Users, catalog, events, logger.With().Str("component", "emotions").Logger()),
		Reflection: reflection.NewService(store.Users, store.Sentences, catalog, reflectionOpts...),
		Sentences:  sentences.NewService(store.Sentences, store.Images),
	}, nil
}
