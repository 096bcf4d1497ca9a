package app

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"reflexion-api/internal/domain"
	"reflexion-api/internal/infra/config"
	"reflexion-api/internal/infra/events"
)

// OpenEvents выбирает публикатор событий: RabbitMQ, если задан AMQP_URL,
// иначе список в Redis, иначе события отбрасываются.
func OpenEvents(cfg config.AppConfig, logger zerolog.Logger) (domain.EventPublisher, func(), error) {
	switch {
	case cfg.Events.AMQPURL != "":
		rabbit, err := events.NewRabbitPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("exchange", cfg.Events.Exchange).Msg("events: rabbitmq")
		return rabbit, func() { _ = rabbit.Close() }, nil
	case cfg.Cache.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		logger.Info().Str("key", cfg.Events.RedisKey).Msg("events: redis list")
		return events.NewRedisPublisher(client, cfg.Events.RedisKey), func() { _ = client.Close() }, nil
	default:
		logger.Info().Msg("events: disabled")
		return domain.NopPublisher{}, func() {}, nil
	}
}
