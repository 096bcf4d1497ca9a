package emotions

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"reflexion-api/internal/domain"
	"reflexion-api/internal/infra/metrics"
)

// Service записывает эмоции пользователя.
type Service struct {
	users   domain.UserRepo
	catalog Catalog
	events  domain.EventPublisher
	log     zerolog.Logger
	now     func() time.Time
}

// NewService создаёт сервис эмоций.
func NewService(users domain.UserRepo, catalog Catalog, events domain.EventPublisher, logger zerolog.Logger) *Service {
	if events == nil {
		events = domain.NopPublisher{}
	}
	return &Service{
		users:   users,
		catalog: catalog,
		events:  events,
		log:     logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Catalog возвращает разрешённый список эмоций.
func (s *Service) Catalog() Catalog {
	return s.catalog
}

// Record увеличивает счётчики эмоций пользователя и дописывает запись в журнал.
func (s *Service) Record(ctx context.Context, userID string, emotions []string) error {
	if _, err := domain.ParseID("userId", userID); err != nil {
		return err
	}
	if len(emotions) == 0 {
		return fmt.Errorf("%w: emotions must not be empty", domain.ErrInvalidInput)
	}
	normalized, err := s.catalog.Validate(emotions)
	if err != nil {
		return err
	}
	at := s.now()
	if err := s.users.IncrementEmotions(ctx, userID, normalized, at); err != nil {
		return fmt.Errorf("обновление эмоций: %w", err)
	}
	for _, e := range normalized {
		metrics.IncEmotionLogged(e)
	}
	event := domain.Event{
		Type:       domain.EventEmotionsLogged,
		UserID:     userID,
		Payload:    map[string]any{"emotions": normalized},
		OccurredAt: at,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("emotions: publish event failed")
	}
	return nil
}
