package reflection

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"reflexion-api/internal/domain"
	"reflexion-api/internal/infra/metrics"
	"reflexion-api/internal/usecase/emotions"
)

// Service выбирает фразы для пользователей.
type Service struct {
	users     domain.UserRepo
	sentences domain.SentenceRepo
	catalog   emotions.Catalog
	source    domain.ReflectionSource
	events    domain.EventPublisher
	log       zerolog.Logger
	rnd       io.Reader
	now       func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithRandom подменяет источник случайности (по умолчанию crypto/rand).
func WithRandom(r io.Reader) Option {
	return func(s *Service) {
		if r != nil {
			s.rnd = r
		}
	}
}

// WithReflectionSource подключает внешний генератор рефлексий.
func WithReflectionSource(src domain.ReflectionSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithEvents подключает публикацию доменных событий.
func WithEvents(p domain.EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService создаёт сервис выбора фраз.
func NewService(users domain.UserRepo, sentences domain.SentenceRepo, catalog emotions.Catalog, opts ...Option) *Service {
	s := &Service{
		users:     users,
		sentences: sentences,
		catalog:   catalog,
		events:    domain.NopPublisher{},
		log:       zerolog.Nop(),
		rnd:       crand.Reader,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Selection описывает выбор фразы для пользователя.
type Selection struct {
	Sentence domain.Sentence
	Seed     uint64
	Index    int64
	// Recorded=false означает, что фраза выбрана, но lastSentence сохранить не удалось.
	Recorded bool
}

// SelectForUser выбирает фразу по эмоциональному профилю пользователя и
// запоминает её как последнюю.
func (s *Service) SelectForUser(ctx context.Context, userID string, requested []string) (Selection, error) {
	if _, err := domain.ParseID("userId", userID); err != nil {
		return Selection{}, err
	}
	lowered := lowerEmotions(requested)

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return Selection{}, fmt.Errorf("получение пользователя: %w", err)
	}
	profile := user.Emotions
	if profile == nil {
		profile = map[string]int{}
	}

	seed, err := ComputeSeed(profile, lowered, s.rnd)
	if err != nil {
		return Selection{}, err
	}
	sentence, index, err := s.pick(ctx, seed)
	if err != nil {
		return Selection{}, err
	}

	sel := Selection{Sentence: sentence, Seed: seed, Index: index, Recorded: true}
	if err := s.users.SetLastSentence(ctx, user.ID, sentence.ID); err != nil {
		sel.Recorded = false
		metrics.IncBookkeepingFailure()
		s.log.Warn().Err(err).Str("user_id", user.ID).Str("sentence_id", sentence.ID).Msg("reflection: не удалось сохранить последнюю фразу")
	}
	metrics.IncSelection("user")

	event := domain.Event{
		Type:   domain.EventSentenceSelected,
		UserID: user.ID,
		Payload: map[string]any{
			"sentence_id": sentence.ID,
			"index":       index,
			"emotions":    lowered,
		},
		OccurredAt: s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("reflection: publish event failed")
	}
	return sel, nil
}

// SelectAnonymous выбирает фразу без привязки к пользователю. Эмоции, если указаны,
// должны входить в разрешённый список; семя при этом всегда случайное.
func (s *Service) SelectAnonymous(ctx context.Context, requested []string) (domain.Sentence, error) {
	if _, err := s.catalog.Validate(requested); err != nil {
		return domain.Sentence{}, err
	}
	seed, err := ComputeSeed(nil, nil, s.rnd)
	if err != nil {
		return domain.Sentence{}, err
	}
	sentence, _, err := s.pick(ctx, seed)
	if err != nil {
		return domain.Sentence{}, err
	}
	metrics.IncSelection("anonymous")
	return sentence, nil
}

func (s *Service) pick(ctx context.Context, seed uint64) (domain.Sentence, int64, error) {
	total, err := s.sentences.CountSentences(ctx)
	if err != nil {
		return domain.Sentence{}, 0, fmt.Errorf("подсчёт фраз: %w", err)
	}
	if total <= 0 {
		return domain.Sentence{}, 0, domain.ErrNoSentences
	}
	index := IndexFor(seed, total)
	sentence, err := s.sentences.SentenceAtOffset(ctx, index)
	if err != nil {
		return domain.Sentence{}, 0, fmt.Errorf("фраза по индексу %d: %w", index, err)
	}
	return sentence, index, nil
}

// ReflectFromService запрашивает рефлексию у внешнего сервиса. Если заголовок совпадает
// с существующей фразой, она становится последней фразой пользователя (без гарантий).
func (s *Service) ReflectFromService(ctx context.Context, userID string, requested []string) (domain.Reflection, error) {
	if s.source == nil {
		return domain.Reflection{}, fmt.Errorf("%w: not configured", domain.ErrReflectionUnavailable)
	}
	normalized, err := s.catalog.Validate(requested)
	if err != nil {
		return domain.Reflection{}, err
	}
	reflection, err := s.source.Reflect(ctx, normalized)
	if err != nil {
		return domain.Reflection{}, fmt.Errorf("%w: %w", domain.ErrReflectionUnavailable, err)
	}
	metrics.IncSelection("external")

	if userID != "" && domain.ValidID(userID) && reflection.Title != "" {
		s.linkByTitle(ctx, userID, reflection.Title)
	}
	return reflection, nil
}

func (s *Service) linkByTitle(ctx context.Context, userID, title string) {
	sentence, err := s.sentences.GetSentenceByTitle(ctx, title)
	if err != nil {
		if !errors.Is(err, domain.ErrSentenceNotFound) {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("reflection: поиск фразы по заголовку")
		}
		return
	}
	if err := s.users.SetLastSentence(ctx, userID, sentence.ID); err != nil {
		metrics.IncBookkeepingFailure()
		s.log.Warn().Err(err).Str("user_id", userID).Str("sentence_id", sentence.ID).Msg("reflection: не удалось сохранить последнюю фразу")
	}
}

// lowerEmotions только понижает регистр: имена с пробелами не совпадут с профилем
// и ничего не добавят к семени.
func lowerEmotions(requested []string) []string {
	out := make([]string, len(requested))
	for i, e := range requested {
		out[i] = strings.ToLower(e)
	}
	return out
}
