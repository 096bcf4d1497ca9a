package repo

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"reflexion-api/internal/domain"
	"reflexion-api/internal/infra/cache"
	"reflexion-api/internal/infra/metrics"
)

const (
	sentenceCountKey = "reflexion:sentences:count"
	// sentenceGenKey меняется при каждом создании фразы; значение счётчика хранится
	// вместе с поколением, при котором его посчитали.
	sentenceGenKey = "reflexion:sentences:gen"
	// maxCountTTL ограничивает окно устаревания, если сброс кэша не дошёл до Redis.
	maxCountTTL = time.Minute
)

// CachedSentences кэширует количество фраз. Остальные операции уходят в base,
// создание фразы сбрасывает кэш.
type CachedSentences struct {
	domain.SentenceRepo
	cache domain.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

var _ domain.SentenceRepo = (*CachedSentences)(nil)

// NewCachedSentences оборачивает base кэшем с временем жизни ttl.
func NewCachedSentences(base domain.SentenceRepo, cache domain.Cache, ttl time.Duration, logger zerolog.Logger) *CachedSentences {
	if ttl <= 0 || ttl > maxCountTTL {
		ttl = maxCountTTL
	}
	return &CachedSentences{SentenceRepo: base, cache: cache, ttl: ttl, log: logger}
}

// CountSentences читает счётчик из кэша, при промахе или ошибке кэша идёт в base.
// Значение, посчитанное до последнего сброса, считается промахом.
func (c *CachedSentences) CountSentences(ctx context.Context) (int64, error) {
	gen, genErr := c.generation(ctx)
	if genErr == nil {
		if raw, err := c.cache.Get(ctx, sentenceCountKey); err == nil {
			if n, ok := parseCount(raw, gen); ok {
				metrics.IncCacheLookup("hit")
				return n, nil
			}
		}
	}
	metrics.IncCacheLookup("miss")

	n, err := c.SentenceRepo.CountSentences(ctx)
	if err != nil {
		return 0, err
	}
	if genErr != nil {
		return n, nil
	}
	value := []byte(gen + ":" + strconv.FormatInt(n, 10))
	if err := c.cache.Set(ctx, sentenceCountKey, value, c.ttl); err != nil {
		c.log.Warn().Err(err).Msg("cache: не удалось сохранить количество фраз")
	}
	return n, nil
}

func (c *CachedSentences) generation(ctx context.Context) (string, error) {
	raw, err := c.cache.Get(ctx, sentenceGenKey)
	if errors.Is(err, cache.ErrMiss) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func parseCount(raw []byte, gen string) (int64, bool) {
	tag, count, ok := strings.Cut(string(raw), ":")
	if !ok || tag != gen {
		return 0, false
	}
	n, err := strconv.ParseInt(count, 10, 64)
	return n, err == nil
}

// CreateSentence создаёт фразу и сбрасывает счётчик.
func (c *CachedSentences) CreateSentence(ctx context.Context, sentence domain.Sentence) (domain.Sentence, error) {
	created, err := c.SentenceRepo.CreateSentence(ctx, sentence)
	if err != nil {
		return domain.Sentence{}, err
	}
	c.invalidate(ctx)
	return created, nil
}

func (c *CachedSentences) invalidate(ctx context.Context) {
	if err := c.cache.Set(ctx, sentenceGenKey, []byte(uuid.NewString()), 0); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Warn().Err(err).Msg("cache: не удалось сменить поколение счётчика")
	}
	if err := c.cache.Del(ctx, sentenceCountKey); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Warn().Err(err).Msg("cache: не удалось сбросить количество фраз")
	}
}
