package domain

import (
	"context"
	"time"
)

// UserRepo управляет пользователями и их эмоциональным профилем.
type UserRepo interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// IncrementEmotions атомарно увеличивает счётчики, общий итог и дописывает журнал.
	IncrementEmotions(ctx context.Context, userID string, emotions []string, at time.Time) error
	SetLastSentence(ctx context.Context, userID, sentenceID string) error
	// AddFavorite возвращает ErrFavoriteExists, если фраза уже в избранном.
	AddFavorite(ctx context.Context, userID, sentenceID string) error
	// RemoveFavorite возвращает ErrFavoriteMissing, если фразы нет в избранном.
	RemoveFavorite(ctx context.Context, userID, sentenceID string) error
	UpdateSettings(ctx context.Context, userID string, settings Settings) error
}

// SentenceRepo управляет фразами.
type SentenceRepo interface {
	CountSentences(ctx context.Context) (int64, error)
	// SentenceAtOffset возвращает фразу по порядковому смещению в стабильном порядке.
	SentenceAtOffset(ctx context.Context, offset int64) (Sentence, error)
	GetSentenceByID(ctx context.Context, id string) (Sentence, error)
	GetSentenceByTitle(ctx context.Context, title string) (Sentence, error)
	ListSentences(ctx context.Context) ([]Sentence, error)
	CreateSentence(ctx context.Context, sentence Sentence) (Sentence, error)
}

// ImageRepo хранит коллекцию изображений.
type ImageRepo interface {
	RandomImage(ctx context.Context) (Image, error)
	AddImage(ctx context.Context, url string) (Image, error)
}

// ReflectionSource получает рефлексию от внешнего генератора.
type ReflectionSource interface {
	Reflect(ctx context.Context, emotions []string) (Reflection, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
