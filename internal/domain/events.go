package domain

import (
	"context"
	"time"
)

// Event описывает доменное событие для внешних подписчиков.
type Event struct {
	Type       string         `json:"type"`
	UserID     string         `json:"user_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

const (
	// EventUserRegistered фиксирует регистрацию нового пользователя.
	EventUserRegistered = "user.registered"
	// EventEmotionsLogged фиксирует запись эмоций пользователем.
	EventEmotionsLogged = "emotions.logged"
	// EventSentenceSelected фиксирует выбор фразы для пользователя.
	EventSentenceSelected = "sentence.selected"
)

// EventPublisher публикует доменные события.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher отбрасывает события.
type NopPublisher struct{}

// Publish ничего не делает.
func (NopPublisher) Publish(context.Context, Event) error { return nil }
