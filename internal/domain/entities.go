package domain

import "time"

// User описывает пользователя дневника вместе с его эмоциональным профилем.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string

	// Emotions хранит счётчики эмоций (ключи в нижнем регистре).
	Emotions map[string]int
	// EmotionsCount равен сумме всех инкрементов Emotions.
	EmotionsCount int
	EmotionLogs   []EmotionLog

	LastSentenceID      *string
	FavoriteSentenceIDs []string
	Settings            Settings

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasFavorite сообщает, есть ли фраза в избранном.
func (u User) HasFavorite(sentenceID string) bool {
	for _, id := range u.FavoriteSentenceIDs {
		if id == sentenceID {
			return true
		}
	}
	return false
}

// EmotionLog пишется в журнал эмоций на каждый запрос обновления.
type EmotionLog struct {
	Emotions  []string  `json:"emotions"`
	Timestamp time.Time `json:"timestamp"`
}

// Settings хранит пользовательские переключатели.
type Settings struct {
	EnableEmotions  bool `json:"enableEmotions"`
	RandomReflexion bool `json:"randomReflexion"`
}

// DefaultSettings возвращает настройки нового пользователя.
func DefaultSettings() Settings {
	return Settings{EnableEmotions: true, RandomReflexion: true}
}

// Valid проверяет, что включён хотя бы один режим.
func (s Settings) Valid() bool {
	return s.EnableEmotions || s.RandomReflexion
}

// Sentence описывает неизменяемую фразу-рефлексию.
type Sentence struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	End       string    `json:"end"`
	CreatedAt time.Time `json:"-"`
}

// Reflection приходит от внешнего сервиса.
type Reflection struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	End   string `json:"end"`
}

// Image описывает элемент коллекции случайных изображений.
type Image struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
