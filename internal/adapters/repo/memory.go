package repo

import (
	"context"
	"maps"
	"math/rand"
	"slices"
	"sync"
	"time"

	"reflexion-api/internal/domain"
)

// Memory хранит данные в памяти процесса. Используется для локального запуска и тестов.
type Memory struct {
	mu        sync.RWMutex
	users     map[string]*domain.User
	emails    map[string]string
	sentences []domain.Sentence
	images    []domain.Image
	now       func() time.Time
}

var (
	_ domain.UserRepo     = (*Memory)(nil)
	_ domain.SentenceRepo = (*Memory)(nil)
	_ domain.ImageRepo    = (*Memory)(nil)
)

// NewMemory создаёт пустое хранилище.
func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]*domain.User),
		emails: make(map[string]string),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func cloneUser(u *domain.User) domain.User {
	out := *u
	out.Emotions = maps.Clone(u.Emotions)
	if out.Emotions == nil {
		out.Emotions = map[string]int{}
	}
	out.EmotionLogs = make([]domain.EmotionLog, len(u.EmotionLogs))
	for i, entry := range u.EmotionLogs {
		out.EmotionLogs[i] = domain.EmotionLog{Emotions: slices.Clone(entry.Emotions), Timestamp: entry.Timestamp}
	}
	out.FavoriteSentenceIDs = slices.Clone(u.FavoriteSentenceIDs)
	if u.LastSentenceID != nil {
		id := *u.LastSentenceID
		out.LastSentenceID = &id
	}
	return out
}

// CreateUser реализует domain.UserRepo.
func (m *Memory) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.emails[user.Email]; ok {
		return domain.User{}, domain.ErrEmailTaken
	}
	if user.ID == "" {
		user.ID = domain.NewID()
	}
	now := m.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	stored := cloneUser(&user)
	m.users[user.ID] = &stored
	m.emails[user.Email] = user.ID
	return cloneUser(&stored), nil
}

// GetUserByID реализует domain.UserRepo.
func (m *Memory) GetUserByID(_ context.Context, id string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// GetUserByEmail реализует domain.UserRepo.
func (m *Memory) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return cloneUser(m.users[id]), nil
}

// IncrementEmotions реализует domain.UserRepo.
func (m *Memory) IncrementEmotions(_ context.Context, userID string, emotions []string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.Emotions == nil {
		u.Emotions = make(map[string]int)
	}
	for _, e := range emotions {
		u.Emotions[e]++
		u.EmotionsCount++
	}
	u.EmotionLogs = append(u.EmotionLogs, domain.EmotionLog{Emotions: slices.Clone(emotions), Timestamp: at})
	u.UpdatedAt = m.now()
	return nil
}

// SetLastSentence реализует domain.UserRepo.
func (m *Memory) SetLastSentence(_ context.Context, userID, sentenceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	id := sentenceID
	u.LastSentenceID = &id
	u.UpdatedAt = m.now()
	return nil
}

// AddFavorite реализует domain.UserRepo.
func (m *Memory) AddFavorite(_ context.Context, userID, sentenceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.HasFavorite(sentenceID) {
		return domain.ErrFavoriteExists
	}
	u.FavoriteSentenceIDs = append(u.FavoriteSentenceIDs, sentenceID)
	return nil
}

// RemoveFavorite реализует domain.UserRepo.
func (m *Memory) RemoveFavorite(_ context.Context, userID, sentenceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	idx := slices.Index(u.FavoriteSentenceIDs, sentenceID)
	if idx < 0 {
		return domain.ErrFavoriteMissing
	}
	u.FavoriteSentenceIDs = slices.Delete(u.FavoriteSentenceIDs, idx, idx+1)
	return nil
}

// UpdateSettings реализует domain.UserRepo.
func (m *Memory) UpdateSettings(_ context.Context, userID string, settings domain.Settings) error {
	if !settings.Valid() {
		return domain.ErrInvalidSettings
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Settings = settings
	u.UpdatedAt = m.now()
	return nil
}

// CountSentences реализует domain.SentenceRepo.
func (m *Memory) CountSentences(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.sentences)), nil
}

// SentenceAtOffset реализует domain.SentenceRepo. Порядок вставки.
func (m *Memory) SentenceAtOffset(_ context.Context, offset int64) (domain.Sentence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if offset < 0 || offset >= int64(len(m.sentences)) {
		return domain.Sentence{}, domain.ErrSentenceNotFound
	}
	return m.sentences[offset], nil
}

// GetSentenceByID реализует domain.SentenceRepo.
func (m *Memory) GetSentenceByID(_ context.Context, id string) (domain.Sentence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sentences {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Sentence{}, domain.ErrSentenceNotFound
}

// GetSentenceByTitle реализует domain.SentenceRepo.
func (m *Memory) GetSentenceByTitle(_ context.Context, title string) (domain.Sentence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sentences {
		if s.Title == title {
			return s, nil
		}
	}
	return domain.Sentence{}, domain.ErrSentenceNotFound
}

// ListSentences реализует domain.SentenceRepo.
func (m *Memory) ListSentences(context.Context) ([]domain.Sentence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.sentences), nil
}

// CreateSentence реализует domain.SentenceRepo.
func (m *Memory) CreateSentence(_ context.Context, sentence domain.Sentence) (domain.Sentence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sentence.ID == "" {
		sentence.ID = domain.NewID()
	}
	if sentence.CreatedAt.IsZero() {
		sentence.CreatedAt = m.now()
	}
	m.sentences = append(m.sentences, sentence)
	return sentence, nil
}

// DeleteSentence удаляет фразу; нужен для воспроизведения гонок в тестах.
func (m *Memory) DeleteSentence(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentences = slices.DeleteFunc(m.sentences, func(s domain.Sentence) bool { return s.ID == id })
}

// AddImage реализует domain.ImageRepo.
func (m *Memory) AddImage(_ context.Context, url string) (domain.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img := domain.Image{ID: domain.NewID(), URL: url}
	m.images = append(m.images, img)
	return img, nil
}

// RandomImage реализует domain.ImageRepo.
func (m *Memory) RandomImage(context.Context) (domain.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.images) == 0 {
		return domain.Image{}, domain.ErrImageNotFound
	}
	return m.images[rand.Intn(len(m.images))], nil
}
