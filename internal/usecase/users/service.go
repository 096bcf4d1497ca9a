package users

import (
	"context"
	"errors"
	"fmt"

	"reflexion-api/internal/domain"
	"reflexion-api/internal/usecase/emotions"
)

// Service отдаёт профиль пользователя и управляет избранным и настройками.
type Service struct {
	users     domain.UserRepo
	sentences domain.SentenceRepo
}

// NewService создаёт сервис пользователей.
func NewService(users domain.UserRepo, sentences domain.SentenceRepo) *Service {
	return &Service{users: users, sentences: sentences}
}

// Profile описывает пользователя для отображения.
type Profile struct {
	ID                string                   `json:"id"`
	Username          string                   `json:"username"`
	Email             string                   `json:"email"`
	Emotions          map[string]float64       `json:"emotions"`
	EmotionsByDay     []emotions.DailyEmotions `json:"emotionsByDay"`
	EmotionsCount     int                      `json:"emotionsCount"`
	LastSentence      *string                  `json:"lastSentence"`
	FavoriteSentences []string                 `json:"favoriteSentences"`
	EnableEmotions    bool                     `json:"enableEmotions"`
	RandomReflexion   bool                     `json:"randomReflexion"`
}

// Info возвращает профиль с нормализованными эмоциями.
func (s *Service) Info(ctx context.Context, userID string) (Profile, error) {
	if _, err := domain.ParseID("id", userID); err != nil {
		return Profile{}, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("получение пользователя: %w", err)
	}
	favorites := user.FavoriteSentenceIDs
	if favorites == nil {
		favorites = []string{}
	}
	return Profile{
		ID:                user.ID,
		Username:          user.Username,
		Email:             user.Email,
		Emotions:          emotions.NormalizeCounts(user.Emotions, user.EmotionsCount),
		EmotionsByDay:     emotions.GroupByDay(user.EmotionLogs),
		EmotionsCount:     user.EmotionsCount,
		LastSentence:      user.LastSentenceID,
		FavoriteSentences: favorites,
		EnableEmotions:    user.Settings.EnableEmotions,
		RandomReflexion:   user.Settings.RandomReflexion,
	}, nil
}

// LastSentence возвращает имя пользователя и его последнюю фразу.
func (s *Service) LastSentence(ctx context.Context, userID string) (string, domain.Sentence, error) {
	if _, err := domain.ParseID("id", userID); err != nil {
		return "", domain.Sentence{}, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", domain.Sentence{}, fmt.Errorf("получение пользователя: %w", err)
	}
	if user.LastSentenceID == nil {
		return "", domain.Sentence{}, domain.ErrLastSentenceMissing
	}
	sentence, err := s.sentences.GetSentenceByID(ctx, *user.LastSentenceID)
	if err != nil {
		if errors.Is(err, domain.ErrSentenceNotFound) {
			return "", domain.Sentence{}, domain.ErrLastSentenceMissing
		}
		return "", domain.Sentence{}, fmt.Errorf("получение фразы: %w", err)
	}
	return user.Username, sentence, nil
}

// AddFavorite добавляет существующую фразу в избранное.
func (s *Service) AddFavorite(ctx context.Context, userID, sentenceID string) error {
	if err := validatePair(userID, sentenceID); err != nil {
		return err
	}
	if _, err := s.sentences.GetSentenceByID(ctx, sentenceID); err != nil {
		return fmt.Errorf("получение фразы: %w", err)
	}
	if err := s.users.AddFavorite(ctx, userID, sentenceID); err != nil {
		return fmt.Errorf("добавление в избранное: %w", err)
	}
	return nil
}

// RemoveFavorite убирает фразу из избранного.
func (s *Service) RemoveFavorite(ctx context.Context, userID, sentenceID string) error {
	if err := validatePair(userID, sentenceID); err != nil {
		return err
	}
	if err := s.users.RemoveFavorite(ctx, userID, sentenceID); err != nil {
		return fmt.Errorf("удаление из избранного: %w", err)
	}
	return nil
}

func validatePair(userID, sentenceID string) error {
	if _, err := domain.ParseID("userId", userID); err != nil {
		return err
	}
	if _, err := domain.ParseID("sentenceId", sentenceID); err != nil {
		return err
	}
	return nil
}

// SettingsPatch задаёт частичное обновление настроек; nil означает «не менять».
type SettingsPatch struct {
	EnableEmotions  *bool `json:"enableEmotions"`
	RandomReflexion *bool `json:"randomReflexion"`
}

// UpdateSettings применяет patch, не допуская выключения обоих режимов.
func (s *Service) UpdateSettings(ctx context.Context, userID string, patch SettingsPatch) (domain.Settings, error) {
	if _, err := domain.ParseID("userId", userID); err != nil {
		return domain.Settings{}, err
	}
	if patch.EnableEmotions == nil && patch.RandomReflexion == nil {
		return domain.Settings{}, fmt.Errorf("%w: no settings to update", domain.ErrInvalidInput)
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("получение пользователя: %w", err)
	}
	settings := user.Settings
	if patch.EnableEmotions != nil {
		settings.EnableEmotions = *patch.EnableEmotions
	}
	if patch.RandomReflexion != nil {
		settings.RandomReflexion = *patch.RandomReflexion
	}
	if !settings.Valid() {
		return domain.Settings{}, domain.ErrInvalidSettings
	}
	if err := s.users.UpdateSettings(ctx, userID, settings); err != nil {
		return domain.Settings{}, fmt.Errorf("сохранение настроек: %w", err)
	}
	return settings, nil
}
