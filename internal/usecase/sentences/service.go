package sentences

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"reflexion-api/internal/domain"
)

// Service управляет коллекцией фраз и изображений.
type Service struct {
	sentences domain.SentenceRepo
	images    domain.ImageRepo
}

// NewService создаёт сервис фраз.
func NewService(sentences domain.SentenceRepo, images domain.ImageRepo) *Service {
	return &Service{sentences: sentences, images: images}
}

// Create сохраняет новую фразу. Все три части обязательны.
func (s *Service) Create(ctx context.Context, title, body, end string) (domain.Sentence, error) {
	sentence := domain.Sentence{
		Title: strings.TrimSpace(title),
		Body:  strings.TrimSpace(body),
		End:   strings.TrimSpace(end),
	}
	if sentence.Title == "" || sentence.Body == "" || sentence.End == "" {
		return domain.Sentence{}, fmt.Errorf("%w: title, body and end are required", domain.ErrInvalidInput)
	}
	sentence.ID = domain.NewID()
	created, err := s.sentences.CreateSentence(ctx, sentence)
	if err != nil {
		return domain.Sentence{}, fmt.Errorf("создание фразы: %w", err)
	}
	return created, nil
}

// List возвращает все фразы в стабильном порядке.
func (s *Service) List(ctx context.Context) ([]domain.Sentence, error) {
	list, err := s.sentences.ListSentences(ctx)
	if err != nil {
		return nil, fmt.Errorf("список фраз: %w", err)
	}
	if list == nil {
		list = []domain.Sentence{}
	}
	return list, nil
}

// Count возвращает число фраз.
func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.sentences.CountSentences(ctx)
	if err != nil {
		return 0, fmt.Errorf("подсчёт фраз: %w", err)
	}
	return n, nil
}

// Import добавляет пачку фраз, пропуская заголовки, которые уже есть.
// Возвращает число созданных фраз.
func (s *Service) Import(ctx context.Context, batch []domain.Sentence) (int, error) {
	created := 0
	for i, item := range batch {
		_, err := s.sentences.GetSentenceByTitle(ctx, strings.TrimSpace(item.Title))
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrSentenceNotFound) {
			return created, fmt.Errorf("фраза #%d: поиск по заголовку: %w", i+1, err)
		}
		if _, err := s.Create(ctx, item.Title, item.Body, item.End); err != nil {
			return created, fmt.Errorf("фраза #%d: %w", i+1, err)
		}
		created++
	}
	return created, nil
}

// RandomImage возвращает случайное изображение.
func (s *Service) RandomImage(ctx context.Context) (domain.Image, error) {
	img, err := s.images.RandomImage(ctx)
	if err != nil {
		return domain.Image{}, fmt.Errorf("случайное изображение: %w", err)
	}
	return img, nil
}

// AddImage добавляет изображение по абсолютному http(s) URL.
func (s *Service) AddImage(ctx context.Context, rawURL string) (domain.Image, error) {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return domain.Image{}, fmt.Errorf("%w: image url must be an absolute http(s) url", domain.ErrInvalidInput)
	}
	img, err := s.images.AddImage(ctx, rawURL)
	if err != nil {
		return domain.Image{}, fmt.Errorf("добавление изображения: %w", err)
	}
	return img, nil
}
