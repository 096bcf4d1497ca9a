package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"reflexion-api/internal/adapters/repo"
	"reflexion-api/internal/domain"
)

func setup(t *testing.T) (*Service, *repo.Memory, domain.User, domain.Sentence) {
	t.Helper()
	ctx := context.Background()
	store := repo.NewMemory()
	user, err := store.CreateUser(ctx, domain.User{Username: "ana", Email: "ana@example.com", Settings: domain.DefaultSettings()})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	sentence, err := store.CreateSentence(ctx, domain.Sentence{Title: "t", Body: "b", End: "e"})
	if err != nil {
		t.Fatalf("create sentence: %v", err)
	}
	return NewService(store, store), store, user, sentence
}

func boolPtr(v bool) *bool { return &v }

func TestInfoNormalizesOnce(t *testing.T) {
	svc, store, user, _ := setup(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	_ = store.IncrementEmotions(ctx, user.ID, []string{"alegria"}, day)
	_ = store.IncrementEmotions(ctx, user.ID, []string{"alegria", "tristeza"}, day.Add(time.Hour))

	profile, err := svc.Info(ctx, user.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Emotions["alegria"] != 0.67 || profile.Emotions["tristeza"] != 0.33 {
		t.Fatalf("unexpected normalized emotions %v", profile.Emotions)
	}
	if profile.EmotionsCount != 3 {
		t.Fatalf("expected raw total 3, got %d", profile.EmotionsCount)
	}
	if len(profile.EmotionsByDay) != 1 || profile.EmotionsByDay[0].Date != "2024-03-01" || profile.EmotionsByDay[0].Total != 3 {
		t.Fatalf("unexpected daily view %+v", profile.EmotionsByDay)
	}
	if profile.FavoriteSentences == nil {
		t.Fatal("favorites must render as an empty list")
	}
}

func TestInfoErrors(t *testing.T) {
	svc, _, _, _ := setup(t)
	if _, err := svc.Info(context.Background(), "zzz"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Info(context.Background(), domain.NewID()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestLastSentence(t *testing.T) {
	svc, store, user, sentence := setup(t)
	ctx := context.Background()

	if _, _, err := svc.LastSentence(ctx, user.ID); !errors.Is(err, domain.ErrLastSentenceMissing) {
		t.Fatalf("expected ErrLastSentenceMissing, got %v", err)
	}
	if err := store.SetLastSentence(ctx, user.ID, sentence.ID); err != nil {
		t.Fatalf("set last: %v", err)
	}
	name, got, err := svc.LastSentence(ctx, user.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "ana" || got.ID != sentence.ID {
		t.Fatalf("unexpected result %s %+v", name, got)
	}

	store.DeleteSentence(sentence.ID)
	if _, _, err := svc.LastSentence(ctx, user.ID); !errors.Is(err, domain.ErrLastSentenceMissing) {
		t.Fatalf("dangling reference should read as missing, got %v", err)
	}
}

func TestFavoritesRoundTrip(t *testing.T) {
	svc, store, user, sentence := setup(t)
	ctx := context.Background()

	if err := svc.AddFavorite(ctx, user.ID, sentence.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.AddFavorite(ctx, user.ID, sentence.ID); !errors.Is(err, domain.ErrFavoriteExists) {
		t.Fatalf("expected ErrFavoriteExists, got %v", err)
	}
	if err := svc.RemoveFavorite(ctx, user.ID, sentence.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.RemoveFavorite(ctx, user.ID, sentence.ID); !errors.Is(err, domain.ErrFavoriteMissing) {
		t.Fatalf("expected ErrFavoriteMissing, got %v", err)
	}
	got, _ := store.GetUserByID(ctx, user.ID)
	if len(got.FavoriteSentenceIDs) != 0 {
		t.Fatalf("expected favorites restored to empty, got %v", got.FavoriteSentenceIDs)
	}
}

func TestAddFavoriteValidation(t *testing.T) {
	svc, _, user, sentence := setup(t)
	ctx := context.Background()
	tests := []struct {
		name       string
		userID     string
		sentenceID string
		want       error
	}{
		{name: "bad user id", userID: "x", sentenceID: sentence.ID, want: domain.ErrInvalidInput},
		{name: "bad sentence id", userID: user.ID, sentenceID: "", want: domain.ErrInvalidInput},
		{name: "unknown sentence", userID: user.ID, sentenceID: domain.NewID(), want: domain.ErrSentenceNotFound},
		{name: "unknown user", userID: domain.NewID(), sentenceID: sentence.ID, want: domain.ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.AddFavorite(ctx, tt.userID, tt.sentenceID); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUpdateSettings(t *testing.T) {
	svc, store, user, _ := setup(t)
	ctx := context.Background()

	got, err := svc.UpdateSettings(ctx, user.ID, SettingsPatch{EnableEmotions: boolPtr(false)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.EnableEmotions || !got.RandomReflexion {
		t.Fatalf("unexpected settings %+v", got)
	}

	if _, err := svc.UpdateSettings(ctx, user.ID, SettingsPatch{RandomReflexion: boolPtr(false)}); !errors.Is(err, domain.ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	stored, _ := store.GetUserByID(ctx, user.ID)
	if !stored.Settings.Valid() {
		t.Fatalf("invalid settings persisted: %+v", stored.Settings)
	}

	if _, err := svc.UpdateSettings(ctx, user.ID, SettingsPatch{EnableEmotions: boolPtr(true), RandomReflexion: boolPtr(false)}); err != nil {
		t.Fatalf("switching modes should succeed: %v", err)
	}
	if _, err := svc.UpdateSettings(ctx, user.ID, SettingsPatch{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty patch, got %v", err)
	}
}
