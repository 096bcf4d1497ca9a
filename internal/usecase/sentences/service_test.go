package sentences

import (
	"context"
	"errors"
	"testing"

	"reflexion-api/internal/adapters/repo"
	"reflexion-api/internal/domain"
)

func TestCreateAndList(t *testing.T) {
	store := repo.NewMemory()
	svc := NewService(store, store)
	ctx := context.Background()

	created, err := svc.Create(ctx, " Respira ", "cuerpo", "fin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !domain.ValidID(created.ID) || created.Title != "Respira" {
		t.Fatalf("unexpected sentence %+v", created)
	}
	if _, err := svc.Create(ctx, "t", "", "e"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestListEmptyIsNotNil(t *testing.T) {
	store := repo.NewMemory()
	list, err := NewService(store, store).List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list == nil {
		t.Fatal("expected empty slice")
	}
}

func TestImportSkipsExistingTitles(t *testing.T) {
	store := repo.NewMemory()
	svc := NewService(store, store)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "a", "b", "c"); err != nil {
		t.Fatalf("create: %v", err)
	}

	n, err := svc.Import(ctx, []domain.Sentence{
		{Title: "a", Body: "b", End: "c"},
		{Title: "d", Body: "e", End: "f"},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 created, got %d", n)
	}
	count, _ := svc.Count(ctx)
	if count != 2 {
		t.Fatalf("expected 2 sentences, got %d", count)
	}

	if _, err := svc.Import(ctx, []domain.Sentence{{Title: "x"}}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRandomImage(t *testing.T) {
	store := repo.NewMemory()
	svc := NewService(store, store)
	if _, err := svc.RandomImage(context.Background()); !errors.Is(err, domain.ErrImageNotFound) {
		t.Fatalf("expected ErrImageNotFound, got %v", err)
	}
	img, err := svc.AddImage(context.Background(), " https://cdn.example.com/1.jpg ")
	if err != nil {
		t.Fatalf("add image: %v", err)
	}
	if _, err := svc.AddImage(context.Background(), "not a url"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	got, err := svc.RandomImage(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.URL != img.URL {
		t.Fatalf("unexpected image %+v", got)
	}
}

type flakyTitles struct {
	*repo.Memory
}

func (flakyTitles) GetSentenceByTitle(context.Context, string) (domain.Sentence, error) {
	return domain.Sentence{}, errors.New("connection reset")
}

func TestImportStopsOnLookupError(t *testing.T) {
	store := repo.NewMemory()
	svc := NewService(flakyTitles{Memory: store}, store)
	ctx := context.Background()

	n, err := svc.Import(ctx, []domain.Sentence{{Title: "a", Body: "b", End: "c"}})
	if err == nil || errors.Is(err, domain.ErrSentenceNotFound) {
		t.Fatalf("expected lookup error to surface, got %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing imported, got %d", n)
	}
	total, _ := store.CountSentences(ctx)
	if total != 0 {
		t.Fatalf("expected no sentences created, got %d", total)
	}
}
