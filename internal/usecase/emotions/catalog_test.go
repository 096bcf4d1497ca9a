package emotions

import (
	"errors"
	"testing"

	"reflexion-api/internal/domain"
)

func TestNewCatalogNormalizes(t *testing.T) {
	c := NewCatalog([]string{" Alegria", "alegria", "", "TRISTEZA"})
	names := c.Names()
	if len(names) != 2 || names[0] != "alegria" || names[1] != "tristeza" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestCatalogValidate(t *testing.T) {
	c := NewCatalog([]string{"alegria", "tristeza"})
	got, err := c.Validate([]string{"Alegria", "tristeza"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != "alegria" || got[1] != "tristeza" {
		t.Fatalf("unexpected result %v", got)
	}
	if _, err := c.Validate([]string{"ira"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEmptyCatalogRejectsEverything(t *testing.T) {
	c := NewCatalog(nil)
	if c.Contains("alegria") {
		t.Fatal("empty catalog must not contain anything")
	}
}
