package domain

import (
	"errors"
	"testing"
)

func TestValidID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{name: "generated", id: NewID(), want: true},
		{name: "fixed hex", id: "64b7f0c2a1b2c3d4e5f60718", want: true},
		{name: "too short", id: "123", want: false},
		{name: "not hex", id: "zzzzzzzzzzzzzzzzzzzzzzzz", want: false},
		{name: "operator payload", id: `{"$gt":""}`, want: false},
		{name: "empty", id: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidID(tt.id); got != tt.want {
				t.Fatalf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestParseIDWrapsInvalidInput(t *testing.T) {
	if _, err := ParseID("userId", "nope"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSettingsValid(t *testing.T) {
	if !DefaultSettings().Valid() {
		t.Fatal("default settings must be valid")
	}
	if (Settings{}).Valid() {
		t.Fatal("both switches off must be invalid")
	}
	if !(Settings{RandomReflexion: true}).Valid() {
		t.Fatal("random reflexion alone must be valid")
	}
}
