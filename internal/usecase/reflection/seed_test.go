package reflection

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestComputeSeedWeighted(t *testing.T) {
	tests := []struct {
		name      string
		profile   map[string]int
		requested []string
		salt      byte
		want      uint64
	}{
		{name: "single emotion", profile: map[string]int{"alegria": 2}, requested: []string{"alegria"}, salt: 0, want: 14},
		{name: "salt added", profile: map[string]int{"alegria": 2}, requested: []string{"alegria"}, salt: 255, want: 269},
		{name: "missing emotion counts zero", profile: map[string]int{"alegria": 2}, requested: []string{"miedo"}, salt: 7, want: 7},
		{name: "nil profile", profile: nil, requested: []string{"alegria"}, salt: 3, want: 3},
		{name: "several emotions", profile: map[string]int{"alegria": 1, "tristeza": 3}, requested: []string{"alegria", "tristeza"}, salt: 1, want: 7 + 24 + 1},
		{name: "rune length", profile: map[string]int{"cariño": 1}, requested: []string{"cariño"}, salt: 0, want: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeSeed(tt.profile, tt.requested, bytes.NewReader([]byte{tt.salt}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestComputeSeedDeterministicPart(t *testing.T) {
	profile := map[string]int{"alegria": 5, "calma": 2}
	requested := []string{"alegria", "calma"}
	const base = 5*7 + 2*5
	for i := 0; i < 50; i++ {
		var salt [1]byte
		if _, err := rand.Read(salt[:]); err != nil {
			t.Fatalf("rand: %v", err)
		}
		seed, err := ComputeSeed(profile, requested, bytes.NewReader(salt[:]))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seed-uint64(salt[0]) != base {
			t.Fatalf("expected deterministic part %d, got %d", base, seed-uint64(salt[0]))
		}
	}
}

func TestComputeSeedRandomWhenNothingRequested(t *testing.T) {
	seed, err := ComputeSeed(map[string]int{"alegria": 9}, nil, bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seed != 0x01020304 {
		t.Fatalf("expected 0x01020304, got %#x", seed)
	}
}

func TestComputeSeedReaderExhausted(t *testing.T) {
	if _, err := ComputeSeed(nil, nil, bytes.NewReader([]byte{1})); err == nil {
		t.Fatal("expected error on short random source")
	}
	if _, err := ComputeSeed(nil, []string{"alegria"}, bytes.NewReader(nil)); err == nil {
		t.Fatal("expected error on empty random source")
	}
}

func TestIndexForInRange(t *testing.T) {
	for _, total := range []int64{1, 2, 5, 17, 1000} {
		for _, seed := range []uint64{0, 1, 14, 255, 1<<32 - 1, 1 << 40} {
			idx := IndexFor(seed, total)
			if idx < 0 || idx >= total {
				t.Fatalf("seed %d total %d: index %d out of range", seed, total, idx)
			}
		}
	}
}
