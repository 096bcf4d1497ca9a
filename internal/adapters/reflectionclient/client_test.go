package reflectionclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestReflectSignsExactBody(t *testing.T) {
	const secret = "shared"
	var gotBody []byte
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reflection":{"title":"Respira","body":"cuerpo","end":"fin"}}`))
	}))
	defer srv.Close()

	at := time.UnixMilli(1718200000123)
	client, err := New(srv.URL, secret, WithClock(func() time.Time { return at }))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := client.Reflect(context.Background(), []string{"alegria"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Respira" || got.Body != "cuerpo" || got.End != "fin" {
		t.Fatalf("unexpected reflection %+v", got)
	}

	if string(gotBody) != `{"emotions":["alegria"],"timestamp":1718200000123}` {
		t.Fatalf("unexpected body %s", gotBody)
	}
	if gotSig != Sign([]byte(secret), gotBody) {
		t.Fatalf("signature does not match body")
	}
}

func TestReflectFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "server error", handler: func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}},
		{name: "no reflection", handler: func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"other": 1})
		}},
		{name: "bad json", handler: func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			client, err := New(srv.URL, "s")
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			if _, err := client.Reflect(context.Background(), []string{"alegria"}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New("", "s"); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	if _, err := New("http://ia", ""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestWithTimeoutKeepsCallerClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	c, err := New("http://ia.local/reflect", "shared", WithHTTPClient(shared), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if shared.Timeout != time.Minute {
		t.Fatalf("caller client mutated: timeout %v", shared.Timeout)
	}
	if c.httpClient == shared || c.httpClient.Timeout != 2*time.Second {
		t.Fatalf("expected a copy with 2s timeout, got %+v", c.httpClient)
	}
}
