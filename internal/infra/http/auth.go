package http

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// TokenVerifier проверяет bearer-токен и возвращает id пользователя.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Principal описывает аутентифицированного вызывающего.
type Principal struct {
	// UserID пуст для сервисных клиентов с API-ключом.
	UserID  string
	Service bool
}

// CanActAs сообщает, может ли вызывающий действовать от имени userID.
func (p Principal) CanActAs(userID string) bool {
	return p.Service || (p.UserID != "" && p.UserID == userID)
}

type principalKey struct{}

// WithPrincipal кладёт Principal в контекст.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom достаёт Principal из контекста.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// BearerToken извлекает токен из заголовка Authorization.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// AuthMiddleware пропускает запросы с валидным JWT или ключом из X-API-Key.
func AuthMiddleware(verifier TokenVerifier, apiKeys []string) func(http.Handler) http.Handler {
	digests := make([][32]byte, 0, len(apiKeys))
	for _, key := range apiKeys {
		if key = strings.TrimSpace(key); key != "" {
			digests = append(digests, sha256.Sum256([]byte(key)))
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get("X-API-Key"); key != "" {
				if !validAPIKey(key, digests) {
					WriteError(w, http.StatusUnauthorized, errors.New("invalid api key"))
					return
				}
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), Principal{Service: true})))
				return
			}
			token := BearerToken(r)
			if token == "" || verifier == nil {
				WriteError(w, http.StatusUnauthorized, errors.New("authentication required"))
				return
			}
			userID, err := verifier.Verify(token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, errors.New("invalid token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), Principal{UserID: userID})))
		})
	}
}

func validAPIKey(key string, digests [][32]byte) bool {
	sum := sha256.Sum256([]byte(key))
	ok := 0
	for _, d := range digests {
		ok |= subtle.ConstantTimeCompare(sum[:], d[:])
	}
	return ok == 1
}

// RequestID возвращает request ID из контекста chi.
func RequestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// ErrorResponse описывает ошибку.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON отправляет v как JSON.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError отправляет JSON с ошибкой.
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteJSON(w, status, ErrorResponse{Error: err.Error()})
}
