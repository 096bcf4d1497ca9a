package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"reflexion-api/internal/domain"
	httpinfra "reflexion-api/internal/infra/http"
	"reflexion-api/internal/usecase/auth"
	"reflexion-api/internal/usecase/emotions"
	"reflexion-api/internal/usecase/reflection"
	"reflexion-api/internal/usecase/sentences"
	"reflexion-api/internal/usecase/users"
)

const maxBodyBytes = 1 << 20

// Server обслуживает REST API дневника.
type Server struct {
	auth       *auth.Service
	users      *users.Service
	emotions   *emotions.Service
	reflection *reflection.Service
	sentences  *sentences.Service
	apiKeys    []string
	log        zerolog.Logger
}

// Option настраивает Server.
type Option func(*Server)

// WithLogger задаёт логгер.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithAPIKeys разрешает сервисным клиентам доступ по X-API-Key.
func WithAPIKeys(keys []string) Option {
	return func(s *Server) {
		s.apiKeys = keys
	}
}

// NewServer собирает API из сервисов.
func NewServer(authSvc *auth.Service, usersSvc *users.Service, emotionsSvc *emotions.Service, reflectionSvc *reflection.Service, sentencesSvc *sentences.Service, opts ...Option) *Server {
	srv := &Server{
		auth:       authSvc,
		users:      usersSvc,
		emotions:   emotionsSvc,
		reflection: reflectionSvc,
		sentences:  sentencesSvc,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emotionsRequest struct {
	UserID   string   `json:"userId"`
	Emotions []string `json:"emotions"`
}

// selectionRequest отличает отсутствующий emotions от пустого массива.
type selectionRequest struct {
	UserID   string    `json:"userId"`
	Emotions *[]string `json:"emotions"`
}

type favoriteRequest struct {
	UserID     string `json:"userId"`
	SentenceID string `json:"sentenceId"`
}

type settingsRequest struct {
	UserID          string `json:"userId"`
	EnableEmotions  *bool  `json:"enableEmotions"`
	RandomReflexion *bool  `json:"randomReflexion"`
}

type sentenceRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	End   string `json:"end"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type invalidEmotionsResponse struct {
	Error         string   `json:"error"`
	ValidEmotions []string `json:"validEmotions"`
}

type lastSentenceResponse struct {
	Username     string          `json:"username"`
	LastSentence domain.Sentence `json:"lastSentence"`
}

// Router возвращает обработчик со всеми маршрутами.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

// Register добавляет маршруты в r.
func (s *Server) Register(r chi.Router) {
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)

	r.Group(func(protected chi.Router) {
		protected.Use(httpinfra.AuthMiddleware(s.auth, s.apiKeys))

		protected.Get("/auth/verify", s.handleVerify)

		protected.Get("/users/info", s.handleUserInfo)
		protected.Get("/users/last", s.handleLastSentence)
		protected.Post("/users/emotions", s.handleUpdateEmotions)
		protected.Post("/users/favorite", s.handleAddFavorite)
		protected.Put("/users/favorite", s.handleRemoveFavorite)
		protected.Delete("/users/favorite", s.handleRemoveFavorite)
		protected.Patch("/users/settings", s.handleUpdateSettings)

		protected.Get("/sentences", s.handleRandomSentence)
		protected.Get("/sentences/all", s.handleListSentences)
		protected.Post("/sentences", s.handleCreateSentence)
		protected.Post("/sentences/get", s.handleSentenceByEmotions)
		protected.Post("/sentences/getByUser", s.handleSentenceByUser)
		protected.Post("/sentences/ia", s.handleReflectionFromService)

		protected.Get("/random", s.handleRandomImage)
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := s.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user registered", "userId": user.ID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	p, _ := httpinfra.PrincipalFrom(r.Context())
	if p.UserID == "" {
		writeError(w, http.StatusUnauthorized, "bearer token required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"userId": p.UserID})
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	profile, err := s.users.Info(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleLastSentence(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	username, sentence, err := s.users.LastSentence(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lastSentenceResponse{Username: username, LastSentence: sentence})
}

func (s *Server) handleUpdateEmotions(w http.ResponseWriter, r *http.Request) {
	var req emotionsRequest
	if !decode(w, r, &req) {
		return
	}
	userID, ok := s.actingUser(w, r, req.UserID)
	if !ok {
		return
	}
	if err := s.emotions.Record(r.Context(), userID, req.Emotions); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) && len(req.Emotions) > 0 && domain.ValidID(userID) {
			writeJSON(w, http.StatusBadRequest, invalidEmotionsResponse{
				Error:         `"emotions" must be an array of valid emotions`,
				ValidEmotions: s.emotions.Catalog().Names(),
			})
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "emotions updated"})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if !decode(w, r, &req) {
		return
	}
	userID, ok := s.actingUser(w, r, req.UserID)
	if !ok {
		return
	}
	if err := s.users.AddFavorite(r.Context(), userID, req.SentenceID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "sentence added to favorites"})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if !decode(w, r, &req) {
		return
	}
	userID, ok := s.actingUser(w, r, req.UserID)
	if !ok {
		return
	}
	if err := s.users.RemoveFavorite(r.Context(), userID, req.SentenceID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "sentence removed from favorites"})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decode(w, r, &req) {
		return
	}
	userID, ok := s.actingUser(w, r, req.UserID)
	if !ok {
		return
	}
	settings, err := s.users.UpdateSettings(r.Context(), userID, users.SettingsPatch{
		EnableEmotions:  req.EnableEmotions,
		RandomReflexion: req.RandomReflexion,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleRandomSentence(w http.ResponseWriter, r *http.Request) {
	sentence, err := s.reflection.SelectAnonymous(r.Context(), nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sentence)
}

func (s *Server) handleListSentences(w http.ResponseWriter, r *http.Request) {
	list, err := s.sentences.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateSentence(w http.ResponseWriter, r *http.Request) {
	var req sentenceRequest
	if !decode(w, r, &req) {
		return
	}
	sentence, err := s.sentences.Create(r.Context(), req.Title, req.Body, req.End)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sentence)
}

func (s *Server) handleSentenceByEmotions(w http.ResponseWriter, r *http.Request) {
	var req emotionsRequest
	if !decode(w, r, &req) {
		return
	}
	sentence, err := s.reflection.SelectAnonymous(r.Context(), req.Emotions)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sentence)
}

func (s *Server) handleSentenceByUser(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Emotions == nil {
		writeError(w, http.StatusBadRequest, `"emotions" must be an array of strings`)
		return
	}
	userID, ok := s.actingUser(w, r, req.UserID)
	if !ok {
		return
	}
	sel, err := s.reflection.SelectForUser(r.Context(), userID, *req.Emotions)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sel.Sentence)
}

func (s *Server) handleReflectionFromService(w http.ResponseWriter, r *http.Request) {
	var req emotionsRequest
	if !decode(w, r, &req) {
		return
	}
	userID := ""
	if req.UserID != "" || principalUser(r) != "" {
		id, ok := s.actingUser(w, r, req.UserID)
		if !ok {
			return
		}
		userID = id
	}
	out, err := s.reflection.ReflectFromService(r.Context(), userID, req.Emotions)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRandomImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.sentences.RandomImage(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": img.URL})
}

func principalUser(r *http.Request) string {
	p, _ := httpinfra.PrincipalFrom(r.Context())
	return p.UserID
}

// actingUser возвращает id пользователя, от имени которого выполняется запрос.
// Пустой id заменяется на субъект токена; чужой id даёт 403.
func (s *Server) actingUser(w http.ResponseWriter, r *http.Request, requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	p, _ := httpinfra.PrincipalFrom(r.Context())
	if requested == "" {
		requested = p.UserID
	}
	if requested == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return "", false
	}
	if !domain.ValidID(requested) {
		writeError(w, http.StatusBadRequest, "user id must be a valid id")
		return "", false
	}
	if !p.CanActAs(requested) {
		writeError(w, http.StatusForbidden, "cannot act on behalf of another user")
		return "", false
	}
	return requested, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrNoSentences),
		errors.Is(err, domain.ErrSentenceNotFound),
		errors.Is(err, domain.ErrLastSentenceMissing),
		errors.Is(err, domain.ErrFavoriteMissing),
		errors.Is(err, domain.ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmailTaken), errors.Is(err, domain.ErrFavoriteExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Str("request_id", httpinfra.RequestID(r)).Msg("api: request failed")
		msg := "internal error"
		if errors.Is(err, domain.ErrReflectionUnavailable) {
			msg = "reflection service unavailable"
		}
		writeError(w, status, msg)
		return
	}
	writeError(w, status, publicMessage(err))
}

// publicMessage отдаёт текст ошибки без внутренних префиксов шагов.
func publicMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrInvalidInput, domain.ErrInvalidSettings, domain.ErrInvalidCredentials,
		domain.ErrUserNotFound, domain.ErrNoSentences, domain.ErrSentenceNotFound,
		domain.ErrLastSentenceMissing, domain.ErrFavoriteMissing, domain.ErrImageNotFound,
		domain.ErrEmailTaken, domain.ErrFavoriteExists,
	} {
		if !errors.Is(err, sentinel) {
			continue
		}
		msg := err.Error()
		if i := strings.Index(msg, sentinel.Error()); i >= 0 {
			return msg[i:]
		}
		return sentinel.Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	httpinfra.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, httpinfra.ErrorResponse{Error: message})
}
