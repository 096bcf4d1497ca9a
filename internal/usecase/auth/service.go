package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"reflexion-api/internal/domain"
)

const defaultTokenTTL = 7 * 24 * time.Hour

// Claims содержит поля JWT; Subject хранит id пользователя.
type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Session возвращается после успешного входа.
type Session struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Service регистрирует пользователей и выпускает токены.
type Service struct {
	users      domain.UserRepo
	secret     []byte
	ttl        time.Duration
	bcryptCost int
	events     domain.EventPublisher
	log        zerolog.Logger
	now        func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithTTL задаёт срок жизни токена.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithBcryptCost задаёт стоимость хеширования паролей.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

// WithEvents подключает публикацию событий регистрации.
func WithEvents(p domain.EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithClock подменяет часы.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService создаёт сервис аутентификации.
func NewService(users domain.UserRepo, secret string, opts ...Option) *Service {
	s := &Service{
		users:      users,
		secret:     []byte(secret),
		ttl:        defaultTokenTTL,
		bcryptCost: bcrypt.DefaultCost,
		events:     domain.NopPublisher{},
		log:        zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeEmail обрезает пробелы и приводит адрес к нижнему регистру.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создаёт пользователя с настройками по умолчанию.
func (s *Service) Register(ctx context.Context, username, email, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)
	if username == "" {
		return domain.User{}, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return domain.User{}, fmt.Errorf("%w: email is invalid", domain.ErrInvalidInput)
	}
	if password == "" {
		return domain.User{}, fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, fmt.Errorf("поиск пользователя: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("хеширование пароля: %w", err)
	}
	user, err := s.users.CreateUser(ctx, domain.User{
		ID:           domain.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Emotions:     map[string]int{},
		Settings:     domain.DefaultSettings(),
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("создание пользователя: %w", err)
	}

	event := domain.Event{Type: domain.EventUserRegistered, UserID: user.ID, OccurredAt: s.now().UTC()}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("auth: publish event failed")
	}
	return user, nil
}

// Login проверяет пароль и выпускает токен.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return Session{}, domain.ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("поиск пользователя: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, domain.ErrInvalidCredentials
	}
	token, err := s.issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, UserID: user.ID, Username: user.Username, Email: user.Email}, nil
}

func (s *Service) issue(user domain.User) (string, error) {
	if len(s.secret) == 0 {
		return "", domain.ErrInvalidCredentials
	}
	now := s.now()
	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("подпись токена: %w", err)
	}
	return signed, nil
}

// Verify проверяет токен и возвращает id пользователя.
func (s *Service) Verify(token string) (string, error) {
	if token == "" || len(s.secret) == 0 {
		return "", domain.ErrInvalidCredentials
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return "", domain.ErrInvalidCredentials
	}
	if !domain.ValidID(claims.Subject) {
		return "", domain.ErrInvalidCredentials
	}
	return claims.Subject, nil
}
