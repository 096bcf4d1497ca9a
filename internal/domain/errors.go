package domain

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных входных данных.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUserNotFound возвращается, когда пользователь не найден.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoSentences возвращается, когда в хранилище нет ни одной фразы.
	ErrNoSentences = errors.New("no sentences available")

	// ErrSentenceNotFound возвращается, когда фраза не найдена.
	ErrSentenceNotFound = errors.New("sentence not found")

	// ErrLastSentenceMissing возвращается, если у пользователя нет последней фразы.
	ErrLastSentenceMissing = errors.New("user has no last sentence")

	// ErrFavoriteExists возвращается при повторном добавлении в избранное.
	ErrFavoriteExists = errors.New("sentence already in favorites")

	// ErrFavoriteMissing возвращается при удалении фразы, которой нет в избранном.
	ErrFavoriteMissing = errors.New("sentence not in favorites")

	// ErrInvalidSettings возвращается, если оба режима выключены.
	ErrInvalidSettings = errors.New("at least one of enableEmotions or randomReflexion must be enabled")

	// ErrEmailTaken возвращается при регистрации с занятым email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials возвращается при неверном email или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrImageNotFound возвращается, когда коллекция изображений пуста.
	ErrImageNotFound = errors.New("no images available")

	// ErrReflectionUnavailable возвращается при сбое внешнего сервиса рефлексий.
	ErrReflectionUnavailable = errors.New("reflection service unavailable")
)
