package repo

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"reflexion-api/internal/domain"
	"reflexion-api/internal/infra/metrics"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	queryTimeout          = 5 * time.Second
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.UserRepo     = (*Postgres)(nil)
	_ domain.SentenceRepo = (*Postgres)(nil)
	_ domain.ImageRepo    = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, queryTimeout)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Migrate применяет встроенные миграции по порядку имён файлов.
func (p *Postgres) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		start := time.Now()
		_, err = p.pool.Exec(ctx, string(sql))
		metrics.ObserveNetworkRequest("postgres", "migrate", name, start, err)
		if err != nil {
			return fmt.Errorf("миграция %s: %w", name, err)
		}
	}
	return nil
}

// CreateUser реализует domain.UserRepo.
func (p *Postgres) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	if user.ID == "" {
		user.ID = domain.NewID()
	}

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "users", start, err)
	if err != nil {
		return domain.User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	start = time.Now()
	err = tx.QueryRow(ctx, `
INSERT INTO users (id, username, email, password_hash, emotions_count, enable_emotions, random_reflexion)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at
`, user.ID, user.Username, user.Email, user.PasswordHash, user.EmotionsCount, user.Settings.EnableEmotions, user.Settings.RandomReflexion).Scan(&user.CreatedAt, &user.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_insert", "users", start, err)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, err
	}

	for emotion, count := range user.Emotions {
		if count <= 0 {
			continue
		}
		start = time.Now()
		_, err = tx.Exec(ctx, `INSERT INTO user_emotions (user_id, emotion, count) VALUES ($1, $2, $3)`, user.ID, emotion, count)
		metrics.ObserveNetworkRequest("postgres", "user_emotions_insert", "user_emotions", start, err)
		if err != nil {
			return domain.User{}, err
		}
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "users", start, err)
	if err != nil {
		return domain.User{}, err
	}
	if user.Emotions == nil {
		user.Emotions = map[string]int{}
	}
	return user, nil
}

// GetUserByID реализует domain.UserRepo.
func (p *Postgres) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return p.loadUser(ctx, "id", id)
}

// GetUserByEmail реализует domain.UserRepo.
func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return p.loadUser(ctx, "email", email)
}

func (p *Postgres) loadUser(ctx context.Context, column, value string) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var user domain.User
	start := time.Now()
	// column приходит только из GetUserByID/GetUserByEmail.
	err := p.pool.QueryRow(ctx, `
SELECT id, username, email, password_hash, emotions_count, last_sentence_id, enable_emotions, random_reflexion, created_at, updated_at
FROM users WHERE `+column+`=$1
`, value).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.EmotionsCount, &user.LastSentenceID,
		&user.Settings.EnableEmotions, &user.Settings.RandomReflexion, &user.CreatedAt, &user.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_get_by_"+column, "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}

	if user.Emotions, err = p.loadEmotions(ctx, user.ID); err != nil {
		return domain.User{}, err
	}
	if user.EmotionLogs, err = p.loadEmotionLogs(ctx, user.ID); err != nil {
		return domain.User{}, err
	}
	if user.FavoriteSentenceIDs, err = p.loadFavorites(ctx, user.ID); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (p *Postgres) loadEmotions(ctx context.Context, userID string) (map[string]int, error) {
	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT emotion, count FROM user_emotions WHERE user_id=$1`, userID)
	metrics.ObserveNetworkRequest("postgres", "user_emotions_list", "user_emotions", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var (
			emotion string
			count   int
		)
		if err := rows.Scan(&emotion, &count); err != nil {
			return nil, err
		}
		out[emotion] = count
	}
	return out, rows.Err()
}

func (p *Postgres) loadEmotionLogs(ctx context.Context, userID string) ([]domain.EmotionLog, error) {
	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT emotions, logged_at FROM emotion_logs WHERE user_id=$1 ORDER BY logged_at, id`, userID)
	metrics.ObserveNetworkRequest("postgres", "emotion_logs_list", "emotion_logs", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.EmotionLog
	for rows.Next() {
		var entry domain.EmotionLog
		if err := rows.Scan(&entry.Emotions, &entry.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (p *Postgres) loadFavorites(ctx context.Context, userID string) ([]string, error) {
	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT sentence_id FROM user_favorites WHERE user_id=$1 ORDER BY created_at, sentence_id`, userID)
	metrics.ObserveNetworkRequest("postgres", "user_favorites_list", "user_favorites", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// IncrementEmotions реализует domain.UserRepo одной транзакцией.
func (p *Postgres) IncrementEmotions(ctx context.Context, userID string, emotions []string, at time.Time) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "user_emotions", start, err)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	start = time.Now()
	tag, err := tx.Exec(ctx, `UPDATE users SET emotions_count = emotions_count + $2, updated_at = now() WHERE id=$1`, userID, len(emotions))
	metrics.ObserveNetworkRequest("postgres", "users_inc_total", "users", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}

	batch := &pgx.Batch{}
	for _, emotion := range emotions {
		batch.Queue(`
INSERT INTO user_emotions (user_id, emotion, count) VALUES ($1, $2, 1)
ON CONFLICT (user_id, emotion) DO UPDATE SET count = user_emotions.count + 1
`, userID, emotion)
	}
	batch.Queue(`INSERT INTO emotion_logs (user_id, emotions, logged_at) VALUES ($1, $2, $3)`, userID, emotions, at)
	start = time.Now()
	err = tx.SendBatch(ctx, batch).Close()
	metrics.ObserveNetworkRequest("postgres", "user_emotions_upsert", "user_emotions", start, err)
	if err != nil {
		return err
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "user_emotions", start, err)
	return err
}

func (p *Postgres) updateUser(ctx context.Context, op, query string, args ...any) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	start := time.Now()
	tag, err := p.pool.Exec(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", op, "users", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SetLastSentence реализует domain.UserRepo.
func (p *Postgres) SetLastSentence(ctx context.Context, userID, sentenceID string) error {
	return p.updateUser(ctx, "users_set_last_sentence",
		`UPDATE users SET last_sentence_id=$2, updated_at=now() WHERE id=$1`, userID, sentenceID)
}

// UpdateSettings реализует domain.UserRepo.
func (p *Postgres) UpdateSettings(ctx context.Context, userID string, settings domain.Settings) error {
	if !settings.Valid() {
		return domain.ErrInvalidSettings
	}
	return p.updateUser(ctx, "users_update_settings",
		`UPDATE users SET enable_emotions=$2, random_reflexion=$3, updated_at=now() WHERE id=$1`,
		userID, settings.EnableEmotions, settings.RandomReflexion)
}

// AddFavorite реализует domain.UserRepo.
func (p *Postgres) AddFavorite(ctx context.Context, userID, sentenceID string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
INSERT INTO user_favorites (user_id, sentence_id) VALUES ($1, $2)
ON CONFLICT (user_id, sentence_id) DO NOTHING
`, userID, sentenceID)
	metrics.ObserveNetworkRequest("postgres", "user_favorites_add", "user_favorites", start, err)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return domain.ErrUserNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFavoriteExists
	}
	return nil
}

// RemoveFavorite реализует domain.UserRepo.
func (p *Postgres) RemoveFavorite(ctx context.Context, userID, sentenceID string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	start := time.Now()
	tag, err := p.pool.Exec(ctx, `DELETE FROM user_favorites WHERE user_id=$1 AND sentence_id=$2`, userID, sentenceID)
	metrics.ObserveNetworkRequest("postgres", "user_favorites_remove", "user_favorites", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	start = time.Now()
	err = p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, userID).Scan(&exists)
	metrics.ObserveNetworkRequest("postgres", "users_exists", "users", start, err)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrUserNotFound
	}
	return domain.ErrFavoriteMissing
}

// CountSentences реализует domain.SentenceRepo.
func (p *Postgres) CountSentences(ctx context.Context) (int64, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	var n int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT count(*) FROM sentences`).Scan(&n)
	metrics.ObserveNetworkRequest("postgres", "sentences_count", "sentences", start, err)
	return n, err
}

const sentenceColumns = `id, title, body, ending, created_at`

func scanSentence(row pgx.Row) (domain.Sentence, error) {
	var s domain.Sentence
	err := row.Scan(&s.ID, &s.Title, &s.Body, &s.End, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Sentence{}, domain.ErrSentenceNotFound
	}
	return s, err
}

// SentenceAtOffset реализует domain.SentenceRepo. Сортировка по (created_at, id).
func (p *Postgres) SentenceAtOffset(ctx context.Context, offset int64) (domain.Sentence, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	start := time.Now()
	s, err := scanSentence(p.pool.QueryRow(ctx, `SELECT `+sentenceColumns+` FROM sentences ORDER BY created_at, id OFFSET $1 LIMIT 1`, offset))
	metrics.ObserveNetworkRequest("postgres", "sentences_at_offset", "sentences", start, ignoreNotFound(err))
	return s, err
}

// GetSentenceByID реализует domain.SentenceRepo.
func (p *Postgres) GetSentenceByID(ctx context.Context, id string) (domain.Sentence, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	start := time.Now()
	s, err := scanSentence(p.pool.QueryRow(ctx, `SELECT `+sentenceColumns+` FROM sentences WHERE id=$1`, id))
	metrics.ObserveNetworkRequest("postgres", "sentences_get", "sentences", start, ignoreNotFound(err))
	return s, err
}

// GetSentenceByTitle реализует domain.SentenceRepo.
func (p *Postgres) GetSentenceByTitle(ctx context.Context, title string) (domain.Sentence, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	start := time.Now()
	s, err := scanSentence(p.pool.QueryRow(ctx, `SELECT `+sentenceColumns+` FROM sentences WHERE title=$1 ORDER BY created_at, id LIMIT 1`, title))
	metrics.ObserveNetworkRequest("postgres", "sentences_get_by_title", "sentences", start, ignoreNotFound(err))
	return s, err
}

// ListSentences реализует domain.SentenceRepo.
func (p *Postgres) ListSentences(ctx context.Context) ([]domain.Sentence, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT `+sentenceColumns+` FROM sentences ORDER BY created_at, id`)
	metrics.ObserveNetworkRequest("postgres", "sentences_list", "sentences", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Sentence
	for rows.Next() {
		s, err := scanSentence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateSentence реализует domain.SentenceRepo.
func (p *Postgres) CreateSentence(ctx context.Context, sentence domain.Sentence) (domain.Sentence, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	if sentence.ID == "" {
		sentence.ID = domain.NewID()
	}
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO sentences (id, title, body, ending) VALUES ($1, $2, $3, $4)
RETURNING created_at
`, sentence.ID, sentence.Title, sentence.Body, sentence.End).Scan(&sentence.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "sentences_insert", "sentences", start, err)
	if err != nil {
		return domain.Sentence{}, err
	}
	return sentence, nil
}

// RandomImage реализует domain.ImageRepo.
func (p *Postgres) RandomImage(ctx context.Context) (domain.Image, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	var img domain.Image
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT id, url FROM images ORDER BY random() LIMIT 1`).Scan(&img.ID, &img.URL)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "images_random", "images", start, nil)
		return domain.Image{}, domain.ErrImageNotFound
	}
	metrics.ObserveNetworkRequest("postgres", "images_random", "images", start, err)
	return img, err
}

// AddImage реализует domain.ImageRepo.
func (p *Postgres) AddImage(ctx context.Context, url string) (domain.Image, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	img := domain.Image{ID: domain.NewID(), URL: url}
	start := time.Now()
	_, err := p.pool.Exec(ctx, `INSERT INTO images (id, url) VALUES ($1, $2)`, img.ID, img.URL)
	metrics.ObserveNetworkRequest("postgres", "images_insert", "images", start, err)
	if err != nil {
		return domain.Image{}, err
	}
	return img, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, domain.ErrSentenceNotFound) {
		return nil
	}
	return err
}
