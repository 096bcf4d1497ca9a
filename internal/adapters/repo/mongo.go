package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"reflexion-api/internal/domain"
	"reflexion-api/internal/infra/metrics"
)

// Mongo хранит пользователей и фразы в MongoDB в исходной форме документов.
type Mongo struct {
	users     *mongo.Collection
	sentences *mongo.Collection
	images    *mongo.Collection
	now       func() time.Time
}

var (
	_ domain.UserRepo     = (*Mongo)(nil)
	_ domain.SentenceRepo = (*Mongo)(nil)
	_ domain.ImageRepo    = (*Mongo)(nil)
)

type emotionLogDoc struct {
	Emotions  []string  `bson:"emotions"`
	Timestamp time.Time `bson:"timestamp"`
}

type userDoc struct {
	ID                primitive.ObjectID   `bson:"_id"`
	Username          string               `bson:"username"`
	Email             string               `bson:"email"`
	Password          string               `bson:"password"`
	LastSentence      *primitive.ObjectID  `bson:"lastSentence,omitempty"`
	FavoriteSentences []primitive.ObjectID `bson:"favoriteSentences"`
	Emotions          map[string]int       `bson:"emotions"`
	EmotionsCount     int                  `bson:"emotionsCount"`
	EmotionLogs       []emotionLogDoc      `bson:"emotionLogs"`
	EnableEmotions    bool                 `bson:"enableEmotions"`
	RandomReflexion   bool                 `bson:"randomReflexion"`
	CreatedAt         time.Time            `bson:"createdAt"`
	UpdatedAt         time.Time            `bson:"updatedAt"`
}

type sentenceDoc struct {
	ID    primitive.ObjectID `bson:"_id"`
	Title string             `bson:"title"`
	Body  string             `bson:"body"`
	End   string             `bson:"end"`
}

type imageDoc struct {
	ID  primitive.ObjectID `bson:"_id"`
	URL string             `bson:"url"`
}

// NewMongo создаёт адаптер поверх базы db.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		users:     db.Collection("users"),
		sentences: db.Collection("sentences"),
		images:    db.Collection("images"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes создаёт уникальный индекс email и индекс заголовков.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	start := time.Now()
	_, err := m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	metrics.ObserveNetworkRequest("mongo", "create_index", "users", start, err)
	if err != nil {
		return err
	}
	start = time.Now()
	_, err = m.sentences.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "title", Value: 1}}})
	metrics.ObserveNetworkRequest("mongo", "create_index", "sentences", start, err)
	return err
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, queryTimeout)
}

func toUser(doc userDoc) domain.User {
	user := domain.User{
		ID:            doc.ID.Hex(),
		Username:      doc.Username,
		Email:         doc.Email,
		PasswordHash:  doc.Password,
		Emotions:      doc.Emotions,
		EmotionsCount: doc.EmotionsCount,
		Settings:      domain.Settings{EnableEmotions: doc.EnableEmotions, RandomReflexion: doc.RandomReflexion},
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
	if user.Emotions == nil {
		user.Emotions = map[string]int{}
	}
	if doc.LastSentence != nil {
		id := doc.LastSentence.Hex()
		user.LastSentenceID = &id
	}
	for _, fav := range doc.FavoriteSentences {
		user.FavoriteSentenceIDs = append(user.FavoriteSentenceIDs, fav.Hex())
	}
	for _, entry := range doc.EmotionLogs {
		user.EmotionLogs = append(user.EmotionLogs, domain.EmotionLog{Emotions: entry.Emotions, Timestamp: entry.Timestamp})
	}
	return user
}

func toSentence(doc sentenceDoc) domain.Sentence {
	return domain.Sentence{
		ID:        doc.ID.Hex(),
		Title:     doc.Title,
		Body:      doc.Body,
		End:       doc.End,
		CreatedAt: doc.ID.Timestamp(),
	}
}

// CreateUser реализует domain.UserRepo.
func (m *Mongo) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	id := primitive.NewObjectID()
	if user.ID != "" {
		parsed, err := domain.ParseID("id", user.ID)
		if err != nil {
			return domain.User{}, err
		}
		id = parsed
	}
	now := m.now()
	emotions := user.Emotions
	if emotions == nil {
		emotions = map[string]int{}
	}
	doc := userDoc{
		ID:                id,
		Username:          user.Username,
		Email:             user.Email,
		Password:          user.PasswordHash,
		FavoriteSentences: []primitive.ObjectID{},
		Emotions:          emotions,
		EmotionsCount:     user.EmotionsCount,
		EmotionLogs:       []emotionLogDoc{},
		EnableEmotions:    user.Settings.EnableEmotions,
		RandomReflexion:   user.Settings.RandomReflexion,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	start := time.Now()
	_, err := m.users.InsertOne(ctx, doc)
	metrics.ObserveNetworkRequest("mongo", "users_insert", "users", start, err)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, err
	}
	return toUser(doc), nil
}

func (m *Mongo) findUser(ctx context.Context, op string, filter bson.M) (domain.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	var doc userDoc
	start := time.Now()
	err := m.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		metrics.ObserveNetworkRequest("mongo", op, "users", start, nil)
		return domain.User{}, domain.ErrUserNotFound
	}
	metrics.ObserveNetworkRequest("mongo", op, "users", start, err)
	if err != nil {
		return domain.User{}, err
	}
	return toUser(doc), nil
}

// GetUserByID реализует domain.UserRepo.
func (m *Mongo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.User{}, domain.ErrUserNotFound
	}
	return m.findUser(ctx, "users_get_by_id", bson.M{"_id": oid})
}

// GetUserByEmail реализует domain.UserRepo.
func (m *Mongo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return m.findUser(ctx, "users_get_by_email", bson.M{"email": email})
}

func (m *Mongo) updateUser(ctx context.Context, op string, filter bson.M, update bson.M) (*mongo.UpdateResult, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	start := time.Now()
	res, err := m.users.UpdateOne(ctx, filter, update)
	metrics.ObserveNetworkRequest("mongo", op, "users", start, err)
	return res, err
}

func (m *Mongo) userExists(ctx context.Context, oid primitive.ObjectID) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	start := time.Now()
	n, err := m.users.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	metrics.ObserveNetworkRequest("mongo", "users_exists", "users", start, err)
	return n > 0, err
}

// IncrementEmotions реализует domain.UserRepo одним атомарным обновлением.
func (m *Mongo) IncrementEmotions(ctx context.Context, userID string, emotions []string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	inc := bson.M{"emotionsCount": len(emotions)}
	for _, e := range emotions {
		key := "emotions." + e
		if v, ok := inc[key].(int); ok {
			inc[key] = v + 1
		} else {
			inc[key] = 1
		}
	}
	update := bson.M{
		"$inc":  inc,
		"$push": bson.M{"emotionLogs": emotionLogDoc{Emotions: emotions, Timestamp: at}},
		"$set":  bson.M{"updatedAt": m.now()},
	}
	res, err := m.updateUser(ctx, "users_inc_emotions", bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SetLastSentence реализует domain.UserRepo.
func (m *Mongo) SetLastSentence(ctx context.Context, userID, sentenceID string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	sid, err := domain.ParseID("sentenceId", sentenceID)
	if err != nil {
		return err
	}
	res, err := m.updateUser(ctx, "users_set_last_sentence", bson.M{"_id": oid}, bson.M{"$set": bson.M{"lastSentence": sid, "updatedAt": m.now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdateSettings реализует domain.UserRepo.
func (m *Mongo) UpdateSettings(ctx context.Context, userID string, settings domain.Settings) error {
	if !settings.Valid() {
		return domain.ErrInvalidSettings
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	res, err := m.updateUser(ctx, "users_update_settings", bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"enableEmotions":  settings.EnableEmotions,
		"randomReflexion": settings.RandomReflexion,
		"updatedAt":       m.now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// AddFavorite реализует domain.UserRepo.
func (m *Mongo) AddFavorite(ctx context.Context, userID, sentenceID string) error {
	return m.changeFavorite(ctx, userID, sentenceID, true)
}

// RemoveFavorite реализует domain.UserRepo.
func (m *Mongo) RemoveFavorite(ctx context.Context, userID, sentenceID string) error {
	return m.changeFavorite(ctx, userID, sentenceID, false)
}

func (m *Mongo) changeFavorite(ctx context.Context, userID, sentenceID string, add bool) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	sid, err := domain.ParseID("sentenceId", sentenceID)
	if err != nil {
		return err
	}
	var (
		filter   bson.M
		update   bson.M
		op       string
		conflict error
	)
	if add {
		filter = bson.M{"_id": oid, "favoriteSentences": bson.M{"$ne": sid}}
		update = bson.M{"$addToSet": bson.M{"favoriteSentences": sid}}
		op, conflict = "users_favorite_add", domain.ErrFavoriteExists
	} else {
		filter = bson.M{"_id": oid, "favoriteSentences": sid}
		update = bson.M{"$pull": bson.M{"favoriteSentences": sid}}
		op, conflict = "users_favorite_remove", domain.ErrFavoriteMissing
	}
	res, err := m.updateUser(ctx, op, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	exists, err := m.userExists(ctx, oid)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrUserNotFound
	}
	return conflict
}

// CountSentences реализует domain.SentenceRepo.
func (m *Mongo) CountSentences(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	start := time.Now()
	n, err := m.sentences.CountDocuments(ctx, bson.M{})
	metrics.ObserveNetworkRequest("mongo", "sentences_count", "sentences", start, err)
	return n, err
}

func (m *Mongo) findSentence(ctx context.Context, op string, filter bson.M, opts ...*options.FindOneOptions) (domain.Sentence, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	var doc sentenceDoc
	start := time.Now()
	err := m.sentences.FindOne(ctx, filter, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		metrics.ObserveNetworkRequest("mongo", op, "sentences", start, nil)
		return domain.Sentence{}, domain.ErrSentenceNotFound
	}
	metrics.ObserveNetworkRequest("mongo", op, "sentences", start, err)
	if err != nil {
		return domain.Sentence{}, err
	}
	return toSentence(doc), nil
}

var byID = bson.D{{Key: "_id", Value: 1}}

// SentenceAtOffset реализует domain.SentenceRepo. Сортировка по _id.
func (m *Mongo) SentenceAtOffset(ctx context.Context, offset int64) (domain.Sentence, error) {
	return m.findSentence(ctx, "sentences_at_offset", bson.M{}, options.FindOne().SetSort(byID).SetSkip(offset))
}

// GetSentenceByID реализует domain.SentenceRepo.
func (m *Mongo) GetSentenceByID(ctx context.Context, id string) (domain.Sentence, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Sentence{}, domain.ErrSentenceNotFound
	}
	return m.findSentence(ctx, "sentences_get", bson.M{"_id": oid})
}

// GetSentenceByTitle реализует domain.SentenceRepo.
func (m *Mongo) GetSentenceByTitle(ctx context.Context, title string) (domain.Sentence, error) {
	return m.findSentence(ctx, "sentences_get_by_title", bson.M{"title": title}, options.FindOne().SetSort(byID))
}

// ListSentences реализует domain.SentenceRepo.
func (m *Mongo) ListSentences(ctx context.Context) ([]domain.Sentence, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	start := time.Now()
	cur, err := m.sentences.Find(ctx, bson.M{}, options.Find().SetSort(byID))
	metrics.ObserveNetworkRequest("mongo", "sentences_list", "sentences", start, err)
	if err != nil {
		return nil, err
	}
	var docs []sentenceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Sentence, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toSentence(doc))
	}
	return out, nil
}

// CreateSentence реализует domain.SentenceRepo.
func (m *Mongo) CreateSentence(ctx context.Context, sentence domain.Sentence) (domain.Sentence, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	id := primitive.NewObjectID()
	if sentence.ID != "" {
		parsed, err := domain.ParseID("id", sentence.ID)
		if err != nil {
			return domain.Sentence{}, err
		}
		id = parsed
	}
	doc := sentenceDoc{ID: id, Title: sentence.Title, Body: sentence.Body, End: sentence.End}
	start := time.Now()
	_, err := m.sentences.InsertOne(ctx, doc)
	metrics.ObserveNetworkRequest("mongo", "sentences_insert", "sentences", start, err)
	if err != nil {
		return domain.Sentence{}, err
	}
	return toSentence(doc), nil
}

// RandomImage реализует domain.ImageRepo через $sample.
func (m *Mongo) RandomImage(ctx context.Context) (domain.Image, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	start := time.Now()
	cur, err := m.images.Aggregate(ctx, mongo.Pipeline{{{Key: "$sample", Value: bson.D{{Key: "size", Value: 1}}}}})
	metrics.ObserveNetworkRequest("mongo", "images_sample", "images", start, err)
	if err != nil {
		return domain.Image{}, err
	}
	var docs []imageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return domain.Image{}, err
	}
	if len(docs) == 0 {
		return domain.Image{}, domain.ErrImageNotFound
	}
	return domain.Image{ID: docs[0].ID.Hex(), URL: docs[0].URL}, nil
}

// AddImage реализует domain.ImageRepo.
func (m *Mongo) AddImage(ctx context.Context, url string) (domain.Image, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	doc := imageDoc{ID: primitive.NewObjectID(), URL: url}
	start := time.Now()
	_, err := m.images.InsertOne(ctx, doc)
	metrics.ObserveNetworkRequest("mongo", "images_insert", "images", start, err)
	if err != nil {
		return domain.Image{}, err
	}
	return domain.Image{ID: doc.ID.Hex(), URL: doc.URL}, nil
}
