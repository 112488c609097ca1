package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// messageDoc — представление сообщения в коллекции guest_messages.
type messageDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	GuestName     string             `bson:"guest_name"`
	GuestEmail    string             `bson:"guest_email,omitempty"`
	Message       string             `bson:"message"`
	Status        string             `bson:"status"`
	IsHighlighted bool               `bson:"is_highlighted"`
	Likes         int64              `bson:"likes"`
	LikedBy       []string           `bson:"liked_by"`
	SubmittedAt   time.Time          `bson:"submitted_at"`
	ModeratedAt   *time.Time         `bson:"moderated_at,omitempty"`
	ModeratedBy   string             `bson:"moderated_by,omitempty"`
	ModeratorNote *string            `bson:"moderator_note,omitempty"`
}

func (d *messageDoc) toModel() *models.GuestMessage {
	out := &models.GuestMessage{
		ID:            d.ID.Hex(),
		GuestName:     d.GuestName,
		GuestEmail:    d.GuestEmail,
		Message:       d.Message,
		Status:        models.Status(d.Status),
		IsHighlighted: d.IsHighlighted,
		Likes:         d.Likes,
		LikedBy:       d.LikedBy,
		SubmittedAt:   d.SubmittedAt.UTC(),
		ModeratedBy:   d.ModeratedBy,
		ModeratorNote: d.ModeratorNote,
	}

	if out.LikedBy == nil {
		out.LikedBy = []string{}
	}

	if d.ModeratedAt != nil {
		at := d.ModeratedAt.UTC()
		out.ModeratedAt = &at
	}

	return out
}

// toMS — MongoDB DateTime хранит миллисекунды.
func toMS(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

// parseID — некорректный ObjectID трактуется как «нет такой записи».
func parseID(op, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return oid, nil
}

// CreateMessage вставляет сообщение в статусе pending; ObjectID генерирует драйвер.
func (m *Mongo) CreateMessage(ctx context.Context, msg models.GuestMessage) (*models.GuestMessage, error) {
	const op = "storage/mongo/CreateMessage"

	doc := messageDoc{
		GuestName:   msg.GuestName,
		GuestEmail:  msg.GuestEmail,
		Message:     msg.Message,
		Status:      string(models.StatusPending),
		LikedBy:     []string{},
		SubmittedAt: toMS(time.Now()),
	}

	res, err := m.messages.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%s: inserted id type", op)
	}

	doc.ID = oid
	return doc.toModel(), nil
}

// MessageByID возвращает сообщение по идентификатору или storage.ErrNotFound.
func (m *Mongo) MessageByID(ctx context.Context, id string) (*models.GuestMessage, error) {
	const op = "storage/mongo/MessageByID"

	oid, err := parseID(op, id)
	if err != nil {
		return nil, err
	}

	var doc messageDoc
	if err := m.messages.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.toModel(), nil
}

// ListMessages — фильтр по статусу и поиску (regex без учёта регистра по имени или тексту),
// сортировка по q.SortBy, skip/limit по смещению из page_token.
func (m *Mongo) ListMessages(ctx context.Context, q models.ListQuery) (*models.Page, error) {
	const op = "storage/mongo/ListMessages"

	filter := listFilter(q)

	total, err := m.messages.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: count: %w", op, err)
	}

	findOpts := options.Find().SetSort(sortSpec(q.SortBy)).SetSkip(q.Offset)
	if q.Limit > 0 {
		findOpts.SetLimit(q.Limit)
	}

	cur, err := m.messages.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	items := make([]models.GuestMessage, 0, q.Limit)
	for cur.Next(ctx) {
		var doc messageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		items = append(items, *doc.toModel())
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	return &models.Page{Items: items, Total: total}, nil
}

func listFilter(q models.ListQuery) bson.D {
	filter := bson.D{}

	if q.Status != models.FilterAll {
		filter = append(filter, bson.E{Key: "status", Value: string(q.Status)})
	}

	if q.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "guest_name", Value: rx}},
			bson.D{{Key: "message", Value: rx}},
		}})
	}

	return filter
}

// sortSpec — newest/oldest по submitted_at с добором по _id; mostLiked — likes DESC, submitted_at DESC.
func sortSpec(by models.SortBy) bson.D {
	switch by {
	case models.SortOldest:
		return bson.D{{Key: "submitted_at", Value: 1}, {Key: "_id", Value: 1}}
	case models.SortMostLiked:
		return bson.D{{Key: "likes", Value: -1}, {Key: "submitted_at", Value: -1}, {Key: "_id", Value: -1}}
	default:
		return bson.D{{Key: "submitted_at", Value: -1}, {Key: "_id", Value: -1}}
	}
}

// UpdateStatus выставляет статус и метаданные модерации одним $set.
func (m *Mongo) UpdateStatus(ctx context.Context, id string, status models.Status, mod models.Moderation) (*models.GuestMessage, error) {
	const op = "storage/mongo/UpdateStatus"

	if !status.Valid() {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	oid, err := parseID(op, id)
	if err != nil {
		return nil, err
	}

	set := bson.D{
		{Key: "status", Value: string(status)},
		{Key: "moderated_at", Value: toMS(mod.At)},
		{Key: "moderated_by", Value: mod.By},
	}

	update := bson.D{{Key: "$set", Value: set}}
	if mod.Note != nil {
		update[0].Value = append(set, bson.E{Key: "moderator_note", Value: *mod.Note})
	} else {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "moderator_note", Value: ""}}})
	}

	return m.findOneAndUpdate(ctx, op, oid, update)
}

// SetHighlighted переключает признак выделения.
func (m *Mongo) SetHighlighted(ctx context.Context, id string, highlighted bool) (*models.GuestMessage, error) {
	const op = "storage/mongo/SetHighlighted"

	oid, err := parseID(op, id)
	if err != nil {
		return nil, err
	}

	return m.findOneAndUpdate(ctx, op, oid, bson.D{
		{Key: "$set", Value: bson.D{{Key: "is_highlighted", Value: highlighted}}},
	})
}

func (m *Mongo) findOneAndUpdate(ctx context.Context, op string, oid primitive.ObjectID, update bson.D) (*models.GuestMessage, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc messageDoc
	if err := m.messages.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.toModel(), nil
}

// DeleteMessage удаляет документ безвозвратно.
func (m *Mongo) DeleteMessage(ctx context.Context, id string) error {
	const op = "storage/mongo/DeleteMessage"

	oid, err := parseID(op, id)
	if err != nil {
		return err
	}

	res, err := m.messages.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// AddLike — условное обновление одного документа: $addToSet + $inc срабатывают, только если
// сообщение одобрено и клиента ещё нет в liked_by. Иначе читаем документ и разбираем причину.
func (m *Mongo) AddLike(ctx context.Context, id, clientID string) (int64, error) {
	const op = "storage/mongo/AddLike"

	oid, err := parseID(op, id)
	if err != nil {
		return 0, err
	}

	filter := bson.D{
		{Key: "_id", Value: oid},
		{Key: "status", Value: string(models.StatusApproved)},
		{Key: "liked_by", Value: bson.D{{Key: "$ne", Value: clientID}}},
	}
	update := bson.D{
		{Key: "$addToSet", Value: bson.D{{Key: "liked_by", Value: clientID}}},
		{Key: "$inc", Value: bson.D{{Key: "likes", Value: 1}}},
	}

	likes, matched, err := m.conditionalLikeUpdate(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if matched {
		return likes, nil
	}

	cur, err := m.MessageByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if cur.Status != models.StatusApproved {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrNotApproved)
	}

	return cur.Likes, nil
}

// RemoveLike — симметрично AddLike: $pull + $inc(-1) только если клиент есть в liked_by.
func (m *Mongo) RemoveLike(ctx context.Context, id, clientID string) (int64, error) {
	const op = "storage/mongo/RemoveLike"

	oid, err := parseID(op, id)
	if err != nil {
		return 0, err
	}

	filter := bson.D{
		{Key: "_id", Value: oid},
		{Key: "liked_by", Value: clientID},
	}
	update := bson.D{
		{Key: "$pull", Value: bson.D{{Key: "liked_by", Value: clientID}}},
		{Key: "$inc", Value: bson.D{{Key: "likes", Value: -1}}},
	}

	likes, matched, err := m.conditionalLikeUpdate(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if matched {
		return likes, nil
	}

	cur, err := m.MessageByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cur.Likes, nil
}

func (m *Mongo) conditionalLikeUpdate(ctx context.Context, filter, update bson.D) (int64, bool, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: "likes", Value: 1}})

	var doc struct {
		Likes int64 `bson:"likes"`
	}

	if err := m.messages.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return 0, false, nil
		}
		return 0, false, err
	}

	return doc.Likes, true, nil
}

// Stats — одна агрегация $group по статусу; лайки суммируются только для approved.
func (m *Mongo) Stats(ctx context.Context) (*models.Stats, error) {
	const op = "storage/mongo/Stats"

	pipeline := mongodriver.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "likes", Value: bson.D{{Key: "$sum", Value: "$likes"}}},
		}}},
	}

	cur, err := m.messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%s: aggregate: %w", op, err)
	}
	defer cur.Close(ctx)

	var st models.Stats
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			Count  int64  `bson:"count"`
			Likes  int64  `bson:"likes"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}

		st.TotalMessages += row.Count
		switch models.Status(row.Status) {
		case models.StatusApproved:
			st.ApprovedMessages = row.Count
			st.TotalLikes = row.Likes
		case models.StatusPending:
			st.PendingMessages = row.Count
		case models.StatusRejected:
			st.RejectedMessages = row.Count
		}
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	st.ApprovalRate = storage.ApprovalRate(st.ApprovedMessages, st.TotalMessages)

	return &st, nil
}
