// mongo — основной бэкенд гостевой книги (db.driver=mongo): коллекция guest_messages,
// индексы под выдачу и атомарные лайки одним findAndModify.
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/wedding-guestbook/internal/config"
	"github.com/pribylovaa/wedding-guestbook/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	messagesCollection = "guest_messages"
	defaultDBName      = "guestbook"
)

var _ storage.Storage = (*Mongo)(nil)

// Mongo — хранилище сообщений в MongoDB.
type Mongo struct {
	client   *mongodriver.Client
	db       *mongodriver.Database
	messages *mongodriver.Collection
}

// New подключается к MongoDB, проверяет соединение, подготавливает коллекцию и индексы.
func New(ctx context.Context, cfg *config.Config) (*Mongo, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mongo: nil config")
	}

	if cfg.DB.URL == "" {
		return nil, fmt.Errorf("mongo: empty cfg.DB.URL")
	}

	opts := options.Client().
		ApplyURI(cfg.DB.URL).
		SetAppName("guestbook-service").
		SetServerSelectionTimeout(5 * time.Second)

	cli, err := mongodriver.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseFromURI(cfg.DB.URL))

	m := &Mongo{
		client:   cli,
		db:       db,
		messages: db.Collection(messagesCollection),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}

	return m, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// ensureIndexes создаёт индексы под выдачу:
// - лента по статусу: status + submitted_at(desc);
// - сортировка по популярности: status + likes(desc) + submitted_at(desc).
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	models := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "submitted_at", Value: -1}},
			Options: options.Index().SetName("status_submitted_desc"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "likes", Value: -1}, {Key: "submitted_at", Value: -1}},
			Options: options.Index().SetName("status_likes_desc"),
		},
	}

	if _, err := m.messages.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}

	return nil
}

// databaseFromURI извлекает имя базы из пути URI; при его отсутствии — defaultDBName.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}
