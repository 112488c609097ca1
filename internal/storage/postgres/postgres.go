// postgres — альтернативный бэкенд гостевой книги (db.driver=postgres) на pgxpool.
// Схема лежит в migrations/ и применяется при старте сервиса через Migrate.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pribylovaa/wedding-guestbook/internal/storage"
)

// migrateLockID — ключ advisory lock: реплики, стартующие одновременно, применяют схему по очереди.
const migrateLockID int64 = 0x6775657374626b // "guestbk"

var _ storage.Storage = (*Storage)(nil)

// Storage — сообщения гостевой книги в таблице guest_messages.
type Storage struct {
	db *pgxpool.Pool
}

// New открывает пул по DSN и проверяет соединение.
// Параметры пула (pool_max_conns и др.) задаются в самом DSN.
func New(ctx context.Context, dbURL string) (*Storage, error) {
	const op = "storage/postgres/New"

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse dsn: %w", op, err)
	}

	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = "guestbook-service"

	db, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Migrate применяет идемпотентный SQL-скрипт в одной транзакции под advisory lock.
func (s *Storage) Migrate(ctx context.Context, script string) error {
	const op = "storage/postgres/Migrate"

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrateLockID); err != nil {
			return fmt.Errorf("lock: %w", err)
		}

		_, err := tx.Exec(ctx, script)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close закрывает пул; контекст не используется, pgxpool ждёт возврата соединений сам.
func (s *Storage) Close(context.Context) error {
	s.db.Close()
	return nil
}
