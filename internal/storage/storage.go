// Package storage описывает контракт хранилища сообщений гостевой книги.
package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/wedding-guestbook/internal/models"
)

var (
	// ErrNotFound — сообщение отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrNotApproved — сообщение есть, но не одобрено (лайки запрещены).
	ErrNotApproved = errors.New("not approved")
	// ErrInvalidArgument — хранилище не может выполнить запрос с такими параметрами.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Storage описывает операции над сообщениями.
type Storage interface {
	// CreateMessage сохраняет новое сообщение.
	// Хранилище назначает ID и SubmittedAt (UTC, миллисекунды), Status принудительно pending,
	// Likes=0, LikedBy пустой, поля модерации пустые.
	CreateMessage(ctx context.Context, msg models.GuestMessage) (*models.GuestMessage, error)

	// MessageByID возвращает сообщение по идентификатору.
	// Некорректный формат id трактуется как отсутствие записи: ErrNotFound.
	MessageByID(ctx context.Context, id string) (*models.GuestMessage, error)

	// ListMessages возвращает страницу сообщений по нормализованному запросу и общее
	// количество подходящих под фильтр записей.
	ListMessages(ctx context.Context, q models.ListQuery) (*models.Page, error)

	// UpdateStatus переводит сообщение в статус и проставляет метаданные модерации.
	// Если записи нет — ErrNotFound.
	UpdateStatus(ctx context.Context, id string, status models.Status, mod models.Moderation) (*models.GuestMessage, error)

	// SetHighlighted включает/выключает выделение сообщения. Если записи нет — ErrNotFound.
	SetHighlighted(ctx context.Context, id string, highlighted bool) (*models.GuestMessage, error)

	// DeleteMessage удаляет сообщение безвозвратно. Если записи нет — ErrNotFound.
	DeleteMessage(ctx context.Context, id string) error

	// AddLike атомарно добавляет clientID в liked_by и увеличивает likes, если его там нет.
	// Повторный вызов ничего не меняет. Возвращает актуальное число лайков.
	// Ошибки: ErrNotFound (нет записи), ErrNotApproved (сообщение не одобрено).
	AddLike(ctx context.Context, id, clientID string) (int64, error)

	// RemoveLike атомарно убирает clientID из liked_by и уменьшает likes, если он там есть.
	// Возвращает актуальное число лайков. Если записи нет — ErrNotFound.
	RemoveLike(ctx context.Context, id, clientID string) (int64, error)

	// Stats считает агрегаты по всему содержимому хранилища.
	Stats(ctx context.Context) (*models.Stats, error)

	// Ping проверяет доступность хранилища (для /healthz).
	Ping(ctx context.Context) error

	// Close закрывает соединения/ресурсы хранилища.
	Close(ctx context.Context) error
}

// ApprovalRate — доля одобренных среди всех сообщений; 0 при пустом хранилище.
func ApprovalRate(approved, total int64) float64 {
	if total == 0 {
		return 0
	}

	return float64(approved) / float64(total)
}
