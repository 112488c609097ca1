package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pribylovaa/wedding-guestbook/internal/storage"
	"github.com/pribylovaa/wedding-guestbook/pkg/log"
)

// maxClientIDLen — ограничение на длину идентификатора клиента (UUID и запас).
const maxClientIDLen = 128

// Like — идемпотентный лайк: повторный вызов тем же клиентом число не меняет.
// Лайкать можно только одобренные сообщения; для остальных — ErrNotFound, как для
// несуществующих (скрытые сообщения не раскрываются).
func (s *Service) Like(ctx context.Context, id, clientID string) (int64, error) {
	const op = "service/likes/Like"

	id, clientID = normalizeID(id), strings.TrimSpace(clientID)
	lg := log.From(ctx).With("op", op, "id", id)

	if id == "" || clientID == "" || len(clientID) > maxClientIDLen {
		lg.Warn("invalid argument: empty id or client id")
		return 0, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	likes, err := s.storage.AddLike(ctx, id, clientID)
	s.metrics.Like("like", err)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrNotApproved):
			lg.Warn("message not found or not approved")
			return 0, fmt.Errorf("%s: %w", op, ErrNotFound)
		default:
			lg.Error("storage error on AddLike", "err", err)
			return 0, fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	return likes, nil
}

// Unlike — идемпотентная отмена лайка; если клиент не лайкал — ничего не меняется.
// ErrNotFound — сообщения нет.
func (s *Service) Unlike(ctx context.Context, id, clientID string) (int64, error) {
	const op = "service/likes/Unlike"

	id, clientID = normalizeID(id), strings.TrimSpace(clientID)
	lg := log.From(ctx).With("op", op, "id", id)

	if id == "" || clientID == "" || len(clientID) > maxClientIDLen {
		lg.Warn("invalid argument: empty id or client id")
		return 0, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	likes, err := s.storage.RemoveLike(ctx, id, clientID)
	s.metrics.Like("unlike", err)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("message not found")
			return 0, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on RemoveLike", "err", err)
		return 0, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return likes, nil
}
