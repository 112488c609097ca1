package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/internal/storage"
	"github.com/pribylovaa/wedding-guestbook/internal/validation"
	"github.com/pribylovaa/wedding-guestbook/pkg/log"
	"github.com/pribylovaa/wedding-guestbook/pkg/redact"
)

// SubmitInput — сырой ввод гостя. Статус от клиента не принимается вовсе.
type SubmitInput struct {
	GuestName  string
	GuestEmail string
	Message    string
}

// Submit — приём сообщения гостя.
//
// Поведение/ошибки:
//   - *ValidationError (errors.Is(err, ErrValidation)) — перечень всех нарушенных полей;
//   - сообщение всегда сохраняется в статусе pending;
//   - ErrInternal — прочие ошибки стораджа.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.GuestMessage, error) {
	const op = "service/messages/Submit"

	lg := log.From(ctx).With(
		"op", op,
		"guest_name", redact.Name(in.GuestName),
		"guest_email", redact.Email(in.GuestEmail),
	)

	normalized, err := s.validator.Validate(validation.Input{
		GuestName:  in.GuestName,
		GuestEmail: in.GuestEmail,
		Message:    in.Message,
	})
	if err != nil {
		s.metrics.Submission(err)

		var verr *validation.Error
		if errors.As(err, &verr) {
			lg.Warn("validation failed", "fields", len(verr.Fields))
			return nil, fmt.Errorf("%s: %w", op, &ValidationError{Fields: verr.Fields})
		}

		lg.Error("validator error", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	msg, err := s.storage.CreateMessage(ctx, models.GuestMessage{
		GuestName:  normalized.GuestName,
		GuestEmail: normalized.GuestEmail,
		Message:    normalized.Message,
		Status:     models.StatusPending,
	})
	s.metrics.Submission(err)
	if err != nil {
		lg.Error("storage error on CreateMessage", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	lg.Info("message submitted", "id", msg.ID)

	return msg, nil
}

// MessageByID — полная карточка сообщения (включая liked_by и поля модерации) для оператора.
func (s *Service) MessageByID(ctx context.Context, operator *models.Operator, id string) (*models.GuestMessage, error) {
	const op = "service/messages/MessageByID"

	id = normalizeID(id)
	lg := log.From(ctx).With("op", op, "id", id, "operator_id", operatorID(operator))

	if err := authorize(operator); err != nil {
		lg.Warn("unauthorized", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if id == "" {
		lg.Warn("invalid argument: empty id")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	msg, err := s.storage.MessageByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("message not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on MessageByID", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return msg, nil
}
