package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/internal/storage"
	"github.com/pribylovaa/wedding-guestbook/pkg/log"
)

// Причины отказа по элементу пакетной модерации.
const (
	ReasonNotFound        = "NotFound"
	ReasonInvalidArgument = "InvalidArgument"
	ReasonInternal        = "Internal"
)

// ModerateInput — одно действие оператора над одним сообщением.
type ModerateInput struct {
	Operator *models.Operator
	ID       string
	Action   models.Action
	Note     *string
}

// BulkModerateInput — одно действие над набором сообщений.
type BulkModerateInput struct {
	Operator *models.Operator
	IDs      []string
	Action   models.Action
	Note     *string
}

// HighlightInput — включение/выключение выделения сообщения.
type HighlightInput struct {
	Operator    *models.Operator
	ID          string
	Highlighted bool
}

// Moderate — переход модерации: approve/reject меняют статус и проставляют
// moderated_at/moderated_by/moderator_note; delete удаляет запись безвозвратно.
//
// Порядок проверок и ошибки:
//   - ErrUnauthenticated / ErrForbidden — до любых обращений к хранилищу;
//   - ErrInvalidArgument — неизвестное действие, пустой id, слишком длинная заметка;
//   - ErrNotFound — сообщения нет (в том числе уже удалено);
//   - ErrInternal — прочие ошибки стораджа.
//
// Повторная модерация в тот же статус разрешена и перезаписывает метаданные.
func (s *Service) Moderate(ctx context.Context, in ModerateInput) error {
	const op = "service/moderation/Moderate"

	in.ID = normalizeID(in.ID)
	lg := log.From(ctx).With(
		"op", op,
		"id", in.ID,
		"action", string(in.Action),
		"operator_id", operatorID(in.Operator),
	)

	if err := authorize(in.Operator); err != nil {
		lg.Warn("unauthorized", "err", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	note, err := s.checkAction(in.Action, in.Note)
	if err != nil {
		lg.Warn("invalid argument", "err", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	if in.ID == "" {
		lg.Warn("invalid argument: empty id")
		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if err := s.moderateOne(ctx, in.Operator, in.ID, in.Action, note); err != nil {
		if errors.Is(err, ErrNotFound) {
			lg.Warn("message not found")
		} else {
			lg.Error("moderation failed", "err", err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("message moderated")

	return nil
}

// BulkModerate применяет одно действие к набору id.
//
// Авторизация проверяется один раз до обработки: без прав не трогается ни одна запись.
// Дальше каждый id обрабатывается независимо; сбой одного не влияет на остальные.
// Дубликаты id схлопываются с сохранением порядка первого вхождения.
// Пустой набор или набор больше limits.bulk_max — ErrInvalidArgument.
func (s *Service) BulkModerate(ctx context.Context, in BulkModerateInput) (*models.BulkResult, error) {
	const op = "service/moderation/BulkModerate"

	lg := log.From(ctx).With(
		"op", op,
		"action", string(in.Action),
		"count", len(in.IDs),
		"operator_id", operatorID(in.Operator),
	)

	if err := authorize(in.Operator); err != nil {
		lg.Warn("unauthorized", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	note, err := s.checkAction(in.Action, in.Note)
	if err != nil {
		lg.Warn("invalid argument", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := dedupe(in.IDs)
	if len(ids) == 0 || len(ids) > s.limits.BulkMax {
		lg.Warn("invalid argument: batch size", "unique", len(ids), "max", s.limits.BulkMax)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	res := &models.BulkResult{Failed: []models.BulkFailure{}}
	for _, id := range ids {
		if id == "" {
			res.Failed = append(res.Failed, models.BulkFailure{ID: id, Reason: ReasonInvalidArgument})
			continue
		}

		if err := s.moderateOne(ctx, in.Operator, id, in.Action, note); err != nil {
			reason := ReasonInternal
			switch {
			case errors.Is(err, ErrNotFound):
				reason = ReasonNotFound
			case errors.Is(err, ErrInvalidArgument):
				reason = ReasonInvalidArgument
			default:
				lg.Error("bulk item failed", "id", id, "err", err)
			}

			res.Failed = append(res.Failed, models.BulkFailure{ID: id, Reason: reason})
			continue
		}

		res.Successful++
	}

	lg.Info("bulk moderation done", "successful", res.Successful, "failed", len(res.Failed))

	return res, nil
}

// SetHighlighted — выделение сообщения оператором (на статус не влияет).
func (s *Service) SetHighlighted(ctx context.Context, in HighlightInput) (*models.GuestMessage, error) {
	const op = "service/moderation/SetHighlighted"

	in.ID = normalizeID(in.ID)
	lg := log.From(ctx).With("op", op, "id", in.ID, "highlighted", in.Highlighted, "operator_id", operatorID(in.Operator))

	if err := authorize(in.Operator); err != nil {
		lg.Warn("unauthorized", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.ID == "" {
		lg.Warn("invalid argument: empty id")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	msg, err := s.storage.SetHighlighted(ctx, in.ID, in.Highlighted)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("message not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on SetHighlighted", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return msg, nil
}

// checkAction проверяет действие и нормализует заметку: пробелы обрезаются, пустая — nil.
func (s *Service) checkAction(action models.Action, note *string) (*string, error) {
	if !action.Valid() {
		return nil, ErrInvalidArgument
	}

	if note == nil {
		return nil, nil
	}

	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil, nil
	}

	if utf8.RuneCountInString(trimmed) > s.limits.MessageMaxLen {
		return nil, ErrInvalidArgument
	}

	return &trimmed, nil
}

// moderateOne — применение проверенного действия к одному id; ошибки уже сервисные.
func (s *Service) moderateOne(ctx context.Context, operator *models.Operator, id string, action models.Action, note *string) error {
	var err error

	switch action {
	case models.ActionDelete:
		err = s.storage.DeleteMessage(ctx, id)
	case models.ActionApprove, models.ActionReject:
		status := models.StatusApproved
		if action == models.ActionReject {
			status = models.StatusRejected
		}

		_, err = s.storage.UpdateStatus(ctx, id, status, models.Moderation{
			At:   s.now().UTC(),
			By:   operator.ID,
			Note: note,
		})
	default:
		return ErrInvalidArgument
	}

	s.metrics.Moderation(string(action), err)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrInvalidArgument):
		return ErrInvalidArgument
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		id = normalizeID(id)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
