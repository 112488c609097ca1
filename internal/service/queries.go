package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/pkg/log"
)

// maxSearchLen — ограничение длины поисковой строки в байтах.
const maxSearchLen = 200

// List возвращает страницу сообщений.
//
// Правила:
//   - пустой статус — approved; анонимный зритель видит только approved, запрос другого
//     статуса без оператора — ErrUnauthenticated, оператор без права — ErrForbidden;
//   - пустая сортировка — newest; неизвестные статус/сортировка — ErrInvalidArgument;
//   - page_size приводится к [limits.default, limits.max]; битый или чужой page_token — ErrInvalidCursor;
//   - NextPageToken пуст, если страница последняя.
func (s *Service) List(ctx context.Context, viewer *models.Operator, f models.Filters) (*models.Page, error) {
	const op = "service/queries/List"

	lg := log.From(ctx).With(
		"op", op,
		"status", string(f.Status),
		"sort_by", string(f.SortBy),
		"page_size", f.PageSize,
	)

	q, err := s.normalizeFilters(viewer, f)
	if err != nil {
		lg.Warn("invalid list request", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	page, err := s.storage.ListMessages(ctx, q)
	if err != nil {
		lg.Error("storage error on ListMessages", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if next := q.Offset + int64(len(page.Items)); len(page.Items) > 0 && next < page.Total {
		page.NextPageToken = encodePageToken(next, q)
	}

	return page, nil
}

// Stats — агрегаты по всей гостевой книге; только для оператора.
func (s *Service) Stats(ctx context.Context, operator *models.Operator) (*models.Stats, error) {
	const op = "service/queries/Stats"

	lg := log.From(ctx).With("op", op, "operator_id", operatorID(operator))

	if err := authorize(operator); err != nil {
		lg.Warn("unauthorized", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	st, err := s.storage.Stats(ctx)
	if err != nil {
		lg.Error("storage error on Stats", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return st, nil
}

func (s *Service) normalizeFilters(viewer *models.Operator, f models.Filters) (models.ListQuery, error) {
	q := models.ListQuery{
		Status: models.StatusFilter(strings.TrimSpace(string(f.Status))),
		SortBy: models.SortBy(strings.TrimSpace(string(f.SortBy))),
		Search: strings.TrimSpace(f.Search),
		Limit:  s.limitOrDefault(f.PageSize),
	}

	if q.Status == "" {
		q.Status = models.FilterApproved
	}

	switch q.Status {
	case models.FilterApproved:
	case models.FilterAll, models.FilterPending, models.FilterRejected:
		if err := authorize(viewer); err != nil {
			return q, err
		}
	default:
		return q, ErrInvalidArgument
	}

	if q.SortBy == "" {
		q.SortBy = models.SortNewest
	}

	switch q.SortBy {
	case models.SortNewest, models.SortOldest, models.SortMostLiked:
	default:
		return q, ErrInvalidArgument
	}

	if len(q.Search) > maxSearchLen {
		return q, ErrInvalidArgument
	}

	if token := strings.TrimSpace(f.PageToken); token != "" {
		offset, err := decodePageToken(token, q)
		if err != nil {
			return q, ErrInvalidCursor
		}
		q.Offset = offset
	}

	return q, nil
}

// limitOrDefault приводит запрошенный размер страницы к [Default, Max].
func (s *Service) limitOrDefault(pageSize int32) int64 {
	lim := pageSize
	if lim <= 0 {
		lim = s.limits.Default
	}

	if lim > s.limits.Max {
		lim = s.limits.Max
	}

	return int64(lim)
}

// encodePageToken кодирует смещение и отпечаток фильтра в непрозрачный токен:
// токен, выданный под один фильтр, не принимается для другого.
func encodePageToken(offset int64, q models.ListQuery) string {
	raw := strconv.FormatInt(offset, 10) + "|" + filterFingerprint(q)

	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodePageToken декодирует токен обратно в смещение.
func decodePageToken(token string, q models.ListQuery) (int64, error) {
	res, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, err
	}

	parts := strings.SplitN(string(res), "|", 2)
	if len(parts) != 2 {
		return 0, errors.New("bad parts")
	}

	offset, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || offset < 0 {
		return 0, errors.New("bad offset")
	}

	if parts[1] != filterFingerprint(q) {
		return 0, errors.New("filter mismatch")
	}

	return offset, nil
}

func filterFingerprint(q models.ListQuery) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(string(q.Status) + "\x00" + string(q.SortBy) + "\x00" + strings.ToLower(q.Search)))

	return strconv.FormatUint(uint64(h.Sum32()), 36)
}
