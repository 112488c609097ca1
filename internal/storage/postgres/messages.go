package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/internal/storage"
)

const messageColumns = `id, guest_name, guest_email, message, status, is_highlighted, likes, liked_by,
	submitted_at, moderated_at, moderated_by, moderator_note`

// scanMessage читает строку в порядке messageColumns.
func scanMessage(row pgx.Row) (*models.GuestMessage, error) {
	var (
		msg    models.GuestMessage
		id     uuid.UUID
		status string
	)

	err := row.Scan(
		&id,
		&msg.GuestName,
		&msg.GuestEmail,
		&msg.Message,
		&status,
		&msg.IsHighlighted,
		&msg.Likes,
		&msg.LikedBy,
		&msg.SubmittedAt,
		&msg.ModeratedAt,
		&msg.ModeratedBy,
		&msg.ModeratorNote,
	)
	if err != nil {
		return nil, err
	}

	msg.ID = id.String()
	msg.Status = models.Status(status)
	msg.SubmittedAt = msg.SubmittedAt.UTC()
	if msg.ModeratedAt != nil {
		at := msg.ModeratedAt.UTC()
		msg.ModeratedAt = &at
	}
	if msg.LikedBy == nil {
		msg.LikedBy = []string{}
	}

	return &msg, nil
}

// parseID — некорректный UUID трактуется как «нет такой записи».
func parseID(op, id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return parsed, nil
}

// wrapErr переводит ошибки pgx в ошибки хранилища: нет строки — ErrNotFound,
// нарушение CHECK или неприводимое значение — ErrInvalidArgument.
func wrapErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.CheckViolation, pgerrcode.InvalidTextRepresentation, pgerrcode.StringDataRightTruncationDataException:
			return fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// CreateMessage вставляет сообщение в статусе pending; id — UUIDv4, submitted_at — now (мс, UTC).
func (s *Storage) CreateMessage(ctx context.Context, msg models.GuestMessage) (*models.GuestMessage, error) {
	const op = "storage.postgres.CreateMessage"

	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)

	out, err := scanMessage(s.db.QueryRow(ctx, `
	INSERT INTO guest_messages (id, guest_name, guest_email, message, status, submitted_at)
	VALUES ($1, $2, $3, $4, 'pending', $5)
	RETURNING `+messageColumns,
		id, msg.GuestName, msg.GuestEmail, msg.Message, now))
	if err != nil {
		return nil, wrapErr(op, err)
	}

	return out, nil
}

// MessageByID возвращает сообщение по идентификатору или storage.ErrNotFound.
func (s *Storage) MessageByID(ctx context.Context, id string) (*models.GuestMessage, error) {
	const op = "storage.postgres.MessageByID"

	parsed, err := parseID(op, id)
	if err != nil {
		return nil, err
	}

	out, err := scanMessage(s.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM guest_messages WHERE id = $1`, parsed))
	if err != nil {
		return nil, wrapErr(op, err)
	}

	return out, nil
}

// ListMessages — фильтр по статусу и ILIKE-поиску по имени или тексту, сортировка по q.SortBy,
// LIMIT/OFFSET из нормализованного запроса.
func (s *Storage) ListMessages(ctx context.Context, q models.ListQuery) (*models.Page, error) {
	const op = "storage.postgres.ListMessages"

	where, args := listWhere(q)

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM guest_messages`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("%s: count: %w", op, err)
	}

	query := `SELECT ` + messageColumns + ` FROM guest_messages` + where + ` ORDER BY ` + orderBy(q.SortBy)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	args = append(args, q.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	items := make([]models.GuestMessage, 0, q.Limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		items = append(items, *msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return &models.Page{Items: items, Total: total}, nil
}

func listWhere(q models.ListQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if q.Status != models.FilterAll {
		args = append(args, string(q.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		conds = append(conds, fmt.Sprintf("(guest_name ILIKE $%[1]d OR message ILIKE $%[1]d)", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike экранирует метасимволы LIKE (\ — escape по умолчанию в PostgreSQL).
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func orderBy(by models.SortBy) string {
	switch by {
	case models.SortOldest:
		return "submitted_at ASC, id ASC"
	case models.SortMostLiked:
		return "likes DESC, submitted_at DESC, id DESC"
	default:
		return "submitted_at DESC, id DESC"
	}
}

// UpdateStatus выставляет статус и метаданные модерации.
func (s *Storage) UpdateStatus(ctx context.Context, id string, status models.Status, mod models.Moderation) (*models.GuestMessage, error) {
	const op = "storage.postgres.UpdateStatus"

	parsed, err := parseID(op, id)
	if err != nil {
		return nil, err
	}

	out, err := scanMessage(s.db.QueryRow(ctx, `
	UPDATE guest_messages
	SET status = $2, moderated_at = $3, moderated_by = $4, moderator_note = $5
	WHERE id = $1
	RETURNING `+messageColumns,
		parsed, string(status), mod.At.UTC().Truncate(time.Millisecond), mod.By, mod.Note))
	if err != nil {
		return nil, wrapErr(op, err)
	}

	return out, nil
}

func (s *Storage) SetHighlighted(ctx context.Context, id string, highlighted bool) (*models.GuestMessage, error) {
	const op = "storage.postgres.SetHighlighted"

	parsed, err := parseID(op, id)
	if err != nil {
		return nil, err
	}

	out, err := scanMessage(s.db.QueryRow(ctx, `
	UPDATE guest_messages SET is_highlighted = $2 WHERE id = $1
	RETURNING `+messageColumns, parsed, highlighted))
	if err != nil {
		return nil, wrapErr(op, err)
	}

	return out, nil
}

func (s *Storage) DeleteMessage(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteMessage"

	parsed, err := parseID(op, id)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM guest_messages WHERE id = $1`, parsed)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// AddLike — один условный UPDATE: клиент дописывается, только если сообщение одобрено
// и его ещё нет в liked_by. Конкурентные UPDATE одной строки перепроверяют WHERE.
func (s *Storage) AddLike(ctx context.Context, id, clientID string) (int64, error) {
	const op = "storage.postgres.AddLike"

	parsed, err := parseID(op, id)
	if err != nil {
		return 0, err
	}

	var likes int64
	err = s.db.QueryRow(ctx, `
	UPDATE guest_messages
	SET liked_by = array_append(liked_by, $2), likes = cardinality(liked_by) + 1
	WHERE id = $1 AND status = 'approved' AND NOT ($2 = ANY(liked_by))
	RETURNING likes`, parsed, clientID).Scan(&likes)
	if err == nil {
		return likes, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	status, likes, err := s.likeState(ctx, parsed)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if status != models.StatusApproved {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrNotApproved)
	}

	return likes, nil
}

// RemoveLike — симметрично AddLike: array_remove только если клиент есть в liked_by.
func (s *Storage) RemoveLike(ctx context.Context, id, clientID string) (int64, error) {
	const op = "storage.postgres.RemoveLike"

	parsed, err := parseID(op, id)
	if err != nil {
		return 0, err
	}

	var likes int64
	err = s.db.QueryRow(ctx, `
	UPDATE guest_messages
	SET liked_by = array_remove(liked_by, $2), likes = cardinality(array_remove(liked_by, $2))
	WHERE id = $1 AND $2 = ANY(liked_by)
	RETURNING likes`, parsed, clientID).Scan(&likes)
	if err == nil {
		return likes, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	_, likes, err = s.likeState(ctx, parsed)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return likes, nil
}

func (s *Storage) likeState(ctx context.Context, id uuid.UUID) (models.Status, int64, error) {
	var (
		status string
		likes  int64
	)

	err := s.db.QueryRow(ctx, `SELECT status, likes FROM guest_messages WHERE id = $1`, id).Scan(&status, &likes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, storage.ErrNotFound
		}
		return "", 0, err
	}

	return models.Status(status), likes, nil
}

// Stats — один проход по таблице с агрегатами FILTER.
func (s *Storage) Stats(ctx context.Context) (*models.Stats, error) {
	const op = "storage.postgres.Stats"

	var st models.Stats
	err := s.db.QueryRow(ctx, `
	SELECT
		count(*),
		count(*) FILTER (WHERE status = 'approved'),
		count(*) FILTER (WHERE status = 'pending'),
		count(*) FILTER (WHERE status = 'rejected'),
		COALESCE(sum(likes) FILTER (WHERE status = 'approved'), 0)::bigint
	FROM guest_messages`).Scan(
		&st.TotalMessages,
		&st.ApprovedMessages,
		&st.PendingMessages,
		&st.RejectedMessages,
		&st.TotalLikes,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	st.ApprovalRate = storage.ApprovalRate(st.ApprovedMessages, st.TotalMessages)

	return &st, nil
}
