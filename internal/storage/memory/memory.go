// Package memory — хранилище сообщений в памяти процесса (driver=memory: локальный запуск и тесты).
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/internal/storage"
)

var _ storage.Storage = (*Memory)(nil)

// Memory хранит сообщения в map под одним мьютексом: каждая операция атомарна целиком.
type Memory struct {
	mu       sync.RWMutex
	messages map[string]*models.GuestMessage
	now      func() time.Time
}

// New создаёт пустое хранилище.
func New() *Memory {
	return &Memory{
		messages: make(map[string]*models.GuestMessage),
		now:      time.Now,
	}
}

// WithClock подменяет источник времени (для детерминированных тестов).
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) CreateMessage(_ context.Context, msg models.GuestMessage) (*models.GuestMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg.ID = uuid.NewString()
	msg.Status = models.StatusPending
	msg.IsHighlighted = false
	msg.Likes = 0
	msg.LikedBy = []string{}
	msg.SubmittedAt = m.now().UTC().Truncate(time.Millisecond)
	msg.ModeratedAt = nil
	msg.ModeratedBy = ""
	msg.ModeratorNote = nil

	stored := msg
	m.messages[msg.ID] = &stored

	return clone(&stored), nil
}

func (m *Memory) MessageByID(_ context.Context, id string) (*models.GuestMessage, error) {
	const op = "storage/memory/MessageByID"

	m.mu.RLock()
	defer m.mu.RUnlock()

	msg, ok := m.messages[id]
	if !ok {
		return nil, wrap(op, storage.ErrNotFound)
	}

	return clone(msg), nil
}

// ListMessages фильтрует, сортирует и режет выборку так же, как это делают mongo/postgres.
func (m *Memory) ListMessages(_ context.Context, q models.ListQuery) (*models.Page, error) {
	m.mu.RLock()
	matched := make([]*models.GuestMessage, 0, len(m.messages))
	for _, msg := range m.messages {
		if matches(msg, q) {
			matched = append(matched, clone(msg))
		}
	}
	m.mu.RUnlock()

	sortMessages(matched, q.SortBy)

	total := int64(len(matched))
	page := &models.Page{Items: []models.GuestMessage{}, Total: total}

	if q.Offset >= total {
		return page, nil
	}

	end := total
	if q.Limit > 0 && q.Offset+q.Limit < total {
		end = q.Offset + q.Limit
	}

	for _, msg := range matched[q.Offset:end] {
		page.Items = append(page.Items, *msg)
	}

	return page, nil
}

func (m *Memory) UpdateStatus(_ context.Context, id string, status models.Status, mod models.Moderation) (*models.GuestMessage, error) {
	const op = "storage/memory/UpdateStatus"

	if !status.Valid() {
		return nil, wrap(op, storage.ErrInvalidArgument)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[id]
	if !ok {
		return nil, wrap(op, storage.ErrNotFound)
	}

	at := mod.At.UTC().Truncate(time.Millisecond)
	msg.Status = status
	msg.ModeratedAt = &at
	msg.ModeratedBy = mod.By
	msg.ModeratorNote = copyString(mod.Note)

	return clone(msg), nil
}

func (m *Memory) SetHighlighted(_ context.Context, id string, highlighted bool) (*models.GuestMessage, error) {
	const op = "storage/memory/SetHighlighted"

	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[id]
	if !ok {
		return nil, wrap(op, storage.ErrNotFound)
	}

	msg.IsHighlighted = highlighted

	return clone(msg), nil
}

func (m *Memory) DeleteMessage(_ context.Context, id string) error {
	const op = "storage/memory/DeleteMessage"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.messages[id]; !ok {
		return wrap(op, storage.ErrNotFound)
	}

	delete(m.messages, id)

	return nil
}

func (m *Memory) AddLike(_ context.Context, id, clientID string) (int64, error) {
	const op = "storage/memory/AddLike"

	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[id]
	if !ok {
		return 0, wrap(op, storage.ErrNotFound)
	}

	if msg.Status != models.StatusApproved {
		return 0, wrap(op, storage.ErrNotApproved)
	}

	if !msg.LikedByClient(clientID) {
		msg.LikedBy = append(msg.LikedBy, clientID)
		msg.Likes = int64(len(msg.LikedBy))
	}

	return msg.Likes, nil
}

func (m *Memory) RemoveLike(_ context.Context, id, clientID string) (int64, error) {
	const op = "storage/memory/RemoveLike"

	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[id]
	if !ok {
		return 0, wrap(op, storage.ErrNotFound)
	}

	for i, c := range msg.LikedBy {
		if c == clientID {
			msg.LikedBy = append(msg.LikedBy[:i:i], msg.LikedBy[i+1:]...)
			msg.Likes = int64(len(msg.LikedBy))
			break
		}
	}

	return msg.Likes, nil
}

func (m *Memory) Stats(_ context.Context) (*models.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var st models.Stats
	for _, msg := range m.messages {
		st.TotalMessages++
		switch msg.Status {
		case models.StatusApproved:
			st.ApprovedMessages++
			st.TotalLikes += msg.Likes
		case models.StatusPending:
			st.PendingMessages++
		case models.StatusRejected:
			st.RejectedMessages++
		}
	}
	st.ApprovalRate = storage.ApprovalRate(st.ApprovedMessages, st.TotalMessages)

	return &st, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close(context.Context) error { return nil }

// matches — проверка статуса и подстрочного поиска без учёта регистра по имени или тексту.
func matches(msg *models.GuestMessage, q models.ListQuery) bool {
	if q.Status != models.FilterAll && string(msg.Status) != string(q.Status) {
		return false
	}

	if q.Search == "" {
		return true
	}

	needle := strings.ToLower(q.Search)

	return strings.Contains(strings.ToLower(msg.GuestName), needle) ||
		strings.Contains(strings.ToLower(msg.Message), needle)
}

// sortMessages: newest/oldest — по submitted_at с добором по id;
// mostLiked — по likes DESC, затем submitted_at DESC.
func sortMessages(items []*models.GuestMessage, by models.SortBy) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]

		switch by {
		case models.SortOldest:
			if !a.SubmittedAt.Equal(b.SubmittedAt) {
				return a.SubmittedAt.Before(b.SubmittedAt)
			}
			return a.ID < b.ID
		case models.SortMostLiked:
			if a.Likes != b.Likes {
				return a.Likes > b.Likes
			}
			if !a.SubmittedAt.Equal(b.SubmittedAt) {
				return a.SubmittedAt.After(b.SubmittedAt)
			}
			return a.ID > b.ID
		default:
			if !a.SubmittedAt.Equal(b.SubmittedAt) {
				return a.SubmittedAt.After(b.SubmittedAt)
			}
			return a.ID > b.ID
		}
	})
}

func clone(msg *models.GuestMessage) *models.GuestMessage {
	out := *msg
	out.LikedBy = append([]string{}, msg.LikedBy...)
	out.ModeratorNote = copyString(msg.ModeratorNote)

	if msg.ModeratedAt != nil {
		at := *msg.ModeratedAt
		out.ModeratedAt = &at
	}

	return &out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}

	v := *s
	return &v
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
