// Package models содержит доменные сущности guestbook-сервиса.
package models

import (
	"time"
)

// Status — состояние сообщения в жизненном цикле модерации.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid сообщает, является ли значение одним из трёх допустимых состояний.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// GuestMessage — сообщение гостевой книги.
// Важно:
//   - ID назначается хранилищем при создании и больше не меняется.
//   - Status при создании всегда pending, независимо от того, что прислал клиент.
//   - Likes всегда равен len(LikedBy); LikedBy не содержит дубликатов.
//   - ModeratedAt/ModeratedBy/ModeratorNote заполняются только переходом модерации.
//   - SubmittedAt хранится в UTC с точностью до миллисекунды.
type GuestMessage struct {
	ID            string
	GuestName     string
	GuestEmail    string
	Message       string
	Status        Status
	IsHighlighted bool
	Likes         int64
	LikedBy       []string
	SubmittedAt   time.Time
	ModeratedAt   *time.Time
	ModeratedBy   string
	ModeratorNote *string
}

// LikedByClient — есть ли clientID среди лайкнувших.
func (m *GuestMessage) LikedByClient(clientID string) bool {
	if clientID == "" {
		return false
	}

	for _, c := range m.LikedBy {
		if c == clientID {
			return true
		}
	}

	return false
}

// Moderation — метаданные перехода модерации.
type Moderation struct {
	At   time.Time
	By   string
	Note *string
}

// StatusFilter — фильтр выдачи по статусу. Пустое значение трактуется как approved.
type StatusFilter string

const (
	FilterAll      StatusFilter = "all"
	FilterApproved StatusFilter = "approved"
	FilterPending  StatusFilter = "pending"
	FilterRejected StatusFilter = "rejected"
)

// SortBy — порядок выдачи.
type SortBy string

const (
	SortNewest    SortBy = "newest"
	SortOldest    SortBy = "oldest"
	SortMostLiked SortBy = "mostLiked"
)

// Filters — параметры запроса списка сообщений (не хранится).
type Filters struct {
	Status    StatusFilter
	SortBy    SortBy
	Search    string
	PageSize  int32
	PageToken string
}

// ListQuery — нормализованный запрос к хранилищу: статус проверен, сортировка задана,
// размер страницы и смещение уже посчитаны сервисом.
type ListQuery struct {
	Status StatusFilter
	SortBy SortBy
	Search string
	Limit  int64
	Offset int64
}

// Page — результат постраничной выдачи.
// Total — число сообщений, подходящих под фильтр, до пагинации.
type Page struct {
	Items         []GuestMessage
	Total         int64
	NextPageToken string
}

// Stats — агрегаты по текущему содержимому хранилища, считаются на каждый запрос.
// TotalLikes — сумма лайков только одобренных сообщений.
type Stats struct {
	TotalMessages    int64
	ApprovedMessages int64
	PendingMessages  int64
	RejectedMessages int64
	TotalLikes       int64
	ApprovalRate     float64
}
