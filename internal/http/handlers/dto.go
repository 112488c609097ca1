package handlers

import (
	"time"

	"github.com/pribylovaa/wedding-guestbook/internal/models"
)

// Message — публичное представление: без email гостя, списка лайкнувших и полей модерации.
// LikedByMe считается по X-Client-Id запроса.
type Message struct {
	ID            string    `json:"id"`
	GuestName     string    `json:"guestName"`
	Message       string    `json:"message"`
	Status        string    `json:"status"`
	IsHighlighted bool      `json:"isHighlighted"`
	Likes         int64     `json:"likes"`
	LikedByMe     bool      `json:"likedByMe"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// AdminMessage — полная карточка для оператора.
type AdminMessage struct {
	ID            string     `json:"id"`
	GuestName     string     `json:"guestName"`
	GuestEmail    string     `json:"guestEmail,omitempty"`
	Message       string     `json:"message"`
	Status        string     `json:"status"`
	IsHighlighted bool       `json:"isHighlighted"`
	Likes         int64      `json:"likes"`
	LikedBy       []string   `json:"likedBy"`
	SubmittedAt   time.Time  `json:"submittedAt"`
	ModeratedAt   *time.Time `json:"moderatedAt,omitempty"`
	ModeratedBy   string     `json:"moderatedBy,omitempty"`
	ModeratorNote *string    `json:"moderatorNote,omitempty"`
}

type SubmitRequest struct {
	GuestName  string `json:"guestName"`
	GuestEmail string `json:"guestEmail,omitempty"`
	Message    string `json:"message"`
}

type SubmitResponse struct {
	Message Message `json:"message"`
}

type ListResponse struct {
	Messages      []Message `json:"messages"`
	Total         int64     `json:"total"`
	NextPageToken string    `json:"nextPageToken"`
	Degraded      bool      `json:"degraded,omitempty"`
}

type AdminListResponse struct {
	Messages      []AdminMessage `json:"messages"`
	Total         int64          `json:"total"`
	NextPageToken string         `json:"nextPageToken"`
}

type AdminMessageResponse struct {
	Message AdminMessage `json:"message"`
}

type LikeRequest struct {
	ClientID string `json:"clientId"`
}

type LikeResponse struct {
	Likes int64 `json:"likes"`
}

type ModerateRequest struct {
	Action string  `json:"action"`
	Note   *string `json:"note,omitempty"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type BulkModerateRequest struct {
	IDs    []string `json:"ids"`
	Action string   `json:"action"`
	Note   *string  `json:"note,omitempty"`
}

type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type BulkModerateResponse struct {
	Successful int           `json:"successful"`
	Failed     []BulkFailure `json:"failed"`
}

type HighlightRequest struct {
	Highlighted *bool `json:"highlighted"`
}

type StatsResponse struct {
	TotalMessages    int64   `json:"totalMessages"`
	ApprovedMessages int64   `json:"approvedMessages"`
	PendingMessages  int64   `json:"pendingMessages"`
	RejectedMessages int64   `json:"rejectedMessages"`
	TotalLikes       int64   `json:"totalLikes"`
	ApprovalRate     float64 `json:"approvalRate"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toMessage(m *models.GuestMessage, clientID string) Message {
	return Message{
		ID:            m.ID,
		GuestName:     m.GuestName,
		Message:       m.Message,
		Status:        string(m.Status),
		IsHighlighted: m.IsHighlighted,
		Likes:         m.Likes,
		LikedByMe:     m.LikedByClient(clientID),
		SubmittedAt:   m.SubmittedAt,
	}
}

func toAdminMessage(m *models.GuestMessage) AdminMessage {
	likedBy := m.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}

	return AdminMessage{
		ID:            m.ID,
		GuestName:     m.GuestName,
		GuestEmail:    m.GuestEmail,
		Message:       m.Message,
		Status:        string(m.Status),
		IsHighlighted: m.IsHighlighted,
		Likes:         m.Likes,
		LikedBy:       likedBy,
		SubmittedAt:   m.SubmittedAt,
		ModeratedAt:   m.ModeratedAt,
		ModeratedBy:   m.ModeratedBy,
		ModeratorNote: m.ModeratorNote,
	}
}

func toStats(s *models.Stats) StatsResponse {
	return StatsResponse{
		TotalMessages:    s.TotalMessages,
		ApprovedMessages: s.ApprovedMessages,
		PendingMessages:  s.PendingMessages,
		RejectedMessages: s.RejectedMessages,
		TotalLikes:       s.TotalLikes,
		ApprovalRate:     s.ApprovalRate,
	}
}
