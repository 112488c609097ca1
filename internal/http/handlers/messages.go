package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	apierrors "github.com/pribylovaa/wedding-guestbook/internal/errors"
	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/internal/service"
	logctx "github.com/pribylovaa/wedding-guestbook/pkg/log"
)

// HeaderClientID — анонимный идентификатор браузера гостя (лайки, likedByMe).
const HeaderClientID = "X-Client-Id"

func (h *Handlers) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var in SubmitRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	msg, err := h.Service.Submit(r.Context(), service.SubmitInput{
		GuestName:  in.GuestName,
		GuestEmail: in.GuestEmail,
		Message:    in.Message,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{Message: toMessage(msg, "")})
}

// ListMessages — публичная лента: только одобренные сообщения.
// Сбой хранилища не показывается гостю: 200 с пустой лентой и degraded=true.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	f.Status = models.FilterApproved

	page, err := h.Service.List(r.Context(), nil, f)
	if err != nil {
		if errors.Is(err, service.ErrInternal) {
			logctx.From(r.Context()).Warn("serving degraded public list", "err", err)
			writeJSON(w, http.StatusOK, ListResponse{Messages: []Message{}, Degraded: true})
			return
		}

		apierrors.WriteError(w, r, err)
		return
	}

	clientID := strings.TrimSpace(r.Header.Get(HeaderClientID))
	out := ListResponse{
		Messages:      make([]Message, 0, len(page.Items)),
		Total:         page.Total,
		NextPageToken: page.NextPageToken,
	}
	for i := range page.Items {
		out.Messages = append(out.Messages, toMessage(&page.Items[i], clientID))
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) LikeMessage(w http.ResponseWriter, r *http.Request) {
	h.like(w, r, h.Service.Like)
}

func (h *Handlers) UnlikeMessage(w http.ResponseWriter, r *http.Request) {
	h.like(w, r, h.Service.Unlike)
}

func (h *Handlers) like(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, clientID string) (int64, error)) {
	id := chi.URLParam(r, "id")

	var in LikeRequest
	if err := decodeOptional(w, r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	clientID := strings.TrimSpace(r.Header.Get(HeaderClientID))
	if clientID == "" {
		clientID = in.ClientID
	}

	likes, err := fn(r.Context(), id, clientID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LikeResponse{Likes: likes})
}

// parseFilters — общие параметры выдачи: search, sortBy, pageSize, pageToken (и status для админки).
func parseFilters(r *http.Request) (models.Filters, error) {
	q := r.URL.Query()

	f := models.Filters{
		Status:    models.StatusFilter(q.Get("status")),
		SortBy:    models.SortBy(q.Get("sortBy")),
		Search:    q.Get("search"),
		PageToken: q.Get("pageToken"),
	}

	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return f, service.ErrInvalidArgument
		}

		f.PageSize = int32(n)
	}

	return f, nil
}
