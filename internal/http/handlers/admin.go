package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/wedding-guestbook/internal/auth"
	apierrors "github.com/pribylovaa/wedding-guestbook/internal/errors"
	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/internal/service"
)

// AdminListMessages — выдача для оператора с фильтром по статусу (по умолчанию approved).
func (h *Handlers) AdminListMessages(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	page, err := h.Service.List(r.Context(), auth.OperatorFrom(r.Context()), f)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := AdminListResponse{
		Messages:      make([]AdminMessage, 0, len(page.Items)),
		Total:         page.Total,
		NextPageToken: page.NextPageToken,
	}
	for i := range page.Items {
		out.Messages = append(out.Messages, toAdminMessage(&page.Items[i]))
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) AdminGetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.Service.MessageByID(r.Context(), auth.OperatorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AdminMessageResponse{Message: toAdminMessage(msg)})
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Service.Stats(r.Context(), auth.OperatorFrom(r.Context()))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toStats(st))
}

func (h *Handlers) ModerateMessage(w http.ResponseWriter, r *http.Request) {
	var in ModerateRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	err := h.Service.Moderate(r.Context(), service.ModerateInput{
		Operator: auth.OperatorFrom(r.Context()),
		ID:       chi.URLParam(r, "id"),
		Action:   models.Action(in.Action),
		Note:     in.Note,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// BulkModerate — 200, если все id обработаны успешно, иначе 207 с перечнем отказов.
func (h *Handlers) BulkModerate(w http.ResponseWriter, r *http.Request) {
	var in BulkModerateRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	res, err := h.Service.BulkModerate(r.Context(), service.BulkModerateInput{
		Operator: auth.OperatorFrom(r.Context()),
		IDs:      in.IDs,
		Action:   models.Action(in.Action),
		Note:     in.Note,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := BulkModerateResponse{Successful: res.Successful, Failed: make([]BulkFailure, 0, len(res.Failed))}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, BulkFailure{ID: f.ID, Reason: f.Reason})
	}

	status := http.StatusOK
	if len(out.Failed) > 0 {
		status = http.StatusMultiStatus
	}

	writeJSON(w, status, out)
}

func (h *Handlers) HighlightMessage(w http.ResponseWriter, r *http.Request) {
	var in HighlightRequest
	if err := decodeStrict(w, r, &in); err != nil || in.Highlighted == nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	msg, err := h.Service.SetHighlighted(r.Context(), service.HighlightInput{
		Operator:    auth.OperatorFrom(r.Context()),
		ID:          chi.URLParam(r, "id"),
		Highlighted: *in.Highlighted,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AdminMessageResponse{Message: toAdminMessage(msg)})
}
