package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/wedding-guestbook/internal/errors"
	"github.com/pribylovaa/wedding-guestbook/internal/service"
)

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginRequest
	if err := decodeStrict(w, r, &in); err != nil || in.Username == "" || in.Password == "" {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	token, exp, err := h.Auth.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: exp})
}
