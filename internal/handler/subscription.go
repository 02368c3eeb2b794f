package handler

import (
	"net/http"

	internal_errors "github.com/itchan-dev/newsletter/internal/errors"
	"github.com/itchan-dev/newsletter/internal/utils"
)

const maxFormBytes = 64 << 10

// Subscribe handles POST /subscriptions with a url-encoded {name, email} form.
// The subscription token is returned as the response body.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		utils.WriteErrorAndStatusCode(w, internal_errors.Validation("Form is invalid"))
		return
	}

	token, err := h.subscription.Subscribe(r.Context(), r.PostForm.Get("name"), r.PostForm.Get("email"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(token))
}

// Confirm handles GET /subscriptions/confirm?subscription_token=...
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("subscription_token")
	if err := h.subscription.Confirm(r.Context(), token); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
