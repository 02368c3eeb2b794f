package handler

import (
	"errors"
	"net/http"

	"github.com/itchan-dev/newsletter/internal/auth"
	"github.com/itchan-dev/newsletter/internal/domain"
	internal_errors "github.com/itchan-dev/newsletter/internal/errors"
	"github.com/itchan-dev/newsletter/internal/utils"
)

const maxNewsletterBytes = 1 << 20

type newsletterRequest struct {
	Subject string `json:"subject" validate:"required"`
	Content string `json:"content" validate:"required"`
	Format  string `json:"format" validate:"omitempty,oneof=html markdown"`
}

// PublishNewsletter handles POST /newsletter. Credentials are parsed before
// the body is read; the delivery report is returned as JSON on 200 and 502.
func (h *Handler) PublishNewsletter(w http.ResponseWriter, r *http.Request) {
	creds, err := auth.ParseBasicAuth(r.Header.Get("Authorization"))
	if err != nil {
		writeUnauthorized(w, err)
		return
	}

	var body newsletterRequest
	if err := utils.DecodeValidate(http.MaxBytesReader(w, r.Body, maxNewsletterBytes), &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	issue := domain.NewsletterIssue{
		Subject: body.Subject,
		Content: body.Content,
		Format:  domain.ContentFormat(body.Format),
	}
	report, err := h.newsletter.Publish(r.Context(), creds, issue)
	switch {
	case err == nil:
		utils.WriteJSON(w, http.StatusOK, report)
	case errors.Is(err, internal_errors.ErrPartialDelivery):
		utils.WriteJSON(w, internal_errors.StatusCode(err), report)
	case errors.Is(err, internal_errors.ErrUnauthorized):
		writeUnauthorized(w, err)
	default:
		utils.WriteErrorAndStatusCode(w, err)
	}
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", auth.Challenge())
	utils.WriteErrorAndStatusCode(w, err)
}
