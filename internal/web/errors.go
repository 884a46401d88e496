package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/client"
	"github.com/sidereusnuntius/wikifront/internal/guard"
	"github.com/sidereusnuntius/wikifront/internal/service"
	"github.com/sidereusnuntius/wikifront/internal/web/views"
)

func GetCode(err error) int {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNoProfile):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusBadGateway
	case errors.As(err, &apiErr):
		return apiErr.Status
	default:
		return http.StatusInternalServerError
	}
}

// pageError answers a page that could not be loaded. A rejected token sends the browser to the login page,
// and a missing permission to the forbidden page; anything else is rendered as an error page.
func (h *Handler) pageError(w http.ResponseWriter, r *http.Request, err error, what string) {
	code := GetCode(err)
	switch code {
	case http.StatusUnauthorized:
		http.Redirect(w, r, guard.LoginPath(r.URL.RequestURI()), http.StatusSeeOther)
		return
	case http.StatusForbidden:
		http.Redirect(w, r, guard.ForbiddenRoute, http.StatusSeeOther)
		return
	case http.StatusNotFound:
		h.render(w, r, page{
			title:  "Not found",
			place:  views.PlaceMessage,
			status: http.StatusNotFound,
			child:  views.Message("Not found", "The "+what+" you are looking for does not exist.", "/", "Back to the main page"),
		})
		return
	}

	log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to load " + what)
	if code < http.StatusBadRequest {
		code = http.StatusInternalServerError
	}
	h.render(w, r, page{
		title:  "Error",
		place:  views.PlaceMessage,
		status: code,
		child:  views.Message("Something went wrong", client.Detail(err, "Could not load the "+what+"."), r.URL.RequestURI(), "Try again"),
	})
}

// mutationError answers a failed form submission: the browser is sent back to the page it came from, with the
// server's explanation, or fallback, as a flash message.
func (h *Handler) mutationError(w http.ResponseWriter, r *http.Request, err error, fallback, back string) {
	switch GetCode(err) {
	case http.StatusUnauthorized:
		h.redirect(w, r, guard.LoginPath(back), views.FlashError, "Your session has expired. Please log in again.")
		return
	case http.StatusForbidden:
		http.Redirect(w, r, guard.ForbiddenRoute, http.StatusSeeOther)
		return
	}

	log.Warn().Err(err).Str("path", r.URL.Path).Msg(fallback)
	h.redirect(w, r, back, views.FlashError, errorMessage(err, fallback))
}

// errorMessage is what the user is told about a failed mutation.
func errorMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, service.ErrUnavailable):
		return fallback + " The wiki could not be reached."
	case errors.Is(err, service.ErrInvalidInput):
		if _, reason, ok := strings.Cut(err.Error(), ": "); ok {
			return reason
		}
	}
	return client.Detail(err, fallback)
}
