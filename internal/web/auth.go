package web

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/client"
	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/guard"
	"github.com/sidereusnuntius/wikifront/internal/service"
	"github.com/sidereusnuntius/wikifront/internal/validate"
	"github.com/sidereusnuntius/wikifront/internal/web/views"
)

func GetLogin(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from := r.URL.Query().Get("from")
		if h.Session.State().IsAuthenticated {
			http.Redirect(w, r, guard.ReturnPath(from), http.StatusSeeOther)
			return
		}
		h.renderLogin(w, r, views.LoginData{From: from}, 0)
	}
}

func Login(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := r.ParseForm(); err != nil {
			h.renderLogin(w, r, views.LoginData{Error: "Failed to read the form."}, http.StatusBadRequest)
			return
		}

		form := parseLoginForm(r)
		data := views.LoginData{From: form.From, Username: form.Username}
		if errs := validate.Struct(form); errs != nil {
			data.Errors = errs
			h.renderLogin(w, r, data, http.StatusUnprocessableEntity)
			return
		}

		st, err := h.Session.Login(ctx, domain.Credentials{Username: form.Username, Password: form.Password})
		if err != nil {
			status := GetCode(err)
			switch {
			case errors.Is(err, service.ErrUnavailable):
				data.Error = "The wiki could not be reached. Try again later."
			case status == http.StatusUnauthorized, status == http.StatusBadRequest:
				data.Error = client.Detail(err, "Invalid username or password.")
			default:
				log.Error().Err(err).Str("username", form.Username).Msg("login failed")
				data.Error = client.Detail(err, "Could not log in.")
			}
			h.renderLogin(w, r, data, status)
			return
		}

		msg := "Logged in."
		if st.User != nil {
			msg = "Welcome back, " + st.User.Username + "."
		}
		log.Info().Str("username", form.Username).Msg("user logged in")
		h.redirect(w, r, guard.ReturnPath(form.From), views.FlashInfo, msg)
	}
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, data views.LoginData, status int) {
	h.render(w, r, page{
		title:  "Log in",
		place:  views.Auth,
		status: status,
		child:  views.Login(data),
	})
}

// Logout ends the session. The token is forgotten even if the wiki could not be told.
func Logout(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.Session.Logout(r.Context()); err != nil {
			log.Warn().Err(err).Msg("logout was not acknowledged by the API")
			h.redirect(w, r, "/", views.FlashInfo, "You have been logged out on this device, but the wiki could not be reached.")
			return
		}
		h.redirect(w, r, "/", views.FlashInfo, "You have been logged out.")
	}
}

func Forbidden(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, page{
			title:  "Forbidden",
			place:  views.PlaceMessage,
			status: http.StatusForbidden,
			child:  views.Message("Forbidden", "You do not have permission to see this page.", "/", "Back to the main page"),
		})
	}
}

func NotFound(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, page{
			title:  "Not found",
			place:  views.PlaceMessage,
			status: http.StatusNotFound,
			child:  views.Message("Not found", "There is nothing here.", "/", "Back to the main page"),
		})
	}
}

// LoadingPage is shown by the route guard until the session is resolved.
func LoadingPage(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, page{
			title: "Loading",
			place: views.PlaceMessage,
			child: views.Loading(),
		})
	}
}
