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

func GetRegister(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from := r.URL.Query().Get("from")
		if h.Session.State().IsAuthenticated {
			http.Redirect(w, r, guard.ReturnPath(from), http.StatusSeeOther)
			return
		}
		h.renderRegister(w, r, views.RegisterData{From: from}, 0)
	}
}

func Register(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			h.renderRegister(w, r, views.RegisterData{Error: "Failed to read the form."}, http.StatusBadRequest)
			return
		}

		form := parseRegisterForm(r)
		data := views.RegisterData{From: form.From, Username: form.Username, Email: form.Email}
		if errs := validate.Struct(form); errs != nil {
			data.Errors = errs
			h.renderRegister(w, r, data, http.StatusUnprocessableEntity)
			return
		}

		st, err := h.Session.Register(r.Context(), domain.Registration{
			Username: form.Username,
			Email:    form.Email,
			Password: form.Password,
		})
		if err != nil {
			if errors.Is(err, service.ErrUnavailable) {
				data.Error = "The wiki could not be reached. Try again later."
			} else {
				log.Warn().Err(err).Str("username", form.Username).Msg("registration failed")
				data.Error = client.Detail(err, "Could not create the account.")
			}
			h.renderRegister(w, r, data, GetCode(err))
			return
		}

		if !st.IsAuthenticated {
			h.redirect(w, r, guard.LoginPath(form.From), views.FlashInfo, "Your account was created. You can log in now.")
			return
		}
		log.Info().Str("username", form.Username).Msg("user registered")
		h.redirect(w, r, guard.ReturnPath(form.From), views.FlashInfo, "Welcome, "+form.Username+".")
	}
}

func (h *Handler) renderRegister(w http.ResponseWriter, r *http.Request, data views.RegisterData, status int) {
	h.render(w, r, page{
		title:  "Register",
		place:  views.PlaceSignup,
		status: status,
		child:  views.Register(data),
	})
}
