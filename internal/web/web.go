// Package web serves the pages of the wiki frontend.
package web

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/alexedwards/scs"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/auth"
	"github.com/sidereusnuntius/wikifront/internal/config"
	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/guard"
	"github.com/sidereusnuntius/wikifront/internal/service"
	"github.com/sidereusnuntius/wikifront/internal/web/views"
)

const (
	RegisterRoute = "/register"
	LogoutRoute   = "/logout"
	ArticlesPath  = "/articles"
)

// MaxMemory is the part of a multipart form kept in memory; the rest goes to temporary files.
const MaxMemory = 64 * 1024

type Handler struct {
	Config         *config.Configuration
	service        service.Service
	Session        *auth.Session
	Guard          *guard.Guard
	SessionManager *scs.Manager
}

func New(config *config.Configuration, service service.Service, session *auth.Session, manager *scs.Manager) *Handler {
	h := &Handler{
		Config:         config,
		service:        service,
		Session:        session,
		SessionManager: manager,
	}
	h.Guard = guard.New(session, LoadingPage(h))
	return h
}

// page is what a handler contributes to the layout.
type page struct {
	title  string
	place  views.Place
	hrefs  map[views.Place]string
	status int
	// flash, if set, is shown instead of the stored flash message.
	flash *views.Flash
	child templ.Component
}

// render writes p inside the layout, filled in with the authentication state and the pending flash message.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, p page) {
	ctx := r.Context()
	st := h.Session.State()

	data := views.PageData{
		Authenticated: st.IsAuthenticated,
		Permissions:   st.Permissions,
		PageTitle:     p.title,
		Place:         p.place,
		Hrefs:         p.hrefs,
		Flash:         p.flash,
		Path:          r.URL,
		Child:         p.child,
	}
	if st.User != nil {
		data.Username = st.User.Username
	}
	if data.Flash == nil {
		data.Flash = h.popFlash(w, r)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if p.status != 0 {
		w.WriteHeader(p.status)
	}
	recordPage(ctx, p.place, p.status)
	if err := views.Layout(data).Render(ctx, w); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to render page")
	}
}

// articleTabs links the tabs of an article page, leaving out the editor for users who may not edit.
func (h *Handler) articleTabs(id domain.ID, branch string) map[views.Place]string {
	hrefs := map[views.Place]string{
		views.Read:     views.ArticlePath(id, branch, ""),
		views.History:  views.ArticlePath(id, branch, "/history"),
		views.Branches: views.ArticlePath(id, "", "/branches"),
	}
	if h.can(domain.CanEdit) {
		hrefs[views.Edit] = views.ArticlePath(id, branch, "/edit")
	}
	return hrefs
}

func (h *Handler) can(perm domain.Permission) bool {
	return h.Session.State().Permissions.Has(perm)
}

// currentUser returns the id of the logged in user, or the nil id.
func (h *Handler) currentUser() domain.ID {
	if u := h.Session.State().User; u != nil {
		return u.ID
	}
	return domain.NilID
}
