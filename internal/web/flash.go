package web

import (
	"encoding/gob"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/web/views"
)

const FlashKey = "flash"

func init() {
	gob.Register(views.Flash{})
}

// flash stores a message to be shown on the next page rendered for this browser.
func (h *Handler) flash(w http.ResponseWriter, r *http.Request, kind, message string) {
	s := h.SessionManager.Load(r)
	if err := s.PutObject(w, FlashKey, views.Flash{Kind: kind, Message: message}); err != nil {
		log.Error().Err(err).Msg("failed to store flash message")
	}
}

func (h *Handler) popFlash(w http.ResponseWriter, r *http.Request) *views.Flash {
	s := h.SessionManager.Load(r)
	exists, err := s.Exists(FlashKey)
	if err != nil || !exists {
		return nil
	}

	var f views.Flash
	if err = s.PopObject(w, FlashKey, &f); err != nil {
		log.Error().Err(err).Msg("failed to read flash message")
		return nil
	}
	return &f
}

// redirect sends the browser to path with a flash message.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, path, kind, message string) {
	if message != "" {
		h.flash(w, r, kind, message)
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}
