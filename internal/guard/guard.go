// Package guard decides, on every request to a protected page, whether to render it, show a loading page,
// send the visitor to the login page or refuse them.
package guard

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/auth"
	"github.com/sidereusnuntius/wikifront/internal/domain"
)

const (
	LoginRoute     = "/login"
	ForbiddenRoute = "/forbidden"
)

type Decision int

const (
	Loading Decision = iota
	Authorized
	Unauthenticated
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Loading:
		return "loading"
	case Authorized:
		return "authorized"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

// Evaluate decides access to a page requiring every permission in required. A missing permission set grants
// nothing.
func Evaluate(st auth.State, required ...domain.Permission) Decision {
	switch {
	case st.IsLoading:
		return Loading
	case !st.IsAuthenticated:
		return Unauthenticated
	case !st.Permissions.HasAll(required...):
		return Forbidden
	}
	return Authorized
}

// Source provides the current authentication state. *auth.Session satisfies it.
type Source interface {
	State() auth.State
}

type Guard struct {
	source  Source
	loading http.Handler
}

// New returns a guard reading the state from source. loading renders the page shown while the state is not
// resolved yet; it is served with a Refresh header so that the browser retries shortly.
func New(source Source, loading http.Handler) *Guard {
	return &Guard{source: source, loading: loading}
}

// Require returns a middleware that lets through only authenticated users holding every one of perms. With
// no perms, being logged in is enough.
func (g *Guard) Require(perms ...domain.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Evaluate(g.source.State(), perms...)
			log.Debug().Str("path", r.URL.Path).Stringer("decision", d).Msg("route guard")

			switch d {
			case Authorized:
				next.ServeHTTP(w, r)
			case Loading:
				w.Header().Set("Refresh", "1")
				w.Header().Set("Cache-Control", "no-store")
				g.loading.ServeHTTP(w, r)
			case Unauthenticated:
				http.Redirect(w, r, LoginPath(r.URL.RequestURI()), http.StatusSeeOther)
			default:
				http.Redirect(w, r, ForbiddenRoute, http.StatusSeeOther)
			}
		})
	}
}

// LoginPath is the login page, remembering from as the page to return to.
func LoginPath(from string) string {
	if from == "" {
		return LoginRoute
	}
	return LoginRoute + "?" + url.Values{"from": {from}}.Encode()
}

// ReturnPath validates the from parameter of the login page, falling back to "/" for anything that is not a
// local path. Browsers read a backslash as a slash and drop tabs and newlines, so those are refused too.
func ReturnPath(from string) string {
	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") {
		return "/"
	}
	if strings.ContainsFunc(from, func(r rune) bool { return r == '\\' || r < 0x20 || r == 0x7f }) {
		return "/"
	}
	if u, err := url.Parse(from); err != nil || u.Host != "" {
		return "/"
	}
	return from
}
