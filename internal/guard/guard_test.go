package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sidereusnuntius/wikifront/internal/auth"
	"github.com/sidereusnuntius/wikifront/internal/domain"
)

type fixedState auth.State

func (f fixedState) State() auth.State {
	return auth.State(f)
}

var (
	editor = &domain.PermissionSet{Role: "editor", CanEdit: true}
	user   = &domain.User{Username: "galileo"}
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name     string
		state    auth.State
		required []domain.Permission
		expected Decision
	}{
		{"loading", auth.State{IsLoading: true, IsAuthenticated: true}, nil, Loading},
		{"anonymous", auth.State{}, nil, Unauthenticated},
		{"anonymous with permission", auth.State{}, []domain.Permission{domain.CanEdit}, Unauthenticated},
		{"logged in", auth.State{User: user, IsAuthenticated: true}, nil, Authorized},
		{"granted", auth.State{User: user, Permissions: editor, IsAuthenticated: true}, []domain.Permission{domain.CanEdit}, Authorized},
		{"one missing", auth.State{User: user, Permissions: editor, IsAuthenticated: true}, []domain.Permission{domain.CanEdit, domain.CanDelete}, Forbidden},
		{"no permission set", auth.State{User: user, IsAuthenticated: true}, []domain.Permission{domain.CanEdit}, Forbidden},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if d := Evaluate(c.state, c.required...); d != c.expected {
				t.Errorf("expected %s, got %s", c.expected, d)
			}
		})
	}
}

func TestRequire(t *testing.T) {
	page := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("page"))
	})
	loading := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("loading"))
	})

	cases := []struct {
		name     string
		state    auth.State
		status   int
		location string
		body     string
	}{
		{"authorized", auth.State{User: user, Permissions: editor, IsAuthenticated: true}, http.StatusOK, "", "page"},
		{"loading", auth.State{IsLoading: true}, http.StatusOK, "", "loading"},
		{"anonymous", auth.State{}, http.StatusSeeOther, "/login?from=%2Farticles%2Fnew%3Ftitle%3DIo", ""},
		{"forbidden", auth.State{User: user, IsAuthenticated: true}, http.StatusSeeOther, ForbiddenRoute, ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := New(fixedState(c.state), loading).Require(domain.CanEdit)(page)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/articles/new?title=Io", nil))

			if w.Code != c.status {
				t.Errorf("expected status %d, got %d", c.status, w.Code)
			}
			if loc := w.Header().Get("Location"); loc != c.location {
				t.Errorf("expected location %q, got %q", c.location, loc)
			}
			if c.body != "" && w.Body.String() != c.body {
				t.Errorf("expected body %q, got %q", c.body, w.Body.String())
			}
			if c.name == "loading" && w.Header().Get("Refresh") == "" {
				t.Error("expected the loading page to refresh itself")
			}
		})
	}
}

func TestReturnPath(t *testing.T) {
	cases := map[string]string{
		"":                     "/",
		"/articles?search=io":  "/articles?search=io",
		"https://evil.example": "/",
		"//evil.example/x":     "/",
		"articles":             "/",
		"/\\evil.example":      "/",
		"/articles\\x":         "/",
		"/\t/evil.example":     "/",
		"/\n/evil.example":     "/",
	}
	for from, expected := range cases {
		if got := ReturnPath(from); got != expected {
			t.Errorf("ReturnPath(%q): expected %q, got %q", from, expected, got)
		}
	}
}
