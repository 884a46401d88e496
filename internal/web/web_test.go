package web

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/alexedwards/scs"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sidereusnuntius/wikifront/internal/apitest"
	"github.com/sidereusnuntius/wikifront/internal/auth"
	"github.com/sidereusnuntius/wikifront/internal/client"
	"github.com/sidereusnuntius/wikifront/internal/config"
	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/state"
	"github.com/sidereusnuntius/wikifront/internal/storage"
)

const original = "Jupiter has\nfour moons.\nSaturn has rings.\n"

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

type fixture struct {
	api *apitest.Server
	st  *state.State
	srv *httptest.Server
	c   *http.Client
}

// setup serves the frontend against a fake API. The session is resolved, with nobody logged in.
func setup(t *testing.T) fixture {
	t.Helper()
	api := apitest.New()
	t.Cleanup(api.Close)

	base, err := url.Parse(api.APIURL())
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Configuration{ApiUrl: base, SessionKey: strings.Repeat("k", 32)}
	store := storage.NewMemory()
	st := state.FromStorage(cfg, store, client.New(base, http.DefaultClient, store), nil)
	t.Cleanup(func() { st.Close() })
	st.Session.Refresh(context.Background())

	srv := httptest.NewServer(newTestRouter(&st.Config, st, st.Session))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	c := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return fixture{api: api, st: st, srv: srv, c: c}
}

func newTestRouter(cfg *config.Configuration, st *state.State, session *auth.Session) http.Handler {
	h := New(cfg, st.Service, session, scs.NewCookieManager(cfg.SessionKey))
	r := chi.NewRouter()
	h.Mount(r)
	return r
}

func (f fixture) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	res, err := f.c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	return res, string(body)
}

func (f fixture) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	return f.do(t, req)
}

func (f fixture) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(t, req)
}

// login creates a user with the given role and logs in as them.
func (f fixture) login(t *testing.T, username, role string) domain.User {
	t.Helper()
	u := f.api.AddUser(username, "sidereus-nuncius", role)
	res, _ := f.post(t, "/login", url.Values{"username": {username}, "password": {"sidereus-nuncius"}})
	if res.StatusCode != http.StatusSeeOther {
		t.Fatalf("login failed with status %d", res.StatusCode)
	}
	return u
}

func expectRedirect(t *testing.T, res *http.Response, location string) {
	t.Helper()
	if res.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected a redirect, got status %d", res.StatusCode)
	}
	if got := res.Header.Get("Location"); got != location {
		t.Errorf("expected redirect to %q, got %q", location, got)
	}
}

func expectBody(t *testing.T, body string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		if !strings.Contains(body, f) {
			t.Errorf("expected the page to contain %q", f)
		}
	}
}

func TestGuardedRoutes(t *testing.T) {
	f := setup(t)

	cases := []struct {
		path     string
		location string
	}{
		{"/articles/new", "/login?from=%2Farticles%2Fnew"},
		{"/profile", "/login?from=%2Fprofile"},
		{"/users?q=gal", "/login?from=%2Fusers%3Fq%3Dgal"},
		{"/admin", "/login?from=%2Fadmin"},
	}
	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			res, _ := f.get(t, c.path)
			expectRedirect(t, res, c.location)
		})
	}
}

func TestLoadingPage(t *testing.T) {
	f := setup(t)
	unresolved := auth.New(f.st.Service)
	srv := httptest.NewServer(newTestRouter(&f.st.Config, f.st, unresolved))
	t.Cleanup(srv.Close)

	res, err := http.Get(srv.URL + "/articles/new")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)

	if res.StatusCode != http.StatusOK || res.Header.Get("Refresh") == "" {
		t.Errorf("expected the loading page to refresh itself, got status %d", res.StatusCode)
	}
	expectBody(t, string(body), "Loading")
}

func TestLogin(t *testing.T) {
	f := setup(t)
	f.api.AddUser("galileo", "sidereus-nuncius", "editor")

	res, body := f.post(t, "/login", url.Values{"username": {""}, "password": {""}})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for an empty form, got %d", res.StatusCode)
	}
	expectBody(t, body, "Username is required", "Password is required")

	res, body = f.post(t, "/login", url.Values{"username": {"galileo"}, "password": {"wrong-password"}})
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for a wrong password, got %d", res.StatusCode)
	}
	expectBody(t, body, "Incorrect username or password")

	res, _ = f.post(t, "/login", url.Values{
		"username": {"galileo"},
		"password": {"sidereus-nuncius"},
		"from":     {"/articles/new"},
	})
	expectRedirect(t, res, "/articles/new")

	if st := f.st.Session.State(); !st.IsAuthenticated || st.User.Username != "galileo" {
		t.Fatalf("expected galileo to be logged in, got %+v", st)
	}

	res, body = f.get(t, "/articles/new")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected the editor, got status %d", res.StatusCode)
	}
	expectBody(t, body, "New article", "Welcome back, galileo.")

	_, body = f.get(t, "/articles")
	if strings.Contains(body, "Welcome back") {
		t.Error("expected the flash message to be shown once")
	}
}

func TestLoginIgnoresForeignReturnPath(t *testing.T) {
	f := setup(t)
	f.api.AddUser("galileo", "sidereus-nuncius", "editor")

	for _, from := range []string{"https://evil.test/", "//evil.test/", "/\\evil.test"} {
		t.Run(from, func(t *testing.T) {
			res, _ := f.post(t, "/login", url.Values{
				"username": {"galileo"},
				"password": {"sidereus-nuncius"},
				"from":     {from},
			})
			expectRedirect(t, res, "/")
		})
	}
}

func TestRegister(t *testing.T) {
	f := setup(t)

	res, body := f.post(t, "/register", url.Values{
		"username": {"kepler"},
		"email":    {"not an email"},
		"password": {"harmonices"},
		"confirm":  {"mundi"},
	})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", res.StatusCode)
	}
	expectBody(t, body, "Email must be a valid email address", "Confirm must match password")

	res, _ = f.post(t, "/register", url.Values{
		"username": {"kepler"},
		"email":    {"kepler@prague.cz"},
		"password": {"harmonices"},
		"confirm":  {"harmonices"},
	})
	expectRedirect(t, res, "/")
	if st := f.st.Session.State(); !st.IsAuthenticated || st.User.Username != "kepler" {
		t.Errorf("expected kepler to be logged in, got %+v", st)
	}
}

func TestForbidden(t *testing.T) {
	f := setup(t)
	f.login(t, "sagredo", "user")

	res, _ := f.get(t, "/users")
	expectRedirect(t, res, "/forbidden")

	res, body := f.get(t, "/forbidden")
	if res.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", res.StatusCode)
	}
	expectBody(t, body, "You do not have permission")
}

func TestNotFound(t *testing.T) {
	f := setup(t)

	for _, path := range []string{"/nowhere", "/articles/not-an-id", "/articles/" + uuid.NewString()} {
		res, _ := f.get(t, path)
		if res.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, res.StatusCode)
		}
	}
}

func TestArticlePages(t *testing.T) {
	f := setup(t)
	author := f.api.AddUser("galileo", "sidereus-nuncius", "admin")
	a, _ := f.api.SeedArticle("Jupiter <moons>", original, author.ID)
	f.api.SeedComment(a.ID, author.ID, "Four, at least.", nil)

	_, body := f.get(t, "/articles")
	expectBody(t, body, "Jupiter &lt;moons&gt;", "/articles/"+a.ID.String())

	res, body := f.get(t, "/articles/"+a.ID.String())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected the article, got status %d", res.StatusCode)
	}
	expectBody(t, body, "<p>Jupiter has", "Comments (1)", "Four, at least.", "galileo")
	if strings.Contains(body, "<textarea") {
		t.Error("expected no comment form for anonymous readers")
	}

	_, body = f.get(t, "/articles/"+a.ID.String()+"/history")
	expectBody(t, body, "Initial commit")

	_, body = f.get(t, "/articles/"+a.ID.String()+"/branches")
	expectBody(t, body, "main", "protected")
}

func TestEditArticle(t *testing.T) {
	f := setup(t)
	user := f.login(t, "galileo", "editor")
	a, _ := f.api.SeedArticle("Jupiter", original, user.ID)
	edit := "/articles/" + a.ID.String() + "/edit"
	changed := original + "Io is volcanic.\n"

	res, body := f.get(t, edit)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected the editor, got status %d", res.StatusCode)
	}
	expectBody(t, body, "Editing Jupiter", "Saturn has rings.")

	res, body = f.post(t, edit, url.Values{"content": {""}, "action": {"save"}})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", res.StatusCode)
	}
	expectBody(t, body, "Content is required")

	res, body = f.post(t, edit, url.Values{"content": {changed}, "action": {"preview"}})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected the preview, got status %d", res.StatusCode)
	}
	expectBody(t, body, "<ins>+ Io is volcanic.</ins>", "+1 −0 lines")

	res, _ = f.post(t, edit, url.Values{"content": {changed}, "action": {"save"}})
	expectRedirect(t, res, "/articles/"+a.ID.String())

	_, body = f.get(t, "/articles/"+a.ID.String())
	expectBody(t, body, "Io is volcanic.", "Changes saved.")

	_, body = f.get(t, "/articles/"+a.ID.String()+"/history")
	expectBody(t, body, "Update article content")
}

func TestCreateArticle(t *testing.T) {
	f := setup(t)
	f.login(t, "galileo", "editor")

	res, body := f.post(t, "/articles/new", url.Values{"title": {""}, "content": {"Rings"}})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", res.StatusCode)
	}
	expectBody(t, body, "Title is required")

	res, _ = f.post(t, "/articles/new", url.Values{"title": {"Saturn"}, "content": {"Rings"}, "status": {"published"}})
	if res.StatusCode != http.StatusSeeOther || !strings.HasPrefix(res.Header.Get("Location"), "/articles/") {
		t.Fatalf("expected a redirect to the new article, got %d %q", res.StatusCode, res.Header.Get("Location"))
	}

	_, body = f.get(t, res.Header.Get("Location"))
	expectBody(t, body, "<h1>Saturn</h1>", "Article created.")

	res, body = f.post(t, "/articles/new", url.Values{"title": {"Saturn"}, "content": {"Again"}, "status": {"draft"}})
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("expected the duplicate to be rejected with 400, got %d", res.StatusCode)
	}
	expectBody(t, body, "flash-error")
}

func TestBranchAndMerge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.login(t, "galileo", "editor")
	a, main := f.api.SeedArticle("Jupiter", original, user.ID)
	base := "/articles/" + a.ID.String()

	res, body := f.post(t, base+"/branches", url.Values{"name": {"io/europa"}})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", res.StatusCode)
	}
	expectBody(t, body, "Name cannot contain spaces or slashes, or be a dot segment")

	res, _ = f.post(t, base+"/branches", url.Values{"name": {"moons"}, "description": {"The Medicean stars"}})
	expectRedirect(t, res, base+"?branch=moons")

	res, _ = f.post(t, base+"/edit?branch=moons", url.Values{
		"content": {original + "Io is volcanic.\n"},
		"message": {"Add Io"},
		"action":  {"save"},
	})
	expectRedirect(t, res, base+"?branch=moons")

	_, body = f.get(t, base)
	if strings.Contains(body, "Io is volcanic.") {
		t.Fatal("expected main to be unchanged before merging")
	}

	moons, err := f.st.Service.BranchByName(ctx, a.ID, "moons")
	if err != nil {
		t.Fatal(err)
	}
	res, _ = f.post(t, base+"/merge", url.Values{
		"source": {moons.ID.String()},
		"target": {main.ID.String()},
	})
	expectRedirect(t, res, base+"/branches")

	_, body = f.get(t, base)
	expectBody(t, body, "Io is volcanic.")

	res, body = f.post(t, base+"/merge", url.Values{
		"source": {main.ID.String()},
		"target": {main.ID.String()},
	})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected merging a branch into itself to be rejected, got %d", res.StatusCode)
	}
	expectBody(t, body, "Target must differ from source")

	res, _ = f.post(t, base+"/branches/"+moons.ID.String()+"/delete", nil)
	expectRedirect(t, res, base+"/branches")
	if _, ok := f.api.Branch(moons.ID); ok {
		t.Error("expected the branch to be deleted")
	}

	res, _ = f.post(t, base+"/branches/"+main.ID.String()+"/delete", nil)
	expectRedirect(t, res, base+"/branches")
	_, body = f.get(t, base+"/branches")
	expectBody(t, body, "flash-error")
}

func TestCommitPage(t *testing.T) {
	f := setup(t)
	user := f.login(t, "galileo", "editor")
	a, _ := f.api.SeedArticle("Jupiter", original, user.ID)
	c, err := f.st.Service.QuickEditArticle(context.Background(), a.ID, domain.MainBranch, "Jupiter has\nfour moons.\n", "Drop Saturn")
	if err != nil {
		t.Fatal(err)
	}

	res, body := f.get(t, "/commits/"+c.ID.String())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected the commit, got status %d", res.StatusCode)
	}
	expectBody(t, body, "Drop Saturn", "<del>- Saturn has rings.</del>", "Revert this commit")

	res, _ = f.post(t, "/commits/"+c.ID.String()+"/revert", nil)
	if res.StatusCode != http.StatusSeeOther || !strings.HasPrefix(res.Header.Get("Location"), "/commits/") {
		t.Fatalf("expected a redirect to the revert commit, got %d", res.StatusCode)
	}

	_, body = f.get(t, "/articles/"+a.ID.String())
	expectBody(t, body, "Saturn has rings.")
}

func TestComments(t *testing.T) {
	f := setup(t)
	user := f.login(t, "galileo", "editor")
	a, _ := f.api.SeedArticle("Jupiter", original, user.ID)
	base := "/articles/" + a.ID.String()

	res, body := f.post(t, base+"/comments", url.Values{"content": {"  "}})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", res.StatusCode)
	}
	expectBody(t, body, "Content is required")

	res, _ = f.post(t, base+"/comments", url.Values{"content": {"Io is volcanic."}})
	if res.StatusCode != http.StatusSeeOther || !strings.HasPrefix(res.Header.Get("Location"), base+"#comment-") {
		t.Fatalf("expected a redirect to the comment, got %d %q", res.StatusCode, res.Header.Get("Location"))
	}
	id := strings.TrimPrefix(res.Header.Get("Location"), base+"#comment-")

	res, _ = f.post(t, base+"/comments", url.Values{"content": {"So is Europa?"}, "reply_to": {id}})
	if res.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected the reply to be posted, got %d", res.StatusCode)
	}

	_, body = f.get(t, base)
	expectBody(t, body, "Comments (2)", "Io is volcanic.", "So is Europa?", "depth-1")

	res, _ = f.post(t, base+"/comments/"+id+"/delete", nil)
	expectRedirect(t, res, base)
	_, body = f.get(t, base)
	expectBody(t, body, "Comments (0)")
}

func TestProfile(t *testing.T) {
	f := setup(t)
	user := f.login(t, "galileo", "editor")

	_, body := f.get(t, "/profile")
	expectBody(t, body, "No profile yet", "/profile/edit")

	_, body = f.get(t, "/profile/edit")
	expectBody(t, body, "Create your profile")

	res, body := f.post(t, "/profile/edit", url.Values{"bio": {"Astronomer"}, "website": {"not a url"}})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", res.StatusCode)
	}
	expectBody(t, body, "Website must be a valid URL")

	res, _ = f.post(t, "/profile/edit", url.Values{"bio": {"Astronomer"}, "website": {"https://padova.test"}})
	expectRedirect(t, res, "/profile")

	_, body = f.get(t, "/profile")
	expectBody(t, body, "Astronomer", "https://padova.test", "Edit profile")

	res, _ = f.get(t, "/users/"+user.ID.String()+"/profile")
	expectRedirect(t, res, "/profile")

	res, _ = f.post(t, "/profile/delete", nil)
	expectRedirect(t, res, "/profile")
	_, body = f.get(t, "/profile")
	expectBody(t, body, "No profile yet")
}

func TestAdmin(t *testing.T) {
	f := setup(t)
	f.login(t, "galileo", "admin")

	res, body := f.post(t, "/admin/users", url.Values{"username": {"kepler"}, "email": {"kepler@prague.cz"}, "role": {"wizard"}})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", res.StatusCode)
	}
	expectBody(t, body, "Password is required", "Role must be one of user, editor, moderator, admin")

	res, _ = f.post(t, "/admin/users", url.Values{
		"username": {"kepler"},
		"email":    {"kepler@prague.cz"},
		"password": {"harmonices"},
		"role":     {"editor"},
	})
	expectRedirect(t, res, "/admin")

	_, body = f.get(t, "/admin")
	expectBody(t, body, "User kepler created.", "kepler@prague.cz")

	_, body = f.get(t, "/users?q=kep")
	expectBody(t, body, "kepler")
}

func TestUpload(t *testing.T) {
	f := setup(t)
	f.login(t, "galileo", "editor")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "moons.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("png"))
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/media/upload", &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res, body := f.do(t, req)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected the upload to succeed, got status %d", res.StatusCode)
	}
	expectBody(t, body, "Uploaded <strong>moons.png</strong> (3 bytes)")
}

func TestLogout(t *testing.T) {
	f := setup(t)
	f.login(t, "galileo", "editor")
	token, err := storage.Token(context.Background(), f.st.Storage)
	if err != nil {
		t.Fatal(err)
	}

	res, _ := f.post(t, "/logout", nil)
	expectRedirect(t, res, "/")

	if f.st.Session.State().IsAuthenticated {
		t.Error("expected nobody to be logged in")
	}
	if f.api.HasToken(token) {
		t.Error("expected the token to be revoked by the API")
	}
	_, body := f.get(t, "/")
	expectBody(t, body, "You have been logged out.", "Log in")
}

func TestExpiredToken(t *testing.T) {
	f := setup(t)
	f.login(t, "galileo", "editor")
	if err := f.st.Storage.Set(context.Background(), storage.TokenKey, "expired"); err != nil {
		t.Fatal(err)
	}

	res, _ := f.get(t, "/profile")
	expectRedirect(t, res, "/login?from=%2Fprofile")

	if f.st.Session.State().IsAuthenticated {
		t.Error("expected the session to be reset")
	}
	if token, _ := storage.Token(context.Background(), f.st.Storage); token != "" {
		t.Error("expected the rejected token to be removed")
	}
}
