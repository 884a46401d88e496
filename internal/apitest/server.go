// Package apitest provides an in-memory fake of the wiki REST API for tests. It keeps articles, branches,
// commits, comments, users and profiles in maps, authenticates requests by bearer token and counts the
// requests made to every route.
//
// Failures can be injected per route with Fail, and requests can be held back with Block to observe
// in-flight states.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sidereusnuntius/wikifront/internal/domain"
)

// Prefix is the path under which the API is served.
const Prefix = "/api/v1"

// FailNetwork makes Fail drop the connection instead of answering.
const FailNetwork = 0

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	clock    time.Time
	accounts map[domain.ID]*account
	tokens   map[string]domain.ID
	articles map[domain.ID]*domain.Article
	branches map[domain.ID]*domain.Branch
	commits  map[domain.ID]*commit
	comments map[domain.ID]domain.Comment
	media    map[domain.ID]domain.Media
	hits     map[string]int
	failures map[string]failure
	blocks   map[string]chan struct{}
}

type account struct {
	user     domain.User
	password string
	profile  *domain.Profile
	versions []domain.ProfileVersion
}

type commit struct {
	domain.Commit
	content  string
	parents  []domain.ID
	branchID domain.ID
}

type failure struct {
	status int
	detail string
}

// New starts a fake API. Close it when done.
func New() *Server {
	s := &Server{
		clock:    time.Date(2025, 9, 25, 12, 0, 0, 0, time.UTC),
		accounts: make(map[domain.ID]*account),
		tokens:   make(map[string]domain.ID),
		articles: make(map[domain.ID]*domain.Article),
		branches: make(map[domain.ID]*domain.Branch),
		commits:  make(map[domain.ID]*commit),
		comments: make(map[domain.ID]domain.Comment),
		media:    make(map[domain.ID]domain.Media),
		hits:     make(map[string]int),
		failures: make(map[string]failure),
		blocks:   make(map[string]chan struct{}),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

// APIURL is the base URL clients should be configured with.
func (s *Server) APIURL() string {
	return s.URL + Prefix
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Route(Prefix, func(r chi.Router) {
		s.mountAuth(r)
		s.mountUsers(r)
		s.mountArticles(r)
		s.mountBranches(r)
		s.mountCommits(r)
		s.mountComments(r)
		s.handle(r, http.MethodPost, "/media/upload", s.uploadMedia)
	})
	return r
}

// handle registers h, wrapped to count hits and to apply injected failures and blocks.
func (s *Server) handle(r chi.Router, method, pattern string, h http.HandlerFunc) {
	route := method + " " + pattern
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		s.hits[route]++
		f, failing := s.failures[route]
		block := s.blocks[route]
		s.mu.Unlock()

		if block != nil {
			select {
			case <-block:
			case <-req.Context().Done():
				return
			}
		}

		if failing {
			if f.status == FailNetwork {
				dropConnection(w)
				return
			}
			writeDetail(w, f.status, f.detail)
			return
		}
		h(w, req)
	}))
}

// Hits returns how many requests reached the route, given as the method and the pattern under Prefix,
// e.g. "GET", "/users/me".
func (s *Server) Hits(method, pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+pattern]
}

func (s *Server) ResetHits() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.hits)
}

// Fail makes every request to the route fail with status and detail, or drop the connection if status is
// FailNetwork, until Recover is called.
func (s *Server) Fail(method, pattern string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+pattern] = failure{status: status, detail: detail}
}

func (s *Server) Recover(method, pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, method+" "+pattern)
}

// Block holds requests to the route until the returned function is called.
func (s *Server) Block(method, pattern string) (release func()) {
	ch := make(chan struct{})
	route := method + " " + pattern
	s.mu.Lock()
	s.blocks[route] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.blocks, route)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// tick advances the fake clock, so that every record gets a distinct, ordered timestamp. Callers hold mu.
func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// AddUser creates an account directly. The role decides the permissions: "admin" may do anything,
// "moderator" may edit and moderate, "editor" and "user" may edit, anything else is read only.
func (s *Server) AddUser(username, password, role string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUser(domain.UserWrite{
		Username: username,
		Email:    username + "@wiki.test",
		Password: password,
		Role:     role,
	})
}

func (s *Server) addUser(w domain.UserWrite) domain.User {
	u := domain.User{
		ID:        uuid.New(),
		Username:  w.Username,
		Email:     w.Email,
		FullName:  w.FullName,
		Role:      w.Role,
		CreatedAt: s.tick(),
	}
	s.accounts[u.ID] = &account{user: u, password: w.Password}
	return u
}

// IssueToken returns a valid access token for the user, as if they had logged in.
func (s *Server) IssueToken(id domain.ID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueToken(id)
}

func (s *Server) issueToken(id domain.ID) string {
	token := uuid.NewString()
	s.tokens[token] = id
	return token
}

func permissionsOf(role string) domain.PermissionSet {
	p := domain.PermissionSet{Role: role}
	switch role {
	case "admin":
		p.CanEdit, p.CanDelete, p.CanModerate, p.BypassTagRestrictions = true, true, true, true
	case "moderator":
		p.CanEdit, p.CanModerate = true, true
	case "editor", "user":
		p.CanEdit = true
	}
	return p
}

// caller returns the account owning the request's bearer token. Callers hold mu.
func (s *Server) caller(r *http.Request) (*account, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return nil, false
	}
	id, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	a, ok := s.accounts[id]
	return a, ok
}

// authorize returns the caller, answering 401 or 403 and returning false if they are not logged in or lack
// the permission. An empty permission only requires a login. Callers hold mu.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, perm domain.Permission) (*account, bool) {
	a, ok := s.caller(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return nil, false
	}
	if perm != "" {
		perms := permissionsOf(a.user.Role)
		if !perms.Has(perm) {
			writeDetail(w, http.StatusForbidden, "Not enough permissions")
			return nil, false
		}
	}
	return a, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (domain.ID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid id")
		return id, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic(http.ErrAbortHandler)
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(http.ErrAbortHandler)
	}
	conn.Close()
}
